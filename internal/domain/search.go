package domain

import "time"

// DistanceUnit is the only unit the API reports distances in
const DistanceUnit = "miles"

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SearchRequest represents one user search. It is immutable for the lifetime of a pipeline run.
type SearchRequest struct {
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusMiles float64 `json:"radius" validate:"gt=0,lte=50"`
	Query       string  `json:"query" validate:"required,max=200"`
}

// Center returns the search center as a Coordinate
func (r SearchRequest) Center() Coordinate {
	return Coordinate{Lat: r.Latitude, Lng: r.Longitude}
}

// SearchResponse is the terminal, externally returned artifact of a search.
// Results is never nil so that it always serializes as an array.
type SearchResponse struct {
	Results  []RestaurantResult `json:"results"`
	Metadata SearchMetadata     `json:"metadata"`
	Error    string             `json:"error,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// SearchMetadata describes the search that produced a response
type SearchMetadata struct {
	TotalResults int        `json:"totalResults"`
	SearchRadius float64    `json:"searchRadius"`
	Unit         string     `json:"unit"`
	SearchCenter Coordinate `json:"searchCenter"`
	Timestamp    string     `json:"timestamp"`
	Message      string     `json:"message,omitempty"`
}

// RestaurantResult groups the matching items of one restaurant
type RestaurantResult struct {
	Restaurant    RestaurantInfo `json:"restaurant"`
	Location      ResultLocation `json:"location"`
	MatchingItems []MatchingItem `json:"matchingItems"`
}

// RestaurantInfo is the restaurant header of a result
type RestaurantInfo struct {
	Name         string  `json:"name"`
	ID           string  `json:"id"`
	Rating       float64 `json:"rating"`
	Cuisine      string  `json:"cuisine"`
	Distance     float64 `json:"distance"`
	DistanceUnit string  `json:"distanceUnit"`
}

// ResultLocation is where a result restaurant is
type ResultLocation struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// MatchingItem is a menu item enriched by the aggregation step.
// MatchScore and Nutrition are model estimates and must be treated as advisory.
type MatchingItem struct {
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	MatchScore  float64   `json:"matchScore"` // 0-1
	Ingredients string    `json:"ingredients"`
	Nutrition   Nutrition `json:"nutrition"`
	Tags        []string  `json:"tags"`
}

// Nutrition holds estimated macros for one item
type Nutrition struct {
	Calories int    `json:"calories"`
	Protein  string `json:"protein"` // e.g. "45g"
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`
}

// NewEmptyResponse builds a response with no results for the given search parameters
func NewEmptyResponse(center Coordinate, radiusMiles float64, message string) *SearchResponse {
	return &SearchResponse{
		Results: []RestaurantResult{},
		Metadata: SearchMetadata{
			TotalResults: 0,
			SearchRadius: radiusMiles,
			Unit:         DistanceUnit,
			SearchCenter: center,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Message:      message,
		},
	}
}

// NewErrorResponse builds the failure payload: no results, zeroed metadata, error and message set
func NewErrorResponse(errLabel, message string) *SearchResponse {
	resp := NewEmptyResponse(Coordinate{}, 0, "")
	resp.Error = errLabel
	resp.Message = message
	return resp
}

// AreaRequest is a discovery-only lookup. Limit 0 means no limit beyond what the provider returns.
type AreaRequest struct {
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusMiles float64 `json:"radius" validate:"gt=0,lte=50"`
	Limit       int     `json:"limit" validate:"gte=0,lte=60"`
}

// Center returns the lookup center as a Coordinate
func (r AreaRequest) Center() Coordinate {
	return Coordinate{Lat: r.Latitude, Lng: r.Longitude}
}

// RestaurantsResponse lists the candidates discovered around a point
type RestaurantsResponse struct {
	Status  string                `json:"status"`
	Results []RestaurantCandidate `json:"results"`
	Count   int                   `json:"count"`
}
