package yelp

import (
	"strings"

	"github.com/forkcast/backend/internal/domain"
)

type searchResponse struct {
	Businesses []business `json:"businesses"`
	Total      int        `json:"total"`
}

type business struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
	Location struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Categories []struct {
		Alias string `json:"alias"`
		Title string `json:"title"`
	} `json:"categories"`
	Attributes struct {
		MenuURL string `json:"menu_url"`
	} `json:"attributes"`
}

func toCandidate(b business) domain.RestaurantCandidate {
	cats := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		cats = append(cats, c.Title)
	}
	return domain.RestaurantCandidate{
		ID:         b.ID,
		Name:       b.Name,
		Address:    strings.Join(b.Location.DisplayAddress, ", "),
		Location:   domain.Coordinate{Lat: b.Coordinates.Latitude, Lng: b.Coordinates.Longitude},
		Website:    domain.KnownWebsite(strings.TrimSpace(b.Attributes.MenuURL)),
		Rating:     b.Rating,
		Categories: cats,
		Source:     "directory",
	}
}
