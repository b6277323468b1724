package places

import (
	"encoding/json"
	"strings"

	"github.com/forkcast/backend/internal/domain"
)

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchNearbyRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	PageToken           string   `json:"pageToken,omitempty"`
	LocationRestriction struct {
		Circle struct {
			Center latLng  `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
}

type searchNearbyResponse struct {
	Places        []place `json:"places"`
	NextPageToken string  `json:"nextPageToken"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string   `json:"formattedAddress"`
	Location         latLng   `json:"location"`
	Rating           float64  `json:"rating"`
	Types            []string `json:"types"`
	WebsiteURI       string   `json:"websiteUri"`
}

// genericTypes say nothing about the cuisine
var genericTypes = map[string]bool{
	"restaurant":        true,
	"food":              true,
	"point_of_interest": true,
	"establishment":     true,
	"store":             true,
}

// toCandidate maps a Places result onto the domain type
func toCandidate(p place) domain.RestaurantCandidate {
	return domain.RestaurantCandidate{
		ID:         p.ID,
		Name:       p.DisplayName.Text,
		Address:    p.FormattedAddress,
		Location:   domain.Coordinate{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
		Website:    domain.KnownWebsite(strings.TrimSpace(p.WebsiteURI)),
		Rating:     p.Rating,
		Categories: categories(p.Types),
		Source:     "places",
	}
}

// categories turns place types like "italian_restaurant" into "italian"
func categories(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if genericTypes[t] {
			continue
		}
		t = strings.TrimSuffix(t, "_restaurant")
		out = append(out, strings.ReplaceAll(t, "_", " "))
	}
	return out
}

// errorMessage pulls error.message out of a Google error body
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(body)
}
