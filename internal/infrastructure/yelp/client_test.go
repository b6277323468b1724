package yelp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

var center = domain.Coordinate{Lat: 37.7749, Lng: -122.4194}

func TestSearchNearby_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/search", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "37.7749", q.Get("latitude"))
		assert.Equal(t, "-122.4194", q.Get("longitude"))
		assert.Equal(t, "8047", q.Get("radius"))
		assert.Equal(t, "restaurants", q.Get("categories"))
		assert.Equal(t, "distance", q.Get("sort_by"))
		assert.Equal(t, "5", q.Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"total": 2,
			"businesses": [
				{
					"id": "joes-sf",
					"name": "Joe's",
					"rating": 4.5,
					"location": {"display_address": ["1 Main St", "San Francisco, CA 94105"]},
					"coordinates": {"latitude": 37.78, "longitude": -122.41},
					"categories": [{"alias": "thai", "title": "Thai"}],
					"attributes": {"menu_url": "https://joes.example/menu"}
				},
				{
					"id": "anns-sf",
					"name": "Ann's",
					"location": {"display_address": ["2 Main St"]},
					"coordinates": {"latitude": 37.77, "longitude": -122.42}
				}
			]
		}`)
	}))
	defer srv.Close()

	client := NewClient("test-api-key", srv.URL, 20, logging.Discard())
	got, err := client.SearchNearby(context.Background(), center, 8046.7, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.RestaurantCandidate{
		ID:         "joes-sf",
		Name:       "Joe's",
		Address:    "1 Main St, San Francisco, CA 94105",
		Location:   domain.Coordinate{Lat: 37.78, Lng: -122.41},
		Website:    domain.KnownWebsite("https://joes.example/menu"),
		Rating:     4.5,
		Categories: []string{"Thai"},
		Source:     "directory",
	}, got[0])
	assert.True(t, got[1].Website.IsZero())
}

func TestSearchNearby_Caps(t *testing.T) {
	var radius, limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		radius = r.URL.Query().Get("radius")
		limit = r.URL.Query().Get("limit")
		fmt.Fprint(w, `{"businesses": [], "total": 0}`)
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL, 200, logging.Discard())
	got, err := client.SearchNearby(context.Background(), center, 80467, 0)
	require.NoError(t, err)

	assert.Equal(t, "40000", radius)
	assert.Equal(t, "50", limit)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSearchNearby_Errors(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"code":"TOKEN_INVALID"}}`)
		}))
		defer srv.Close()

		_, err := NewClient("bad", srv.URL, 20, logging.Discard()).SearchNearby(context.Background(), center, 1000, 5)
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient("k", url, 20, logging.Discard()).SearchNearby(context.Background(), center, 1000, 5)
		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}
