package domain

import "encoding/json"

// WebsiteNotFound is the wire value used when no website could be located
const WebsiteNotFound = "NOT_FOUND"

// WebsiteStatus tells whether a candidate's website is known
type WebsiteStatus int

const (
	// WebsiteUnknown means no lookup has happened yet
	WebsiteUnknown WebsiteStatus = iota
	// WebsiteFound means URL holds a usable http(s) URL
	WebsiteFound
	// WebsiteMissing means a lookup happened and found nothing
	WebsiteMissing
)

// Website is an optional website URL. The zero value is "unknown".
type Website struct {
	URL    string
	Status WebsiteStatus
}

// KnownWebsite wraps a URL that came straight from a discovery provider
func KnownWebsite(url string) Website {
	if url == "" {
		return Website{}
	}
	return Website{URL: url, Status: WebsiteFound}
}

// MissingWebsite is the explicit "not found" value
func MissingWebsite() Website {
	return Website{Status: WebsiteMissing}
}

// Found reports whether the website can be scraped
func (w Website) Found() bool {
	return w.Status == WebsiteFound && w.URL != ""
}

// IsZero lets `omitzero` drop unknown websites from JSON
func (w Website) IsZero() bool {
	return w.Status == WebsiteUnknown
}

// String returns the URL or the NOT_FOUND sentinel
func (w Website) String() string {
	switch w.Status {
	case WebsiteFound:
		return w.URL
	case WebsiteMissing:
		return WebsiteNotFound
	default:
		return ""
	}
}

// MarshalJSON keeps the external "url | NOT_FOUND" contract
func (w Website) MarshalJSON() ([]byte, error) {
	if w.Status == WebsiteUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(w.String())
}

// UnmarshalJSON accepts a URL, the NOT_FOUND sentinel, or null
func (w *Website) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw == nil || *raw == "":
		*w = Website{}
	case *raw == WebsiteNotFound:
		*w = MissingWebsite()
	default:
		*w = KnownWebsite(*raw)
	}
	return nil
}

// RestaurantCandidate is a restaurant discovered near the search center, not yet scraped.
// Candidates are never mutated after discovery; enrichment produces a copy.
type RestaurantCandidate struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	Location      Coordinate `json:"location"`
	Website       Website    `json:"websiteUrl,omitzero"`
	Rating        float64    `json:"rating,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	Source        string     `json:"source"` // "places" or "directory"
	DistanceMiles float64    `json:"distanceMiles"`
}

// WithWebsite returns a copy of the candidate carrying the given website
func (c RestaurantCandidate) WithWebsite(w Website) RestaurantCandidate {
	c.Website = w
	return c
}
