package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

const (
	msgNoCandidates = "No restaurants found near the search location"
	msgNoMenuData   = "No menu data could be extracted from nearby restaurants"
	msgNoMatches    = "No menu items matched your search"
)

const aggregatorSystemPrompt = `You are a restaurant menu analyzer. Combine restaurant information with parsed menu data into one structured JSON response.

The output must be a single JSON object with this shape:
{
  "results": [
    {
      "restaurant": {"name": "Restaurant Name", "id": "restaurant id", "rating": 4.5, "cuisine": "Cuisine Type", "distance": 0.8, "distanceUnit": "miles"},
      "location": {"lat": 37.7823, "lng": -122.4145, "address": "Full Address"},
      "matchingItems": [
        {
          "name": "Dish Name",
          "price": 12.99,
          "matchScore": 0.95,
          "ingredients": "ingredient list",
          "nutrition": {"calories": 520, "protein": "45g", "carbs": "52g", "fat": "14g"},
          "tags": ["high-protein", "gluten-free"]
        }
      ]
    }
  ]
}

Rules:
1. Combine the restaurant data with the menu items parsed for that restaurant. Use the restaurant id exactly as given.
2. Estimate nutrition from the ingredients when it is not provided.
3. Set matchScore between 0 and 1 based on how well the item matches the search query and healthy/high-protein criteria.
4. Infer the cuisine from the restaurant categories or its menu items.
5. Use the distance given for each restaurant.
6. Prefer main dishes over sides, drinks or desserts unless the query asks for them.
7. Add relevant tags like "high-protein", "healthy", "vegetarian", "gluten-free".
8. Use empty strings or reasonable defaults when data is missing.
9. Only include items that match or are clearly related to the search query. Leave out restaurants with no matching items.
10. Return ONLY valid JSON, no markdown or explanations.`

// ResultAggregatorConfig holds configuration for result aggregation
type ResultAggregatorConfig struct {
	// Filter is the optional deterministic keyword floor
	Filter *QueryFilter
}

// ResultAggregator merges candidates and extracted menus into the final ranked response.
// It is the only stage that writes SearchResponse results.
type ResultAggregator struct {
	generator domain.TextGenerator
	filter    *QueryFilter
	log       *slog.Logger
}

// NewResultAggregator creates a ResultAggregator
func NewResultAggregator(generator domain.TextGenerator, config ResultAggregatorConfig, log *slog.Logger) *ResultAggregator {
	return &ResultAggregator{
		generator: generator,
		filter:    config.Filter,
		log:       logging.Component(log, "result_aggregator"),
	}
}

// Combine produces the search response. With no candidates, or no restaurant carrying
// menu items, it answers with an empty response without calling the model.
func (a *ResultAggregator) Combine(
	ctx context.Context,
	candidates []domain.RestaurantCandidate,
	menus []domain.RestaurantMenus,
	center domain.Coordinate,
	radiusMiles float64,
	query string,
) (*domain.SearchResponse, error) {
	if len(candidates) == 0 {
		return domain.NewEmptyResponse(center, radiusMiles, msgNoCandidates), nil
	}

	usable := make([]domain.RestaurantMenus, 0, len(menus))
	for _, m := range menus {
		if m.HasMenuData() {
			usable = append(usable, m)
		}
	}
	if len(usable) == 0 {
		return domain.NewEmptyResponse(center, radiusMiles, msgNoMenuData), nil
	}

	prompt, err := buildAggregationPrompt(candidates, menus, center, radiusMiles, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAggregation, err)
	}

	start := time.Now()
	raw, err := a.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregation, err)
	}

	var out aggregateOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrAggregation, domain.ErrMalformedOutput, err)
	}
	if out.Results == nil {
		return nil, fmt.Errorf("%w: %w: response has no results array", domain.ErrAggregation, domain.ErrMalformedOutput)
	}

	results := normalizeResults(*out.Results, usable)
	if a.filter != nil {
		results = a.filter.Apply(query, results)
	}

	a.log.Info("aggregation complete",
		"returned", len(*out.Results),
		"kept", len(results),
		"duration", time.Since(start),
	)

	message := ""
	if len(results) == 0 {
		message = msgNoMatches
	}
	resp := domain.NewEmptyResponse(center, radiusMiles, message)
	resp.Results = results
	resp.Metadata.TotalResults = len(results)
	return resp, nil
}

// buildAggregationPrompt renders one context block per restaurant plus the search parameters
func buildAggregationPrompt(
	candidates []domain.RestaurantCandidate,
	menus []domain.RestaurantMenus,
	center domain.Coordinate,
	radiusMiles float64,
	query string,
) (domain.Prompt, error) {
	candidateJSON, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return domain.Prompt{}, fmt.Errorf("encode candidates: %w", err)
	}

	blocks := make([]string, 0, len(menus))
	for _, m := range menus {
		block, err := restaurantContext(m)
		if err != nil {
			return domain.Prompt{}, err
		}
		blocks = append(blocks, block)
	}

	var b strings.Builder
	b.WriteString("Restaurant Data:\n")
	b.Write(candidateJSON)
	b.WriteString("\n\nParsed Menus:\n")
	b.WriteString(strings.Join(blocks, "\n\n---\n\n"))
	fmt.Fprintf(&b, "\n\nSearch Parameters:\n- Latitude: %v\n- Longitude: %v\n- Radius: %v miles\n- Search Query: %q (ONLY return menu items matching this query)\n",
		center.Lat, center.Lng, radiusMiles, query)
	fmt.Fprintf(&b, "\nCombine this data into the required JSON format. Only include items matching the search query %q.", query)

	return domain.Prompt{System: aggregatorSystemPrompt, User: b.String()}, nil
}

func restaurantContext(m domain.RestaurantMenus) (string, error) {
	c := m.Candidate
	var b strings.Builder
	fmt.Fprintf(&b, "Restaurant: %s\nID: %s\nURL: %s\nStatus: %s\nDistance: %.2f miles\n",
		c.Name, c.ID, c.Website.String(), m.Status, c.DistanceMiles)

	if !m.HasMenuData() {
		reason := m.Error
		if reason == "" {
			reason = "no menu items extracted"
		}
		fmt.Fprintf(&b, "Error: %s", reason)
		return b.String(), nil
	}

	items := make([]domain.MenuItem, 0, m.TotalItems())
	for _, menu := range m.Menus {
		items = append(items, menu.Items...)
	}
	itemJSON, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode menu items for %s: %w", c.Name, err)
	}
	b.WriteString("Extracted Menu Items:\n")
	b.Write(itemJSON)
	return b.String(), nil
}

// normalizeResults ties every result to a usable candidate and repairs what the model left out
func normalizeResults(raw []resultOutput, usable []domain.RestaurantMenus) []domain.RestaurantResult {
	byID := make(map[string]domain.RestaurantCandidate, len(usable))
	byName := make(map[string]domain.RestaurantCandidate, len(usable))
	for _, m := range usable {
		byID[m.Candidate.ID] = m.Candidate
		byName[strings.ToLower(strings.TrimSpace(m.Candidate.Name))] = m.Candidate
	}

	results := make([]domain.RestaurantResult, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, r := range raw {
		c, ok := byID[r.Restaurant.ID]
		if !ok || r.Restaurant.ID == "" {
			c, ok = byName[strings.ToLower(strings.TrimSpace(r.Restaurant.Name))]
		}
		if !ok {
			continue
		}

		items := normalizeItems(r.MatchingItems)
		if len(items) == 0 {
			continue
		}

		if i, dup := index[c.ID]; dup {
			results[i].MatchingItems = append(results[i].MatchingItems, items...)
			continue
		}

		result := domain.RestaurantResult{
			Restaurant: domain.RestaurantInfo{
				Name:         c.Name,
				ID:           c.ID,
				Rating:       float64(r.Restaurant.Rating),
				Cuisine:      strings.TrimSpace(r.Restaurant.Cuisine),
				Distance:     c.DistanceMiles,
				DistanceUnit: domain.DistanceUnit,
			},
			Location: domain.ResultLocation{
				Lat:     c.Location.Lat,
				Lng:     c.Location.Lng,
				Address: c.Address,
			},
			MatchingItems: items,
		}
		if result.Restaurant.Rating == 0 {
			result.Restaurant.Rating = c.Rating
		}
		if result.Restaurant.Cuisine == "" && len(c.Categories) > 0 {
			result.Restaurant.Cuisine = c.Categories[0]
		}

		index[c.ID] = len(results)
		results = append(results, result)
	}
	return results
}

func normalizeItems(raw []itemOutput) []domain.MatchingItem {
	items := make([]domain.MatchingItem, 0, len(raw))
	for _, it := range raw {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		tags := it.Tags
		if tags == nil {
			tags = []string{}
		}
		items = append(items, domain.MatchingItem{
			Name:        name,
			Price:       math.Max(0, float64(it.Price)),
			MatchScore:  clamp(float64(it.MatchScore), 0, 1),
			Ingredients: string(it.Ingredients),
			Nutrition: domain.Nutrition{
				Calories: int(math.Max(0, math.Round(float64(it.Nutrition.Calories)))),
				Protein:  string(it.Nutrition.Protein),
				Carbs:    string(it.Nutrition.Carbs),
				Fat:      string(it.Nutrition.Fat),
			},
			Tags: tags,
		})
	}
	return items
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// aggregateOutput is the model's answer. Results is a pointer so a missing key is detectable.
type aggregateOutput struct {
	Results *[]resultOutput `json:"results"`
}

type resultOutput struct {
	Restaurant struct {
		Name    string        `json:"name"`
		ID      string        `json:"id"`
		Rating  flexibleFloat `json:"rating"`
		Cuisine string        `json:"cuisine"`
	} `json:"restaurant"`
	MatchingItems []itemOutput `json:"matchingItems"`
}

type itemOutput struct {
	Name        string         `json:"name"`
	Price       flexibleFloat  `json:"price"`
	MatchScore  flexibleFloat  `json:"matchScore"`
	Ingredients flexibleString `json:"ingredients"`
	Nutrition   struct {
		Calories flexibleFloat `json:"calories"`
		Protein  grams         `json:"protein"`
		Carbs    grams         `json:"carbs"`
		Fat      grams         `json:"fat"`
	} `json:"nutrition"`
	Tags []string `json:"tags"`
}

// flexibleFloat accepts a number, a numeric string ("$12.99", "520 kcal") or null
type flexibleFloat float64

func (f *flexibleFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexibleFloat(n)
		return nil
	}
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil
	}
	if s == nil {
		*f = 0
		return nil
	}
	*f = flexibleFloat(leadingNumber(*s))
	return nil
}

// grams accepts "45g", "45" or 45 and always yields the "45g" form
type grams string

func (g *grams) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = ""
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*g = grams(strconv.FormatFloat(math.Round(n*10)/10, 'f', -1, 64) + "g")
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*g = ""
		return nil
	}
	s = strings.TrimSpace(s)
	if s != "" && isDecimal(s) {
		s += "g"
	}
	*g = grams(s)
	return nil
}

// flexibleString accepts a string or a list of strings joined by ", "
type flexibleString string

func (f *flexibleString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleString(strings.TrimSpace(s))
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexibleString(strings.Join(list, ", "))
		return nil
	}
	*f = ""
	return nil
}

// leadingNumber parses the first decimal number in s, or 0
func leadingNumber(s string) float64 {
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	n, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil {
		return 0
	}
	return n
}

func isDecimal(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
