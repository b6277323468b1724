package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

const extractToolName = "extract_menu_items"

var stringArray = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}

var extractTool = domain.ToolSpec{
	Name:        extractToolName,
	Description: "Extracts structured menu items from restaurant menu text",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"menuItems": map[string]any{
				"type":        "array",
				"description": "List of menu items found in the text",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string", "description": "Name of the menu item"},
						"description": map[string]any{"type": "string", "description": "Description or ingredients of the item (if available)"},
						"price":       map[string]any{"type": "number", "description": "Price in USD (if available)"},
						"categories": withDescription(stringArray,
							"Menu category (e.g., appetizers, entrees, desserts, drinks, sides)"),
						"dietaryInfos": withDescription(stringArray,
							"Dietary tags like 'vegetarian', 'vegan', 'gluten-free', etc."),
						"modifiers": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"name":  map[string]any{"type": "string"},
									"price": map[string]any{"type": "number"},
								},
							},
							"description": "Optional add-ons or modifications with their prices",
						},
					},
					"required": []string{"name"},
				},
			},
		},
		"required": []string{"menuItems"},
	},
}

func withDescription(schema map[string]any, description string) map[string]any {
	out := make(map[string]any, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	out["description"] = description
	return out
}

// MenuExtractorConfig holds configuration for menu extraction
type MenuExtractorConfig struct {
	MaxInputChars int
}

// MenuExtractor turns cleaned page text into structured menu items
type MenuExtractor struct {
	generator     domain.TextGenerator
	maxInputChars int
	log           *slog.Logger
}

// NewMenuExtractor creates a MenuExtractor
func NewMenuExtractor(generator domain.TextGenerator, config MenuExtractorConfig, log *slog.Logger) *MenuExtractor {
	maxInput := config.MaxInputChars
	if maxInput <= 0 {
		maxInput = 60000
	}
	return &MenuExtractor{
		generator:     generator,
		maxInputChars: maxInput,
		log:           logging.Component(log, "menu_extractor"),
	}
}

// extractedItem mirrors one element of menuItems as the model returns it
type extractedItem struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Price        *float64   `json:"price"`
	Categories   []string   `json:"categories"`
	DietaryInfos []string   `json:"dietaryInfos"`
	Modifiers    []modifier `json:"modifiers"`
}

type modifier struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

// ExtractItems asks the model for every menu item in pageText. Items the model
// returns in the wrong shape are dropped; an empty list is a valid result.
func (e *MenuExtractor) ExtractItems(ctx context.Context, pageText string) ([]domain.MenuItem, error) {
	prompt := domain.Prompt{
		System: "You are a menu extraction assistant. Extract all menu items with their details accurately.",
		User:   "Extract all menu items from the following restaurant menu text:\n\n" + truncateRunes(pageText, e.maxInputChars),
	}

	raw, err := e.generator.InvokeTool(ctx, prompt, extractTool)
	if err != nil {
		if !errors.Is(err, domain.ErrMalformedOutput) && !errors.Is(err, domain.ErrProviderStatus) {
			err = fmt.Errorf("%w: %v", domain.ErrProviderStatus, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	var envelope struct {
		MenuItems []json.RawMessage `json:"menuItems"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrExtraction, domain.ErrMalformedOutput, err)
	}

	items := make([]domain.MenuItem, 0, len(envelope.MenuItems))
	for i, rawItem := range envelope.MenuItems {
		item, err := decodeMenuItem(rawItem)
		if err != nil {
			e.log.Debug("dropping menu item", "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}

	if dropped := len(envelope.MenuItems) - len(items); dropped > 0 {
		e.log.Warn("dropped malformed menu items", "dropped", dropped, "kept", len(items))
	}
	return items, nil
}

func decodeMenuItem(raw json.RawMessage) (domain.MenuItem, error) {
	var it extractedItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return domain.MenuItem{}, err
	}
	name := strings.TrimSpace(it.Name)
	if name == "" {
		return domain.MenuItem{}, errors.New("item has no name")
	}

	item := domain.MenuItem{
		Name:         name,
		Description:  strings.TrimSpace(it.Description),
		Price:        it.Price,
		Categories:   nonNil(it.Categories),
		DietaryInfos: nonNil(it.DietaryInfos),
		Modifiers:    make([]domain.Modifier, 0, len(it.Modifiers)),
	}
	for _, m := range it.Modifiers {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		item.Modifiers = append(item.Modifiers, domain.Modifier{Name: strings.TrimSpace(m.Name), Price: m.Price})
	}
	return item, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// truncateRunes cuts s to at most n runes without splitting a character
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
