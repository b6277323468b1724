package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/forkcast/backend/internal/domain"
)

// Config selects and configures a text-generation provider
type Config struct {
	Provider    string // "openai", "ollama" or "gemini"
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	WebSearch   bool
}

// New builds the TextGenerator for the configured provider
func New(ctx context.Context, cfg Config, log *slog.Logger) (domain.TextGenerator, error) {
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to init openai: %w", err)
		}
		return NewLangChainGenerator(model, true, cfg.Temperature, cfg.Timeout, log), nil

	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to init ollama: %w", err)
		}
		// Local models get the tool schema in the prompt and answer in JSON mode
		return NewLangChainGenerator(model, false, cfg.Temperature, cfg.Timeout, log), nil

	case "gemini":
		return NewGeminiGenerator(ctx, cfg, log)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// StripCodeFences removes a surrounding ```json ... ``` block if the model added one
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// jsonObject validates that raw text is a single JSON object
func jsonObject(raw string) (json.RawMessage, error) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", domain.ErrMalformedOutput)
	}
	if !json.Valid([]byte(cleaned)) || !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("%w: response is not a JSON object", domain.ErrMalformedOutput)
	}
	return json.RawMessage(cleaned), nil
}

// toolPrompt folds a tool definition into the prompt for models without native tool calling
func toolPrompt(prompt domain.Prompt, tool domain.ToolSpec) (domain.Prompt, error) {
	schema, err := json.Marshal(tool.Parameters)
	if err != nil {
		return prompt, fmt.Errorf("encode tool schema: %w", err)
	}
	var b strings.Builder
	b.WriteString(prompt.System)
	fmt.Fprintf(&b, "\n\nRespond by calling the function %q: %s\n", tool.Name, tool.Description)
	b.WriteString("Return ONLY a JSON object holding the function arguments, matching this JSON Schema:\n")
	b.Write(schema)
	return domain.Prompt{System: b.String(), User: prompt.User}, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
