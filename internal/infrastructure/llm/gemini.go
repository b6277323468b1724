package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

// GeminiGenerator talks to the Gemini API through the genai SDK
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	webSearch   bool
	log         *slog.Logger
}

// NewGeminiGenerator creates a Gemini client for cfg.Model
func NewGeminiGenerator(ctx context.Context, cfg Config, log *slog.Logger) (*GeminiGenerator, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.Timeout,
		webSearch:   cfg.WebSearch,
		log:         logging.Component(log, "llm"),
	}, nil
}

// InvokeTool forces a single function call and returns its arguments
func (g *GeminiGenerator) InvokeTool(ctx context.Context, prompt domain.Prompt, tool domain.ToolSpec) (json.RawMessage, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	tools := []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: tool.Parameters,
		}},
	}}
	if tool.WebSearch && g.webSearch {
		tools = append(tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}

	config := g.baseConfig(prompt)
	config.Tools = tools
	config.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingConfigModeAny,
			AllowedFunctionNames: []string{tool.Name},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderStatus, err)
	}

	for _, call := range resp.FunctionCalls() {
		if call.Name != tool.Name {
			continue
		}
		args, err := json.Marshal(call.Args)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s arguments: %v", domain.ErrMalformedOutput, tool.Name, err)
		}
		return args, nil
	}

	g.log.Warn("model returned no function call", "tool", tool.Name)
	return nil, fmt.Errorf("%w: no %s function call returned", domain.ErrMalformedOutput, tool.Name)
}

// GenerateJSON asks for an application/json reply
func (g *GeminiGenerator) GenerateJSON(ctx context.Context, prompt domain.Prompt) (json.RawMessage, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	config := g.baseConfig(prompt)
	config.ResponseMIMEType = "application/json"

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderStatus, err)
	}

	return jsonObject(resp.Text())
}

func (g *GeminiGenerator) baseConfig(prompt domain.Prompt) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	return config
}
