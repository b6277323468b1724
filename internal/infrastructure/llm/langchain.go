package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

// LangChainGenerator drives any langchaingo chat model (OpenAI-compatible or Ollama)
type LangChainGenerator struct {
	model       llms.Model
	nativeTools bool
	temperature float64
	timeout     time.Duration
	log         *slog.Logger
}

// NewLangChainGenerator wraps a langchaingo model. When nativeTools is false tool
// calls are emulated with JSON mode.
func NewLangChainGenerator(model llms.Model, nativeTools bool, temperature float64, timeout time.Duration, log *slog.Logger) *LangChainGenerator {
	return &LangChainGenerator{
		model:       model,
		nativeTools: nativeTools,
		temperature: temperature,
		timeout:     timeout,
		log:         logging.Component(log, "llm"),
	}
}

// InvokeTool forces a single call of tool and returns its arguments
func (g *LangChainGenerator) InvokeTool(ctx context.Context, prompt domain.Prompt, tool domain.ToolSpec) (json.RawMessage, error) {
	if !g.nativeTools {
		emulated, err := toolPrompt(prompt, tool)
		if err != nil {
			return nil, err
		}
		return g.GenerateJSON(ctx, emulated)
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, messages(prompt),
		llms.WithTools([]llms.Tool{{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: tool.Name},
		}),
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderStatus, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", domain.ErrMalformedOutput)
	}

	for _, call := range resp.Choices[0].ToolCalls {
		if call.FunctionCall == nil || call.FunctionCall.Name != tool.Name {
			continue
		}
		args := call.FunctionCall.Arguments
		if !json.Valid([]byte(args)) {
			return nil, fmt.Errorf("%w: tool %s returned invalid JSON arguments", domain.ErrMalformedOutput, tool.Name)
		}
		return json.RawMessage(args), nil
	}

	g.log.Warn("model returned no tool call", "tool", tool.Name)
	return nil, fmt.Errorf("%w: no %s tool call returned", domain.ErrMalformedOutput, tool.Name)
}

// GenerateJSON asks for a single JSON object as the whole reply
func (g *LangChainGenerator) GenerateJSON(ctx context.Context, prompt domain.Prompt) (json.RawMessage, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, messages(prompt),
		llms.WithJSONMode(),
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderStatus, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", domain.ErrMalformedOutput)
	}

	return jsonObject(resp.Choices[0].Content)
}

func messages(prompt domain.Prompt) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, 2)
	if prompt.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, prompt.System))
	}
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, prompt.User))
}
