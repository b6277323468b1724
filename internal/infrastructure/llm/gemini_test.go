package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

func newGeminiServer(t *testing.T, status int, reply string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), "path %s", r.URL.Path)
		if captured != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGemini(t *testing.T, baseURL string) *GeminiGenerator {
	t.Helper()
	gen, err := NewGeminiGenerator(context.Background(), Config{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "gemini-2.5-flash",
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	}, logging.Discard())
	require.NoError(t, err)
	return gen
}

func TestGeminiGenerator_InvokeTool(t *testing.T) {
	var body map[string]any
	srv := newGeminiServer(t, http.StatusOK, `{
		"candidates": [{
			"content": {
				"role": "model",
				"parts": [{"functionCall": {"name": "return_restaurant_website", "args": {"url": "https://joes.example"}}}]
			},
			"finishReason": "STOP"
		}]
	}`, &body)

	raw, err := newTestGemini(t, srv.URL).InvokeTool(context.Background(), domain.Prompt{System: "s", User: "u"}, websiteTool)
	require.NoError(t, err)

	assert.Equal(t, "https://joes.example", decode(t, raw)["url"])
	assert.Contains(t, body, "tools")
	assert.Contains(t, body, "toolConfig")
}

func TestGeminiGenerator_NoFunctionCall(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "I could not find it"}]}}]
	}`, nil)

	_, err := newTestGemini(t, srv.URL).InvokeTool(context.Background(), domain.Prompt{User: "u"}, websiteTool)
	assert.ErrorIs(t, err, domain.ErrMalformedOutput)
}

func TestGeminiGenerator_GenerateJSON(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"results\": []}"}]}}]
	}`, nil)

	raw, err := newTestGemini(t, srv.URL).GenerateJSON(context.Background(), domain.Prompt{User: "combine"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"results": []}`, string(raw))
}

func TestGeminiGenerator_ProviderError(t *testing.T) {
	srv := newGeminiServer(t, http.StatusBadRequest, `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`, nil)

	_, err := newTestGemini(t, srv.URL).GenerateJSON(context.Background(), domain.Prompt{User: "combine"})
	assert.ErrorIs(t, err, domain.ErrProviderStatus)
}
