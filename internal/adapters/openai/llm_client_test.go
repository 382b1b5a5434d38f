package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/phish-screen/internal/core"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestInvoker(t *testing.T, handler http.HandlerFunc) *Invoker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewInvoker(openai.NewClientWithConfig(cfg), "gpt-4o-mini", 512, 0, zap.NewNop())
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestInvoker_SendsImageAndSchema(t *testing.T) {
	var got map[string]any
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"scoring":9,"reason":"Urgencia y enlace falso"}`))
	})

	raw, err := inv.Invoke(context.Background(), &core.ModelRequest{
		System: "Eres un analista",
		Prompt: "Evalúa",
		Image:  &core.ImageInput{Data: []byte{0xff, 0xd8}, MediaType: "image/jpeg"},
		Schema: core.SocialEngineeringSchema,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scoring":9,"reason":"Urgencia y enlace falso"}`, string(raw))

	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	assert.Equal(t, "data:image/jpeg;base64,/9g=", imagePart["image_url"].(map[string]any)["url"])

	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "social_engineering_evaluation", schema["name"])
	props := schema["schema"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "integer", props["scoring"].(map[string]any)["type"])
}

func TestInvoker_StripsFences(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("```json\n{\"type\":\"email\"}\n```"))
	})

	raw, err := inv.Invoke(context.Background(), &core.ModelRequest{Prompt: "x", Schema: core.RouterSchema})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"email"}`, string(raw))
}

func TestInvoker_EmptyContent(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(""))
	})

	_, err := inv.Invoke(context.Background(), &core.ModelRequest{Prompt: "x", Schema: core.RouterSchema})
	assert.ErrorIs(t, err, core.ErrEmptyResponse)
}

func TestInvoker_ProviderError(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	_, err := inv.Invoke(context.Background(), &core.ModelRequest{Prompt: "x", Schema: core.RouterSchema})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call OpenAI API")
}

func TestToDefinition(t *testing.T) {
	def := toDefinition(core.UnifiedSchema)

	assert.Equal(t, []string{"scoring"}, def.Required)
	require.Contains(t, def.Properties, "title")
	assert.Contains(t, def.Properties["scoring"].Description, "(1-10)")
}
