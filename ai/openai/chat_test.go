package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/poiesic/broadlistening/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"extractedOpinionList\":[\"x\"]}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 11, "completion_tokens": 4, "total_tokens": 15}
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) ClientConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return ClientConfig{
		BaseURL:        srv.URL + "/v1",
		Token:          "none",
		ChatModel:      "test-model",
		EmbeddingModel: "test-embed",
	}
}

func TestChatModel_Complete(t *testing.T) {
	var body map[string]any
	cc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatReply)
	})

	chat, err := NewChatModel(cc)
	require.NoError(t, err)

	schema := ai.NewResponseSchema("ExtractionResponse", `{"type":"object","properties":{"extractedOpinionList":{"type":"array","items":{"type":"string"}}},"required":["extractedOpinionList"],"additionalProperties":false}`)
	resp, err := chat.Complete(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "extract"},
			{Role: ai.RoleUser, Content: "comment"},
		},
		Schema: schema,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"extractedOpinionList":["x"]}`, resp.Text)
	assert.Equal(t, ai.Usage{Input: 11, Output: 4, Total: 15}, resp.Usage)

	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok, "response_format should be sent")
	assert.Equal(t, "json_schema", format["type"])
	assert.EqualValues(t, 0, body["temperature"])
}

func TestChatModel_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		wantErr error
	}{
		{name: "rate limit", status: http.StatusTooManyRequests, message: "Rate limit reached", wantErr: ai.ErrRateLimited},
		{name: "bad api key", status: http.StatusUnauthorized, message: "Incorrect API key provided", wantErr: ai.ErrAuthentication},
		{name: "bad request", status: http.StatusBadRequest, message: "Invalid request: messages", wantErr: ai.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": tt.message}})
			})

			chat, err := NewChatModel(cc)
			require.NoError(t, err)

			_, err = chat.Complete(context.Background(), ai.ChatRequest{
				Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestChatModel_ReusesClientPerSchema(t *testing.T) {
	var calls atomic.Int32
	cc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatReply)
	})

	chat, err := newChatModel(cc)
	require.NoError(t, err)

	schema := ai.NewResponseSchema("LabellingFormat", `{"type":"object","properties":{"label":{"type":"string"},"description":{"type":"string"}},"required":["label","description"],"additionalProperties":false}`)
	for i := 0; i < 3; i++ {
		_, err := chat.Complete(context.Background(), ai.ChatRequest{
			Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
			Schema:   schema,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, chat.clients, 2, "one plain client plus one per schema")
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	cc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"object":"list","model":"test-embed","data":[
			{"object":"embedding","index":0,"embedding":[0.1,0.2]},
			{"object":"embedding","index":1,"embedding":[0.3,0.4]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`)
	})

	embedder, err := NewEmbedder(cc, 0)
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.InDeltaSlice(t, []float32{0.1, 0.2}, vectors[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0.3, 0.4}, vectors[1], 1e-6)
}

func TestClientConfigFor(t *testing.T) {
	cfg := ai.NewConfig()

	t.Run("local derives base url", func(t *testing.T) {
		cc, err := ClientConfigFor(ai.Local{Address: "127.0.0.1:1234"}, cfg)
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:1234/v1", cc.BaseURL)
		assert.Equal(t, "none", cc.Token)
	})

	t.Run("catalog defaults to openrouter", func(t *testing.T) {
		cc, err := ClientConfigFor(ai.Catalog{APIKey: "k"}, cfg)
		require.NoError(t, err)
		assert.Equal(t, ai.CatalogBaseURL, cc.BaseURL)
	})

	t.Run("enterprise is rejected", func(t *testing.T) {
		_, err := ClientConfigFor(ai.Enterprise{}, cfg)
		assert.ErrorIs(t, err, ai.ErrUnsupported)
	})
}
