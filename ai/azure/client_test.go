package azure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/broadlistening/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enterpriseFor(t *testing.T, handler http.HandlerFunc) ai.Enterprise {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return ai.Enterprise{
		Endpoint:            srv.URL,
		APIKey:              "secret",
		APIVersion:          "2024-06-01",
		ChatDeployment:      "chat-dep",
		EmbeddingDeployment: "embed-dep",
	}
}

func TestChatModel_Complete(t *testing.T) {
	var body map[string]any
	p := enterpriseFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/chat-dep/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"label\":\"L\",\"description\":\"D\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`)
	})

	chat, err := NewChatModel(p)
	require.NoError(t, err)

	schema := ai.NewResponseSchema("LabellingFormat", `{"type":"object","properties":{"label":{"type":"string"},"description":{"type":"string"}},"required":["label","description"],"additionalProperties":false}`)
	resp, err := chat.Complete(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleSystem, Content: "label"}, {Role: ai.RoleUser, Content: "args"}},
		Schema:   schema,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"label":"L","description":"D"}`, resp.Text)
	assert.Equal(t, ai.Usage{Input: 7, Output: 3, Total: 10}, resp.Usage)

	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	assert.EqualValues(t, 0, body["seed"])
}

func TestChatModel_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "rate limit", status: http.StatusTooManyRequests, wantErr: ai.ErrRateLimited},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ai.ErrAuthentication},
		{name: "forbidden", status: http.StatusForbidden, wantErr: ai.ErrAuthentication},
		{name: "bad request", status: http.StatusBadRequest, wantErr: ai.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := enterpriseFor(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"error":{"message":"failed","type":"error","code":"x"}}`)
			})
			chat, err := NewChatModel(p)
			require.NoError(t, err)

			_, err = chat.Complete(context.Background(), ai.ChatRequest{
				Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	p := enterpriseFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/embed-dep/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// Out-of-order indices are realigned.
		io.WriteString(w, `{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0.3,0.4]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2]}],
			"model":"embed-dep","usage":{"prompt_tokens":2,"total_tokens":2}}`)
	})

	embedder, err := NewEmbedder(p)
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.InDeltaSlice(t, []float32{0.1, 0.2}, vectors[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0.3, 0.4}, vectors[1], 1e-6)
}

func TestNewChatModel_RequiresDeployment(t *testing.T) {
	_, err := NewChatModel(ai.Enterprise{Endpoint: "https://example.openai.azure.com"})
	assert.Error(t, err)
}
