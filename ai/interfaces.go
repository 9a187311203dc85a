package ai

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat message sent to a model.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is the minimal request contract for a chat completion.
type ChatRequest struct {
	Messages []Message

	// Model overrides the configured chat model when non-empty.
	Model string

	// Schema requests structured output. Nil means free text.
	Schema *ResponseSchema
}

// Usage is the token accounting reported by a single model call.
type Usage struct {
	Input  int
	Output int
	Total  int
}

// ChatResponse is the text reply of a chat completion plus its token usage.
type ChatResponse struct {
	Text  string
	Usage Usage
}

// ChatModel issues chat completions.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Complete sends the messages and returns the first choice.
	// Rate-limit failures are reported as errors wrapping ErrRateLimited so
	// callers can decide whether to retry.
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Gateway aggregates the chat and embedding services of one provider,
// ensuring they share configuration and resources appropriately.
type Gateway interface {
	// Chat returns the chat completion service.
	Chat() ChatModel

	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Close releases resources held by the gateway and its services.
	Close() error
}
