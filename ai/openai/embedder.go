package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/broadlistening/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// batchSize bounds the texts sent per request; callers batch as well, so
// this only matters for direct use.
func newEmbedder(config ClientConfig, batchSize int) (*Embedder, error) {
	client, err := openai.New(config.options()...)
	if err != nil {
		return nil, err
	}

	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder for the given endpoint.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config ClientConfig, batchSize int) (ai.Embedder, error) {
	return newEmbedder(config, batchSize)
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, mapError(err)
	}

	return vectors, nil
}
