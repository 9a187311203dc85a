package local

import (
	"context"

	"github.com/poiesic/broadlistening/ai"
)

// Embedder implements ai.Embedder with a registry-managed model.
type Embedder struct {
	registry *Registry
	model    string
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder for the named model. A nil registry
// selects the shared one.
func NewEmbedder(registry *Registry, model string) *Embedder {
	if registry == nil {
		registry = Shared()
	}
	if model == "" {
		model = ai.DefaultLocalEmbeddingModel
	}
	return &Embedder{registry: registry, model: model}
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m, err := e.registry.GetOrLoad(e.model)
	if err != nil {
		return nil, err
	}
	if e.model == RoSEttaModel {
		prefixed := make([]string, len(texts))
		for i, t := range texts {
			prefixed[i] = "query: " + t
		}
		texts = prefixed
	}
	return m.Embed(ctx, texts)
}
