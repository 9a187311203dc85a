package embedding

import (
	"context"
	"log/slog"

	"github.com/poiesic/broadlistening/ai"
)

// SourceReporter is implemented by embedders that may serve a call from a
// substitute model. Vectors from a substitute are not cached.
type SourceReporter interface {
	EmbedTextsReporting(ctx context.Context, texts []string) (vectors [][]float32, substituted bool, err error)
}

// Fallback embeds with Primary and retries the whole call with Secondary
// when Primary fails.
type Fallback struct {
	Primary   ai.Embedder
	Secondary ai.Embedder
	Logger    *slog.Logger
}

var (
	_ ai.Embedder    = (*Fallback)(nil)
	_ SourceReporter = (*Fallback)(nil)
)

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (f *Fallback) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, _, err := f.EmbedTextsReporting(ctx, texts)
	return vectors, err
}

// EmbedTextsReporting is EmbedTexts that also reports whether Secondary
// served the call.
func (f *Fallback) EmbedTextsReporting(ctx context.Context, texts []string) ([][]float32, bool, error) {
	vectors, err := f.Primary.EmbedTexts(ctx, texts)
	if err == nil {
		return vectors, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, err
	}

	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("remote embedding failed, using local model", "count", len(texts), "err", err)
	vectors, err = f.Secondary.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, true, err
	}
	return vectors, true, nil
}
