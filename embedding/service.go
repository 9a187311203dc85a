package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/broadlistening/ai"
	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/storage"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 1000

// Progress receives batch progress.
type Progress interface {
	Start(total int)
	Increment(n int)
}

// Service embeds arguments in batches.
type Service struct {
	embedder  ai.Embedder
	batchSize int
	cache     storage.EmbeddingCache
	model     string
	progress  Progress
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets the number of texts per request.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithCache enables the vector cache.
func WithCache(cache storage.EmbeddingCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithModelName names the model in cache keys.
func WithModelName(model string) Option {
	return func(s *Service) {
		s.model = model
	}
}

// WithProgress reports embedded argument counts.
func WithProgress(p Progress) Option {
	return func(s *Service) {
		s.progress = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates an embedding service.
func NewService(embedder ai.Embedder, opts ...Option) *Service {
	s := &Service{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "embedding")
	return s
}

// Embed returns one embedding per argument in input order. Results are only
// returned, and cached, once every batch has succeeded and every vector has
// the same dimension. Vectors served by a substitute model are never cached.
func (s *Service) Embed(ctx context.Context, args []core.Argument) ([]core.Embedding, error) {
	if len(args) == 0 {
		return []core.Embedding{}, nil
	}

	keys := make([]core.ID, len(args))
	for i, arg := range args {
		keys[i] = core.IDFromContent(arg.Text)
	}

	vectors := make([][]float32, len(args))
	var misses []int
	cached := s.lookup(ctx, keys)
	for i, key := range keys {
		if v, ok := cached[key]; ok {
			vectors[i] = v
			continue
		}
		misses = append(misses, i)
	}

	if s.progress != nil {
		s.progress.Start(len(args))
		s.progress.Increment(len(args) - len(misses))
	}
	s.logger.Info("embedding arguments", "total", len(args), "cached", len(args)-len(misses), "batchSize", s.batchSize)

	fresh := make(map[core.ID][]float32, len(misses))
	for start := 0; start < len(misses); start += s.batchSize {
		end := min(start+s.batchSize, len(misses))
		batch := misses[start:end]

		texts := make([]string, len(batch))
		for j, idx := range batch {
			texts[j] = args[idx].Text
		}

		out, substituted, err := s.embedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch starting at %d: %w", start, err)
		}
		if len(out) != len(texts) {
			return nil, fmt.Errorf("%w: sent %d, got %d", ErrCountMismatch, len(texts), len(out))
		}

		for j, idx := range batch {
			vectors[idx] = out[j]
			if !substituted {
				fresh[keys[idx]] = out[j]
			}
		}
		if s.progress != nil {
			s.progress.Increment(len(batch))
		}
	}

	if err := checkDimensions(args, vectors); err != nil {
		return nil, err
	}
	s.store(ctx, fresh)

	embeddings := make([]core.Embedding, len(args))
	for i, arg := range args {
		embeddings[i] = core.Embedding{ArgumentID: arg.ID, Vector: vectors[i]}
	}
	return embeddings, nil
}

func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float32, bool, error) {
	if r, ok := s.embedder.(SourceReporter); ok {
		return r.EmbedTextsReporting(ctx, texts)
	}
	out, err := s.embedder.EmbedTexts(ctx, texts)
	return out, false, err
}

// checkDimensions requires every vector to have the length of the first.
func checkDimensions(args []core.Argument, vectors [][]float32) error {
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector for %s", ErrDimensionMismatch, args[0].ID)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: %s has %d dimensions, %s has %d",
				ErrDimensionMismatch, args[i].ID, len(v), args[0].ID, dim)
		}
	}
	return nil
}

// lookup returns cached vectors. Cache failures only cost a re-embed.
func (s *Service) lookup(ctx context.Context, keys []core.ID) map[core.ID][]float32 {
	if s.cache == nil {
		return nil
	}
	found, err := s.cache.GetEmbeddings(ctx, s.model, keys...)
	if err != nil {
		s.logger.Warn("embedding cache lookup failed", "err", err)
		return nil
	}
	return found
}

func (s *Service) store(ctx context.Context, fresh map[core.ID][]float32) {
	if s.cache == nil || len(fresh) == 0 {
		return
	}
	if err := s.cache.PutEmbeddings(ctx, s.model, fresh); err != nil {
		s.logger.Warn("embedding cache store failed", "err", err)
	}
}

// Align orders embeddings to match args by argument id. It fails when an
// argument has no vector.
func Align(args []core.Argument, embeddings []core.Embedding) ([][]float32, error) {
	byID := make(map[string][]float32, len(embeddings))
	for _, e := range embeddings {
		byID[e.ArgumentID] = e.Vector
	}
	out := make([][]float32, len(args))
	for i, arg := range args {
		v, ok := byID[arg.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no embedding for %s", ErrCountMismatch, arg.ID)
		}
		out[i] = v
	}
	return out, nil
}
