package storage

import (
	"context"

	"github.com/poiesic/broadlistening/core"
)

// RunRepository persists pipeline run records.
// Implementations must be thread-safe and support concurrent access.
type RunRepository interface {
	// CreateRun stores a new run. An empty ID is assigned a fresh ULID and a
	// zero StartedAt is set to the current time.
	CreateRun(ctx context.Context, run *core.Run) (*core.Run, error)

	// UpdateRun overwrites an existing run.
	// Returns ErrNotFound if the run doesn't exist.
	UpdateRun(ctx context.Context, run *core.Run) error

	// GetRun retrieves a run by ID.
	// Returns ErrNotFound if the run doesn't exist.
	GetRun(ctx context.Context, id string) (*core.Run, error)

	// ListRuns returns runs ordered by ID, which is creation order.
	// An empty status returns every run.
	ListRuns(ctx context.Context, status core.RunStatus) ([]*core.Run, error)
}

// EmbeddingCache stores vectors keyed by embedding model and content id.
type EmbeddingCache interface {
	// GetEmbeddings returns the cached vectors for ids. Missing ids are
	// absent from the result.
	GetEmbeddings(ctx context.Context, model string, ids ...core.ID) (map[core.ID][]float32, error)

	// PutEmbeddings stores vectors for the given model.
	PutEmbeddings(ctx context.Context, model string, vectors map[core.ID][]float32) error
}
