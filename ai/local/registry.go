package local

import (
	"context"
	"log/slog"
	"sync"
)

// RoSEttaModel expects a "query: " prefix on every input.
const RoSEttaModel = "pkshatech/RoSEtta-base-ja"

// Model is an in-process embedding model.
type Model interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Loader constructs the model with the given name.
type Loader func(name string) (Model, error)

// Registry caches loaded models by name. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	models map[string]Model
	loader Loader
}

// NewRegistry creates a registry. A nil loader selects DefaultLoader.
func NewRegistry(loader Loader) *Registry {
	if loader == nil {
		loader = DefaultLoader
	}
	return &Registry{
		models: make(map[string]Model),
		loader: loader,
	}
}

// GetOrLoad returns the cached model or loads it on first use.
func (r *Registry) GetOrLoad(name string) (Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[name]; ok {
		return m, nil
	}
	slog.Info("loading local embedding model", "model", name)
	m, err := r.loader(name)
	if err != nil {
		return nil, err
	}
	r.models[name] = m
	return m, nil
}

// Len returns the number of loaded models.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models)
}

var defaultDimensions = map[string]int{
	"paraphrase-multilingual-mpnet-base-v2": 768,
	RoSEttaModel:                            768,
	"all-MiniLM-L6-v2":                      384,
}

// DefaultLoader serves every model name with a HashingModel sized to
// match the named model where known.
func DefaultLoader(name string) (Model, error) {
	return NewHashingModel(name, defaultDimensions[name]), nil
}

var (
	sharedOnce     sync.Once
	sharedRegistry *Registry
)

// Shared returns the process-wide registry.
func Shared() *Registry {
	sharedOnce.Do(func() {
		sharedRegistry = NewRegistry(nil)
	})
	return sharedRegistry
}
