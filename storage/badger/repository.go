// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

// Repository bundles the run records and the embedding cache over one
// BadgerDB instance.
type Repository struct {
	Runs       *RunRepository
	Embeddings *EmbeddingCache

	backend *Backend
}

// NewRepository opens (or creates) the state directory at dir.
func NewRepository(dir string) (*Repository, error) {
	backend, err := OpenBackend(dir, false)
	if err != nil {
		return nil, err
	}
	return newRepository(backend), nil
}

// NewMemoryRepository creates an in-memory repository.
func NewMemoryRepository() (*Repository, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newRepository(backend), nil
}

func newRepository(backend *Backend) *Repository {
	return &Repository{
		Runs:       NewRunRepository(backend),
		Embeddings: NewEmbeddingCache(backend),
		backend:    backend,
	}
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	if r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}
