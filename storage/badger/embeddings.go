package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/storage"
)

// EmbeddingCache implements storage.EmbeddingCache for BadgerDB.
type EmbeddingCache struct {
	backend *Backend
}

var _ storage.EmbeddingCache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates a new EmbeddingCache.
func NewEmbeddingCache(backend *Backend) *EmbeddingCache {
	return &EmbeddingCache{backend: backend}
}

// GetEmbeddings returns the cached vectors for ids under model.
func (c *EmbeddingCache) GetEmbeddings(ctx context.Context, model string, ids ...core.ID) (map[core.ID][]float32, error) {
	found := make(map[core.ID][]float32, len(ids))
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if _, ok := found[id]; ok {
				continue
			}
			item, err := tx.Get(makeEmbeddingKey(model, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				vec, err := storage.UnmarshalVector(val)
				if err != nil {
					return err
				}
				found[id] = vec
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// PutEmbeddings stores vectors under model, replacing existing entries.
func (c *EmbeddingCache) PutEmbeddings(ctx context.Context, model string, vectors map[core.ID][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	return c.backend.Batch(func(wb *badger.WriteBatch) error {
		for id, vec := range vectors {
			if err := wb.Set(makeEmbeddingKey(model, id), storage.MarshalVector(vec)); err != nil {
				return err
			}
		}
		return nil
	})
}
