package badger

import (
	"context"
	"crypto/rand"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
type RunRepository struct {
	backend *Backend

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) *RunRepository {
	return &RunRepository{
		backend: backend,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (r *RunRepository) newID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Now(), r.entropy).String()
}

// CreateRun stores a new run record.
func (r *RunRepository) CreateRun(ctx context.Context, run *core.Run) (*core.Run, error) {
	if run.ID == "" {
		run.ID = r.newID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = core.RunRunning
	}

	value, err := storage.MarshalRun(run)
	if err != nil {
		return nil, err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRunKey(run.ID)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// UpdateRun overwrites an existing run record.
func (r *RunRepository) UpdateRun(ctx context.Context, run *core.Run) error {
	value, err := storage.MarshalRun(run)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRunKey(run.ID)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRun retrieves a run record by ID.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*core.Run, error) {
	var run *core.Run
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRunKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			run, err = storage.UnmarshalRun(val)
			return err
		})
	}, false)
	return run, err
}

// ListRuns returns runs in creation order, optionally filtered by status.
func (r *RunRepository) ListRuns(ctx context.Context, status core.RunStatus) ([]*core.Run, error) {
	var runs []*core.Run
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				run, err := storage.UnmarshalRun(val)
				if err != nil {
					return err
				}
				if status == "" || run.Status == status {
					runs = append(runs, run)
				}
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

	slices.SortStableFunc(runs, func(a, b *core.Run) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return runs, nil
}
