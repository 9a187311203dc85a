package badger

import (
	"context"
	"testing"

	"github.com/poiesic/broadlistening/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_PutGet(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()

	a := core.IDFromContent("parks")
	b := core.IDFromContent("buses")
	missing := core.IDFromContent("trees")

	require.NoError(t, repo.Embeddings.PutEmbeddings(ctx, "model-x", map[core.ID][]float32{
		a: {0.1, 0.2},
		b: {0.3, 0.4},
	}))

	got, err := repo.Embeddings.GetEmbeddings(ctx, "model-x", a, b, missing)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []float32{0.1, 0.2}, got[a])
	assert.NotContains(t, got, missing)
}

func TestEmbeddingCache_ModelsAreIsolated(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()
	id := core.IDFromContent("parks")

	require.NoError(t, repo.Embeddings.PutEmbeddings(ctx, "model-x", map[core.ID][]float32{id: {1}}))

	got, err := repo.Embeddings.GetEmbeddings(ctx, "model-y", id)
	require.NoError(t, err)
	assert.Empty(t, got)
}
