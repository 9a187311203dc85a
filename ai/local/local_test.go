package local

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashingModel_Deterministic(t *testing.T) {
	m := NewHashingModel("test", 64)
	ctx := context.Background()

	first, err := m.Embed(ctx, []string{"道路を広げてほしい", "公園が欲しい"})
	require.NoError(t, err)
	second, err := m.Embed(ctx, []string{"公園が欲しい", "道路を広げてほしい"})
	require.NoError(t, err)

	assert.Equal(t, first[0], second[1])
	assert.Equal(t, first[1], second[0])
	assert.Len(t, first[0], 64)
	assert.InDelta(t, 1.0, norm(first[0]), 1e-5)
}

func TestHashingModel_EmptyText(t *testing.T) {
	m := NewHashingModel("test", 16)
	vectors, err := m.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, make([]float32, 16), vectors[0])
}

func TestHashingModel_SimilarTextsAreCloser(t *testing.T) {
	m := NewHashingModel("test", 256)
	vectors, err := m.Embed(context.Background(), []string{
		"more parks in the city",
		"more parks in the town",
		"lower the tax on fuel",
	})
	require.NoError(t, err)

	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	assert.Greater(t, dot(vectors[0], vectors[1]), dot(vectors[0], vectors[2]))
}

func TestRegistry_LoadsOnce(t *testing.T) {
	var mu sync.Mutex
	loads := 0
	r := NewRegistry(func(name string) (Model, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return NewHashingModel(name, 8), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.GetOrLoad("m")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, r.Len())
}

func TestEmbedder_RoSEttaPrefix(t *testing.T) {
	var seen []string
	r := NewRegistry(func(name string) (Model, error) {
		return recordingModel{name: name, seen: &seen}, nil
	})

	_, err := NewEmbedder(r, RoSEttaModel).EmbedTexts(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"query: a"}, seen)

	seen = nil
	_, err = NewEmbedder(r, "other").EmbedTexts(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen)
}

type recordingModel struct {
	name string
	seen *[]string
}

func (m recordingModel) Name() string { return m.name }

func (m recordingModel) Embed(_ context.Context, texts []string) ([][]float32, error) {
	*m.seen = append(*m.seen, texts...)
	return make([][]float32, len(texts)), nil
}
