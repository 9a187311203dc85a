package clustering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// highDimBlobs returns two groups of points in 6 dimensions.
func highDimBlobs(perBlob int) [][]float64 {
	var out [][]float64
	for b := 0; b < 2; b++ {
		for i := 0; i < perBlob; i++ {
			p := make([]float64, 6)
			for d := range p {
				p[d] = float64(b*20) + float64((i*(d+3))%7)*0.1
			}
			out = append(out, p)
		}
	}
	return out
}

func TestReducer_NeighborsFor(t *testing.T) {
	r := NewReducer()
	assert.Equal(t, 15, r.NeighborsFor(100))
	assert.Equal(t, 15, r.NeighborsFor(16))
	assert.Equal(t, 14, r.NeighborsFor(15))
	assert.Equal(t, 9, r.NeighborsFor(10))
	assert.Equal(t, 2, r.NeighborsFor(3))
	assert.Equal(t, 2, r.NeighborsFor(2))

	assert.Equal(t, 4, NewReducer(WithNeighbors(5)).NeighborsFor(5))
}

func TestReducer_TinyInputs(t *testing.T) {
	r := NewReducer()

	out, err := r.Reduce([][]float64{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}}, out)

	out, err = r.Reduce([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = r.Reduce(nil)
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestReducer_ShapeAndDeterminism(t *testing.T) {
	data := highDimBlobs(15)
	r := NewReducer(WithEpochs(60))

	first, err := r.Reduce(data)
	require.NoError(t, err)
	second, err := r.Reduce(data)
	require.NoError(t, err)

	require.Len(t, first, len(data))
	for _, row := range first {
		require.Len(t, row, 2)
		assert.False(t, math.IsNaN(row[0]) || math.IsInf(row[0], 0))
		assert.False(t, math.IsNaN(row[1]) || math.IsInf(row[1], 0))
	}
	assert.Equal(t, first, second)

	other, err := NewReducer(WithEpochs(60), WithSeed(7)).Reduce(data)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestReducer_SmallSampleUsesSpectralLayout(t *testing.T) {
	// A connected chain of points in 3-D.
	var data [][]float64
	for i := 0; i < 12; i++ {
		x := float64(i)
		data = append(data, []float64{x, math.Sin(x), 0.1 * x})
	}

	out, err := NewReducer(WithEpochs(30)).Reduce(data)
	require.NoError(t, err)
	require.Len(t, out, 12)
	for _, row := range out {
		assert.False(t, math.IsNaN(row[0]) || math.IsNaN(row[1]))
	}
}

func TestNearestNeighbors_SelfFirst(t *testing.T) {
	data := [][]float64{{0}, {0}, {1}, {5}}
	indices, distances := nearestNeighbors(data, 3)

	for i := range data {
		assert.Equal(t, i, indices[i][0])
		assert.Zero(t, distances[i][0])
	}
	assert.Equal(t, []int{3, 2, 0}, indices[3])
	assert.Equal(t, []float64{0, 4, 5}, distances[3])
}

func TestSmoothSigma(t *testing.T) {
	neighbours := []float64{1, 2, 3}
	target := math.Log2(4)
	sigma := smoothSigma(neighbours, 1, target)

	sum := 0.0
	for _, d := range neighbours {
		if d -= 1; d > 0 {
			sum += math.Exp(-d / sigma)
		} else {
			sum++
		}
	}
	assert.InDelta(t, target, sum, 1e-3)
}

func TestFuzzyGraph_Symmetric(t *testing.T) {
	indices, distances := nearestNeighbors(highDimBlobs(6), 4)
	graph := fuzzyGraph(indices, distances)

	weights := make(map[[2]int]float64)
	for _, e := range graph {
		assert.NotEqual(t, e.head, e.tail)
		assert.Greater(t, e.weight, 0.0)
		assert.LessOrEqual(t, e.weight, 1.0)
		weights[[2]int{e.head, e.tail}] = e.weight
	}
	for key, w := range weights {
		assert.Equal(t, w, weights[[2]int{key[1], key[0]}])
	}
}

func TestFitCurve(t *testing.T) {
	a, b := fitCurve(DefaultMinDist)
	assert.InDelta(t, 1.577, a, 0.05)
	assert.InDelta(t, 0.895, b, 0.05)
}

func TestRescale(t *testing.T) {
	layout := [][]float64{{-1, 5}, {1, 5}, {0, 5}}
	rescale(layout, 10)
	assert.Equal(t, [][]float64{{0, 0}, {10, 0}, {5, 0}}, layout)
}
