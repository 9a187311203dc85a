package clustering

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Silhouette returns the mean silhouette coefficient of a labelling using
// Euclidean distance. Points alone in their cluster score 0.
func Silhouette(points [][]float64, labels []int) (float64, error) {
	if _, err := checkPoints(points); err != nil {
		return 0, err
	}
	n := len(points)
	if len(labels) != n {
		return 0, fmt.Errorf("%w: %d labels for %d points", ErrDimensionMismatch, len(labels), n)
	}

	index := make(map[int]int)
	compact := make([]int, n)
	for i, l := range labels {
		c, ok := index[l]
		if !ok {
			c = len(index)
			index[l] = c
		}
		compact[i] = c
	}
	k := len(index)
	if k < 2 || k > n-1 {
		return 0, fmt.Errorf("%w: %d clusters for %d points", ErrSilhouetteUndefined, k, n)
	}

	sizes := make([]int, k)
	for _, c := range compact {
		sizes[c]++
	}

	sums := make([]float64, k)
	scores := make([]float64, n)
	for i, p := range points {
		clear(sums)
		for j, q := range points {
			if i == j {
				continue
			}
			sums[compact[j]] += floats.Distance(p, q, 2)
		}

		own := compact[i]
		if sizes[own] == 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, sum := range sums {
			if c == own {
				continue
			}
			b = min(b, sum/float64(sizes[c]))
		}
		if denom := max(a, b); denom > 0 {
			scores[i] = (b - a) / denom
		}
	}
	return floats.Sum(scores) / float64(n), nil
}
