package clustering

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Merge is one step of an agglomerative linkage over m observations.
// Node ids below m are observations and node m+i is the cluster formed by
// merge i. A is always the smaller of the two node ids.
type Merge struct {
	A, B   int
	Height float64
	Size   int
}

// WardLinkage builds the Ward minimum-variance linkage of the points,
// updating inter-cluster distances with the Lance-Williams recurrence.
// Merges are returned in order of non-decreasing height.
func WardLinkage(points [][]float64) ([]Merge, error) {
	if _, err := checkPoints(points); err != nil {
		return nil, err
	}
	m := len(points)

	dist := make([][]float64, m)
	for i := range dist {
		dist[i] = make([]float64, m)
		for j := 0; j < i; j++ {
			d := floats.Distance(points[i], points[j], 2)
			dist[i][j], dist[j][i] = d, d
		}
	}

	node := make([]int, m)
	size := make([]int, m)
	active := make([]bool, m)
	for i := range node {
		node[i], size[i], active[i] = i, 1, true
	}

	merges := make([]Merge, 0, m-1)
	for step := 0; step < m-1; step++ {
		bi, bj, best := -1, -1, math.Inf(1)
		for i := 0; i < m; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < m; j++ {
				if active[j] && dist[i][j] < best {
					bi, bj, best = i, j, dist[i][j]
				}
			}
		}

		a, b := node[bi], node[bj]
		if a > b {
			a, b = b, a
		}
		merged := size[bi] + size[bj]
		merges = append(merges, Merge{A: a, B: b, Height: best, Size: merged})

		for k := 0; k < m; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			sk := float64(size[k])
			d := ((float64(size[bi])+sk)*dist[bi][k]*dist[bi][k] +
				(float64(size[bj])+sk)*dist[bj][k]*dist[bj][k] -
				sk*best*best) / (float64(merged) + sk)
			d = math.Sqrt(max(d, 0))
			dist[bi][k], dist[k][bi] = d, d
		}
		node[bi], size[bi] = m+step, merged
		active[bj] = false
	}
	return merges, nil
}

// CutTree flattens a linkage over m observations into exactly k clusters
// by undoing the k-1 highest merges. Labels are 1-based and numbered in the
// order clusters are met walking the tree from the root, smaller child first.
func CutTree(merges []Merge, m, k int) ([]int, error) {
	if len(merges) != m-1 {
		return nil, fmt.Errorf("%w: %d merges for %d observations", ErrDimensionMismatch, len(merges), m)
	}
	if k < 1 || k > m {
		return nil, fmt.Errorf("%w: cannot cut %d observations into %d clusters", ErrInvalidK, m, k)
	}

	// Nodes formed by the first m-k merges are whole clusters.
	kept := m - k
	labels := make([]int, m)
	next := 0

	var leaves func(v int, label int)
	leaves = func(v int, label int) {
		if v < m {
			labels[v] = label
			return
		}
		mg := merges[v-m]
		leaves(mg.A, label)
		leaves(mg.B, label)
	}

	var walk func(v int)
	walk = func(v int) {
		if v < m || v-m < kept {
			next++
			leaves(v, next)
			return
		}
		mg := merges[v-m]
		walk(mg.A)
		walk(mg.B)
	}

	walk(2*m - 2)
	return labels, nil
}
