package clustering

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

const (
	kmeansMaxIter = 300
	kmeansTol     = 1e-4
)

// KMeansResult is a fitted flat clustering.
type KMeansResult struct {
	Labels  []int // 0-based cluster per point
	Centers [][]float64
	Inertia float64 // Sum of squared distances to the assigned center
}

// KMeans clusters points into k groups with greedy k-means++ seeding
// followed by Lloyd iterations. The result depends only on the points, k
// and seed.
func KMeans(points [][]float64, k int, seed uint64) (*KMeansResult, error) {
	dim, err := checkPoints(points)
	if err != nil {
		return nil, err
	}
	n := len(points)
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k=%d with %d points", ErrInvalidK, k, n)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	centers := seedCenters(points, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	tol := kmeansTol * meanVariance(points, dim)

	counts := make([]int, k)
	next := make([][]float64, k)
	for c := range next {
		next[c] = make([]float64, dim)
	}

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := assign(points, centers, labels)

		for c := range next {
			clear(next[c])
			counts[c] = 0
		}
		for i, p := range points {
			floats.Add(next[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] > 0 {
				continue
			}
			// Move an empty cluster onto the point farthest from its center.
			far := farthestPoint(points, centers, labels, counts)
			if far < 0 {
				continue
			}
			old := labels[far]
			floats.Sub(next[old], points[far])
			counts[old]--
			copy(next[c], points[far])
			counts[c] = 1
			labels[far] = c
			changed = true
		}
		for c := range next {
			if counts[c] == 0 {
				copy(next[c], centers[c])
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		shift := 0.0
		for c := range centers {
			d := floats.Distance(centers[c], next[c], 2)
			shift += d * d
			copy(centers[c], next[c])
		}
		if !changed || shift <= tol {
			break
		}
	}
	assign(points, centers, labels)

	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centers[labels[i]])
	}
	return &KMeansResult{Labels: labels, Centers: centers, Inertia: inertia}, nil
}

// seedCenters picks k initial centers with greedy k-means++: each new center
// is the best of several candidates sampled proportionally to squared distance.
func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	trials := 2 + int(math.Log(float64(k)))

	centers := make([][]float64, 0, k)
	first := rng.IntN(n)
	centers = append(centers, append([]float64(nil), points[first]...))

	closest := make([]float64, n)
	for i, p := range points {
		closest[i] = sqDist(p, centers[0])
	}

	candidate := make([]float64, n)
	best := make([]float64, n)
	for len(centers) < k {
		potential := floats.Sum(closest)
		bestIdx, bestPotential := -1, math.Inf(1)

		for t := 0; t < trials; t++ {
			idx := sampleIndex(closest, potential, rng)
			for i, p := range points {
				candidate[i] = min(closest[i], sqDist(p, points[idx]))
			}
			if pot := floats.Sum(candidate); pot < bestPotential {
				bestIdx, bestPotential = idx, pot
				copy(best, candidate)
			}
		}

		centers = append(centers, append([]float64(nil), points[bestIdx]...))
		copy(closest, best)
	}
	return centers
}

func sampleIndex(weights []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// assign sets each label to its nearest center and reports whether any changed.
func assign(points, centers [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestDist {
				best, bestDist = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// farthestPoint returns the point farthest from its center among clusters
// that can spare one, or -1.
func farthestPoint(points, centers [][]float64, labels, counts []int) int {
	far, farDist := -1, -1.0
	for i, p := range points {
		if counts[labels[i]] < 2 {
			continue
		}
		if d := sqDist(p, centers[labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func meanVariance(points [][]float64, dim int) float64 {
	n := float64(len(points))
	total := 0.0
	col := make([]float64, len(points))
	for j := 0; j < dim; j++ {
		for i, p := range points {
			col[i] = p[j]
		}
		mean := floats.Sum(col) / n
		for _, v := range col {
			total += (v - mean) * (v - mean)
		}
	}
	return total / (n * float64(dim))
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func checkPoints(points [][]float64) (int, error) {
	if len(points) == 0 {
		return 0, ErrNoPoints
	}
	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return 0, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(p), dim)
		}
	}
	return dim, nil
}
