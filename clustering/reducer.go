package clustering

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	// DefaultNeighbors is the neighbourhood size for large samples.
	DefaultNeighbors = 15

	// DefaultSeed seeds the projection and every k-means fit.
	DefaultSeed = 42

	// DefaultMinDist is the minimum spacing of projected points.
	DefaultMinDist = 0.1

	spread              = 1.0
	negativeSampleRate  = 5
	repulsionStrength   = 1.0
	gradientClip        = 4.0
	spectralInitLimit   = 2000
	smoothKNNIterations = 64
	smoothKNNTolerance  = 1e-5
	minKDistScale       = 1e-3
)

// Reducer projects high-dimensional vectors to two dimensions by laying out
// their fuzzy k-nearest-neighbour graph.
type Reducer struct {
	neighbors int
	seed      uint64
	epochs    int
	minDist   float64
	logger    *slog.Logger
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// WithNeighbors sets the neighbourhood size, counting the point itself.
func WithNeighbors(k int) ReducerOption {
	return func(r *Reducer) {
		if k >= 2 {
			r.neighbors = k
		}
	}
}

// WithSeed sets the random seed.
func WithSeed(seed uint64) ReducerOption {
	return func(r *Reducer) {
		r.seed = seed
	}
}

// WithEpochs sets the number of optimisation epochs. Zero picks 500 for
// up to 10000 points and 200 above.
func WithEpochs(n int) ReducerOption {
	return func(r *Reducer) {
		r.epochs = n
	}
}

// WithMinDist sets how tightly points may be packed.
func WithMinDist(d float64) ReducerOption {
	return func(r *Reducer) {
		if d >= 0 {
			r.minDist = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ReducerOption {
	return func(r *Reducer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReducer creates a Reducer.
func NewReducer(opts ...ReducerOption) *Reducer {
	r := &Reducer{
		neighbors: DefaultNeighbors,
		seed:      DefaultSeed,
		minDist:   DefaultMinDist,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reducer")
	return r
}

// NeighborsFor returns the neighbourhood size used for n samples.
// Samples no larger than the configured size shrink it to max(2, n-1).
func (r *Reducer) NeighborsFor(n int) int {
	if n <= r.neighbors {
		return max(2, n-1)
	}
	return r.neighbors
}

// Reduce returns one (x, y) row per input row, in input order.
func (r *Reducer) Reduce(data [][]float64) ([][]float64, error) {
	if _, err := checkPoints(data); err != nil {
		return nil, err
	}
	n := len(data)
	switch n {
	case 1:
		return [][]float64{{0, 0}}, nil
	case 2:
		return [][]float64{{0, 0}, {1, 0}}, nil
	}

	k := r.NeighborsFor(n)
	epochs := r.epochs
	if epochs <= 0 {
		epochs = 500
		if n > 10000 {
			epochs = 200
		}
	}
	r.logger.Debug("reducing", "samples", n, "neighbors", k, "epochs", epochs)

	rng := rand.New(rand.NewPCG(r.seed, r.seed^0x2545f4914f6cdd1d))
	indices, distances := nearestNeighbors(data, k)
	graph := fuzzyGraph(indices, distances)
	a, b := fitCurve(r.minDist)

	embedding, err := spectralLayout(graph, n)
	if err != nil {
		r.logger.Debug("spectral initialisation unavailable, using random layout", "err", err)
		embedding = randomLayout(n, rng)
	} else {
		for _, row := range embedding {
			row[0] += rng.NormFloat64() * 1e-4
			row[1] += rng.NormFloat64() * 1e-4
		}
	}
	rescale(embedding, 10)

	optimizeLayout(embedding, graph, epochs, a, b, rng)
	return embedding, nil
}

// nearestNeighbors returns, for every point, its k nearest points by
// Euclidean distance with the point itself first.
func nearestNeighbors(data [][]float64, k int) ([][]int, [][]float64) {
	n := len(data)
	indices := make([][]int, n)
	distances := make([][]float64, n)

	row := make([]float64, n)
	order := make([]int, n)
	for i, p := range data {
		for j, q := range data {
			row[j] = floats.Distance(p, q, 2)
			order[j] = j
		}
		row[i] = -1
		floats.ArgsortStable(row, order)
		row[0] = 0

		indices[i] = append([]int(nil), order[:k]...)
		distances[i] = append([]float64(nil), row[:k]...)
	}
	return indices, distances
}

type edge struct {
	head, tail int
	weight     float64
}

// fuzzyGraph computes membership strengths of each point's neighbourhood
// and combines the directed graph with its transpose by fuzzy union.
func fuzzyGraph(indices [][]int, distances [][]float64) []edge {
	n := len(indices)
	k := len(indices[0])
	target := math.Log2(float64(k))

	var meanAll float64
	for _, row := range distances {
		meanAll += floats.Sum(row)
	}
	meanAll /= float64(n * k)

	directed := make(map[[2]int]float64, n*k)
	for i := range indices {
		neighbours := distances[i][1:]
		rho := 0.0
		for _, d := range neighbours {
			if d > 0 {
				rho = d
				break
			}
		}
		sigma := smoothSigma(neighbours, rho, target)
		if rho > 0 {
			sigma = max(sigma, minKDistScale*floats.Sum(neighbours)/float64(len(neighbours)))
		} else {
			sigma = max(sigma, minKDistScale*meanAll)
		}

		for p, j := range indices[i][1:] {
			if j == i {
				continue
			}
			w := 1.0
			if d := neighbours[p] - rho; d > 0 && sigma > 0 {
				w = math.Exp(-d / sigma)
			}
			directed[[2]int{i, j}] = w
		}
	}

	var edges []edge
	for key, w := range directed {
		i, j := key[0], key[1]
		t := directed[[2]int{j, i}]
		union := w + t - w*t
		edges = append(edges, edge{head: i, tail: j, weight: union})
		if _, ok := directed[[2]int{j, i}]; !ok {
			edges = append(edges, edge{head: j, tail: i, weight: union})
		}
	}
	sortEdges(edges)
	return edges
}

// smoothSigma binary-searches the bandwidth at which the neighbourhood's
// total membership equals log2(k).
func smoothSigma(neighbours []float64, rho, target float64) float64 {
	lo, hi, mid := 0.0, math.Inf(1), 1.0
	for iter := 0; iter < smoothKNNIterations; iter++ {
		sum := 0.0
		for _, d := range neighbours {
			if d -= rho; d > 0 {
				sum += math.Exp(-d / mid)
			} else {
				sum++
			}
		}
		if math.Abs(sum-target) < smoothKNNTolerance {
			break
		}
		if sum > target {
			hi = mid
			mid = (lo + hi) / 2
		} else {
			lo = mid
			if math.IsInf(hi, 1) {
				mid *= 2
			} else {
				mid = (lo + hi) / 2
			}
		}
	}
	return mid
}

func sortEdges(edges []edge) {
	// Map iteration order is random; the optimiser must see a fixed order.
	slices.SortFunc(edges, func(x, y edge) int {
		if x.head != y.head {
			return x.head - y.head
		}
		return x.tail - y.tail
	})
}

// fitCurve fits the low-dimensional similarity 1/(1+a*d^(2b)) to an offset
// exponential decay that stays flat up to minDist.
func fitCurve(minDist float64) (a, b float64) {
	const samples = 300
	xs := make([]float64, samples)
	floats.Span(xs, 0, spread*3)
	ys := make([]float64, samples)
	for i, x := range xs {
		if x < minDist {
			ys[i] = 1
		} else {
			ys[i] = math.Exp(-(x - minDist) / spread)
		}
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			if p[0] <= 0 || p[1] <= 0 {
				return math.Inf(1)
			}
			loss := 0.0
			for i, x := range xs {
				r := 1/(1+p[0]*math.Pow(x, 2*p[1])) - ys[i]
				loss += r * r
			}
			return loss
		},
	}
	result, err := optimize.Minimize(problem, []float64{1, 1}, nil, &optimize.NelderMead{})
	if err != nil || result.X[0] <= 0 || result.X[1] <= 0 {
		// Reference values for the default spacing.
		return 1.577, 0.895
	}
	return result.X[0], result.X[1]
}

// spectralLayout embeds the graph with the second and third smallest
// eigenvectors of its symmetric normalised Laplacian.
func spectralLayout(graph []edge, n int) ([][]float64, error) {
	if n > spectralInitLimit {
		return nil, fmt.Errorf("%d points exceed the spectral limit of %d", n, spectralInitLimit)
	}
	if n < 4 {
		return nil, fmt.Errorf("%d points are too few for a spectral layout", n)
	}
	if !connected(graph, n) {
		return nil, fmt.Errorf("neighbour graph is disconnected")
	}

	weights := make([]float64, n*n)
	degree := make([]float64, n)
	for _, e := range graph {
		weights[e.head*n+e.tail] = e.weight
		degree[e.head] += e.weight
	}
	for i := range degree {
		if degree[i] <= 0 {
			return nil, fmt.Errorf("point %d has no neighbours", i)
		}
		degree[i] = 1 / math.Sqrt(degree[i])
	}

	laplacian := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := -weights[i*n+j] * degree[i] * degree[j]
			if i == j {
				v += 1
			}
			laplacian.SetSym(i, j, v)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(laplacian, true); !ok {
		return nil, fmt.Errorf("eigendecomposition failed")
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	layout := make([][]float64, n)
	maxAbs := 0.0
	for i := range layout {
		layout[i] = []float64{vectors.At(i, 1), vectors.At(i, 2)}
		maxAbs = max(maxAbs, math.Abs(layout[i][0]), math.Abs(layout[i][1]))
	}
	if maxAbs == 0 {
		return nil, fmt.Errorf("degenerate spectral layout")
	}
	for _, row := range layout {
		floats.Scale(10/maxAbs, row)
	}
	return layout, nil
}

func connected(graph []edge, n int) bool {
	adjacent := make([][]int, n)
	for _, e := range graph {
		adjacent[e.head] = append(adjacent[e.head], e.tail)
	}
	seen := make([]bool, n)
	stack := []int{0}
	seen[0] = true
	visited := 1
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, u := range adjacent[v] {
			if !seen[u] {
				seen[u] = true
				visited++
				stack = append(stack, u)
			}
		}
	}
	return visited == n
}

func randomLayout(n int, rng *rand.Rand) [][]float64 {
	layout := make([][]float64, n)
	for i := range layout {
		layout[i] = []float64{rng.Float64()*20 - 10, rng.Float64()*20 - 10}
	}
	return layout
}

// rescale maps each coordinate linearly onto [0, size].
func rescale(layout [][]float64, size float64) {
	for c := 0; c < 2; c++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range layout {
			lo, hi = min(lo, row[c]), max(hi, row[c])
		}
		span := hi - lo
		for _, row := range layout {
			if span > 0 {
				row[c] = size * (row[c] - lo) / span
			} else {
				row[c] = 0
			}
		}
	}
}

// optimizeLayout runs stochastic gradient descent on the cross entropy
// between the graph memberships and the layout similarities. Edges are
// sampled in proportion to their weight and each sample draws
// negativeSampleRate random repulsive partners.
func optimizeLayout(layout [][]float64, graph []edge, epochs int, a, b float64, rng *rand.Rand) {
	n := len(layout)
	maxWeight := 0.0
	for _, e := range graph {
		maxWeight = max(maxWeight, e.weight)
	}
	if maxWeight == 0 {
		return
	}

	var edges []edge
	for _, e := range graph {
		if e.weight >= maxWeight/float64(epochs) {
			edges = append(edges, e)
		}
	}

	perSample := make([]float64, len(edges))
	nextSample := make([]float64, len(edges))
	perNegative := make([]float64, len(edges))
	nextNegative := make([]float64, len(edges))
	for i, e := range edges {
		perSample[i] = maxWeight / e.weight
		nextSample[i] = perSample[i]
		perNegative[i] = perSample[i] / negativeSampleRate
		nextNegative[i] = perNegative[i]
	}

	var delta [2]float64
	for epoch := 0; epoch < epochs; epoch++ {
		alpha := 1 - float64(epoch)/float64(epochs)
		for i, e := range edges {
			if nextSample[i] > float64(epoch) {
				continue
			}
			cur, other := layout[e.head], layout[e.tail]

			d2 := sqDist(cur, other)
			coeff := 0.0
			if d2 > 0 {
				coeff = -2 * a * b * math.Pow(d2, b-1) / (a*math.Pow(d2, b) + 1)
			}
			for c := 0; c < 2; c++ {
				delta[c] = clip(coeff*(cur[c]-other[c])) * alpha
				cur[c] += delta[c]
				other[c] -= delta[c]
			}
			nextSample[i] += perSample[i]

			negatives := int((float64(epoch) - nextNegative[i]) / perNegative[i])
			for s := 0; s < negatives; s++ {
				t := rng.IntN(n)
				if t == e.head {
					continue
				}
				other := layout[t]
				d2 := sqDist(cur, other)
				for c := 0; c < 2; c++ {
					grad := gradientClip
					if d2 > 0 {
						coeff := 2 * repulsionStrength * b / ((0.001 + d2) * (a*math.Pow(d2, b) + 1))
						grad = clip(coeff * (cur[c] - other[c]))
					}
					cur[c] += grad * alpha
				}
			}
			nextNegative[i] += float64(negatives) * perNegative[i]
		}
	}
}

func clip(v float64) float64 {
	return max(-gradientClip, min(gradientClip, v))
}
