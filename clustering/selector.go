package clustering

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Range is a half-open interval of candidate cluster counts [Start, Stop).
type Range struct {
	Start int
	Stop  int
}

// Values lists the candidates in ascending order.
func (r Range) Values() []int {
	if r.Stop <= r.Start {
		return nil
	}
	out := make([]int, 0, r.Stop-r.Start)
	for k := r.Start; k < r.Stop; k++ {
		out = append(out, k)
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.Stop)
}

// CandidateRanges derives the coarse and fine candidate ranges from the
// number of samples. The coarse level targets roughly the cube root of n and
// the fine level its square.
func CandidateRanges(n int) (upper, lower Range) {
	lv1 := clamp(int(math.Round(math.Cbrt(float64(n)))), 2, 10)
	lv2 := clamp(lv1*lv1, 2, 1000)
	upper = Range{Start: 2, Stop: max(2, lv2-1)}
	lower = Range{Start: max(2, lv2-1), Stop: lv2*2 + 1}
	return upper, lower
}

// SelectK returns the candidate with the highest mean silhouette of a seeded
// k-means fit. Candidates with k >= n, or whose fit or score fails, are
// skipped. Ties keep the smaller k. When nothing can be scored the range
// start is returned.
func SelectK(points [][]float64, r Range, seed uint64, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	candidates := r.Values()
	n := len(points)
	logger.Info("scoring cluster count candidates", "range", r.String(), "samples", n)

	scores := make([]float64, len(candidates))
	valid := make([]bool, len(candidates))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, k := range candidates {
		if k >= n {
			logger.Warn("skipping cluster count not below sample count", "k", k, "samples", n)
			continue
		}
		g.Go(func() error {
			fit, err := KMeans(points, k, seed)
			if err != nil {
				logger.Warn("k-means failed", "k", k, "err", err)
				return nil
			}
			score, err := Silhouette(points, fit.Labels)
			if err != nil {
				logger.Warn("silhouette failed", "k", k, "err", err)
				return nil
			}
			scores[i] = score
			valid[i] = true
			return nil
		})
	}
	_ = g.Wait()

	best, bestScore := pickBest(candidates, scores, valid, r.Start)
	logger.Info("selected cluster count", "range", r.String(), "k", best, "score", bestScore)
	return best
}

// pickBest returns the first valid candidate with the strictly highest score,
// or fallback when none is valid.
func pickBest(candidates []int, scores []float64, valid []bool, fallback int) (int, float64) {
	best, bestScore, found := fallback, math.NaN(), false
	for i, k := range candidates {
		if !valid[i] {
			continue
		}
		if !found || scores[i] > bestScore {
			best, bestScore, found = k, scores[i], true
		}
	}
	return best, bestScore
}

// GenerateClusterCounts builds a ladder of cluster counts from min to max,
// doubling at each step and jumping straight to max when the next doubling
// would land within a factor of 1.5 of it.
func GenerateClusterCounts(minClusters, maxClusters int) []int {
	minClusters = max(1, minClusters)
	counts := []int{minClusters}
	if minClusters == maxClusters {
		return counts
	}

	current := minClusters
	for {
		double, triple := current*2, current*3
		if double >= maxClusters {
			if counts[len(counts)-1] != maxClusters {
				counts = append(counts, maxClusters)
			}
			return counts
		}
		if triple > maxClusters {
			return append(counts, maxClusters)
		}
		counts = append(counts, double)
		current = double
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
