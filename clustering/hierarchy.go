package clustering

import (
	"fmt"
	"slices"

	"github.com/poiesic/broadlistening/core"
)

// HierarchyResult holds the labels of every point at every level.
// Level 1 is the coarsest.
type HierarchyResult struct {
	// Counts is the sorted, deduplicated cluster count per level.
	Counts []int

	// Levels[l][i] is the raw label of point i at level l+1. The finest
	// level keeps 0-based k-means labels and coarser levels use 1-based
	// merge-group labels.
	Levels [][]int

	// Centers are the k-means centers of the finest level.
	Centers [][]float64
}

// Hierarchy fits one k-means at the largest count and derives each smaller
// count by cutting the Ward linkage of the fine centers. Every point's
// coarse label is the merge group of its fine cluster, so levels nest.
func Hierarchy(points [][]float64, clusterNums []int, seed uint64) (*HierarchyResult, error) {
	if _, err := checkPoints(points); err != nil {
		return nil, err
	}
	counts := slices.Clone(clusterNums)
	slices.Sort(counts)
	counts = slices.Compact(counts)
	if err := core.ValidateClusterNums(counts, len(points)); err != nil {
		return nil, err
	}

	finest := counts[len(counts)-1]
	fit, err := KMeans(points, finest, seed)
	if err != nil {
		return nil, fmt.Errorf("fit %d clusters: %w", finest, err)
	}

	var merges []Merge
	if len(counts) > 1 {
		merges, err = WardLinkage(fit.Centers)
		if err != nil {
			return nil, fmt.Errorf("link centers: %w", err)
		}
	}

	levels := make([][]int, len(counts))
	for l, k := range counts[:len(counts)-1] {
		groups, err := CutTree(merges, finest, k)
		if err != nil {
			return nil, fmt.Errorf("cut at %d: %w", k, err)
		}
		labels := make([]int, len(points))
		for i, fine := range fit.Labels {
			labels[i] = groups[fine]
		}
		levels[l] = labels
	}
	levels[len(levels)-1] = slices.Clone(fit.Labels)

	return &HierarchyResult{Counts: counts, Levels: levels, Centers: fit.Centers}, nil
}

// Assignments formats the level labels of each argument as "{level}_{raw}"
// ids. argIDs must be aligned with the clustered points.
func (h *HierarchyResult) Assignments(argIDs []string) ([]core.ClusterAssignment, error) {
	if len(h.Levels) == 0 || len(argIDs) != len(h.Levels[0]) {
		return nil, fmt.Errorf("%w: %d argument ids for clustered points", ErrDimensionMismatch, len(argIDs))
	}
	out := make([]core.ClusterAssignment, len(argIDs))
	for i, id := range argIDs {
		levels := make([]string, len(h.Levels))
		for l, labels := range h.Levels {
			levels[l] = core.ClusterID(l+1, labels[i])
		}
		out[i] = core.ClusterAssignment{ArgumentID: id, Levels: levels}
	}
	return out, nil
}

// Tree builds the cluster nodes of every level from assignments, with
// parent links and member argument ids. Nodes are ordered by level and then
// by first appearance. Assignments that violate containment are rejected.
func Tree(assignments []core.ClusterAssignment) ([]core.Cluster, error) {
	if err := core.ValidateHierarchy(assignments); err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, nil
	}

	depth := len(assignments[0].Levels)
	var clusters []core.Cluster
	for l := 0; l < depth; l++ {
		index := make(map[string]int)
		start := len(clusters)
		for _, a := range assignments {
			id := a.Levels[l]
			pos, ok := index[id]
			if !ok {
				parent := ""
				if l > 0 {
					parent = a.Levels[l-1]
				}
				pos = len(clusters) - start
				index[id] = pos
				clusters = append(clusters, core.Cluster{ID: id, Level: l + 1, ParentID: parent})
			}
			clusters[start+pos].Members = append(clusters[start+pos].Members, a.ArgumentID)
		}
	}
	return clusters, nil
}
