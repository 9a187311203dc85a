// Package clustering projects argument embeddings to two dimensions and
// groups them into a hierarchy of clusters.
//
// The projection is a neighbourhood-graph manifold embedding (Reducer).
// Cluster counts are either configured or chosen per level by silhouette
// score over candidate ranges derived from the sample size (SelectK). The
// hierarchy fits a single k-means at the finest count and derives every
// coarser level by Ward linkage over the fine centers, so a fine cluster
// always belongs to exactly one coarse cluster.
//
// All randomness is seeded and results are reproducible for a given seed.
package clustering
