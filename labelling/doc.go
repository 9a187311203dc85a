// Package labelling names clusters with a chat model.
//
// For every cluster a Labeller samples a bounded number of member
// arguments, joins them one per line and asks the model for a short label
// and a description. Clusters are labelled concurrently on an ants worker
// pool. A failed call never aborts the run; the cluster gets placeholder
// text instead.
package labelling
