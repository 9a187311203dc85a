// Package pipeline runs the broad-listening stages over one dataset.
//
// A run reads comments from {root}/inputs/{input}.csv and writes every
// intermediate table under {root}/outputs/{output_dir}/:
//
//	Extract  -> args.csv, relations.csv
//	Embed    -> embeddings.jsonl
//	Cluster  -> hierarchical_clusters.csv
//	Label    -> hierarchical_initial_labels.csv
//
// Each stage reads its inputs fresh from disk, so any stage can be rerun on
// its own once the earlier artifacts exist. Run executes all four in order,
// records the run in the state directory when one is configured and writes
// the accumulated token usage back into the configuration file.
package pipeline
