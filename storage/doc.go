// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage persists pipeline artifacts and run state.
//
// Artifacts are the CSV and JSON Lines files exchanged between stages, laid
// out under a root directory:
//
//	inputs/{input}.csv
//	outputs/{dataset}/args.csv
//	outputs/{dataset}/relations.csv
//	outputs/{dataset}/embeddings.jsonl
//	outputs/{dataset}/hierarchical_clusters.csv
//	outputs/{dataset}/hierarchical_initial_labels.csv
//
// Every stage reads its input artifact fresh from disk, so stages can be
// re-run independently.
//
// Run records and the embedding cache live behind the RunRepository and
// EmbeddingCache interfaces. The badger subpackage implements both:
//
//	repo, err := badger.NewRepository("/path/to/state")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
