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


package core

import (
	"encoding/binary"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier used for cache keys.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Comment is a single row of the input dataset.
type Comment struct {
	ID         string
	Body       string
	Source     string
	URL        string
	Properties map[string]string // Extra property columns requested by configuration
}

// Argument is an atomic opinion extracted from one or more comments.
// Distinct texts map to exactly one argument ID for a run.
type Argument struct {
	ID   string
	Text string
}

// Relation links an argument to a comment it was extracted from.
// Relations are not deduplicated.
type Relation struct {
	ArgumentID string
	CommentID  string
}

// Embedding is the vector for one argument.
type Embedding struct {
	ArgumentID string
	Vector     []float32
}

// Point is the 2-D projection of one argument.
type Point struct {
	ArgumentID string
	X          float64
	Y          float64
}

// ClusterAssignment holds the cluster id of one argument at every level.
// Levels[0] is the coarsest level, Levels[len-1] the finest.
type ClusterAssignment struct {
	ArgumentID string
	Levels     []string
}

// Cluster is one node of the opinion hierarchy.
type Cluster struct {
	ID          string
	Level       int
	ParentID    string // Empty for level 1
	Label       string
	Description string
	Members     []string // Argument IDs
}

// Label is the labeller output for a single cluster.
type Label struct {
	ClusterID   string
	Label       string
	Description string
}

// ArgumentID formats the id of the seq-th argument extracted from a comment.
func ArgumentID(commentID string, seq int) string {
	return fmt.Sprintf("A%s_%d", commentID, seq)
}

// ClusterID formats a cluster id as "{level}_{raw}".
func ClusterID(level, raw int) string {
	return fmt.Sprintf("%d_%d", level, raw)
}
