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
	"fmt"
	"slices"
)

// ValidateComment validates a Comment according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Body must not be empty
//
// NOT validated:
//   - Source and URL (optional metadata)
//   - Properties (checked against the input header before extraction)
func ValidateComment(comment *Comment) error {
	if comment == nil {
		return fmt.Errorf("%w: comment is nil", ErrEmptyComment)
	}
	if comment.ID == "" || comment.Body == "" {
		return fmt.Errorf("%w: id=%q", ErrEmptyComment, comment.ID)
	}
	return nil
}

// ValidateClusterNums checks a list of per-level cluster counts against the sample size.
// Every count must be at least 2 and the largest must be below n.
func ValidateClusterNums(nums []int, n int) error {
	if len(nums) == 0 {
		return fmt.Errorf("%w: no counts given", ErrInvalidClusterNums)
	}
	for _, k := range nums {
		if k < 2 {
			return fmt.Errorf("%w: count %d is below 2", ErrInvalidClusterNums, k)
		}
	}
	if largest := slices.Max(nums); largest >= n {
		return fmt.Errorf("%w: largest count %d must be below sample count %d", ErrInvalidClusterNums, largest, n)
	}
	return nil
}

// ValidateHierarchy verifies strict containment across levels.
// For every pair of adjacent levels each finer cluster id must map to exactly one coarser id.
func ValidateHierarchy(assignments []ClusterAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	depth := len(assignments[0].Levels)
	for level := 1; level < depth; level++ {
		parents := make(map[string]string)
		for _, a := range assignments {
			if len(a.Levels) != depth {
				return fmt.Errorf("%w: argument %s has %d levels, expected %d",
					ErrHierarchyViolation, a.ArgumentID, len(a.Levels), depth)
			}
			child, parent := a.Levels[level], a.Levels[level-1]
			if existing, ok := parents[child]; ok && existing != parent {
				return fmt.Errorf("%w: cluster %s has parents %s and %s",
					ErrHierarchyViolation, child, existing, parent)
			}
			parents[child] = parent
		}
	}
	return nil
}
