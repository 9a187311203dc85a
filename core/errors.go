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

import "errors"

// Domain validation errors
var (
	// ErrMissingProperties indicates configured property columns are absent from the input.
	ErrMissingProperties = errors.New("property columns not found in comments")

	// ErrEmptyArguments indicates extraction produced no arguments at all.
	ErrEmptyArguments = errors.New("result is empty, maybe bad prompt")

	// ErrEmptyComment indicates a comment has no id or no body.
	ErrEmptyComment = errors.New("comment id and body cannot be empty")

	// ErrInvalidClusterNums indicates an unusable list of cluster counts.
	ErrInvalidClusterNums = errors.New("invalid cluster counts")

	// ErrHierarchyViolation indicates a cluster at a finer level spans two parents.
	ErrHierarchyViolation = errors.New("cluster hierarchy containment violated")
)
