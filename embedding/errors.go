package embedding

import "errors"

var (
	// ErrCountMismatch indicates the embedder returned a different number of
	// vectors than texts sent.
	ErrCountMismatch = errors.New("embedding count mismatch")

	// ErrDimensionMismatch indicates vectors of one run differ in length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
