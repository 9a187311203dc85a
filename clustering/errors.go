package clustering

import "errors"

var (
	// ErrNoPoints is returned when an operation receives no points.
	ErrNoPoints = errors.New("no points")

	// ErrDimensionMismatch is returned when rows have differing lengths.
	ErrDimensionMismatch = errors.New("points have differing dimensions")

	// ErrInvalidK is returned when k is not in [1, n].
	ErrInvalidK = errors.New("invalid number of clusters")

	// ErrSilhouetteUndefined is returned when the number of distinct labels
	// is not in [2, n-1].
	ErrSilhouetteUndefined = errors.New("silhouette requires 2 <= clusters <= n-1")
)
