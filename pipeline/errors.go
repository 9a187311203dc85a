package pipeline

import "errors"

var (
	// ErrInvalidConfig is returned when the pipeline configuration is unusable.
	ErrInvalidConfig = errors.New("invalid pipeline config")

	// ErrNoEmbeddings is returned when clustering finds no vectors to project.
	ErrNoEmbeddings = errors.New("no embeddings to cluster")
)
