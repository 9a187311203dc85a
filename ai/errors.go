package ai

import "errors"

var (
	// ErrRateLimited is returned when the backend signals rate limiting.
	// It is the only error kind that is retried.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthentication is returned for rejected credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrInvalidRequest is returned for malformed requests.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmptyResponse is returned when the backend returns no choices or vectors.
	ErrEmptyResponse = errors.New("empty response")

	// ErrUnsupported is returned when a provider does not offer an operation.
	ErrUnsupported = errors.New("operation not supported by provider")

	// ErrUnknownProvider is returned for an unrecognised provider tag.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidEmbeddingModel is returned when a hosted embedding model is not allowed.
	ErrInvalidEmbeddingModel = errors.New("invalid embedding model")

	// ErrInvalidMaxAttempts is returned when a retry policy has no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrSchemaViolation is returned when a structured reply does not match its schema.
	ErrSchemaViolation = errors.New("response does not match schema")
)
