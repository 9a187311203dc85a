package openai

import (
	"errors"
	"fmt"

	"github.com/poiesic/broadlistening/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// mapError translates langchaingo errors into the ai error taxonomy.
// The original error stays in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, openai.ErrEmptyResponse) {
		return fmt.Errorf("%w: %w", ai.ErrEmptyResponse, err)
	}

	mapped := openai.MapError(err)
	switch {
	case llms.IsRateLimitError(mapped):
		return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
	case llms.IsAuthenticationError(mapped):
		return fmt.Errorf("%w: %w", ai.ErrAuthentication, err)
	case llms.IsInvalidRequestError(mapped):
		return fmt.Errorf("%w: %w", ai.ErrInvalidRequest, err)
	default:
		return err
	}
}
