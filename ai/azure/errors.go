package azure

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/poiesic/broadlistening/ai"
	goopenai "github.com/sashabaranov/go-openai"
)

// mapError classifies go-openai failures by HTTP status.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ai.ErrAuthentication, err)
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", ai.ErrInvalidRequest, err)
	default:
		return err
	}
}
