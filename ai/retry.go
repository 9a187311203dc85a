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


package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy configures exponential backoff for rate-limited calls.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps every individual wait.
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry.
	Multiplier float64
}

// DefaultRetryPolicy returns the policy used for hosted and local providers.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 3 * time.Second,
		MaxDelay:     20 * time.Second,
		Multiplier:   2,
	}
}

// EnterpriseRetryPolicy returns the policy used for Azure deployments.
func EnterpriseRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     20 * time.Second,
		Multiplier:   2,
	}
}

// delay returns the wait before attempt+1, where attempt starts at 1.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		d *= mult
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Retry runs operation until it succeeds, fails with an error that is not a
// rate limit, or the policy's attempts are exhausted.
// onRetry, when non-nil, is called before each wait.
func Retry(ctx context.Context, policy RetryPolicy, operation func() error, onRetry func(attempt int, err error)) error {
	if policy.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if !errors.Is(lastErr, ErrRateLimited) {
			return lastErr
		}

		if attempt == policy.MaxAttempts {
			break
		}

		slog.Warn("rate limited, will retry", "attempt", attempt, "maxAttempts", policy.MaxAttempts, "err", lastErr)
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}

		timer := time.NewTimer(policy.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", policy.MaxAttempts, lastErr)
}
