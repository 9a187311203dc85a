package gateway

import (
	"context"
	"time"

	"github.com/poiesic/broadlistening/ai"
	"github.com/poiesic/broadlistening/metrics"
	"golang.org/x/time/rate"
)

const (
	opChat  = "chat"
	opEmbed = "embed"
)

type chatModel struct {
	next     ai.ChatModel
	provider string
	policy   ai.RetryPolicy
	timeout  time.Duration
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
}

// Complete runs the call under the retry policy. Each attempt gets its own
// timeout.
func (c *chatModel) Complete(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	var resp ai.ChatResponse
	err := ai.Retry(ctx, c.policy, func() error {
		if err := wait(ctx, c.limiter); err != nil {
			return err
		}

		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		started := time.Now()
		var err error
		resp, err = c.next.Complete(callCtx, req)
		c.metrics.ObserveCall(opChat, c.provider, started, err)
		return err
	}, func(attempt int, err error) {
		c.metrics.ObserveRetry(opChat, c.provider)
	})
	if err != nil {
		return ai.ChatResponse{}, err
	}

	c.metrics.ObserveTokens(c.provider, resp.Usage.Input, resp.Usage.Output)
	return resp, nil
}

type embedderModel struct {
	next     ai.Embedder
	provider string
	policy   ai.RetryPolicy
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
}

func (e *embedderModel) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := ai.Retry(ctx, e.policy, func() error {
		if err := wait(ctx, e.limiter); err != nil {
			return err
		}
		started := time.Now()
		var err error
		vectors, err = e.next.EmbedTexts(ctx, texts)
		e.metrics.ObserveCall(opEmbed, e.provider, started, err)
		return err
	}, func(attempt int, err error) {
		e.metrics.ObserveRetry(opEmbed, e.provider)
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
