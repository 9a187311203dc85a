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


// Package gateway builds the chat and embedding services for a configured
// provider and wraps them with retry, rate limiting, timeouts and metrics.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/broadlistening/ai"
	"github.com/poiesic/broadlistening/ai/azure"
	"github.com/poiesic/broadlistening/ai/local"
	"github.com/poiesic/broadlistening/ai/openai"
	"github.com/poiesic/broadlistening/embedding"
	"github.com/poiesic/broadlistening/metrics"
	"golang.org/x/time/rate"
)

// Gateway implements ai.Gateway for one provider.
type Gateway struct {
	chat     ai.ChatModel
	embedder ai.Embedder
}

var _ ai.Gateway = (*Gateway)(nil)

// Option configures New.
type Option func(*options)

type options struct {
	registry *local.Registry
	metrics  *metrics.Metrics
}

// WithRegistry sets the local model registry. Defaults to local.Shared().
func WithRegistry(r *local.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithMetrics records call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New validates cfg and builds the services of its provider.
func New(cfg *ai.Config, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = local.Shared()
	}

	chat, remote, err := backends(cfg)
	if err != nil {
		return nil, err
	}

	localEmbedder := local.NewEmbedder(o.registry, cfg.LocalEmbeddingModel)
	var embedder ai.Embedder
	switch {
	case cfg.EmbedLocally:
		embedder = localEmbedder
	case remote == nil:
		embedder = unsupportedEmbedder{provider: cfg.Provider.Name()}
	default:
		embedder = remote
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	name := cfg.Provider.Name()
	logger := slog.Default().With("component", "gateway", "provider", name)

	g := &Gateway{
		chat: &chatModel{
			next:     chat,
			provider: name,
			policy:   cfg.Retry,
			timeout:  cfg.CallTimeout,
			limiter:  limiter,
			metrics:  o.metrics,
		},
	}

	var wrapped ai.Embedder = embedder
	if !cfg.EmbedLocally {
		wrapped = &embedderModel{
			next:     embedder,
			provider: name,
			policy:   cfg.Retry,
			limiter:  limiter,
			metrics:  o.metrics,
		}
		if _, ok := cfg.Provider.(ai.Local); ok {
			wrapped = &embedding.Fallback{Primary: wrapped, Secondary: localEmbedder, Logger: logger}
		}
	}
	g.embedder = wrapped

	logger.Info("provider gateway ready", "chatModel", cfg.ChatModel, "embedLocally", cfg.EmbedLocally)
	return g, nil
}

// backends builds the raw chat model and remote embedder of the provider.
// A nil embedder means the provider has no embedding endpoint.
func backends(cfg *ai.Config) (ai.ChatModel, ai.Embedder, error) {
	switch p := cfg.Provider.(type) {
	case ai.Enterprise:
		chat, err := azure.NewChatModel(p)
		if err != nil {
			return nil, nil, err
		}
		if cfg.EmbedLocally {
			return chat, nil, nil
		}
		embedder, err := azure.NewEmbedder(p)
		if err != nil {
			return nil, nil, err
		}
		return chat, embedder, nil

	case ai.Hosted, ai.Local, ai.Catalog:
		cc, err := openai.ClientConfigFor(p, cfg)
		if err != nil {
			return nil, nil, err
		}
		chat, err := openai.NewChatModel(cc)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := p.(ai.Catalog); ok || cfg.EmbedLocally {
			return chat, nil, nil
		}
		embedder, err := openai.NewEmbedder(cc, embedding.DefaultBatchSize)
		if err != nil {
			return nil, nil, err
		}
		return chat, embedder, nil

	default:
		return nil, nil, fmt.Errorf("%w: %T", ai.ErrUnknownProvider, cfg.Provider)
	}
}

// Chat returns the chat completion service.
func (g *Gateway) Chat() ai.ChatModel {
	return g.chat
}

// Embedder returns the text embedding service.
func (g *Gateway) Embedder() ai.Embedder {
	return g.embedder
}

// Close releases resources held by the gateway. The HTTP clients hold none.
func (g *Gateway) Close() error {
	return nil
}

type unsupportedEmbedder struct {
	provider string
}

func (u unsupportedEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: %s does not serve embeddings", ai.ErrUnsupported, u.provider)
}
