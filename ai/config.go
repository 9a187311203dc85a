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
	"errors"
	"slices"
	"strings"
	"time"
)

// DefaultLocalEmbeddingModel is the in-process model used when none is configured.
const DefaultLocalEmbeddingModel = "paraphrase-multilingual-mpnet-base-v2"

// HostedEmbeddingModels lists the embedding models accepted by the hosted provider.
var HostedEmbeddingModels = []string{
	"text-embedding-3-large",
	"text-embedding-3-small",
}

// Config holds configuration for a provider gateway.
type Config struct {
	// Provider selects the backend. Required.
	Provider Provider

	// ChatModel is the default chat model identifier.
	// Example: "gpt-4o-mini", "qwen2.5:7b"
	ChatModel string

	// EmbeddingModel is the remote embedding model identifier.
	// Example: "text-embedding-3-small"
	EmbeddingModel string

	// EmbedLocally routes every embedding call to the in-process model.
	EmbedLocally bool

	// LocalEmbeddingModel names the in-process model used locally and as fallback.
	LocalEmbeddingModel string

	// CallTimeout bounds a single chat call.
	// Default: 30s
	CallTimeout time.Duration

	// Retry controls backoff on rate limiting. A zero MaxAttempts selects the
	// provider's default policy.
	Retry RetryPolicy

	// RequestsPerSecond limits chat and embedding calls. 0 disables limiting.
	RequestsPerSecond float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the backend provider.
func WithProvider(p Provider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithLocalEmbedding routes embeddings to the named in-process model.
func WithLocalEmbedding(enabled bool, model string) ConfigOption {
	return func(c *Config) {
		c.EmbedLocally = enabled
		if model != "" {
			c.LocalEmbeddingModel = model
		}
	}
}

// WithCallTimeout sets the per-call timeout for chat requests.
func WithCallTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.CallTimeout = d
	}
}

// WithRetryPolicy overrides the rate-limit retry policy.
func WithRetryPolicy(p RetryPolicy) ConfigOption {
	return func(c *Config) {
		c.Retry = p
	}
}

// WithRequestsPerSecond limits the request rate against the backend.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// DefaultConfig returns a Config with sensible defaults for a local OpenAI-compatible server.
func DefaultConfig() *Config {
	return &Config{
		Provider:            Local{Address: DefaultLocalAddress},
		ChatModel:           "gpt-4o-mini",
		EmbeddingModel:      "text-embedding-3-small",
		LocalEmbeddingModel: DefaultLocalEmbeddingModel,
		CallTimeout:         30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(Hosted{APIKey: key}),
//	    WithChatModel("gpt-4o-mini"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize fills provider-specific defaults.
func (c *Config) Normalize() {
	if c.Retry.MaxAttempts == 0 {
		if _, ok := c.Provider.(Enterprise); ok {
			c.Retry = EnterpriseRetryPolicy()
		} else {
			c.Retry = DefaultRetryPolicy()
		}
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.LocalEmbeddingModel == "" {
		c.LocalEmbeddingModel = DefaultLocalEmbeddingModel
	}
	if l, ok := c.Provider.(Local); ok && strings.TrimSpace(l.Address) == "" {
		c.Provider = Local{Address: DefaultLocalAddress}
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Provider == nil {
		return errors.New("ai config: Provider is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.EmbeddingModel == "" && !c.EmbedLocally {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if _, ok := c.Provider.(Hosted); ok && !c.EmbedLocally && !slices.Contains(HostedEmbeddingModels, c.EmbeddingModel) {
		return errors.Join(ErrInvalidEmbeddingModel,
			errors.New("ai config: available models are "+strings.Join(HostedEmbeddingModels, ", ")))
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	return nil
}
