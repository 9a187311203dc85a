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


package openai

import (
	"fmt"

	"github.com/poiesic/broadlistening/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// ClientConfig holds the connection settings for one OpenAI-compatible endpoint.
type ClientConfig struct {
	BaseURL        string // Empty selects the library default
	Token          string
	ChatModel      string
	EmbeddingModel string
}

// ClientConfigFor derives connection settings for the providers served by
// this package. Enterprise is served by ai/azure and is rejected here.
func ClientConfigFor(p ai.Provider, cfg *ai.Config) (ClientConfig, error) {
	cc := ClientConfig{
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
	}
	switch v := p.(type) {
	case ai.Hosted:
		cc.BaseURL = v.BaseURL
		cc.Token = v.APIKey
	case ai.Local:
		cc.BaseURL = v.BaseURL()
		// Local servers don't require authentication
		cc.Token = "none"
	case ai.Catalog:
		cc.BaseURL = v.BaseURL
		if cc.BaseURL == "" {
			cc.BaseURL = ai.CatalogBaseURL
		}
		cc.Token = v.APIKey
	default:
		return ClientConfig{}, fmt.Errorf("%w: %s is not served by the openai backend", ai.ErrUnsupported, p.Name())
	}
	return cc, nil
}

func (c ClientConfig) options(extra ...openai.Option) []openai.Option {
	opts := make([]openai.Option, 0, 4+len(extra))
	if c.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(c.BaseURL))
	}
	if c.Token != "" {
		opts = append(opts, openai.WithToken(c.Token))
	}
	if c.ChatModel != "" {
		opts = append(opts, openai.WithModel(c.ChatModel))
	}
	if c.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(c.EmbeddingModel))
	}
	return append(opts, extra...)
}
