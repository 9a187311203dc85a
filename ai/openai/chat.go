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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/broadlistening/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel implements ai.ChatModel using OpenAI-compatible chat APIs.
// Structured output is configured per client in langchaingo, so one client
// is kept per response schema.
type ChatModel struct {
	config  ClientConfig
	mu      sync.Mutex
	clients map[string]llms.Model
	logger  *slog.Logger
}

var _ ai.ChatModel = (*ChatModel)(nil)

// newChatModel is an internal constructor that returns the concrete type.
func newChatModel(config ClientConfig) (*ChatModel, error) {
	m := &ChatModel{
		config:  config,
		clients: make(map[string]llms.Model),
		logger:  slog.Default().With("component", "openai-chat"),
	}
	// Build the plain client eagerly so configuration errors surface at construction.
	if _, err := m.clientFor(nil); err != nil {
		return nil, err
	}
	return m, nil
}

// NewChatModel creates a chat model for the given endpoint.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config ClientConfig) (ai.ChatModel, error) {
	return newChatModel(config)
}

func (m *ChatModel) clientFor(schema *ai.ResponseSchema) (llms.Model, error) {
	key := ""
	if schema != nil {
		key = schema.Name
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if client, ok := m.clients[key]; ok {
		return client, nil
	}

	var extra []openai.Option
	if schema != nil {
		format, err := responseFormat(schema)
		if err != nil {
			return nil, err
		}
		extra = append(extra, openai.WithResponseFormat(format))
	}
	client, err := openai.New(m.config.options(extra...)...)
	if err != nil {
		return nil, err
	}
	m.clients[key] = client
	return client, nil
}

// responseFormat converts a JSON-schema document into a strict json_schema response format.
func responseFormat(schema *ai.ResponseSchema) (*openai.ResponseFormat, error) {
	var property openai.ResponseFormatJSONSchemaProperty
	if err := json.Unmarshal(schema.Document, &property); err != nil {
		return nil, fmt.Errorf("schema %s: %w", schema.Name, err)
	}
	return &openai.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &openai.ResponseFormatJSONSchema{
			Name:   schema.Name,
			Strict: true,
			Schema: &property,
		},
	}, nil
}

// Complete sends the messages and returns the first choice with its token usage.
func (m *ChatModel) Complete(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	client, err := m.clientFor(req.Schema)
	if err != nil {
		return ai.ChatResponse{}, err
	}

	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if msg.Role == ai.RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}

	opts := []llms.CallOption{llms.WithTemperature(0.0), llms.WithSeed(0), llms.WithN(1)}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}

	response, err := client.GenerateContent(ctx, content, opts...)
	if err != nil {
		m.logger.Debug("failed to generate content", "err", err)
		return ai.ChatResponse{}, mapError(err)
	}
	if len(response.Choices) < 1 {
		return ai.ChatResponse{}, ai.ErrEmptyResponse
	}

	choice := response.Choices[0]
	return ai.ChatResponse{
		Text:  choice.Content,
		Usage: usageFrom(choice.GenerationInfo),
	}, nil
}

func usageFrom(info map[string]any) ai.Usage {
	return ai.Usage{
		Input:  intValue(info["PromptTokens"]),
		Output: intValue(info["CompletionTokens"]),
		Total:  intValue(info["TotalTokens"]),
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
