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


package azure

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/poiesic/broadlistening/ai"
	goopenai "github.com/sashabaranov/go-openai"
)

// newClient builds a client that routes every model to deployment.
func newClient(endpoint, apiKey, apiVersion, deployment string) (*goopenai.Client, error) {
	if endpoint == "" {
		return nil, errors.New("azure: endpoint is required")
	}
	if deployment == "" {
		return nil, errors.New("azure: deployment name is required")
	}
	cfg := goopenai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.AzureModelMapperFunc = func(string) string {
		return deployment
	}
	return goopenai.NewClientWithConfig(cfg), nil
}

// ChatModel implements ai.ChatModel against an Azure chat deployment.
type ChatModel struct {
	client     *goopenai.Client
	deployment string
	logger     *slog.Logger
}

var _ ai.ChatModel = (*ChatModel)(nil)

// NewChatModel creates a chat model for the Enterprise provider's chat deployment.
func NewChatModel(p ai.Enterprise) (*ChatModel, error) {
	client, err := newClient(p.Endpoint, p.APIKey, p.APIVersion, p.ChatDeployment)
	if err != nil {
		return nil, err
	}
	return &ChatModel{
		client:     client,
		deployment: p.ChatDeployment,
		logger:     slog.Default().With("component", "azure-chat", "deployment", p.ChatDeployment),
	}, nil
}

// Complete sends the messages and returns the first choice with its token usage.
// req.Model is ignored: the deployment decides the model.
func (m *ChatModel) Complete(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := goopenai.ChatMessageRoleUser
		if msg.Role == ai.RoleSystem {
			role = goopenai.ChatMessageRoleSystem
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	seed := 0
	request := goopenai.ChatCompletionRequest{
		Model:       m.deployment,
		Messages:    messages,
		Temperature: 0,
		Seed:        &seed,
		N:           1,
	}
	if req.Schema != nil {
		request.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: json.RawMessage(req.Schema.Document),
				Strict: true,
			},
		}
	}

	resp, err := m.client.CreateChatCompletion(ctx, request)
	if err != nil {
		m.logger.Debug("chat completion failed", "err", err)
		return ai.ChatResponse{}, mapError(err)
	}
	if len(resp.Choices) < 1 {
		return ai.ChatResponse{}, ai.ErrEmptyResponse
	}

	return ai.ChatResponse{
		Text: resp.Choices[0].Message.Content,
		Usage: ai.Usage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
			Total:  resp.Usage.TotalTokens,
		},
	}, nil
}

// Embedder implements ai.Embedder against an Azure embedding deployment.
type Embedder struct {
	client     *goopenai.Client
	deployment string
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder for the Enterprise provider's embedding
// deployment. Embedding credentials default to the chat credentials.
func NewEmbedder(p ai.Enterprise) (*Embedder, error) {
	endpoint := firstNonEmpty(p.EmbeddingEndpoint, p.Endpoint)
	apiKey := firstNonEmpty(p.EmbeddingAPIKey, p.APIKey)
	version := firstNonEmpty(p.EmbeddingAPIVersion, p.APIVersion)

	client, err := newClient(endpoint, apiKey, version, p.EmbeddingDeployment)
	if err != nil {
		return nil, err
	}
	return &Embedder{
		client:     client,
		deployment: p.EmbeddingDeployment,
		logger:     slog.Default().With("component", "azure-embedder", "deployment", p.EmbeddingDeployment),
	}, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(e.deployment),
	})
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, mapError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, ai.ErrEmptyResponse
	}

	vectors := make([][]float32, len(texts))
	for i, item := range resp.Data {
		idx := item.Index
		if idx < 0 || idx >= len(vectors) {
			idx = i
		}
		vectors[idx] = item.Embedding
	}
	return vectors, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
