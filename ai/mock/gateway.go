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


package mock

import "github.com/poiesic/broadlistening/ai"

// MockGateway is a test double for ai.Gateway.
// It aggregates mock chat model and embedder instances.
type MockGateway struct {
	chat     *MockChatModel
	embedder *MockEmbedder
	closed   bool
}

// NewMockGateway creates a new mock gateway with default mock services.
//
// Use GetMockChat()/GetMockEmbedder() to access concrete types for test assertions.
func NewMockGateway() *MockGateway {
	return NewMockGatewayWithServices(NewMockChatModel(), NewMockEmbedder())
}

// NewMockGatewayWithServices creates a mock gateway with custom mock services.
// This allows full control over the behavior of each service.
func NewMockGatewayWithServices(chat *MockChatModel, embedder *MockEmbedder) *MockGateway {
	return &MockGateway{
		chat:     chat,
		embedder: embedder,
	}
}

var _ ai.Gateway = (*MockGateway)(nil)

// Chat returns the mock chat model.
func (g *MockGateway) Chat() ai.ChatModel {
	return g.chat
}

// Embedder returns the mock embedder.
func (g *MockGateway) Embedder() ai.Embedder {
	return g.embedder
}

// Close marks the gateway closed.
func (g *MockGateway) Close() error {
	g.closed = true
	return nil
}

// Closed reports whether Close was called.
func (g *MockGateway) Closed() bool {
	return g.closed
}

// GetMockChat returns the underlying mock chat model for test assertions.
func (g *MockGateway) GetMockChat() *MockChatModel {
	return g.chat
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (g *MockGateway) GetMockEmbedder() *MockEmbedder {
	return g.embedder
}
