package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/poiesic/broadlistening/ai"
)

// MockChatModel is a test double for ai.ChatModel.
// It allows custom behavior injection via function fields.
type MockChatModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, echoes the last user message as a one-item opinion list.
	CompleteFunc func(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error)

	// Usage is reported by the default behavior.
	Usage ai.Usage

	mu        sync.Mutex
	callCount int
	requests  []ai.ChatRequest
}

// NewMockChatModel creates a mock chat model with default behavior.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Complete records the request and returns the configured reply.
func (m *MockChatModel) Complete(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	fn := m.CompleteFunc
	usage := m.Usage
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	var last string
	for _, msg := range req.Messages {
		if msg.Role == ai.RoleUser {
			last = msg.Content
		}
	}
	body, _ := json.Marshal(map[string][]string{"extractedOpinionList": {last}})
	return ai.ChatResponse{Text: string(body), Usage: usage}, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of every request received.
func (m *MockChatModel) Requests() []ai.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.ChatRequest(nil), m.requests...)
}

// Reset clears the call count, recorded requests and custom function.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.requests = nil
	m.CompleteFunc = nil
}
