// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.ChatModel, ai.Embedder
// and ai.Gateway for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	gw := mock.NewMockGateway()
//	vectors, err := gw.Embedder().EmbedTexts(ctx, []string{"test"})
//
//	// Custom behavior injection
//	chat := mock.NewMockChatModel()
//	chat.CompleteFunc = func(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
//	    return ai.ChatResponse{Text: `{"extractedOpinionList":["a"]}`}, nil
//	}
//
//	// Check call counts
//	count := chat.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockChatModel: Echoes the last user message as a one-item opinion list
//   - MockGateway: Aggregates mock chat model and embedder
//
// Mocks are safe for concurrent use.
package mock
