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


// Package ai provides the model-facing abstractions of the opinion pipeline.
//
// The package defines a small call contract shared by every backend:
//
//   - ChatModel: sends chat messages and returns text plus token usage
//   - Embedder: turns texts into fixed-dimension vectors
//   - Gateway: bundles both for one Provider
//
// # Providers
//
// Provider is a closed set of variants. Each carries its own connection
// parameters and is dispatched with a type switch:
//
//   - Hosted: the public OpenAI API
//   - Enterprise: an Azure OpenAI deployment
//   - Local: an OpenAI-compatible server (Ollama, LM Studio), with an
//     in-process embedding fallback
//   - Catalog: an external model catalog such as OpenRouter
//
// # Implementation Packages
//
//   - ai/openai: langchaingo-backed chat and embeddings (Hosted, Local, Catalog)
//   - ai/azure: go-openai-backed chat and embeddings (Enterprise)
//   - ai/local: in-process embedding models and their registry
//   - ai/gateway: provider dispatch, retry, rate limiting and metrics
//   - ai/mock: test doubles
//
// # Errors and Retry
//
// Backends map their failures to ErrRateLimited, ErrAuthentication and
// ErrInvalidRequest. Retry only retries rate limits; everything else is
// returned to the caller on the first failure.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithProvider(ai.Local{Address: "localhost:11434"}))
//	gw, err := gateway.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Close()
//
//	resp, err := gw.Chat().Complete(ctx, ai.ChatRequest{Messages: msgs})
//	usage.Add(resp.Usage)
package ai
