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


// Package openai provides chat and embedding services for OpenAI-compatible APIs.
//
// It serves the Hosted, Local and Catalog providers using the langchaingo
// library. Structured output requests are sent as strict json_schema
// response formats and backend failures are mapped onto the ai error
// taxonomy so that only rate limits get retried.
//
// # Usage
//
//	cc, err := openai.ClientConfigFor(ai.Local{Address: "localhost:11434"}, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	chat, err := openai.NewChatModel(cc)
//	resp, err := chat.Complete(ctx, ai.ChatRequest{Messages: msgs})
package openai
