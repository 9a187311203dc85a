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
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultLocalAddress is used when a Local provider has no address.
	DefaultLocalAddress = "localhost:11434"

	defaultLocalPort = 11434

	// CatalogBaseURL is the OpenRouter OpenAI-compatible endpoint.
	CatalogBaseURL = "https://openrouter.ai/api/v1"
)

// Provider selects the backend serving chat and embedding requests.
// The set of variants is closed: Hosted, Enterprise, Local and Catalog.
type Provider interface {
	// Name returns the configuration tag of the provider.
	Name() string

	provider()
}

// Hosted is the public OpenAI API.
type Hosted struct {
	APIKey  string
	BaseURL string // Optional override
}

// Enterprise is an Azure OpenAI deployment.
type Enterprise struct {
	Endpoint            string
	APIKey              string
	APIVersion          string
	ChatDeployment      string
	EmbeddingDeployment string

	// Embedding credentials may point at a different resource.
	EmbeddingEndpoint   string
	EmbeddingAPIKey     string
	EmbeddingAPIVersion string
}

// Local is an OpenAI-compatible server such as Ollama or LM Studio.
type Local struct {
	Address string // host:port
}

// Catalog is an external model catalog with an OpenAI-compatible API.
type Catalog struct {
	APIKey  string
	BaseURL string
}

func (Hosted) provider()     {}
func (Enterprise) provider() {}
func (Local) provider()      {}
func (Catalog) provider()    {}

func (Hosted) Name() string     { return "openai" }
func (Enterprise) Name() string { return "azure" }
func (Local) Name() string      { return "local" }
func (Catalog) Name() string    { return "openrouter" }

// BaseURL returns the OpenAI-compatible base URL of the local server.
// Malformed addresses fall back to DefaultLocalAddress.
func (l Local) BaseURL() string {
	host, port := parseAddress(l.Address)
	return fmt.Sprintf("http://%s/v1", net.JoinHostPort(host, strconv.Itoa(port)))
}

func parseAddress(address string) (string, int) {
	if address == "" {
		address = DefaultLocalAddress
	}
	if !strings.Contains(address, ":") {
		return address, defaultLocalPort
	}
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		slog.Warn("invalid local address, using default", "address", address, "err", err)
		return "localhost", defaultLocalPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || host == "" {
		slog.Warn("invalid local address, using default", "address", address)
		return "localhost", defaultLocalPort
	}
	return host, port
}

// EnterpriseFromEnv builds an Enterprise provider from the AZURE_* environment.
func EnterpriseFromEnv() Enterprise {
	return Enterprise{
		Endpoint:            os.Getenv("AZURE_CHATCOMPLETION_ENDPOINT"),
		APIKey:              os.Getenv("AZURE_CHATCOMPLETION_API_KEY"),
		APIVersion:          os.Getenv("AZURE_CHATCOMPLETION_VERSION"),
		ChatDeployment:      os.Getenv("AZURE_CHATCOMPLETION_DEPLOYMENT_NAME"),
		EmbeddingEndpoint:   os.Getenv("AZURE_EMBEDDING_ENDPOINT"),
		EmbeddingAPIKey:     os.Getenv("AZURE_EMBEDDING_API_KEY"),
		EmbeddingAPIVersion: os.Getenv("AZURE_EMBEDDING_VERSION"),
		EmbeddingDeployment: os.Getenv("AZURE_EMBEDDING_DEPLOYMENT_NAME"),
	}
}

// ParseProvider maps a configuration tag to a Provider.
// Credentials are read from the environment for the hosted variants.
func ParseProvider(name, localAddress string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openai":
		return Hosted{APIKey: os.Getenv("OPENAI_API_KEY")}, nil
	case "azure":
		return EnterpriseFromEnv(), nil
	case "local":
		return Local{Address: localAddress}, nil
	case "openrouter":
		return Catalog{APIKey: os.Getenv("OPENROUTER_API_KEY"), BaseURL: CatalogBaseURL}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
