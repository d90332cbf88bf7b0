// Copyright 2025 Kadir Pekel
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

package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ollamaEmbedMu serializes requests to a local Ollama server: its llama
// runner has been observed to crash under concurrent embedding calls.
var ollamaEmbedMu sync.Mutex

var ollamaDimensions = map[string]int{
	"nomic-embed-text":    768,
	"nomic-embed-text-v2": 768,
	"all-minilm:l6-v2":    384,
	"bge-small-en-v1.5":   384,
	"bge-large-en-v1.5":   1024,
}

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// BaseURL for the Ollama server (default: http://localhost:11434).
	BaseURL string

	// Model name (default: nomic-embed-text).
	Model string

	// Dimension of embeddings (default depends on Model).
	Dimension int

	// Timeout for API requests (default: 30s).
	Timeout time.Duration
}

// OllamaEmbedder implements Embedder against a local or remote Ollama
// server's /api/embed endpoint.
type OllamaEmbedder struct {
	client    *http.Client
	baseURL   string
	model     string
	dimension int
}

// ollamaEmbedRequest accepts either a single string or []string for Input,
// matching Ollama's batch-capable embeddings API.
type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// ollamaEmbedResponse returns L2-normalized (unit-length) vectors.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder constructs an OllamaEmbedder, applying provider defaults
// for any zero-valued fields in cfg.
func NewOllamaEmbedder(cfg OllamaConfig) (*OllamaEmbedder, error) {
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = ollamaDimensions[model]
		if dimension == 0 {
			dimension = 768
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OllamaEmbedder{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("ollama embedder: empty response")
	}
	return embeddings[0], nil
}

// EmbedBatch sends the whole slice as one request: Ollama has no documented
// per-request item cap, unlike OpenAI and Cohere.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	slog.Debug("ollama embedding request", "model", e.model, "count", len(texts))

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	req := ollamaEmbedRequest{Model: e.model, Input: input}

	var resp ollamaEmbedResponse
	if err := postJSON(ctx, e.client, e.baseURL+"/api/embed", nil, req, &resp); err != nil {
		slog.Error("ollama embedding failed", "model", e.model, "error", err)
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embedder: empty embeddings in response")
	}
	return resp.Embeddings, nil
}

func (e *OllamaEmbedder) Dimension() int { return e.dimension }
func (e *OllamaEmbedder) Model() string  { return e.model }
func (e *OllamaEmbedder) Close() error   { return nil }

var _ Embedder = (*OllamaEmbedder)(nil)
