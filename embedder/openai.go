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
	"net/http"
	"time"
)

var openaiDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	// APIKey for OpenAI API (required).
	APIKey string

	// BaseURL for the API (default: https://api.openai.com/v1).
	BaseURL string

	// Model name (default: text-embedding-3-small).
	Model string

	// Dimension of embeddings (auto-detected from model if 0). For
	// text-embedding-3 models this maps to the API's "dimensions" parameter.
	Dimension int

	// Timeout for API requests (default: 30s).
	Timeout time.Duration

	// BatchSize for batch embedding requests (default: 100). OpenAI accepts
	// up to 2048 inputs per call; 100 keeps requests under its 300k token cap.
	BatchSize int

	// EncodingFormat requested from the API. Only "float" is parsed; a
	// non-empty, non-float value is rejected at construction time.
	EncodingFormat string

	// User is an opaque end-user identifier OpenAI can use for abuse
	// monitoring.
	User string
}

// OpenAIEmbedder implements Embedder against OpenAI's /embeddings endpoint.
type OpenAIEmbedder struct {
	client         *http.Client
	apiKey         string
	baseURL        string
	model          string
	dimension      int
	batchSize      int
	encodingFormat string
	user           string
}

type openaiEmbedRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     *int     `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	User           string   `json:"user,omitempty"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type openaiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder, applying provider defaults
// for any zero-valued fields in cfg.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedder: api key is required")
	}
	if cfg.EncodingFormat != "" && cfg.EncodingFormat != "float" {
		return nil, fmt.Errorf("openai embedder: encoding_format %q not supported, only \"float\"", cfg.EncodingFormat)
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = openaiDimensions[model]
		if dimension == 0 {
			dimension = 1536
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	return &OpenAIEmbedder{
		client:         &http.Client{Timeout: timeout},
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		model:          model,
		dimension:      dimension,
		batchSize:      batchSize,
		encodingFormat: cfg.EncodingFormat,
		user:           cfg.User,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("openai embedder: empty response")
	}
	return embeddings[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, e.batchSize) {
		embeddings, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		results = append(results, embeddings...)
	}
	return results, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openaiEmbedRequest{
		Model:          e.model,
		Input:          texts,
		EncodingFormat: e.encodingFormat,
		User:           e.user,
	}
	// dimensions is only honored by the v3 model family.
	if e.dimension > 0 && (e.model == "text-embedding-3-small" || e.model == "text-embedding-3-large") {
		req.Dimensions = &e.dimension
	}

	headers := map[string]string{"Authorization": "Bearer " + e.apiKey}

	var resp openaiEmbedResponse
	if err := postJSON(ctx, e.client, e.baseURL+"/embeddings", headers, req, &resp); err != nil {
		return nil, translateOpenAIError(err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	return embeddings, nil
}

func translateOpenAIError(err error) error {
	statusErr, ok := err.(*httpStatusError)
	if !ok {
		return fmt.Errorf("openai embedder: %w", err)
	}
	var envelope openaiErrorEnvelope
	if jsonErr := unmarshalLenient(statusErr.body, &envelope); jsonErr == nil && envelope.Error.Message != "" {
		return fmt.Errorf("openai embedder: %s (type=%s code=%s)", envelope.Error.Message, envelope.Error.Type, envelope.Error.Code)
	}
	return fmt.Errorf("openai embedder: %w", statusErr)
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }
func (e *OpenAIEmbedder) Model() string  { return e.model }
func (e *OpenAIEmbedder) Close() error   { return nil }

var _ Embedder = (*OpenAIEmbedder)(nil)
