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

var cohereDimensions = map[string]int{
	"embed-english-v3.0":            1024,
	"embed-multilingual-v3.0":       1024,
	"embed-english-light-v3.0":      384,
	"embed-multilingual-light-v3.0": 384,
	"embed-v4.0":                    1536,
}

// CohereConfig configures the Cohere embedder.
type CohereConfig struct {
	// APIKey for Cohere API (required).
	APIKey string

	// BaseURL for the API (default: https://api.cohere.com).
	BaseURL string

	// Model name (default: embed-english-v3.0).
	Model string

	// Dimension of embeddings (auto-detected from Model if 0 and
	// OutputDimension is unset).
	Dimension int

	// Timeout for API requests (default: 30s).
	Timeout time.Duration

	// BatchSize for batch embedding requests (default: 96, Cohere's max).
	BatchSize int

	// InputType is required by v3+ models: "search_document",
	// "search_query", "classification", or "clustering". Default:
	// "search_document".
	InputType string

	// OutputDimension overrides the model's default dimension on v4+
	// models. Values: 256, 512, 1024, 1536.
	OutputDimension *int

	// Truncate controls handling of over-length inputs: "NONE", "START",
	// or "END" (default: "END").
	Truncate string
}

// CohereEmbedder implements Embedder against Cohere's v2 /embed endpoint.
// See: https://docs.cohere.com/reference/embed
type CohereEmbedder struct {
	client    *http.Client
	apiKey    string
	baseURL   string
	model     string
	dimension int
	batchSize int
	inputType string
	outputDim *int
	truncate  string
}

type cohereEmbedRequest struct {
	Texts           []string `json:"texts,omitempty"`
	Model           string   `json:"model"`
	InputType       string   `json:"input_type"`
	OutputDimension *int     `json:"output_dimension,omitempty"`
	Truncate        string   `json:"truncate,omitempty"`
	EmbeddingTypes  []string `json:"embedding_types,omitempty"`
}

type cohereEmbedResponse struct {
	ID         string `json:"id"`
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

type cohereErrorEnvelope struct {
	Message string `json:"message"`
}

// NewCohereEmbedder constructs a CohereEmbedder, applying provider defaults
// for any zero-valued fields in cfg.
func NewCohereEmbedder(cfg CohereConfig) (*CohereEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere embedder: api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "embed-english-v3.0"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = cohereDimensions[model]
		if dimension == 0 {
			dimension = 1024
		}
	}
	if cfg.OutputDimension != nil {
		dimension = *cfg.OutputDimension
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.com"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 96
	}

	inputType := cfg.InputType
	if inputType == "" {
		inputType = "search_document"
	}

	truncate := cfg.Truncate
	if truncate == "" {
		truncate = "END"
	}

	return &CohereEmbedder{
		client:    &http.Client{Timeout: timeout},
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
		inputType: inputType,
		outputDim: cfg.OutputDimension,
		truncate:  truncate,
	}, nil
}

func (e *CohereEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("cohere embedder: empty response")
	}
	return embeddings[0], nil
}

func (e *CohereEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (e *CohereEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := cohereEmbedRequest{
		Texts:           texts,
		Model:           e.model,
		InputType:       e.inputType,
		OutputDimension: e.outputDim,
		Truncate:        e.truncate,
		EmbeddingTypes:  []string{"float"},
	}

	headers := map[string]string{
		"Authorization": "Bearer " + e.apiKey,
		"Accept":        "application/json",
	}

	var resp cohereEmbedResponse
	if err := postJSON(ctx, e.client, e.baseURL+"/v2/embed", headers, req, &resp); err != nil {
		return nil, translateCohereError(err)
	}
	if len(resp.Embeddings.Float) == 0 {
		return nil, fmt.Errorf("cohere embedder: empty embeddings in response")
	}
	return resp.Embeddings.Float, nil
}

func translateCohereError(err error) error {
	statusErr, ok := err.(*httpStatusError)
	if !ok {
		return fmt.Errorf("cohere embedder: %w", err)
	}
	var envelope cohereErrorEnvelope
	if jsonErr := unmarshalLenient(statusErr.body, &envelope); jsonErr == nil && envelope.Message != "" {
		return fmt.Errorf("cohere embedder: %s", envelope.Message)
	}
	return fmt.Errorf("cohere embedder: %w", statusErr)
}

func (e *CohereEmbedder) Dimension() int { return e.dimension }
func (e *CohereEmbedder) Model() string  { return e.model }
func (e *CohereEmbedder) Close() error   { return nil }

var _ Embedder = (*CohereEmbedder)(nil)
