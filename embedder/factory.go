// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedder

import (
	"fmt"
	"time"
)

// Config selects and configures an Embedder provider. It is the embedder
// section of a capability index's YAML configuration.
type Config struct {
	// Provider selects the embedding backend.
	// Values: "openai", "ollama", "cohere".
	Provider string `yaml:"provider"`

	// Model is the embedding model name; meaning is provider-specific.
	Model string `yaml:"model,omitempty"`

	// APIKey is required for "openai" and "cohere".
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Dimension overrides the provider's default vector length.
	Dimension int `yaml:"dimension,omitempty"`

	// TimeoutSeconds bounds each API call (default: 30).
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// BatchSize caps texts per embedding call; provider defaults apply
	// when zero.
	BatchSize int `yaml:"batch_size,omitempty"`

	// EncodingFormat is OpenAI-specific; only "float" is supported.
	EncodingFormat string `yaml:"encoding_format,omitempty"`

	// User is an OpenAI-specific end-user identifier.
	User string `yaml:"user,omitempty"`

	// InputType is Cohere-specific: "search_document", "search_query",
	// "classification", or "clustering".
	InputType string `yaml:"input_type,omitempty"`

	// OutputDimension is Cohere-specific, for v4+ models.
	OutputDimension *int `yaml:"output_dimension,omitempty"`

	// Truncate is Cohere-specific: "NONE", "START", or "END".
	Truncate string `yaml:"truncate,omitempty"`
}

// SetDefaults fills unset fields with provider-neutral defaults. Provider
// constructors additionally apply their own provider-specific defaults for
// anything still zero-valued after this call.
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
}

// Validate checks that the config carries what its provider requires.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("embedder: openai provider requires api_key")
		}
	case "cohere":
		if c.APIKey == "" {
			return fmt.Errorf("embedder: cohere provider requires api_key")
		}
	case "ollama":
	default:
		return fmt.Errorf("embedder: unsupported provider %q (supported: openai, ollama, cohere)", c.Provider)
	}
	return nil
}

// New constructs an Embedder from cfg, applying defaults and validating
// first. This is the single composition point capability.Index and other
// callers use instead of constructing provider types directly.
func New(cfg Config) (Embedder, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Dimension:      cfg.Dimension,
			Timeout:        timeout,
			BatchSize:      cfg.BatchSize,
			EncodingFormat: cfg.EncodingFormat,
			User:           cfg.User,
		})

	case "ollama":
		return NewOllamaEmbedder(OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   timeout,
		})

	case "cohere":
		return NewCohereEmbedder(CohereConfig{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			Dimension:       cfg.Dimension,
			Timeout:         timeout,
			BatchSize:       cfg.BatchSize,
			InputType:       cfg.InputType,
			OutputDimension: cfg.OutputDimension,
			Truncate:        cfg.Truncate,
		})

	default:
		return nil, fmt.Errorf("embedder: unsupported provider %q (supported: openai, ollama, cohere)", cfg.Provider)
	}
}
