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

package vector

import "fmt"

// ProviderType identifies a vector provider implementation.
type ProviderType string

const (
	// ProviderChromem uses chromem-go for embedded vector storage.
	// Zero-config; recommended for development and single-process deployments.
	ProviderChromem ProviderType = "chromem"

	// ProviderQdrant uses a Qdrant cluster. Recommended for production.
	ProviderQdrant ProviderType = "qdrant"

	// ProviderPinecone uses a managed Pinecone index.
	ProviderPinecone ProviderType = "pinecone"
)

// ProviderConfig selects and configures a vector Provider.
type ProviderConfig struct {
	Type     ProviderType    `yaml:"type"`
	Chromem  *ChromemConfig  `yaml:"chromem,omitempty"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	Pinecone *PineconeConfig `yaml:"pinecone,omitempty"`
}

// SetDefaults applies default values.
func (c *ProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = ProviderChromem
	}
	if c.Type == ProviderChromem && c.Chromem == nil {
		c.Chromem = &ChromemConfig{}
	}
}

// Validate checks the provider configuration is internally consistent.
func (c *ProviderConfig) Validate() error {
	switch c.Type {
	case ProviderChromem, "":
	case ProviderQdrant:
		if c.Qdrant == nil {
			return fmt.Errorf("vector: qdrant config required when type=qdrant")
		}
	case ProviderPinecone:
		if c.Pinecone == nil || c.Pinecone.APIKey == "" {
			return fmt.Errorf("vector: pinecone config with api_key required when type=pinecone")
		}
	default:
		return fmt.Errorf("vector: unknown provider type %q", c.Type)
	}
	return nil
}

// New constructs a Provider from config.
func New(cfg ProviderConfig) (Provider, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case ProviderQdrant:
		return NewQdrantProvider(*cfg.Qdrant)
	case ProviderPinecone:
		return NewPineconeProvider(*cfg.Pinecone)
	default:
		chromemCfg := ChromemConfig{}
		if cfg.Chromem != nil {
			chromemCfg = *cfg.Chromem
		}
		return NewChromemProvider(chromemCfg)
	}
}
