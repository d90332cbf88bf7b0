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

package config

import (
	"fmt"
	"time"
)

// LLMConfig selects and configures the model.LLM the orchestrator (C8)
// generates against. Mirrors the teacher's ServeCmd Provider/Model/APIKey/
// BaseURL flags, narrowed to the two providers turncore wires an adapter
// for (§4.8 "the orchestrator is provider-agnostic behind model.LLM").
//
// Example YAML:
//
//	llm:
//	  provider: anthropic
//	  model: claude-sonnet-4-20250514
//	  api_key: ${ANTHROPIC_API_KEY}
type LLMConfig struct {
	// Provider selects the model.LLM adapter. Values: "anthropic", "openai".
	Provider string `yaml:"provider"`

	Model      string        `yaml:"model,omitempty"`
	APIKey     string        `yaml:"api_key,omitempty"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	MaxTokens  int64         `yaml:"max_tokens,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("llm: invalid provider %q (valid: anthropic, openai)", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("llm: api_key is required")
	}
	return nil
}
