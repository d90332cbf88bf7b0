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

import "fmt"

// TenantRoutingConfig configures single-tenant organizationId substitution
// (§4.8).
type TenantRoutingConfig struct {
	// Mode is "multi_tenant" (default, no substitution) or "single_tenant".
	Mode string `yaml:"mode,omitempty"`

	// DefaultOrganizationId is substituted when Mode is single_tenant and
	// the turn input omits organizationId.
	DefaultOrganizationId string `yaml:"default_organization_id,omitempty"`
}

func (c *TenantRoutingConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = "multi_tenant"
	}
}

func (c *TenantRoutingConfig) Validate() error {
	switch c.Mode {
	case "multi_tenant", "single_tenant":
	default:
		return fmt.Errorf("orchestrator.tenant_routing: invalid mode %q", c.Mode)
	}
	if c.Mode == "single_tenant" && c.DefaultOrganizationId == "" {
		return fmt.Errorf("orchestrator.tenant_routing: default_organization_id required when mode=single_tenant")
	}
	return nil
}

// MemoryRecallConfig configures long-term memory recall (§4.8, supplemented
// feature grounded in v2/memory).
type MemoryRecallConfig struct {
	// Enabled turns on recall when a Recaller is injected at composition.
	Enabled bool `yaml:"enabled,omitempty"`

	// MaxContextChars bounds the recalled text merged into the prompt.
	// Default: 4200.
	MaxContextChars int `yaml:"max_context_chars,omitempty"`

	// TopKPerScope bounds recalled items per memory scope (user, persona,
	// organization). Default: 8.
	TopKPerScope int `yaml:"top_k_per_scope,omitempty"`

	// MinPriorTurns is the minimum conversation history length before
	// recall is attempted.
	MinPriorTurns int `yaml:"min_prior_turns,omitempty"`

	// ProfileName is surfaced in the longTermMemoryRecall metadata chunk.
	ProfileName string `yaml:"profile_name,omitempty"`
}

func (c *MemoryRecallConfig) SetDefaults() {
	if c.MaxContextChars == 0 {
		c.MaxContextChars = 4200
	}
	if c.TopKPerScope == 0 {
		c.TopKPerScope = 8
	}
	if c.ProfileName == "" {
		c.ProfileName = "default"
	}
}

func (c *MemoryRecallConfig) Validate() error {
	if c.MaxContextChars < 0 {
		return fmt.Errorf("orchestrator.memory_recall: max_context_chars must be >= 0")
	}
	if c.TopKPerScope < 0 {
		return fmt.Errorf("orchestrator.memory_recall: top_k_per_scope must be >= 0")
	}
	return nil
}

// OrchestratorConfig configures the Turn Orchestrator (C8): §4.8.
//
// Example YAML:
//
//	orchestrator:
//	  max_tool_call_iterations: 5
//	  default_agent_turn_timeout_ms: 60000
//	  tenant_routing:
//	    mode: single_tenant
//	    default_organization_id: org-default
//	  memory_recall:
//	    enabled: true
type OrchestratorConfig struct {
	// MaxToolCallIterations bounds GENERATE<->TOOL_EXEC round-trips. A
	// pointer so an explicit 0 (§8: "iteration budget of 0 must produce
	// a valid partial outcome without any tool call") is distinguishable
	// from an unset field. Default: 5.
	MaxToolCallIterations *int `yaml:"max_tool_call_iterations,omitempty"`

	// DefaultAgentTurnTimeoutMs bounds the full turn. Default: 60000.
	DefaultAgentTurnTimeoutMs int64 `yaml:"default_agent_turn_timeout_ms,omitempty"`

	TenantRouting TenantRoutingConfig `yaml:"tenant_routing,omitempty"`
	MemoryRecall  MemoryRecallConfig  `yaml:"memory_recall,omitempty"`
}

func (c *OrchestratorConfig) SetDefaults() {
	if c.MaxToolCallIterations == nil {
		n := 5
		c.MaxToolCallIterations = &n
	}
	if c.DefaultAgentTurnTimeoutMs == 0 {
		c.DefaultAgentTurnTimeoutMs = 60_000
	}
	c.TenantRouting.SetDefaults()
	c.MemoryRecall.SetDefaults()
}

func (c *OrchestratorConfig) Validate() error {
	if c.MaxToolCallIterations != nil && *c.MaxToolCallIterations < 0 {
		return fmt.Errorf("orchestrator: max_tool_call_iterations must be >= 0")
	}
	if c.DefaultAgentTurnTimeoutMs <= 0 {
		return fmt.Errorf("orchestrator: default_agent_turn_timeout_ms must be > 0")
	}
	if err := c.TenantRouting.Validate(); err != nil {
		return err
	}
	return c.MemoryRecall.Validate()
}
