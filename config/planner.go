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

// PlannerConfig configures the Turn Planner (C5): §4.5.
//
// Example YAML:
//
//	planner:
//	  tool_failure_mode: fail_open
//	  tool_selection_mode: discovered
//	  allow_request_overrides: true
//	  max_retries: 2
//	  retry_backoff_ms: 150
type PlannerConfig struct {
	// ToolFailureMode is the default policy: "fail_open" or "fail_closed".
	ToolFailureMode string `yaml:"tool_failure_mode,omitempty"`

	// ToolSelectionMode is the default policy: "all" or "discovered".
	ToolSelectionMode string `yaml:"tool_selection_mode,omitempty"`

	// AllowRequestOverrides enables per-request customFlags to override
	// the defaults above (§4.5 step 2). Default: true.
	AllowRequestOverrides *bool `yaml:"allow_request_overrides,omitempty"`

	// MaxRetries bounds discover() attempts beyond the first. Default: 2.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// RetryBackoffMs is the delay between discover() retry attempts.
	// Default: 150.
	RetryBackoffMs int `yaml:"retry_backoff_ms,omitempty"`

	// EnableCapabilityDiscovery is the default for whether discovery runs
	// at all (can be overridden per request). Default: true.
	EnableCapabilityDiscovery *bool `yaml:"enable_capability_discovery,omitempty"`
}

func (c *PlannerConfig) SetDefaults() {
	if c.ToolFailureMode == "" {
		c.ToolFailureMode = "fail_open"
	}
	if c.ToolSelectionMode == "" {
		c.ToolSelectionMode = "discovered"
	}
	if c.AllowRequestOverrides == nil {
		t := true
		c.AllowRequestOverrides = &t
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryBackoffMs == 0 {
		c.RetryBackoffMs = 150
	}
	if c.EnableCapabilityDiscovery == nil {
		t := true
		c.EnableCapabilityDiscovery = &t
	}
}

func (c *PlannerConfig) Validate() error {
	switch c.ToolFailureMode {
	case "fail_open", "fail_closed":
	default:
		return fmt.Errorf("planner: invalid tool_failure_mode %q", c.ToolFailureMode)
	}
	switch c.ToolSelectionMode {
	case "all", "discovered":
	default:
		return fmt.Errorf("planner: invalid tool_selection_mode %q", c.ToolSelectionMode)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("planner: max_retries must be >= 0")
	}
	if c.RetryBackoffMs < 0 {
		return fmt.Errorf("planner: retry_backoff_ms must be >= 0")
	}
	return nil
}
