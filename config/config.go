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

// Package config loads and validates the YAML configuration for a turncore
// composition root, following the teacher's SetDefaults()/Validate() pair
// convention on every config struct.
package config

import "fmt"

// Config is the root configuration for a turncore composition root,
// covering every component C1-C8 plus the ambient logger.
type Config struct {
	Logger       LoggerConfig       `yaml:"logger,omitempty"`
	Capability   CapabilityConfig   `yaml:"capability"`
	Planner      PlannerConfig      `yaml:"planner,omitempty"`
	Telemetry    TelemetryConfig    `yaml:"telemetry,omitempty"`
	Adaptive     AdaptiveConfig     `yaml:"adaptive,omitempty"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator,omitempty"`
	LLM          LLMConfig          `yaml:"llm"`
}

// SetDefaults applies defaults to every section, in the order a composition
// root would construct the corresponding components (C1-C3, C5-C8).
func (c *Config) SetDefaults() {
	c.Logger.SetDefaults()
	c.Capability.SetDefaults()
	c.Planner.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Adaptive.SetDefaults()
	c.Orchestrator.SetDefaults()
	c.LLM.SetDefaults()
}

// Validate checks every section after defaults have been applied.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Capability.Validate(); err != nil {
		return err
	}
	if err := c.Planner.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Adaptive.Validate(); err != nil {
		return err
	}
	if err := c.Orchestrator.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
