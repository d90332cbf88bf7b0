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

// RedisConfig configures the Redis-backed telemetry store.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`

	// KeyPrefix namespaces telemetry hash keys (default: "turncore:kpi:").
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

func (c *RedisConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "turncore:kpi:"
	}
}

func (c *RedisConfig) Validate() error { return nil }

// TelemetryConfig configures Outcome Telemetry (C6): §4.6.
//
// Example YAML:
//
//	telemetry:
//	  scope_key_mode: per_user
//	  rolling_window_size: 20
//	  alert_min_samples: 5
//	  alert_below_weighted_success_rate: 0.6
//	  alert_cooldown_ms: 600000
//	  decay_alpha: 0.9
//	  store:
//	    addr: localhost:6379
type TelemetryConfig struct {
	// ScopeKeyMode selects the outcome-aggregation dimension: "global",
	// "per_user", "per_org", or "composite". Default: "global".
	ScopeKeyMode string `yaml:"scope_key_mode,omitempty"`

	// RollingWindowSize bounds each scope's outcome ring. Default: 20.
	RollingWindowSize int `yaml:"rolling_window_size,omitempty"`

	// AlertMinSamples is the minimum sample count before an alert can fire.
	// Default: 5.
	AlertMinSamples int `yaml:"alert_min_samples,omitempty"`

	// AlertBelowWeightedSuccessRate triggers an alert when
	// weightedSuccessRate drops below this threshold. Default: 0.6.
	AlertBelowWeightedSuccessRate float64 `yaml:"alert_below_weighted_success_rate,omitempty"`

	// AlertCooldownMs rate-limits repeated alerts per scope. Default:
	// 600000 (10 minutes).
	AlertCooldownMs int64 `yaml:"alert_cooldown_ms,omitempty"`

	// DecayAlpha is the exponential-decay base for weightedSuccessRate
	// (§4.6); documented choice: 0.9 for a window of 20 samples, which
	// makes the newest sample weigh ~2.7x the median-age sample.
	DecayAlpha float64 `yaml:"decay_alpha,omitempty"`

	// Store configures the optional Redis persistence backend. Nil means
	// in-memory only (no loadWindows/saveWindow persistence).
	Store *RedisConfig `yaml:"store,omitempty"`
}

func (c *TelemetryConfig) SetDefaults() {
	if c.ScopeKeyMode == "" {
		c.ScopeKeyMode = "global"
	}
	if c.RollingWindowSize == 0 {
		c.RollingWindowSize = 20
	}
	if c.AlertMinSamples == 0 {
		c.AlertMinSamples = 5
	}
	if c.AlertBelowWeightedSuccessRate == 0 {
		c.AlertBelowWeightedSuccessRate = 0.6
	}
	if c.AlertCooldownMs == 0 {
		c.AlertCooldownMs = 600_000
	}
	if c.DecayAlpha == 0 {
		c.DecayAlpha = 0.9
	}
	if c.Store != nil {
		c.Store.SetDefaults()
	}
}

func (c *TelemetryConfig) Validate() error {
	switch c.ScopeKeyMode {
	case "global", "per_user", "per_org", "composite":
	default:
		return fmt.Errorf("telemetry: invalid scope_key_mode %q", c.ScopeKeyMode)
	}
	if c.RollingWindowSize <= 0 {
		return fmt.Errorf("telemetry: rolling_window_size must be > 0")
	}
	if c.DecayAlpha <= 0 || c.DecayAlpha >= 1 {
		return fmt.Errorf("telemetry: decay_alpha must be in (0,1)")
	}
	if c.Store != nil {
		return c.Store.Validate()
	}
	return nil
}
