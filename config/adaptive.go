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

// AdaptiveConfig configures the Adaptive Controller (C7): §4.7.
//
// Example YAML:
//
//	adaptive:
//	  enabled: true
//	  min_samples: 3
//	  min_weighted_success_rate: 0.8
//	  force_all_tools_when_degraded: true
//	  force_fail_open_when_degraded: true
type AdaptiveConfig struct {
	Enabled                   bool    `yaml:"enabled,omitempty"`
	MinSamples                int     `yaml:"min_samples,omitempty"`
	MinWeightedSuccessRate    float64 `yaml:"min_weighted_success_rate,omitempty"`
	ForceAllToolsWhenDegraded bool    `yaml:"force_all_tools_when_degraded,omitempty"`
	ForceFailOpenWhenDegraded bool    `yaml:"force_fail_open_when_degraded,omitempty"`
}

func (c *AdaptiveConfig) SetDefaults() {
	if c.MinWeightedSuccessRate == 0 {
		c.MinWeightedSuccessRate = 0.8
	}
	// MinSamples deliberately has no nonzero default: §8 requires
	// minSamples=0 to still demand at least one sample, which the
	// controller enforces regardless of this value.
}

func (c *AdaptiveConfig) Validate() error {
	if c.MinSamples < 0 {
		return fmt.Errorf("adaptive: min_samples must be >= 0")
	}
	if c.MinWeightedSuccessRate < 0 || c.MinWeightedSuccessRate > 1 {
		return fmt.Errorf("adaptive: min_weighted_success_rate must be in [0,1]")
	}
	return nil
}
