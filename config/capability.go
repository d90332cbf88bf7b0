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

	"github.com/agentos-run/turncore/embedder"
	"github.com/agentos-run/turncore/vector"
)

// ManifestConfig configures the CAPABILITY.yaml/SKILL.md file-scan source
// for the capability index (§6 File manifests).
//
// Example YAML:
//
//	capability:
//	  manifest:
//	    scan_roots: ["~/.turncore/capabilities", "./capabilities"]
//	    path_list_env: TURNCORE_CAPABILITY_PATH
//	    debounce_ms: 500
type ManifestConfig struct {
	// ScanRoots are directories scanned for CAPABILITY.yaml/.yml entries.
	ScanRoots []string `yaml:"scan_roots,omitempty"`

	// PathListEnv names an environment variable holding a
	// PATH-separator-delimited list of additional scan roots.
	PathListEnv string `yaml:"path_list_env,omitempty"`

	// DebounceMs debounces hot-reload of changed manifest files.
	// Default: 500.
	DebounceMs int `yaml:"debounce_ms,omitempty"`
}

func (c *ManifestConfig) SetDefaults() {
	if c.DebounceMs == 0 {
		c.DebounceMs = 500
	}
}

func (c *ManifestConfig) Validate() error {
	if c.DebounceMs < 0 {
		return fmt.Errorf("capability.manifest: debounce_ms must be >= 0")
	}
	return nil
}

// GraphConfig configures the capability relationship graph (C2).
type GraphConfig struct {
	// BoostFactor scales related-neighbor score contributions in rerank.
	// Default: 0.15.
	BoostFactor float64 `yaml:"boost_factor,omitempty"`
}

func (c *GraphConfig) SetDefaults() {
	if c.BoostFactor == 0 {
		c.BoostFactor = 0.15
	}
}

func (c *GraphConfig) Validate() error {
	if c.BoostFactor < 0 {
		return fmt.Errorf("capability.graph: boost_factor must be >= 0")
	}
	return nil
}

// AssemblerConfig configures the three token-budgeted context tiers (C3).
type AssemblerConfig struct {
	Tier0Budget       int     `yaml:"tier0_budget,omitempty"`
	Tier1Budget       int     `yaml:"tier1_budget,omitempty"`
	Tier2Budget       int     `yaml:"tier2_budget,omitempty"`
	Tier1TopK         int     `yaml:"tier1_top_k,omitempty"`
	Tier2TopK         int     `yaml:"tier2_top_k,omitempty"`
	Tier1MinRelevance float64 `yaml:"tier1_min_relevance,omitempty"`
}

func (c *AssemblerConfig) SetDefaults() {
	if c.Tier0Budget == 0 {
		c.Tier0Budget = 200
	}
	if c.Tier1Budget == 0 {
		c.Tier1Budget = 800
	}
	if c.Tier2Budget == 0 {
		c.Tier2Budget = 2000
	}
	if c.Tier1TopK == 0 {
		c.Tier1TopK = 5
	}
	if c.Tier2TopK == 0 {
		c.Tier2TopK = 2
	}
	if c.Tier1MinRelevance == 0 {
		c.Tier1MinRelevance = 0.3
	}
}

func (c *AssemblerConfig) Validate() error {
	if c.Tier0Budget < 0 || c.Tier1Budget < 0 || c.Tier2Budget < 0 {
		return fmt.Errorf("capability.assembler: budgets must be >= 0")
	}
	if c.Tier1MinRelevance < 0 || c.Tier1MinRelevance > 1 {
		return fmt.Errorf("capability.assembler: tier1_min_relevance must be in [0,1]")
	}
	return nil
}

// CapabilityConfig configures the index (C1), graph (C2), and assembler
// (C3) together, since they are built and reloaded as one unit by the
// discovery engine (C4).
type CapabilityConfig struct {
	Embedder  embedder.Config        `yaml:"embedder"`
	Vector    vector.ProviderConfig  `yaml:"vector"`
	Manifest  ManifestConfig         `yaml:"manifest,omitempty"`
	Graph     GraphConfig            `yaml:"graph,omitempty"`
	Assembler AssemblerConfig        `yaml:"assembler,omitempty"`

	// EmbedBatchSize bounds items per embed() call during build(). Default: 32.
	EmbedBatchSize int `yaml:"embed_batch_size,omitempty"`

	// UseGraphReranking is loaded with the config but is not forwarded to
	// the planner or the discovery engine: discover() runs the C2 rerank
	// step (§4.4) only when its caller sets discovery.Options.UseGraphReranking,
	// which the planner does not set.
	UseGraphReranking bool `yaml:"use_graph_reranking,omitempty"`
}

func (c *CapabilityConfig) SetDefaults() {
	c.Embedder.SetDefaults()
	c.Vector.SetDefaults()
	c.Manifest.SetDefaults()
	c.Graph.SetDefaults()
	c.Assembler.SetDefaults()
	if c.EmbedBatchSize == 0 {
		c.EmbedBatchSize = 32
	}
}

func (c *CapabilityConfig) Validate() error {
	if err := c.Embedder.Validate(); err != nil {
		return err
	}
	if err := c.Vector.Validate(); err != nil {
		return err
	}
	if err := c.Manifest.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if err := c.Assembler.Validate(); err != nil {
		return err
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("capability: embed_batch_size must be > 0")
	}
	return nil
}
