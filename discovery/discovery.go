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

// Package discovery composes the capability index (C1), capability graph
// (C2), and context assembler (C3) into the discovery engine (C4): a
// single discover(query, options) entry point the Turn Planner (C5) calls.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/agentos-run/turncore/assembler"
	"github.com/agentos-run/turncore/capability"
	"github.com/agentos-run/turncore/capgraph"
)

// Options narrows a discover() call (§4.1 kind/category/onlyAvailable
// filters, §4.4 rerank toggle).
type Options struct {
	Kind              capability.Kind
	Category          string
	OnlyAvailable     bool
	UseGraphReranking bool
}

// Result is the DiscoveryResult returned by discover() (§3): three tiers
// plus diagnostics.
type Result struct {
	Tier0 string
	Tier1 []string
	Tier2 []string

	IndexVersion      uint64
	EmbeddingLatency  time.Duration
	GraphLatency      time.Duration
	RerankApplied     bool
	TotalHits         int
}

// Engine is the discovery engine (C4).
type Engine struct {
	index       *capability.Index
	graph       capgraph.Graph
	assembler   *assembler.Assembler
	boostFactor float64
}

// Config constructs an Engine from its three composed components.
type Config struct {
	Index     *capability.Index
	Graph     capgraph.Graph
	Assembler *assembler.Assembler

	// BoostFactor scales rerank's neighbor score contributions (§4.2).
	// Default: 0.15.
	BoostFactor float64
}

// New composes C1+C2+C3 into a discovery engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("discovery: index is required")
	}
	if cfg.Graph == nil {
		return nil, fmt.Errorf("discovery: graph is required")
	}
	if cfg.Assembler == nil {
		return nil, fmt.Errorf("discovery: assembler is required")
	}
	if cfg.BoostFactor == 0 {
		cfg.BoostFactor = 0.15
	}
	return &Engine{index: cfg.Index, graph: cfg.Graph, assembler: cfg.Assembler, boostFactor: cfg.BoostFactor}, nil
}

// Initialized reports whether Initialize has successfully built the index
// at least once, the precondition the Turn Planner (C5) checks before
// invoking Discover (§4.5 step 3: "the engine reports initialized").
func (e *Engine) Initialized() bool {
	return e.index.Version() > 0
}

// Initialize builds the index and graph from sources and presets, and
// bumps the version (§4.4 initialize()).
func (e *Engine) Initialize(ctx context.Context, sources []capability.Source, presets []capgraph.Preset) error {
	if _, err := e.index.Build(ctx, sources); err != nil {
		return fmt.Errorf("discovery: initialize index: %w", err)
	}
	if err := e.graph.Build(e.index.Descriptors(), presets); err != nil {
		return fmt.Errorf("discovery: initialize graph: %w", err)
	}
	return nil
}

// RefreshIndex upserts new sources, rebuilds the graph from the full
// current descriptor set, bumps version, and invalidates the Tier-0
// cache by virtue of the version bump (§4.4 refreshIndex()).
func (e *Engine) RefreshIndex(ctx context.Context, partial []capability.CapabilityDescriptor, presets []capgraph.Preset) error {
	for _, d := range partial {
		if err := e.index.Upsert(ctx, d); err != nil {
			return fmt.Errorf("discovery: refresh upsert %s: %w", d.ID, err)
		}
	}
	if err := e.graph.Build(e.index.Descriptors(), presets); err != nil {
		return fmt.Errorf("discovery: refresh graph: %w", err)
	}
	return nil
}

// defaultTier1TopK is fixed for the semantic-search headroom multiplier in step
// 1 of discover() (§4.4: "topK = 2 x tier1TopK").
const defaultTier1TopK = 5

// Discover runs the four-step discovery pipeline (§4.4):
//  1. semantic search with headroom for reranking,
//  2. optional graph rerank,
//  3. Tier-0 build (cached by version),
//  4. tiered assembly.
func (e *Engine) Discover(ctx context.Context, query string, opts Options) (Result, error) {
	searchStart := time.Now()
	filter := capability.SearchFilter{
		Kind:          opts.Kind,
		Category:      opts.Category,
		OnlyAvailable: opts.OnlyAvailable,
	}
	hits, err := e.index.Search(ctx, query, 2*defaultTier1TopK, filter)
	if err != nil {
		return Result{}, fmt.Errorf("discovery: search: %w", err)
	}
	embeddingLatency := time.Since(searchStart)

	var graphLatency time.Duration
	rerankApplied := false
	if opts.UseGraphReranking {
		graphStart := time.Now()
		hits = e.graph.Rerank(hits, e.boostFactor)
		graphLatency = time.Since(graphStart)
		rerankApplied = true
	}

	version := e.index.Version()
	assembled := e.assembler.Assemble(version, e.index.Descriptors(), hits)

	return Result{
		Tier0:            assembled.Tier0,
		Tier1:            assembled.Tier1,
		Tier2:            assembled.Tier2,
		IndexVersion:     version,
		EmbeddingLatency: embeddingLatency,
		GraphLatency:     graphLatency,
		RerankApplied:    rerankApplied,
		TotalHits:        len(hits),
	}, nil
}
