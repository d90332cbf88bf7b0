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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentos-run/turncore/adaptive"
	"github.com/agentos-run/turncore/assembler"
	"github.com/agentos-run/turncore/capability"
	"github.com/agentos-run/turncore/capgraph"
	"github.com/agentos-run/turncore/config"
	"github.com/agentos-run/turncore/discovery"
	"github.com/agentos-run/turncore/embedder"
	"github.com/agentos-run/turncore/llmprovider/anthropic"
	"github.com/agentos-run/turncore/llmprovider/openai"
	"github.com/agentos-run/turncore/memory"
	"github.com/agentos-run/turncore/model"
	"github.com/agentos-run/turncore/orchestrator"
	"github.com/agentos-run/turncore/planner"
	"github.com/agentos-run/turncore/telemetry"
	"github.com/agentos-run/turncore/tool"
	"github.com/agentos-run/turncore/vector"
)

// app holds every constructed component, in C1-C8 order, so Close can
// release them in reverse.
type app struct {
	index     *capability.Index
	graph     capgraph.Graph
	assembler *assembler.Assembler
	discovery *discovery.Engine
	planner   *planner.Planner
	tracker   *telemetry.Tracker
	llm       model.LLM
	recaller  memory.Recaller

	orchestrator *orchestrator.Orchestrator

	redisStore *telemetry.RedisStore
}

// buildApp wires C1 through C8 from a validated config, following the
// teacher's ServeCmd.Run ordering: storage/index layers first, the
// conversational engine last.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	emb, err := embedder.New(cfg.Capability.Embedder)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	vecProvider, err := vector.New(cfg.Capability.Vector)
	if err != nil {
		return nil, fmt.Errorf("build vector provider: %w", err)
	}

	index, err := capability.NewIndex(ctx, capability.IndexConfig{
		Embedder:  emb,
		Vector:    vecProvider,
		BatchSize: cfg.Capability.EmbedBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("build capability index (C1): %w", err)
	}

	var graph capgraph.Graph = capgraph.NewInMemoryGraph()

	asm, err := assembler.New(assembler.Config{
		Tier0Budget:       cfg.Capability.Assembler.Tier0Budget,
		Tier1Budget:       cfg.Capability.Assembler.Tier1Budget,
		Tier2Budget:       cfg.Capability.Assembler.Tier2Budget,
		Tier1TopK:         cfg.Capability.Assembler.Tier1TopK,
		Tier2TopK:         cfg.Capability.Assembler.Tier2TopK,
		Tier1MinRelevance: cfg.Capability.Assembler.Tier1MinRelevance,
	})
	if err != nil {
		return nil, fmt.Errorf("build context assembler (C3): %w", err)
	}

	disc, err := discovery.New(discovery.Config{
		Index:       index,
		Graph:       graph,
		Assembler:   asm,
		BoostFactor: cfg.Capability.Graph.BoostFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("build discovery engine (C4): %w", err)
	}

	if len(cfg.Capability.Manifest.ScanRoots) > 0 {
		descriptors, err := capability.ScanManifests(cfg.Capability.Manifest.ScanRoots, cfg.Capability.Manifest.PathListEnv)
		if err != nil {
			return nil, fmt.Errorf("scan capability manifests: %w", err)
		}
		source := capability.Source{Name: "manifests", Descriptors: descriptors}
		if err := disc.Initialize(ctx, []capability.Source{source}, nil); err != nil {
			return nil, fmt.Errorf("initialize discovery engine: %w", err)
		}
		slog.Info("capability index initialized from manifests", "roots", cfg.Capability.Manifest.ScanRoots, "count", len(descriptors))
	} else if err := disc.Initialize(ctx, nil, nil); err != nil {
		return nil, fmt.Errorf("initialize discovery engine: %w", err)
	}

	p := planner.New(planner.Config{
		ToolFailureMode:           planner.FailureMode(cfg.Planner.ToolFailureMode),
		ToolSelectionMode:         planner.SelectionMode(cfg.Planner.ToolSelectionMode),
		AllowRequestOverrides:     boolValue(cfg.Planner.AllowRequestOverrides),
		MaxRetries:                cfg.Planner.MaxRetries,
		RetryBackoffMs:            cfg.Planner.RetryBackoffMs,
		EnableCapabilityDiscovery: boolValue(cfg.Planner.EnableCapabilityDiscovery),
	}, disc)

	var redisStore *telemetry.RedisStore
	var store telemetry.Store
	if cfg.Telemetry.Store != nil {
		redisStore, err = telemetry.NewRedisStore(telemetry.RedisConfig(*cfg.Telemetry.Store))
		if err != nil {
			return nil, fmt.Errorf("build telemetry redis store: %w", err)
		}
		store = redisStore
	}

	tracker, err := telemetry.New(telemetry.Config{
		RollingWindowSize:             cfg.Telemetry.RollingWindowSize,
		AlertMinSamples:               cfg.Telemetry.AlertMinSamples,
		AlertBelowWeightedSuccessRate: cfg.Telemetry.AlertBelowWeightedSuccessRate,
		AlertCooldownMs:               cfg.Telemetry.AlertCooldownMs,
		DecayAlpha:                    cfg.Telemetry.DecayAlpha,
	}, store)
	if err != nil {
		return nil, fmt.Errorf("build telemetry tracker (C6): %w", err)
	}

	llm, err := buildLLM(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build LLM client: %w", err)
	}

	var recaller memory.Recaller
	if cfg.Orchestrator.MemoryRecall.Enabled {
		recaller = memory.NewBufferRecaller(cfg.Orchestrator.MemoryRecall.TopKPerScope)
	}

	tools := buildTools()

	orch := orchestrator.New(orchestrator.Config{
		MaxToolCallIterations:     cfg.Orchestrator.MaxToolCallIterations,
		DefaultAgentTurnTimeoutMs: cfg.Orchestrator.DefaultAgentTurnTimeoutMs,

		TenantRoutingMode:         cfg.Orchestrator.TenantRouting.Mode,
		TenantRoutingDefaultOrgID: cfg.Orchestrator.TenantRouting.DefaultOrganizationId,

		MemoryRecallEnabled:         cfg.Orchestrator.MemoryRecall.Enabled,
		MemoryRecallMaxContextChars: cfg.Orchestrator.MemoryRecall.MaxContextChars,
		MemoryRecallTopKPerScope:    cfg.Orchestrator.MemoryRecall.TopKPerScope,
		MemoryRecallMinPriorTurns:   cfg.Orchestrator.MemoryRecall.MinPriorTurns,
		MemoryRecallProfileName:     cfg.Orchestrator.MemoryRecall.ProfileName,

		TelemetryScopeKeyMode: cfg.Telemetry.ScopeKeyMode,

		Adaptive: adaptive.Config{
			Enabled:                   cfg.Adaptive.Enabled,
			MinSamples:                cfg.Adaptive.MinSamples,
			MinWeightedSuccessRate:    cfg.Adaptive.MinWeightedSuccessRate,
			ForceAllToolsWhenDegraded: cfg.Adaptive.ForceAllToolsWhenDegraded,
			ForceFailOpenWhenDegraded: cfg.Adaptive.ForceFailOpenWhenDegraded,
		},
	}, p, tracker, llm, tools, recaller)

	return &app{
		index:        index,
		graph:        graph,
		assembler:    asm,
		discovery:    disc,
		planner:      p,
		tracker:      tracker,
		llm:          llm,
		recaller:     recaller,
		orchestrator: orch,
		redisStore:   redisStore,
	}, nil
}

// buildLLM dispatches on cfg.Provider to the wired adapter.
func buildLLM(cfg config.LLMConfig) (model.LLM, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(openai.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
	default:
		return anthropic.New(anthropic.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
	}
}

// buildTools returns the process's built-in tool registry. Empty by
// default: a deployment wires its own tool.Tool implementations in here
// (or loads them from an MCP registry, per the capability manifest's
// "tool" Kind) before passing them to the orchestrator.
func buildTools() []tool.Tool {
	return nil
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func (a *app) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.redisStore != nil {
		_ = a.redisStore.Close()
	}
}
