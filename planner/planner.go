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

package planner

import (
	"context"
	"strings"
	"time"

	"github.com/agentos-run/turncore/capability"
	"github.com/agentos-run/turncore/discovery"
	"github.com/agentos-run/turncore/turnerr"
)

// Discoverer is the discovery engine surface the planner consumes (C4).
// A narrow interface rather than *discovery.Engine directly, so planner
// tests can substitute a fake without standing up C1-C3.
type Discoverer interface {
	Initialized() bool
	Discover(ctx context.Context, query string, opts discovery.Options) (discovery.Result, error)
}

// Config seeds the planner's defaults (mirrors config.PlannerConfig;
// planner takes its own copy so it never imports the config package).
type Config struct {
	ToolFailureMode           FailureMode
	ToolSelectionMode         SelectionMode
	AllowRequestOverrides     bool
	MaxRetries                int
	RetryBackoffMs            int
	EnableCapabilityDiscovery bool
}

// Request is one turn's planning input (§4.5 Inputs).
type Request struct {
	PersonaID   string
	UserMessage string
	CustomFlags map[string]string
}

// Planner is the turn planner (C5).
type Planner struct {
	cfg        Config
	discoverer Discoverer
	sleep      func(time.Duration)
}

// New constructs a Planner bound to a discovery engine.
func New(cfg Config, discoverer Discoverer) *Planner {
	return &Planner{cfg: cfg, discoverer: discoverer, sleep: time.Sleep}
}

// Plan runs the full §4.5 algorithm: seed defaults, apply request
// overrides, optionally invoke discovery with retry/backoff, and
// assemble the resulting TurnPlan.
func (p *Planner) Plan(ctx context.Context, req Request) (TurnPlan, error) {
	start := time.Now()

	res := resolution{
		policy: Policy{
			PlannerVersion:    "1",
			ToolFailureMode:   p.cfg.ToolFailureMode,
			ToolSelectionMode: p.cfg.ToolSelectionMode,
		},
		capability: Capability{
			Enabled: p.cfg.EnableCapabilityDiscovery,
			Query:   req.UserMessage,
		},
	}

	if p.cfg.AllowRequestOverrides && len(req.CustomFlags) > 0 {
		flags := normalizedFlags(req.CustomFlags)
		for _, proc := range defaultFlagProcessors() {
			proc(flags, &res)
		}
	}

	diag := Diagnostics{}

	if res.capability.Enabled && p.discoverer != nil && p.discoverer.Initialized() {
		diag.DiscoveryAttempted = true
		if err := p.runDiscovery(ctx, &res, &diag); err != nil {
			diag.PlanningLatencyMs = time.Since(start).Milliseconds()
			return TurnPlan{}, err
		}
	}

	diag.PlanningLatencyMs = time.Since(start).Milliseconds()

	return TurnPlan{
		Policy:      res.policy,
		Capability:  res.capability,
		Diagnostics: diag,
	}, nil
}

// runDiscovery calls discover with up to 1+maxRetries attempts, applying
// the fallback and failure-mode rules of §4.5 step 3.
func (p *Planner) runDiscovery(ctx context.Context, res *resolution, diag *Diagnostics) error {
	backoff := time.Duration(p.cfg.RetryBackoffMs) * time.Millisecond
	attempts := 1 + p.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	opts := discovery.Options{
		Kind:          res.capability.Kind,
		Category:      res.capability.Category,
		OnlyAvailable: res.capability.OnlyAvailable,
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			default:
				p.sleep(backoff)
			}
		}

		diag.DiscoveryAttempts++
		result, err := p.discoverer.Discover(ctx, res.capability.Query, opts)
		if err != nil {
			lastErr = err
			continue
		}

		diag.DiscoveryApplied = true
		applyDiscoveryResult(res, result)
		return nil
	}

	if p.cfg.ToolFailureMode == FailClosed {
		return turnerr.Wrap(turnerr.DiscoveryFailed, "capability discovery failed after retries", lastErr)
	}

	res.policy.ToolSelectionMode = SelectAll
	res.capability.FallbackApplied = true
	res.capability.FallbackReason = "Capability discovery failed after retries; falling back to full toolset."
	diag.UsedFallback = true
	return nil
}

// applyDiscoveryResult extracts tool names from Tier 1 ∪ Tier 2 (§4.5
// step 3), populates the prompt context, and applies the
// no-tool-matched fallback when toolSelectionMode is discovered.
func applyDiscoveryResult(res *resolution, result discovery.Result) {
	res.capability.DiscoveryResult = &DiscoveryResult{
		Tier0:        result.Tier0,
		Tier1:        result.Tier1,
		Tier2:        result.Tier2,
		IndexVersion: result.IndexVersion,
	}
	res.capability.PromptContext = strings.Join(append(append([]string{result.Tier0}, result.Tier1...), result.Tier2...), "\n")

	names := extractToolNames(result)
	res.capability.SelectedToolNames = names

	if res.policy.ToolSelectionMode == SelectDiscovered && len(names) == 0 {
		res.policy.ToolSelectionMode = SelectAll
		res.capability.FallbackApplied = true
		res.capability.FallbackReason = "Discovery produced no tool matches; falling back to full toolset."
	}
}

// extractToolNames deduplicates, insertion-ordered, the tool names found
// in Tier-1 and Tier-2 rendered lines. Tier-1 lines are rendered
// "{n}. name (kind). ..."; only lines whose kind is "tool" contribute.
func extractToolNames(result discovery.Result) []string {
	seen := make(map[string]struct{})
	var names []string

	collect := func(lines []string) {
		for _, line := range lines {
			name, kind, ok := parseRenderedName(line)
			if !ok || kind != string(capability.KindTool) {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	collect(result.Tier1)
	collect(result.Tier2)
	return names
}

// parseRenderedName extracts name and kind from a tier line of the form
// "{n}. name (kind). ..." (Tier 1) or "name\n..." (Tier 2, kind unknown —
// Tier 2 lines are only consulted via their Tier-1 counterpart line, so
// this best-effort parser only handles the Tier-1 shape).
func parseRenderedName(line string) (name, kind string, ok bool) {
	open := strings.Index(line, "(")
	closeIdx := strings.Index(line, ")")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return "", "", false
	}

	prefix := line[:open]
	dot := strings.Index(prefix, ". ")
	if dot < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(prefix[dot+2:])
	kind = strings.TrimSpace(line[open+1 : closeIdx])
	if name == "" || kind == "" {
		return "", "", false
	}
	return name, kind, true
}
