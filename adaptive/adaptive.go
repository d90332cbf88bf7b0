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

// Package adaptive implements the adaptive controller (C7): a pure
// function of (plan, kpi, config) that nudges a turn plan toward safer
// defaults when a scope's recent outcomes are degraded. It holds no
// state and needs no locking (§5: "adaptive controller is stateless").
package adaptive

import (
	"github.com/agentos-run/turncore/planner"
	"github.com/agentos-run/turncore/telemetry"
)

// Config mirrors config.AdaptiveConfig; the adaptive package takes its
// own copy so it never imports the config package.
type Config struct {
	Enabled                   bool
	MinSamples                int
	MinWeightedSuccessRate    float64
	ForceAllToolsWhenDegraded bool
	ForceFailOpenWhenDegraded bool
}

// Actions records which adjustments, if any, Apply made (§4.7).
type Actions struct {
	Degraded                     bool
	ForcedToolSelectionMode      bool
	ForcedToolFailureMode        bool
	PreservedRequestedFailClosed bool
}

// Applied reports whether Apply changed anything about the plan, for
// plan.diagnostics.adaptiveExecution (§4.7 last rule).
func (a Actions) Applied() bool {
	return a.ForcedToolSelectionMode || a.ForcedToolFailureMode || a.PreservedRequestedFailClosed
}

// Apply runs the §4.7 rules against plan and kpi, returning the
// (possibly mutated) plan and the actions taken. plan is passed by value
// and returned by value, keeping Apply a pure function with no shared
// mutable state.
func Apply(plan planner.TurnPlan, kpi telemetry.KpiWindow, cfg Config) (planner.TurnPlan, Actions) {
	var actions Actions

	// kpi.SampleCount == 0 is checked separately from < cfg.MinSamples:
	// minSamples = 0 must still require at least one sample (§8), so
	// "0 < 0" alone would wrongly let a zero-evidence KPI through.
	if !cfg.Enabled || kpi.SampleCount == 0 || kpi.SampleCount < cfg.MinSamples {
		return plan, actions
	}

	actions.Degraded = kpi.WeightedSuccessRate < cfg.MinWeightedSuccessRate
	if !actions.Degraded {
		return plan, actions
	}

	if cfg.ForceAllToolsWhenDegraded && plan.Policy.ToolSelectionMode == planner.SelectDiscovered {
		plan.Policy.ToolSelectionMode = planner.SelectAll
		actions.ForcedToolSelectionMode = true
	}

	if cfg.ForceFailOpenWhenDegraded {
		switch {
		case plan.Policy.ExplicitFailClosed:
			actions.PreservedRequestedFailClosed = true
		case plan.Policy.ToolFailureMode == planner.FailClosed:
			plan.Policy.ToolFailureMode = planner.FailOpen
			actions.ForcedToolFailureMode = true
		}
	}

	return plan, actions
}
