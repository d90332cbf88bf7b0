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

// Package planner implements the turn planner (C5): it resolves the
// tool-failure/tool-selection policy for one turn and invokes the
// discovery engine (C4) to populate the prompt's capability context.
package planner

import "github.com/agentos-run/turncore/capability"

// FailureMode governs how the orchestrator reacts to a tool error.
type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// SelectionMode governs whether the LLM sees the full tool catalog or
// only discovery-selected tools.
type SelectionMode string

const (
	SelectAll        SelectionMode = "all"
	SelectDiscovered SelectionMode = "discovered"
)

// Policy is TurnPlan.policy (§3).
type Policy struct {
	PlannerVersion    string
	ToolFailureMode   FailureMode
	ToolSelectionMode SelectionMode

	// ExplicitFailClosed records whether this turn's request explicitly
	// set tool_failure_mode=fail_closed via a per-request flag, as
	// opposed to inheriting it from config defaults. The adaptive
	// controller (C7) must not override an explicit request (§4.7).
	ExplicitFailClosed bool
}

// Capability is TurnPlan.capability (§3).
type Capability struct {
	Enabled           bool
	Query             string
	Kind              capability.Kind
	Category          string
	OnlyAvailable     bool
	SelectedToolNames []string
	PromptContext     string
	DiscoveryResult   *DiscoveryResult
	FallbackApplied   bool
	FallbackReason    string
}

// DiscoveryResult mirrors discovery.Result's shape without importing the
// discovery package's full interface, so planner stays a thin consumer.
type DiscoveryResult struct {
	Tier0        string
	Tier1        []string
	Tier2        []string
	IndexVersion uint64
}

// Diagnostics is TurnPlan.diagnostics (§3).
type Diagnostics struct {
	PlanningLatencyMs  int64
	DiscoveryAttempted bool
	DiscoveryApplied   bool
	DiscoveryAttempts  int
	UsedFallback       bool

	// AdaptiveExecution records whether the adaptive controller (C7)
	// applied any action to this plan after planning completed (§4.7).
	AdaptiveExecution bool
}

// TurnPlan is the planner's full output (§3).
type TurnPlan struct {
	Policy      Policy
	Capability  Capability
	Diagnostics Diagnostics
}
