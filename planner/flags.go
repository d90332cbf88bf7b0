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
	"strings"

	"github.com/agentos-run/turncore/capability"
)

// normalizeFlagKey lower-cases a flag key and folds dashes/spaces to
// underscores, so "tool-failure-mode", "Tool Failure Mode", and
// "tool_failure_mode" are equivalent (§4.5 step 2, §6 customFlags).
func normalizeFlagKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	return key
}

// normalizedFlags builds a lookup of every raw flag under its normalized
// key. Later duplicate keys win, matching a plain map's last-write
// semantics.
func normalizedFlags(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[normalizeFlagKey(k)] = v
	}
	return out
}

// flagProcessor mutates a resolution from one recognized flag. Unknown
// values are ignored silently, never errored (§4.5 step 2) — each
// processor is responsible for validating its own flag's value.
//
// Modeled on the teacher's RequestProcessor chain
// (v2/agent/llmagent/processor.go): an ordered list of small composable
// functions over shared mutable state, rather than one large switch.
type flagProcessor func(flags map[string]string, res *resolution)

// resolution is the in-progress TurnPlan.policy/capability pair being
// built up by the flag-processor chain.
type resolution struct {
	policy     Policy
	capability Capability
}

// defaultFlagProcessors returns the standard flag-parsing chain, in the
// order step 2 lists them.
func defaultFlagProcessors() []flagProcessor {
	return []flagProcessor{
		toolFailureModeProcessor,
		toolSelectionModeProcessor,
		capabilityDiscoveryKindProcessor,
		capabilityCategoryProcessor,
		enableCapabilityDiscoveryProcessor,
	}
}

func toolFailureModeProcessor(flags map[string]string, res *resolution) {
	switch FailureMode(flags["tool_failure_mode"]) {
	case FailOpen:
		res.policy.ToolFailureMode = FailOpen
	case FailClosed:
		res.policy.ToolFailureMode = FailClosed
		res.policy.ExplicitFailClosed = true
	}
}

func toolSelectionModeProcessor(flags map[string]string, res *resolution) {
	switch SelectionMode(flags["tool_selection_mode"]) {
	case SelectAll:
		res.policy.ToolSelectionMode = SelectAll
	case SelectDiscovered:
		res.policy.ToolSelectionMode = SelectDiscovered
	}
}

func capabilityDiscoveryKindProcessor(flags map[string]string, res *resolution) {
	v := flags["capability_discovery_kind"]
	switch capability.Kind(v) {
	case capability.KindTool, capability.KindSkill, capability.KindExtension,
		capability.KindChannel, capability.KindVoice, capability.KindProductivity:
		res.capability.Kind = capability.Kind(v)
	case "any", "":
		res.capability.Kind = ""
	}
}

func capabilityCategoryProcessor(flags map[string]string, res *resolution) {
	if v, ok := flags["capability_category"]; ok && v != "" {
		res.capability.Category = v
	}
}

func enableCapabilityDiscoveryProcessor(flags map[string]string, res *resolution) {
	v, ok := flags["enable_capability_discovery"]
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		res.capability.Enabled = true
	case "false", "0", "no":
		res.capability.Enabled = false
	}
}
