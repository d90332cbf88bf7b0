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

package capgraph

import (
	"fmt"
	"sort"

	"github.com/agentos-run/turncore/capability"
)

// pairKey identifies an unordered pair for additive weight accumulation.
type pairKey struct{ a, b string }

func makePairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// buildEdges derives every CapabilityEdge from descriptors and presets,
// following the four construction rules in §4.2.
func buildEdges(descriptors []capability.CapabilityDescriptor, presets []Preset) []Edge {
	byID := make(map[string]capability.CapabilityDescriptor, len(descriptors))
	for _, d := range descriptors {
		byID[d.ID] = d
	}

	var edges []Edge
	edges = append(edges, dependsOnEdges(descriptors, byID)...)
	edges = append(edges, composedWithEdges(presets)...)
	edges = append(edges, taggedWithEdges(descriptors)...)
	edges = append(edges, sameCategoryEdges(descriptors)...)
	return edges
}

// dependsOnEdges: for every skill s and each name t in s.requiredTools,
// add edge s -> tool:t if present, weight 1.0.
func dependsOnEdges(descriptors []capability.CapabilityDescriptor, byID map[string]capability.CapabilityDescriptor) []Edge {
	var edges []Edge
	for _, d := range descriptors {
		if d.Kind != capability.KindSkill {
			continue
		}
		for _, toolName := range d.RequiredTools {
			targetID := fmt.Sprintf("tool:%s", toolName)
			if _, ok := byID[targetID]; !ok {
				continue
			}
			edges = append(edges, Edge{SourceID: d.ID, TargetID: targetID, Type: DependsOn, Weight: 1.0})
		}
	}
	return edges
}

// composedWithEdges: for each preset, every unordered pair of its
// capability ids, weight 0.5, additive across presets.
func composedWithEdges(presets []Preset) []Edge {
	weights := make(map[pairKey]float64)
	for _, p := range presets {
		for i := 0; i < len(p.CapabilityIDs); i++ {
			for j := i + 1; j < len(p.CapabilityIDs); j++ {
				weights[makePairKey(p.CapabilityIDs[i], p.CapabilityIDs[j])] += 0.5
			}
		}
	}
	return pairsToEdges(weights, ComposedWith)
}

// taggedWithEdges: for every pair of descriptors sharing >= 2 tags,
// weight = 0.3 * overlap.
func taggedWithEdges(descriptors []capability.CapabilityDescriptor) []Edge {
	weights := make(map[pairKey]float64)
	for i := 0; i < len(descriptors); i++ {
		for j := i + 1; j < len(descriptors); j++ {
			overlap := tagOverlap(descriptors[i].Tags, descriptors[j].Tags)
			if overlap < 2 {
				continue
			}
			weights[makePairKey(descriptors[i].ID, descriptors[j].ID)] = 0.3 * float64(overlap)
		}
	}
	return pairsToEdges(weights, TaggedWith)
}

// sameCategoryEdges: only for category groups of size 2-8 sharing the
// same kind, all pairs, weight 0.1.
func sameCategoryEdges(descriptors []capability.CapabilityDescriptor) []Edge {
	type groupKey struct {
		kind     capability.Kind
		category string
	}
	groups := make(map[groupKey][]string)
	for _, d := range descriptors {
		if d.Category == "" {
			continue
		}
		key := groupKey{kind: d.Kind, category: d.Category}
		groups[key] = append(groups[key], d.ID)
	}

	weights := make(map[pairKey]float64)
	for _, ids := range groups {
		if len(ids) < 2 || len(ids) > 8 {
			continue
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				weights[makePairKey(ids[i], ids[j])] = 0.1
			}
		}
	}
	return pairsToEdges(weights, SameCategory)
}

func pairsToEdges(weights map[pairKey]float64, edgeType EdgeType) []Edge {
	edges := make([]Edge, 0, len(weights))
	for pair, weight := range weights {
		edges = append(edges, Edge{SourceID: pair.a, TargetID: pair.b, Type: edgeType, Weight: weight})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].TargetID < edges[j].TargetID
	})
	return edges
}

func tagOverlap(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	count := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			count++
		}
	}
	return count
}
