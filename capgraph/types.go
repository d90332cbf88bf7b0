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

// Package capgraph implements the capability relationship graph (C2): it
// derives edges between capabilities (dependency, composition, shared
// tags, shared category) and uses them to re-rank search results from the
// capability index.
package capgraph

// EdgeType classifies a CapabilityEdge (§3).
type EdgeType string

const (
	// DependsOn connects a skill to a tool it requires. Directed.
	DependsOn EdgeType = "DEPENDS_ON"

	// ComposedWith connects capabilities that co-occur in a preset.
	// Undirected.
	ComposedWith EdgeType = "COMPOSED_WITH"

	// TaggedWith connects capabilities sharing two or more tags.
	// Undirected.
	TaggedWith EdgeType = "TAGGED_WITH"

	// SameCategory connects capabilities of the same kind within a
	// category group of 2-8 members. Undirected.
	SameCategory EdgeType = "SAME_CATEGORY"
)

// Edge is a weighted relationship between two capability ids (§3).
// Undirected except DependsOn.
type Edge struct {
	SourceID string
	TargetID string
	Type     EdgeType
	Weight   float64
}

// Related describes a 1-hop neighbor returned by Related/RelatedAsync.
type Related struct {
	ID     string
	Weight float64
	Type   EdgeType
}

// Preset is an unordered co-occurrence group: capability ids that are
// commonly invoked together, used to derive COMPOSED_WITH edges.
type Preset struct {
	CapabilityIDs []string
}
