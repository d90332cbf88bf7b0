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
	"context"

	"github.com/agentos-run/turncore/capability"
)

// PersistentGraph adapts Graph to a durable, out-of-process backend. Its
// synchronous methods intentionally return empty results: only the async
// methods are authoritative when this backend is configured (§4.2, §9).
// Callers (the Turn Planner, C5) must be written against the async
// interface whenever a PersistentGraph is in use.
//
// This adapter has no teacher analog: it exists to satisfy the dual
// in-memory/persistent graph requirement spec.md §9 calls out, backed here
// by the same in-memory graph it wraps, standing in for a real external
// graph store (e.g. a graph database) this core's boundary does not name.
type PersistentGraph struct {
	backend *InMemoryGraph
}

// NewPersistentGraph wraps an in-memory graph as the backing store for a
// stand-in persistent backend.
func NewPersistentGraph(backend *InMemoryGraph) *PersistentGraph {
	return &PersistentGraph{backend: backend}
}

// Build delegates to the backing store.
func (p *PersistentGraph) Build(descriptors []capability.CapabilityDescriptor, presets []Preset) error {
	return p.backend.Build(descriptors, presets)
}

// Related always returns empty for a persistent backend (§4.2).
func (p *PersistentGraph) Related(string) []Related { return nil }

// RelatedAsync is the authoritative call for a persistent backend.
func (p *PersistentGraph) RelatedAsync(ctx context.Context, id string) ([]Related, error) {
	return p.backend.RelatedAsync(ctx, id)
}

// Rerank delegates to the backing store; callers using a persistent
// backend should prefer an async rerank path where one is available, but
// §4.2 does not define an async rerank, so this remains synchronous.
func (p *PersistentGraph) Rerank(hits []capability.SearchHit, boostFactor float64) []capability.SearchHit {
	return p.backend.Rerank(hits, boostFactor)
}
