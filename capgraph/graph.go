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
	"sort"
	"sync"

	"github.com/agentos-run/turncore/capability"
)

// Graph is the capability relationship graph (C2), consumed synchronously
// by default. Callers that configure a persistent backend (see
// PersistentGraph) must instead use the Async interface (§4.2, §9).
type Graph interface {
	// Build clears and rebuilds the graph from descriptors and presets.
	Build(descriptors []capability.CapabilityDescriptor, presets []Preset) error

	// Related returns id's 1-hop neighbors, sorted by weight descending.
	Related(id string) []Related

	// RelatedAsync is the authoritative form when backed by a persistent
	// store; in-memory implementations return identical results to
	// Related.
	RelatedAsync(ctx context.Context, id string) ([]Related, error)

	// Rerank boosts result scores using related neighbors (§4.2).
	Rerank(hits []capability.SearchHit, boostFactor float64) []capability.SearchHit
}

// InMemoryGraph is the default, authoritative-for-both-sync-and-async
// implementation of Graph.
type InMemoryGraph struct {
	mu        sync.RWMutex
	adjacency map[string][]Related
	byID      map[string]capability.CapabilityDescriptor
}

// NewInMemoryGraph constructs an empty graph; call Build before use.
func NewInMemoryGraph() *InMemoryGraph {
	return &InMemoryGraph{
		adjacency: make(map[string][]Related),
		byID:      make(map[string]capability.CapabilityDescriptor),
	}
}

// Build clears and rebuilds the graph (§4.2 build()).
func (g *InMemoryGraph) Build(descriptors []capability.CapabilityDescriptor, presets []Preset) error {
	edges := buildEdges(descriptors, presets)

	byID := make(map[string]capability.CapabilityDescriptor, len(descriptors))
	for _, d := range descriptors {
		byID[d.ID] = d
	}

	adjacency := make(map[string][]Related)
	for _, e := range edges {
		adjacency[e.SourceID] = append(adjacency[e.SourceID], Related{ID: e.TargetID, Weight: e.Weight, Type: e.Type})
		if e.Type != DependsOn {
			adjacency[e.TargetID] = append(adjacency[e.TargetID], Related{ID: e.SourceID, Weight: e.Weight, Type: e.Type})
		}
	}
	for id := range adjacency {
		sortRelatedDesc(adjacency[id])
	}

	g.mu.Lock()
	g.adjacency = adjacency
	g.byID = byID
	g.mu.Unlock()
	return nil
}

// Related returns id's 1-hop neighbors sorted by weight descending.
func (g *InMemoryGraph) Related(id string) []Related {
	g.mu.RLock()
	defer g.mu.RUnlock()
	neighbors := g.adjacency[id]
	out := make([]Related, len(neighbors))
	copy(out, neighbors)
	return out
}

// RelatedAsync is authoritative and identical to Related for the
// in-memory backend (§4.2: "in-memory implementations may fulfill both
// with identical return values").
func (g *InMemoryGraph) RelatedAsync(_ context.Context, id string) ([]Related, error) {
	return g.Related(id), nil
}

// Rerank boosts result scores using related neighbors (§4.2 rerank()).
func (g *InMemoryGraph) Rerank(hits []capability.SearchHit, boostFactor float64) []capability.SearchHit {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inResultSet := make(map[string]int, len(hits))
	out := make([]capability.SearchHit, len(hits))
	copy(out, hits)
	for i, h := range out {
		inResultSet[h.Descriptor.ID] = i
	}

	var inserted []capability.SearchHit
	seenInsert := make(map[string]bool)

	for _, h := range hits {
		for _, n := range g.adjacency[h.Descriptor.ID] {
			if idx, ok := inResultSet[n.ID]; ok {
				out[idx].Score += float32(boostFactor * n.Weight)
				continue
			}
			if n.Type != DependsOn && n.Type != ComposedWith {
				continue
			}
			if seenInsert[n.ID] {
				continue
			}
			descriptor, ok := g.byID[n.ID]
			if !ok {
				continue
			}
			seenInsert[n.ID] = true
			inserted = append(inserted, capability.SearchHit{
				Descriptor: descriptor,
				Score:      h.Score * float32(boostFactor) * float32(n.Weight),
				Boosted:    true,
			})
		}
	}

	out = append(out, inserted...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func sortRelatedDesc(neighbors []Related) {
	sort.SliceStable(neighbors, func(i, j int) bool { return neighbors[i].Weight > neighbors[j].Weight })
}
