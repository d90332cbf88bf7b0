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
	"testing"

	"github.com/agentos-run/turncore/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDescriptors() []capability.CapabilityDescriptor {
	return []capability.CapabilityDescriptor{
		{ID: "tool:search", Kind: capability.KindTool, Name: "search", Category: "retrieval", Tags: []string{"web", "search"}},
		{ID: "skill:research", Kind: capability.KindSkill, Name: "research", RequiredTools: []string{"search"}, Tags: []string{"web", "search", "synthesis"}},
		{ID: "tool:calendar", Kind: capability.KindTool, Name: "calendar", Category: "productivity"},
		{ID: "tool:email", Kind: capability.KindTool, Name: "email", Category: "productivity"},
	}
}

func TestGraph_DependsOnEdge(t *testing.T) {
	g := NewInMemoryGraph()
	require.NoError(t, g.Build(sampleDescriptors(), nil))

	related := g.Related("skill:research")
	require.Len(t, related, 2) // DEPENDS_ON(tool:search) + TAGGED_WITH(tool:search, overlap=2)

	// tool:search should not list skill:research back (DEPENDS_ON is directed).
	searchRelated := g.Related("tool:search")
	for _, r := range searchRelated {
		assert.NotEqual(t, DependsOn, r.Type)
	}
}

func TestGraph_SameCategoryEdge(t *testing.T) {
	g := NewInMemoryGraph()
	require.NoError(t, g.Build(sampleDescriptors(), nil))

	related := g.Related("tool:calendar")
	require.Len(t, related, 1)
	assert.Equal(t, "tool:email", related[0].ID)
	assert.Equal(t, SameCategory, related[0].Type)
	assert.InDelta(t, 0.1, related[0].Weight, 1e-9)
}

func TestGraph_ComposedWithIsAdditiveAcrossPresets(t *testing.T) {
	g := NewInMemoryGraph()
	presets := []Preset{
		{CapabilityIDs: []string{"tool:calendar", "tool:email"}},
		{CapabilityIDs: []string{"tool:calendar", "tool:email"}},
	}
	require.NoError(t, g.Build(sampleDescriptors(), presets))

	related := g.Related("tool:calendar")
	var composed *Related
	for i := range related {
		if related[i].Type == ComposedWith {
			composed = &related[i]
		}
	}
	require.NotNil(t, composed)
	assert.InDelta(t, 1.0, composed.Weight, 1e-9) // 0.5 + 0.5 additive
}

func TestGraph_Rerank_BoostsExistingAndInsertsNeighbor(t *testing.T) {
	g := NewInMemoryGraph()
	require.NoError(t, g.Build(sampleDescriptors(), nil))

	hits := []capability.SearchHit{
		{Descriptor: capability.CapabilityDescriptor{ID: "skill:research"}, Score: 0.8},
	}

	reranked := g.Rerank(hits, 0.15)
	require.True(t, len(reranked) >= 2)

	var inserted *capability.SearchHit
	for i := range reranked {
		if reranked[i].Descriptor.ID == "tool:search" {
			inserted = &reranked[i]
		}
	}
	require.NotNil(t, inserted)
	assert.True(t, inserted.Boosted)
	assert.InDelta(t, 0.8*0.15*1.0, inserted.Score, 1e-6)
}

func TestPersistentGraph_SyncReturnsEmpty(t *testing.T) {
	backend := NewInMemoryGraph()
	require.NoError(t, backend.Build(sampleDescriptors(), nil))
	p := NewPersistentGraph(backend)

	assert.Empty(t, p.Related("skill:research"))

	related, err := p.RelatedAsync(context.Background(), "skill:research")
	require.NoError(t, err)
	assert.NotEmpty(t, related)
}
