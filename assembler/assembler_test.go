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

package assembler

import (
	"testing"

	"github.com/agentos-run/turncore/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
}

func TestAssembler_Tier0_GroupsAndSortsByCount(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	descriptors := []capability.CapabilityDescriptor{
		{Name: "a", Category: "productivity"},
		{Name: "b", Category: "productivity"},
		{Name: "c", Category: "productivity"},
		{Name: "d", Category: "retrieval"},
	}

	result := a.Assemble(1, descriptors, nil)
	assert.Contains(t, result.Tier0, "productivity: a, b, c")
	assert.True(t, result.Tier0Tokens > 0)
}

func TestAssembler_Tier0_IsCachedByVersion(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	first := a.Assemble(1, []capability.CapabilityDescriptor{{Name: "a", Category: "x"}}, nil)
	second := a.Assemble(1, []capability.CapabilityDescriptor{{Name: "completely-different", Category: "y"}}, nil)

	assert.Equal(t, first.Tier0, second.Tier0)
}

func TestAssembler_Tier1_FiltersByRelevanceAndTopK(t *testing.T) {
	a, err := New(Config{Tier1TopK: 1, Tier1MinRelevance: 0.5})
	require.NoError(t, err)

	hits := []capability.SearchHit{
		{Descriptor: capability.CapabilityDescriptor{Name: "low", Kind: capability.KindTool}, Score: 0.1},
		{Descriptor: capability.CapabilityDescriptor{Name: "high-1", Kind: capability.KindTool}, Score: 0.9},
		{Descriptor: capability.CapabilityDescriptor{Name: "high-2", Kind: capability.KindTool}, Score: 0.8},
	}

	result := a.Assemble(1, nil, hits)
	require.Len(t, result.Tier1, 1)
	assert.Contains(t, result.Tier1[0], "high-1")
}

func TestAssembler_Tier1_MarksUnavailable(t *testing.T) {
	a, err := New(Config{Tier1MinRelevance: 0})
	require.NoError(t, err)

	hits := []capability.SearchHit{
		{Descriptor: capability.CapabilityDescriptor{Name: "x", Kind: capability.KindTool, Available: false}, Score: 0.9},
	}
	result := a.Assemble(1, nil, hits)
	require.Len(t, result.Tier1, 1)
	assert.Contains(t, result.Tier1[0], "[not available]")
}

func TestAssembler_Tier2_UsesTier1SetNotReranked(t *testing.T) {
	a, err := New(Config{Tier2TopK: 1, Tier1MinRelevance: 0})
	require.NoError(t, err)

	hits := []capability.SearchHit{
		{Descriptor: capability.CapabilityDescriptor{Name: "first", Kind: capability.KindSkill, FullContent: "full docs"}, Score: 0.9},
		{Descriptor: capability.CapabilityDescriptor{Name: "second", Kind: capability.KindSkill, FullContent: "other docs"}, Score: 0.8},
	}

	result := a.Assemble(1, nil, hits)
	require.Len(t, result.Tier2, 1)
	assert.Contains(t, result.Tier2[0], "full docs")
}

func TestAssembler_Tier2_ExcludesHitsFilteredFromTier1(t *testing.T) {
	a, err := New(Config{Tier2TopK: 2, Tier1TopK: 10, Tier1MinRelevance: 0.5})
	require.NoError(t, err)

	hits := []capability.SearchHit{
		{Descriptor: capability.CapabilityDescriptor{Name: "below-threshold", Kind: capability.KindSkill, FullContent: "should not appear"}, Score: 0.1},
		{Descriptor: capability.CapabilityDescriptor{Name: "above-threshold", Kind: capability.KindSkill, FullContent: "should appear"}, Score: 0.9},
	}

	result := a.Assemble(1, nil, hits)
	require.Len(t, result.Tier1, 1)
	require.Len(t, result.Tier2, 1)
	assert.Contains(t, result.Tier2[0], "should appear")
	for _, line := range result.Tier2 {
		assert.NotContains(t, line, "should not appear")
	}
}

func TestAssembler_RespectsBudgets(t *testing.T) {
	a, err := New(Config{Tier1Budget: 1, Tier1MinRelevance: 0, Tier1TopK: 10})
	require.NoError(t, err)

	hits := []capability.SearchHit{
		{Descriptor: capability.CapabilityDescriptor{Name: "x", Kind: capability.KindTool, Description: "a very long description that exceeds budget"}, Score: 0.9},
	}
	result := a.Assemble(1, nil, hits)
	assert.Empty(t, result.Tier1)
}
