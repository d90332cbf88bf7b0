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

package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEmbeddingText_Ordering(t *testing.T) {
	d := &CapabilityDescriptor{
		Name:        "search",
		DisplayName: "Web Search",
		Description: "Searches the web",
		Category:    "retrieval",
		Tags:        []string{"web", "search"},
		Kind:        KindTool,
		FullSchema: map[string]any{
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"top_k": map[string]any{"type": "integer"},
			},
		},
		RequiredTools: []string{"http_client"},
	}

	text := buildEmbeddingText(d)

	assert.Equal(t,
		"Web Search\nSearches the web\nCategory: retrieval\nUse cases: web, search\nParameters: query, top_k\nRequires: http_client",
		text,
	)
}

func TestBuildEmbeddingText_FallsBackToName(t *testing.T) {
	d := &CapabilityDescriptor{Name: "search", Description: "desc"}
	text := buildEmbeddingText(d)
	assert.Equal(t, "search\ndesc", text)
}

func TestBuildEmbeddingText_SkillOmitsParameters(t *testing.T) {
	d := &CapabilityDescriptor{
		Name: "research",
		Kind: KindSkill,
		FullSchema: map[string]any{
			"properties": map[string]any{"x": "y"},
		},
	}
	text := buildEmbeddingText(d)
	assert.Equal(t, "research", text)
}

func TestBuildEmbeddingText_NeverIncludesFullContentOrSchemaBlob(t *testing.T) {
	d := &CapabilityDescriptor{
		Name:        "research",
		Kind:        KindSkill,
		FullContent: "# Long skill documentation\n\nDo not embed this.",
	}
	text := buildEmbeddingText(d)
	assert.NotContains(t, text, "Long skill documentation")
}
