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

// Package capability implements the capability index (C1): it normalizes
// heterogeneous capability sources into CapabilityDescriptors, embeds them,
// and serves filtered top-K vector search.
package capability

// Kind classifies a CapabilityDescriptor.
type Kind string

const (
	KindTool         Kind = "tool"
	KindSkill        Kind = "skill"
	KindExtension    Kind = "extension"
	KindChannel      Kind = "channel"
	KindVoice        Kind = "voice"
	KindProductivity Kind = "productivity"
)

// SourceRef back-points a descriptor to its originating source, so the
// index can lazily reload it (e.g. a changed CAPABILITY.yaml file).
type SourceRef struct {
	// Type identifies the source kind: "tool", "manifest_file", "preset".
	Type string

	// Path is the manifest file path, when Type is "manifest_file".
	Path string
}

// CapabilityDescriptor is the unified shape for tools, skills, extensions,
// channels, and file-based manifest entries (§3).
type CapabilityDescriptor struct {
	// ID is globally unique, conventionally "{kind}:{name}".
	ID string

	Kind        Kind
	Name        string
	DisplayName string
	Description string
	Category    string
	Tags        []string

	RequiredSecrets []string
	RequiredTools   []string

	// Available is derived at index time from secret and tool presence;
	// it is never set directly by a caller.
	Available bool

	// HasSideEffects marks capabilities whose invocation is not safely
	// repeatable (write tools, outbound messages).
	HasSideEffects bool

	// FullSchema is the tool's structured input schema. Tier-2 only,
	// never concatenated into embedding text.
	FullSchema map[string]any

	// FullContent is a skill's long-form documentation (e.g. SKILL.md
	// body). Tier-2 only, never embedded.
	FullContent string

	SourceRef SourceRef

	// embedFailed records that build/upsert could not produce an
	// embedding for this descriptor. It does not affect Available,
	// which reflects only secret/tool presence (§4.1), but callers that
	// need strictly-searchable results should exclude it.
	embedFailed bool
}

// EmbedFailed reports whether the last embed attempt for this descriptor
// failed. The descriptor remains indexed by id regardless.
func (d *CapabilityDescriptor) EmbedFailed() bool { return d.embedFailed }

// EmbeddingRecord is the (id, vector, textContent, metadata) tuple stored
// for a descriptor (§3).
type EmbeddingRecord struct {
	ID          string
	Vector      []float32
	TextContent string
	Metadata    map[string]any
}

// Source is an ingestion input for build(): a batch of descriptors
// normalized by the caller (tool registry adapter, manifest file scanner,
// channel registry, etc).
type Source struct {
	Name         string
	Descriptors  []CapabilityDescriptor
}

// SearchFilter narrows Search results by metadata (§4.1: kind, category,
// onlyAvailable).
type SearchFilter struct {
	Kind          Kind
	Category      string
	OnlyAvailable bool
}

// SearchHit pairs a descriptor with its similarity score. Boosted marks a
// hit that the capability graph (C2) inserted during rerank rather than
// one the index's own vector search returned (§4.2 rerank()).
type SearchHit struct {
	Descriptor CapabilityDescriptor
	Score      float32
	Boosted    bool
}

// BuildResult reports the outcome of build() or upsert().
type BuildResult struct {
	Count   int
	Version uint64
}
