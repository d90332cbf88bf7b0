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
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/agentos-run/turncore/embedder"
	"github.com/agentos-run/turncore/vector"
)

// IndexConfig configures a capability Index.
//
// Grounded on the teacher's v2/rag/search.go SearchEngine: an embedder and
// a vector.Provider composed behind a mutex, with a version counter in
// place of the teacher's plain reindex-in-place model, since the discovery
// engine (C4) needs a monotonically increasing version to cache Tier 0 by.
type IndexConfig struct {
	Embedder   embedder.Embedder
	Vector     vector.Provider
	Collection string

	// BatchSize bounds items per embed() call during build(). Default 32.
	BatchSize int

	// SecretPresence reports whether a named secret is configured. Defaults
	// to checking an environment variable of the same name.
	SecretPresence func(secret string) bool
}

// Index is the capability index (C1): it ingests heterogeneous capability
// sources, normalizes them into CapabilityDescriptors, embeds them, and
// serves top-K vector search with metadata post-filtering.
type Index struct {
	embedder       embedder.Embedder
	vector         vector.Provider
	collection     string
	batchSize      int
	secretPresence func(secret string) bool

	mu          sync.RWMutex
	descriptors map[string]CapabilityDescriptor
	version     uint64
}

// NewIndex constructs an Index from cfg, validating required fields and
// creating the backing vector collection.
func NewIndex(ctx context.Context, cfg IndexConfig) (*Index, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("capability: embedder is required")
	}
	if cfg.Vector == nil {
		return nil, fmt.Errorf("capability: vector provider is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "capabilities"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.SecretPresence == nil {
		cfg.SecretPresence = func(secret string) bool {
			_, ok := os.LookupEnv(secret)
			return ok
		}
	}

	if err := cfg.Vector.CreateCollection(ctx, cfg.Collection, cfg.Embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("capability: create collection: %w", err)
	}

	return &Index{
		embedder:       cfg.Embedder,
		vector:         cfg.Vector,
		collection:     cfg.Collection,
		batchSize:      cfg.BatchSize,
		secretPresence: cfg.SecretPresence,
		descriptors:    make(map[string]CapabilityDescriptor),
	}, nil
}

// Version returns the current monotonic build/upsert version, published
// atomically so readers never observe a torn value (§5 Concurrency model).
func (idx *Index) Version() uint64 {
	return atomic.LoadUint64(&idx.version)
}

// Descriptors returns a snapshot of every indexed descriptor, used by the
// context assembler (C3) to build the Tier-0 category summary.
func (idx *Index) Descriptors() []CapabilityDescriptor {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]CapabilityDescriptor, 0, len(idx.descriptors))
	for _, d := range idx.descriptors {
		out = append(out, d)
	}
	return out
}

// Get looks up one descriptor by id.
func (idx *Index) Get(id string) (CapabilityDescriptor, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	d, ok := idx.descriptors[id]
	return d, ok
}

// Build normalizes sources, dedupes by id, computes availability, embeds
// in batches, and upserts into the vector store and the in-memory
// descriptor table (§4.1 build()).
func (idx *Index) Build(ctx context.Context, sources []Source) (BuildResult, error) {
	merged := make(map[string]CapabilityDescriptor)
	for _, src := range sources {
		for _, d := range src.Descriptors {
			merged[d.ID] = d
		}
	}

	toolNames := toolNameSet(merged)
	for id, d := range merged {
		d.Available = idx.isAvailable(d, toolNames)
		merged[id] = d
	}

	descriptors := make([]CapabilityDescriptor, 0, len(merged))
	for _, d := range merged {
		descriptors = append(descriptors, d)
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].ID < descriptors[j].ID })

	idx.mu.Lock()
	idx.descriptors = merged
	idx.mu.Unlock()

	if err := idx.embedAndUpsert(ctx, descriptors); err != nil {
		return BuildResult{}, err
	}

	v := atomic.AddUint64(&idx.version, 1)
	return BuildResult{Count: len(merged), Version: v}, nil
}

// Upsert indexes a single descriptor through the same embed/store path as
// Build, preserving the version sequence (§4.1 upsert()).
func (idx *Index) Upsert(ctx context.Context, d CapabilityDescriptor) error {
	idx.mu.RLock()
	toolNames := toolNameSet(idx.descriptors)
	idx.mu.RUnlock()
	if d.Kind == KindTool {
		toolNames[d.Name] = struct{}{}
	}
	d.Available = idx.isAvailable(d, toolNames)

	idx.mu.Lock()
	idx.descriptors[d.ID] = d
	idx.mu.Unlock()

	if err := idx.embedAndUpsert(ctx, []CapabilityDescriptor{d}); err != nil {
		return err
	}

	atomic.AddUint64(&idx.version, 1)
	return nil
}

// embedAndUpsert embeds descriptors in batches of at most idx.batchSize
// and upserts each into the vector store. A failed embedding batch is
// logged and its descriptors are retained, marked embedFailed, rather than
// dropped from the index (§4.1: "still present but marked").
func (idx *Index) embedAndUpsert(ctx context.Context, descriptors []CapabilityDescriptor) error {
	for _, batch := range chunk(descriptors, idx.batchSize) {
		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = buildEmbeddingText(&d)
		}

		vectors, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			slog.Warn("capability index: embedding batch failed",
				"batch_size", len(batch), "error", err)
			idx.mu.Lock()
			for _, d := range batch {
				d.embedFailed = true
				idx.descriptors[d.ID] = d
			}
			idx.mu.Unlock()
			continue
		}

		for i, d := range batch {
			metadata := map[string]any{
				"kind":      string(d.Kind),
				"category":  d.Category,
				"available": d.Available,
				"tags":      d.Tags,
			}
			if err := idx.vector.Upsert(ctx, idx.collection, d.ID, vectors[i], metadata); err != nil {
				slog.Warn("capability index: upsert failed",
					"id", d.ID, "error", err)
			}
		}
	}
	return nil
}

// Search embeds query, performs a vector top-K search, and applies filter
// by kind/category/onlyAvailable, returning hits sorted descending by
// score (§4.1 search()).
func (idx *Index) Search(ctx context.Context, query string, topK int, filter SearchFilter) ([]SearchHit, error) {
	embedding, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("capability: embed query: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results, err := idx.vector.Query(ctx, idx.collection, embedding, vector.QueryOptions{TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("capability: vector query: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		d, ok := idx.descriptors[r.ID]
		if !ok {
			continue
		}
		if !matchesFilter(d, filter) {
			continue
		}
		hits = append(hits, SearchHit{Descriptor: d, Score: r.Score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

func matchesFilter(d CapabilityDescriptor, f SearchFilter) bool {
	if f.Kind != "" && d.Kind != f.Kind {
		return false
	}
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	if f.OnlyAvailable && !d.Available {
		return false
	}
	return true
}

// isAvailable computes the derived availability bit: secretsPresent &&
// toolsPresent (§4.1). A descriptor with no required secrets/tools is
// always available.
func (idx *Index) isAvailable(d CapabilityDescriptor, toolNames map[string]struct{}) bool {
	for _, secret := range d.RequiredSecrets {
		if !idx.secretPresence(secret) {
			return false
		}
	}
	for _, tool := range d.RequiredTools {
		if _, ok := toolNames[tool]; !ok {
			return false
		}
	}
	return true
}

// toolNameSet collects the names of every tool-kind descriptor in set, for
// requiredTools presence checks.
func toolNameSet(set map[string]CapabilityDescriptor) map[string]struct{} {
	names := make(map[string]struct{})
	for _, d := range set {
		if d.Kind == KindTool {
			names[d.Name] = struct{}{}
		}
	}
	return names
}

func chunk(items []CapabilityDescriptor, size int) [][]CapabilityDescriptor {
	if size <= 0 {
		size = len(items)
	}
	var out [][]CapabilityDescriptor
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
