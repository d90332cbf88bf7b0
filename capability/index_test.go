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
	"sync"
	"testing"

	"github.com/agentos-run/turncore/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a deterministic 4-dim vector derived from text
// length, enough to exercise the index without a real embedding backend.
type fakeEmbedder struct {
	failOn string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failOn != "" && text == f.failOn {
		return nil, fmt.Errorf("simulated embed failure")
	}
	return []float32{float32(len(text)), 0, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 4 }
func (f *fakeEmbedder) Model() string  { return "fake" }
func (f *fakeEmbedder) Close() error   { return nil }

// fakeVector is a minimal in-memory vector.Provider for index tests.
type fakeVector struct {
	mu     sync.Mutex
	points map[string]map[string][]float32
	meta   map[string]map[string]map[string]any
}

func newFakeVector() *fakeVector {
	return &fakeVector{
		points: make(map[string]map[string][]float32),
		meta:   make(map[string]map[string]map[string]any),
	}
}

func (v *fakeVector) Name() string { return "fake" }

func (v *fakeVector) CreateCollection(_ context.Context, collection string, _ int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.points[collection]; !ok {
		v.points[collection] = make(map[string][]float32)
		v.meta[collection] = make(map[string]map[string]any)
	}
	return nil
}

func (v *fakeVector) CollectionExists(_ context.Context, collection string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.points[collection]
	return ok, nil
}

func (v *fakeVector) Upsert(_ context.Context, collection, id string, embedding []float32, metadata map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.points[collection][id] = embedding
	v.meta[collection][id] = metadata
	return nil
}

func (v *fakeVector) Query(_ context.Context, collection string, _ []float32, opts vector.QueryOptions) ([]vector.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []vector.Result
	for id, meta := range v.meta[collection] {
		out = append(out, vector.Result{ID: id, Score: 1.0, Metadata: meta})
		if opts.TopK > 0 && len(out) >= opts.TopK {
			break
		}
	}
	return out, nil
}

func (v *fakeVector) Delete(_ context.Context, collection, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.points[collection], id)
	delete(v.meta[collection], id)
	return nil
}

func (v *fakeVector) Close() error { return nil }

func newTestIndex(t *testing.T, emb *fakeEmbedder) *Index {
	t.Helper()
	idx, err := NewIndex(context.Background(), IndexConfig{
		Embedder:   emb,
		Vector:     newFakeVector(),
		Collection: "test",
	})
	require.NoError(t, err)
	return idx
}

func TestIndex_Build_ComputesAvailability(t *testing.T) {
	idx := newTestIndex(t, &fakeEmbedder{})

	result, err := idx.Build(context.Background(), []Source{
		{Descriptors: []CapabilityDescriptor{
			{ID: "tool:search", Kind: KindTool, Name: "search"},
			{ID: "skill:research", Kind: KindSkill, Name: "research", RequiredTools: []string{"search"}},
			{ID: "skill:missing", Kind: KindSkill, Name: "missing", RequiredTools: []string{"nonexistent"}},
			{ID: "tool:secret", Kind: KindTool, Name: "secret", RequiredSecrets: []string{"DOES_NOT_EXIST_ENV"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Count)
	assert.Equal(t, uint64(1), result.Version)

	research, ok := idx.Get("skill:research")
	require.True(t, ok)
	assert.True(t, research.Available)

	missing, ok := idx.Get("skill:missing")
	require.True(t, ok)
	assert.False(t, missing.Available)

	secretGated, ok := idx.Get("tool:secret")
	require.True(t, ok)
	assert.False(t, secretGated.Available)
}

func TestIndex_Build_RetainsEmbedFailures(t *testing.T) {
	idx := newTestIndex(t, &fakeEmbedder{failOn: "bad\nbad description"})

	_, err := idx.Build(context.Background(), []Source{
		{Descriptors: []CapabilityDescriptor{
			{ID: "tool:bad", Kind: KindTool, Name: "bad", Description: "bad description"},
		}},
	})
	require.NoError(t, err)

	d, ok := idx.Get("tool:bad")
	require.True(t, ok)
	assert.True(t, d.Available)
	assert.True(t, d.EmbedFailed())
}

func TestIndex_Upsert_BumpsVersionAndPreservesExisting(t *testing.T) {
	idx := newTestIndex(t, &fakeEmbedder{})

	_, err := idx.Build(context.Background(), []Source{
		{Descriptors: []CapabilityDescriptor{{ID: "tool:a", Kind: KindTool, Name: "a"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx.Version())

	err = idx.Upsert(context.Background(), CapabilityDescriptor{ID: "tool:b", Kind: KindTool, Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), idx.Version())

	_, ok := idx.Get("tool:a")
	assert.True(t, ok)
	_, ok = idx.Get("tool:b")
	assert.True(t, ok)
}

func TestIndex_Search_AppliesFilter(t *testing.T) {
	idx := newTestIndex(t, &fakeEmbedder{})

	_, err := idx.Build(context.Background(), []Source{
		{Descriptors: []CapabilityDescriptor{
			{ID: "tool:a", Kind: KindTool, Name: "a", Category: "search"},
			{ID: "skill:b", Kind: KindSkill, Name: "b", Category: "search"},
		}},
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), "find something", 10, SearchFilter{Kind: KindTool})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "tool:a", hits[0].Descriptor.ID)
}
