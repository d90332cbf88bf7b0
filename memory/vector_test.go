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

package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/agentos-run/turncore/vector"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }
func (e fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}
func (fakeEmbedder) Dimension() int { return 2 }
func (fakeEmbedder) Model() string  { return "fake" }
func (fakeEmbedder) Close() error   { return nil }

type filteringFakeVector struct {
	mu      sync.Mutex
	entries []vector.Result
}

func (v *filteringFakeVector) Name() string                                          { return "fake" }
func (v *filteringFakeVector) CreateCollection(context.Context, string, int) error    { return nil }
func (v *filteringFakeVector) CollectionExists(context.Context, string) (bool, error) { return true, nil }
func (v *filteringFakeVector) Delete(context.Context, string, string) error           { return nil }
func (v *filteringFakeVector) Close() error                                          { return nil }

func (v *filteringFakeVector) Upsert(_ context.Context, _ string, id string, _ []float32, metadata map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = append(v.entries, vector.Result{ID: id, Score: 1, Metadata: metadata})
	return nil
}

func (v *filteringFakeVector) Query(_ context.Context, _ string, _ []float32, opts vector.QueryOptions) ([]vector.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []vector.Result
	for _, e := range v.entries {
		matches := true
		for k, want := range opts.Filter {
			if e.Metadata[k] != want {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}
		out = append(out, e)
		if opts.TopK > 0 && len(out) >= opts.TopK {
			break
		}
	}
	return out, nil
}

func TestVectorRecaller_RecallFiltersByScopeKey(t *testing.T) {
	v := &filteringFakeVector{}
	r, err := NewVectorRecaller(fakeEmbedder{}, v, "")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Record(ctx, "scope-a", Turn{Role: "user", Content: "hello from a"}))
	require.NoError(t, r.Record(ctx, "scope-b", Turn{Role: "user", Content: "hello from b"}))

	got, err := r.Recall(ctx, "scope-a", "query", RecallOptions{})
	require.NoError(t, err)
	require.Contains(t, got, "hello from a")
	require.NotContains(t, got, "hello from b")
}

func TestVectorRecaller_EmptyQueryReturnsEmpty(t *testing.T) {
	v := &filteringFakeVector{}
	r, err := NewVectorRecaller(fakeEmbedder{}, v, "")
	require.NoError(t, err)

	got, err := r.Recall(context.Background(), "scope", "", RecallOptions{})
	require.NoError(t, err)
	require.Equal(t, "", got)
}
