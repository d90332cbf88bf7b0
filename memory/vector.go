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
	"fmt"

	"github.com/agentos-run/turncore/embedder"
	"github.com/agentos-run/turncore/vector"
	"github.com/google/uuid"
)

// VectorRecaller recalls prior turns by semantic similarity to the
// current query, scoped by a "scope_key" metadata filter on a shared
// collection. Grounded on the teacher's VectorMemoryStrategy
// (pkg/memory/vector_memory.go): embed-then-upsert on Record, embed
// query and metadata-filtered top-K search on Recall.
type VectorRecaller struct {
	embedder   embedder.Embedder
	vector     vector.Provider
	collection string
}

// NewVectorRecaller constructs a VectorRecaller. collection defaults to
// "turncore_memory" when empty.
func NewVectorRecaller(e embedder.Embedder, v vector.Provider, collection string) (*VectorRecaller, error) {
	if e == nil {
		return nil, fmt.Errorf("memory: embedder is required for vector recall")
	}
	if v == nil {
		return nil, fmt.Errorf("memory: vector provider is required for vector recall")
	}
	if collection == "" {
		collection = "turncore_memory"
	}
	return &VectorRecaller{embedder: e, vector: v, collection: collection}, nil
}

func (r *VectorRecaller) Record(ctx context.Context, scopeKey string, turn Turn) error {
	if turn.Content == "" {
		return nil
	}

	vec, err := r.embedder.Embed(ctx, turn.Content)
	if err != nil {
		return fmt.Errorf("memory: embed turn: %w", err)
	}

	id := uuid.NewString()
	metadata := map[string]any{
		"scope_key": scopeKey,
		"role":      turn.Role,
		"content":   turn.Content,
	}
	return r.vector.Upsert(ctx, r.collection, id, vec, metadata)
}

func (r *VectorRecaller) Recall(ctx context.Context, scopeKey string, query string, opts RecallOptions) (string, error) {
	opts = opts.withDefaults()
	if query == "" {
		return "", nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("memory: embed query: %w", err)
	}

	results, err := r.vector.Query(ctx, r.collection, vec, vector.QueryOptions{
		TopK:   opts.TopK,
		Filter: map[string]any{"scope_key": scopeKey},
	})
	if err != nil {
		return "", fmt.Errorf("memory: query: %w", err)
	}

	rendered := make([]string, 0, len(results))
	for _, res := range results {
		role, _ := res.Metadata["role"].(string)
		content, _ := res.Metadata["content"].(string)
		if content == "" {
			continue
		}
		rendered = append(rendered, fmt.Sprintf("%s: %s", role, content))
	}
	return joinWithinBudget(rendered, opts.MaxContextChars), nil
}

var _ Recaller = (*VectorRecaller)(nil)
