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
	"sync"
)

// BufferRecaller keeps every scope's recent turns in memory and recalls
// by simple recency, bounded by a character budget rather than semantic
// relevance. Grounded on the teacher's TokenWindowStrategy
// (v2/memory/token_window.go): work backwards from the most recent
// entries until the budget is exhausted, always keeping at least one.
type BufferRecaller struct {
	maxTurnsPerScope int

	mu     sync.Mutex
	scopes map[string][]Turn
}

// NewBufferRecaller bounds each scope to maxTurnsPerScope turns (0 means
// unbounded, relying on Recall's character budget alone).
func NewBufferRecaller(maxTurnsPerScope int) *BufferRecaller {
	return &BufferRecaller{
		maxTurnsPerScope: maxTurnsPerScope,
		scopes:           make(map[string][]Turn),
	}
}

func (b *BufferRecaller) Record(_ context.Context, scopeKey string, turn Turn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	turns := append(b.scopes[scopeKey], turn)
	if b.maxTurnsPerScope > 0 && len(turns) > b.maxTurnsPerScope {
		turns = turns[len(turns)-b.maxTurnsPerScope:]
	}
	b.scopes[scopeKey] = turns
	return nil
}

func (b *BufferRecaller) Recall(_ context.Context, scopeKey string, _ string, opts RecallOptions) (string, error) {
	opts = opts.withDefaults()

	b.mu.Lock()
	turns := append([]Turn(nil), b.scopes[scopeKey]...)
	b.mu.Unlock()

	if len(turns) == 0 {
		return "", nil
	}

	if opts.TopK > 0 && len(turns) > opts.TopK {
		turns = turns[len(turns)-opts.TopK:]
	}

	rendered := make([]string, len(turns))
	for i, t := range turns {
		rendered[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}
	return joinWithinBudget(rendered, opts.MaxContextChars), nil
}

var _ Recaller = (*BufferRecaller)(nil)
