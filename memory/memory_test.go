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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinWithinBudget_KeepsNewestWithinBudget(t *testing.T) {
	entries := []string{"aaaa", "bbbb", "cccc"}
	got := joinWithinBudget(entries, 10)
	assert.Equal(t, "bbbb\ncccc", got)
}

func TestJoinWithinBudget_AlwaysKeepsAtLeastOne(t *testing.T) {
	entries := []string{"this-entry-is-way-too-long-for-the-budget"}
	got := joinWithinBudget(entries, 5)
	assert.Equal(t, entries[0], got)
}

func TestBufferRecaller_RecallReturnsMostRecentWithinTopK(t *testing.T) {
	b := NewBufferRecaller(0)
	ctx := context.Background()

	require.NoError(t, b.Record(ctx, "scope", Turn{Role: "user", Content: "first"}))
	require.NoError(t, b.Record(ctx, "scope", Turn{Role: "assistant", Content: "second"}))
	require.NoError(t, b.Record(ctx, "scope", Turn{Role: "user", Content: "third"}))

	got, err := b.Recall(ctx, "scope", "", RecallOptions{TopK: 2, MaxContextChars: 1000})
	require.NoError(t, err)
	assert.Equal(t, "assistant: second\nuser: third", got)
}

func TestBufferRecaller_TrimsToMaxTurnsPerScope(t *testing.T) {
	b := NewBufferRecaller(1)
	ctx := context.Background()

	require.NoError(t, b.Record(ctx, "scope", Turn{Role: "user", Content: "first"}))
	require.NoError(t, b.Record(ctx, "scope", Turn{Role: "user", Content: "second"}))

	got, err := b.Recall(ctx, "scope", "", RecallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "user: second", got)
}

func TestBufferRecaller_IsolatesScopes(t *testing.T) {
	b := NewBufferRecaller(0)
	ctx := context.Background()

	require.NoError(t, b.Record(ctx, "scope-a", Turn{Role: "user", Content: "a"}))
	require.NoError(t, b.Record(ctx, "scope-b", Turn{Role: "user", Content: "b"}))

	got, err := b.Recall(ctx, "scope-a", "", RecallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "user: a", got)
}

func TestBufferRecaller_EmptyScopeReturnsEmpty(t *testing.T) {
	b := NewBufferRecaller(0)
	got, err := b.Recall(context.Background(), "unknown", "", RecallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
