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

package orchestrator

import (
	"context"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/agentos-run/turncore/adaptive"
	"github.com/agentos-run/turncore/model"
	"github.com/agentos-run/turncore/planner"
	"github.com/agentos-run/turncore/telemetry"
	"github.com/agentos-run/turncore/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM yields a scripted sequence of responses per call, advancing
// one script entry per GenerateContent invocation.
type fakeLLM struct {
	scripts [][]model.Response
	calls   int
}

func (f *fakeLLM) Name() string     { return "fake-model" }
func (f *fakeLLM) Provider() string { return "fake" }
func (f *fakeLLM) Close() error     { return nil }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.Request, stream bool) iter.Seq2[*model.Response, error] {
	idx := f.calls
	f.calls++
	return func(yield func(*model.Response, error) bool) {
		if idx >= len(f.scripts) {
			yield(nil, fmt.Errorf("fakeLLM: no script for call %d", idx))
			return
		}
		for _, r := range f.scripts[idx] {
			r := r
			if !yield(&r, nil) {
				return
			}
		}
	}
}

type fakeTool struct {
	name   string
	output string
	fail   bool
	calls  int
	schema map[string]any
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake tool" }
func (f *fakeTool) Schema() map[string]any      { return f.schema }
func (f *fakeTool) HasSideEffects() bool        { return false }
func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	f.calls++
	if f.fail {
		return tool.Result{Success: false, Error: "boom"}, nil
	}
	return tool.Result{Success: true, Output: f.output}, nil
}

func basePlanner() *planner.Planner {
	return planner.New(planner.Config{
		ToolFailureMode:           planner.FailOpen,
		ToolSelectionMode:         planner.SelectAll,
		EnableCapabilityDiscovery: false,
	}, nil)
}

func drain(ch <-chan StreamChunk) []StreamChunk {
	var chunks []StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

func TestOrchestrateTurn_HappyPath_SingleGeneration(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{
			{Text: "Hel", Partial: true},
			{Text: "lo!", Partial: true},
			{Text: "Hello!", Partial: false, FinishReason: model.FinishReasonStop},
		},
	}}

	orch := New(Config{}, basePlanner(), nil, llm, nil, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c1", UserMessage: "hi"}))

	var sawFinal bool
	for _, c := range chunks {
		if c.Type == ChunkFinalResponse {
			sawFinal = true
			assert.Equal(t, "Hello!", c.Text)
		}
	}
	assert.True(t, sawFinal)
	assert.Equal(t, ChunkDone, chunks[len(chunks)-1].Type)
}

func TestOrchestrateTurn_ToolCallRoundTrip(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{
			{
				Partial:      false,
				FinishReason: model.FinishReasonToolCalls,
				ToolCalls:    []tool.Call{{ID: "call-1", Name: "echo", Args: map[string]any{"x": 1}}},
			},
		},
		{
			{Text: "done", Partial: false, FinishReason: model.FinishReasonStop},
		},
	}}
	et := &fakeTool{name: "echo", output: "echoed"}

	orch := New(Config{}, basePlanner(), nil, llm, []tool.Tool{et}, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c2", UserMessage: "use echo"}))

	assert.Equal(t, 1, et.calls)
	var sawStart, sawEnd, sawFinal bool
	for _, c := range chunks {
		switch c.Type {
		case ChunkToolCallStart:
			sawStart = true
		case ChunkToolCallEnd:
			sawEnd = true
			assert.True(t, c.ToolOK)
		case ChunkFinalResponse:
			sawFinal = true
			assert.Equal(t, "done", c.Text)
		}
	}
	assert.True(t, sawStart && sawEnd && sawFinal)
}

func TestOrchestrateTurn_IterationBudget_Truncates(t *testing.T) {
	loop := model.Response{
		Partial:      false,
		FinishReason: model.FinishReasonToolCalls,
		ToolCalls:    []tool.Call{{ID: "call-1", Name: "echo"}},
		Text:         "still going",
	}
	scripts := make([][]model.Response, 10)
	for i := range scripts {
		scripts[i] = []model.Response{loop}
	}
	llm := &fakeLLM{scripts: scripts}
	et := &fakeTool{name: "echo", output: "ok"}

	maxIterations := 2
	cfg := Config{MaxToolCallIterations: &maxIterations}
	orch := New(cfg, basePlanner(), nil, llm, []tool.Tool{et}, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c3", UserMessage: "loop"}))

	final := chunks[len(chunks)-2]
	require.Equal(t, ChunkFinalResponse, final.Type)
	assert.True(t, final.Truncated)
}

func TestOrchestrateTurn_ZeroIterationBudget_SkipsToolCalls(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{
			{
				Partial:      false,
				FinishReason: model.FinishReasonToolCalls,
				ToolCalls:    []tool.Call{{ID: "call-1", Name: "echo"}},
				Text:         "would call a tool",
			},
		},
	}}
	et := &fakeTool{name: "echo", output: "ok"}

	zero := 0
	orch := New(Config{MaxToolCallIterations: &zero}, basePlanner(), nil, llm, []tool.Tool{et}, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c3b", UserMessage: "loop"}))

	assert.Equal(t, 0, et.calls)
	final := chunks[len(chunks)-2]
	require.Equal(t, ChunkFinalResponse, final.Type)
	assert.True(t, final.Truncated)
}

func TestOrchestrateTurn_ToolArgsFailSchema_EmitsValidationError(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{
			{
				Partial:      false,
				FinishReason: model.FinishReasonToolCalls,
				ToolCalls:    []tool.Call{{ID: "call-1", Name: "echo", Args: map[string]any{}}},
			},
		},
	}}
	et := &fakeTool{
		name:   "echo",
		output: "echoed",
		schema: map[string]any{
			"type":     "object",
			"required": []any{"x"},
			"properties": map[string]any{
				"x": map[string]any{"type": "string"},
			},
		},
	}

	p := planner.New(planner.Config{ToolFailureMode: planner.FailClosed, ToolSelectionMode: planner.SelectAll}, nil)
	orch := New(Config{}, p, nil, llm, []tool.Tool{et}, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c3c", UserMessage: "use echo"}))

	assert.Equal(t, 0, et.calls, "Execute must not run when args fail schema validation")

	var sawError bool
	for _, c := range chunks {
		if c.Type == ChunkError {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestOrchestrateTurn_FailClosedToolError_EmitsError(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{
			{
				Partial:      false,
				FinishReason: model.FinishReasonToolCalls,
				ToolCalls:    []tool.Call{{ID: "call-1", Name: "echo"}},
			},
		},
	}}
	et := &fakeTool{name: "echo", fail: true}

	p := planner.New(planner.Config{ToolFailureMode: planner.FailClosed, ToolSelectionMode: planner.SelectAll}, nil)
	orch := New(Config{}, p, nil, llm, []tool.Tool{et}, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c4", UserMessage: "fail"}))

	var sawError bool
	for _, c := range chunks {
		if c.Type == ChunkError {
			sawError = true
			assert.Equal(t, ErrorReasonToolFailed, c.ErrorReason)
		}
	}
	assert.True(t, sawError)
}

func TestOrchestrateTurn_FailOpenToolError_Recovers(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{
			{
				Partial:      false,
				FinishReason: model.FinishReasonToolCalls,
				ToolCalls:    []tool.Call{{ID: "call-1", Name: "echo"}},
			},
		},
		{
			{Text: "recovered", Partial: false, FinishReason: model.FinishReasonStop},
		},
	}}
	et := &fakeTool{name: "echo", fail: true}

	p := planner.New(planner.Config{ToolFailureMode: planner.FailOpen, ToolSelectionMode: planner.SelectAll}, nil)
	orch := New(Config{}, p, nil, llm, []tool.Tool{et}, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c5", UserMessage: "fail-open"}))

	var sawFinal bool
	for _, c := range chunks {
		if c.Type == ChunkFinalResponse {
			sawFinal = true
			assert.Equal(t, "recovered", c.Text)
		}
		assert.NotEqual(t, ChunkError, c.Type)
	}
	assert.True(t, sawFinal)
}

func TestOrchestrateTurn_TenantRouting_SubstitutesDefaultOrg(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{{Text: "ok", Partial: false, FinishReason: model.FinishReasonStop}},
	}}

	cfg := Config{TenantRoutingMode: "single_tenant", TenantRoutingDefaultOrgID: "org-default"}
	orch := New(cfg, basePlanner(), nil, llm, nil, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c6", UserMessage: "hi"}))

	var found bool
	for _, c := range chunks {
		if c.Type == ChunkMetadataUpdate {
			if tr, ok := c.Metadata["tenantRouting"].(map[string]any); ok {
				assert.Equal(t, "org-default", tr["substitutedOrganizationId"])
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestOrchestrateTurn_RecordsTelemetryOnFinalize(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{{Text: "ok", Partial: false, FinishReason: model.FinishReasonStop}},
	}}

	tr, err := telemetry.New(telemetry.Config{RollingWindowSize: 10, DecayAlpha: 0.8}, nil)
	require.NoError(t, err)

	orch := New(Config{}, basePlanner(), tr, llm, nil, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c7", UserMessage: "hi"}))

	var sawKpi bool
	for _, c := range chunks {
		if c.Type == ChunkMetadataUpdate {
			if _, ok := c.Metadata["taskOutcomeKpi"]; ok {
				sawKpi = true
			}
		}
	}
	assert.True(t, sawKpi)

	kpi := tr.Snapshot("global")
	assert.Equal(t, 1, kpi.SampleCount)
}

func TestOrchestrateTurn_CustomFlags_OverrideTaskOutcome(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{{Text: "ok", Partial: false, FinishReason: model.FinishReasonStop}},
	}}

	tr, err := telemetry.New(telemetry.Config{RollingWindowSize: 10, DecayAlpha: 0.8}, nil)
	require.NoError(t, err)

	orch := New(Config{}, basePlanner(), tr, llm, nil, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{
		ConversationID: "c9",
		UserMessage:    "hi",
		CustomFlags:    map[string]string{"taskOutcome": "failed", "taskOutcomeScore": "0.25"},
	}))

	var meta map[string]any
	for _, c := range chunks {
		if c.Type == ChunkMetadataUpdate {
			if v, ok := c.Metadata["taskOutcome"]; ok {
				meta = map[string]any{"taskOutcome": v}
			}
		}
	}
	require.NotNil(t, meta)
	assert.Equal(t, "failed", meta["taskOutcome"])

	kpi := tr.Snapshot("global")
	assert.Equal(t, 1, kpi.SampleCount)
}

func TestOrchestrateTurn_AdaptiveController_DegradesToolSelection(t *testing.T) {
	llm := &fakeLLM{scripts: [][]model.Response{
		{{Text: "ok", Partial: false, FinishReason: model.FinishReasonStop}},
	}}

	tr, err := telemetry.New(telemetry.Config{RollingWindowSize: 10, DecayAlpha: 0.8}, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		tr.Record("global", telemetry.OutcomeEntry{Status: telemetry.Failed, Score: 0, Timestamp: time.Now()})
	}

	p := planner.New(planner.Config{ToolFailureMode: planner.FailOpen, ToolSelectionMode: planner.SelectDiscovered}, nil)
	cfg := Config{Adaptive: adaptive.Config{
		Enabled:                   true,
		MinSamples:                5,
		MinWeightedSuccessRate:    0.5,
		ForceAllToolsWhenDegraded: true,
	}}
	orch := New(cfg, p, tr, llm, nil, nil)
	chunks := drain(orch.OrchestrateTurn(context.Background(), Input{ConversationID: "c8", UserMessage: "hi"}))

	require.NotEmpty(t, chunks)
}
