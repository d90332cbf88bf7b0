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

import "time"

// ChunkType is the closed set of stream chunk kinds a turn can emit
// (§4.8). Grounded on the teacher's a2a.ChunkType (a2a/types.go), which
// uses the same "typed string enum tagging an interface{} payload"
// shape for its own streaming protocol; this set is specialized to the
// turn state machine's transitions instead of the teacher's generic
// task chunks.
type ChunkType string

const (
	ChunkTextDelta      ChunkType = "text_delta"
	ChunkToolCallStart  ChunkType = "tool_call_start"
	ChunkToolCallEnd    ChunkType = "tool_call_end"
	ChunkFinalResponse  ChunkType = "final_response"
	ChunkMetadataUpdate ChunkType = "metadata_update"
	ChunkError          ChunkType = "error"
	ChunkDone           ChunkType = "done"
)

// ErrorReason classifies a ChunkError payload.
type ErrorReason string

const (
	ErrorReasonPlanningFailed ErrorReason = "planning_failed"
	ErrorReasonToolFailed     ErrorReason = "tool_failed"
	ErrorReasonAbort          ErrorReason = "abort"
	ErrorReasonTimeout        ErrorReason = "timeout"
)

// StreamChunk is one element of the ChunkStream returned by
// OrchestrateTurn (§4.8).
type StreamChunk struct {
	Type      ChunkType
	Timestamp time.Time

	// Text carries ChunkTextDelta and ChunkFinalResponse content.
	Text string

	// ToolCallID/ToolName/ToolResult carry ChunkToolCallStart/End content.
	ToolCallID string
	ToolName   string
	ToolResult string
	ToolOK     bool

	// Metadata carries ChunkMetadataUpdate's payload (taskOutcome,
	// taskOutcomeKpi, taskOutcomeAlert, tenantRouting,
	// longTermMemoryRecall — §4.8).
	Metadata map[string]any

	// ErrorReason and ErrorMessage carry ChunkError content.
	ErrorReason  ErrorReason
	ErrorMessage string

	// Truncated marks a FINALIZE chunk produced by hitting
	// maxToolCallIterations rather than a natural model finish (§4.8).
	Truncated bool
}
