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

// Package model defines the LLM provider boundary consumed by the turn
// orchestrator (§6 of SPEC_FULL.md). It is deliberately provider-agnostic:
// concrete implementations (llmprovider/anthropic, llmprovider/openai) are
// external collaborators injected into the orchestrator, never imported by
// the core packages.
//
// Aligned with the teacher's ADK-Go-derived design: a single GenerateContent
// method handles both streaming and non-streaming calls via iter.Seq2, with
// a terminal aggregated Response carrying the authoritative final text and
// usage (§4.8 critical contract: final text comes from the generator's
// return value, never from an intermediate marker chunk).
package model

import (
	"context"
	"iter"

	"github.com/agentos-run/turncore/tool"
)

// LLM is the interface every LLM provider adapter must satisfy.
type LLM interface {
	// Name returns the model identifier (e.g. "claude-sonnet-4-5").
	Name() string

	// Provider returns the provider family, used for model-specific
	// message formatting.
	Provider() string

	// GenerateContent produces one or more Responses for req.
	//
	// When stream is false, exactly one non-partial Response is yielded.
	// When stream is true, zero or more Partial=true delta Responses are
	// yielded, followed by exactly one Partial=false aggregated Response
	// carrying the full text and usage — this final value is authoritative
	// (§8 testable property: final response text equals the generator's
	// return value).
	GenerateContent(ctx context.Context, req *Request, stream bool) iter.Seq2[*Response, error]

	// Close releases resources held by the LLM client.
	Close() error
}

// Request contains the input for one LLM call.
type Request struct {
	Messages           []*Message
	Tools              []tool.Definition
	Config             *GenerateConfig
	SystemInstruction  string
}

// GenerateConfig controls generation behavior.
type GenerateConfig struct {
	Temperature          *float64
	MaxTokens            *int
	TopP                 *float64
	TopK                 *int
	StopSequences        []string
	ResponseMIMEType     string
	ResponseSchema       map[string]any
	ResponseSchemaStrict *bool
	Metadata             map[string]string
}

// Clone deep-copies a GenerateConfig so processor pipelines never share
// mutable state across concurrent turns.
func (c *GenerateConfig) Clone() *GenerateConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Temperature != nil {
		v := *c.Temperature
		clone.Temperature = &v
	}
	if c.MaxTokens != nil {
		v := *c.MaxTokens
		clone.MaxTokens = &v
	}
	if c.TopP != nil {
		v := *c.TopP
		clone.TopP = &v
	}
	if c.TopK != nil {
		v := *c.TopK
		clone.TopK = &v
	}
	if c.StopSequences != nil {
		clone.StopSequences = append([]string(nil), c.StopSequences...)
	}
	if c.ResponseSchemaStrict != nil {
		v := *c.ResponseSchemaStrict
		clone.ResponseSchemaStrict = &v
	}
	if c.Metadata != nil {
		clone.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Usage reports token accounting for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FinishReason indicates why generation stopped.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonError     FinishReason = "error"
)

// Response is one yielded value from GenerateContent.
type Response struct {
	// Text is the delta (Partial=true) or full (Partial=false) text.
	Text string

	// ToolCalls requested by the model, present on the final response of a
	// tool-calling turn.
	ToolCalls []tool.Call

	// Partial distinguishes streaming deltas from the terminal aggregated
	// value.
	Partial bool

	Usage        *Usage
	FinishReason FinishReason
}

// HasToolCalls reports whether the response requests tool invocations.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}
