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

// Package anthropic implements model.LLM on top of the official
// anthropic-sdk-go client. Aligned with the core model.LLM contract:
// one GenerateContent method handling both streaming and non-streaming
// calls, the terminal streamed Response carrying the SDK's own
// accumulated message as the authoritative text/tool-calls/usage.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentos-run/turncore/model"
	"github.com/agentos-run/turncore/tool"
)

const (
	defaultModel     = anthropic.ModelClaudeSonnet4_20250514
	defaultMaxTokens = 4096
	defaultTimeout   = 120 * time.Second
)

// Config configures the Anthropic client.
type Config struct {
	APIKey     string
	Model      string
	MaxTokens  int64
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client is an Anthropic implementation of model.LLM, wrapping the
// official anthropic-sdk-go client.
type Client struct {
	sdk       anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

var _ model.LLM = (*Client)(nil)

// New creates a new Anthropic client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	opts = append(opts, option.WithRequestTimeout(timeout))

	modelName := anthropic.Model(cfg.Model)
	if modelName == "" {
		modelName = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		sdk:       anthropic.NewClient(opts...),
		model:     modelName,
		maxTokens: maxTokens,
	}, nil
}

func (c *Client) Name() string     { return string(c.model) }
func (c *Client) Provider() string { return "anthropic" }
func (c *Client) Close() error     { return nil }

// GenerateContent implements model.LLM.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request, stream bool) iter.Seq2[*model.Response, error] {
	params := buildParams(c.model, c.maxTokens, req)

	if !stream {
		return func(yield func(*model.Response, error) bool) {
			msg, err := c.sdk.Messages.New(ctx, params)
			if err != nil {
				yield(nil, fmt.Errorf("anthropic: %w", err))
				return
			}
			yield(toResponse(msg), nil)
		}
	}

	return func(yield func(*model.Response, error) bool) {
		s := c.sdk.Messages.NewStreaming(ctx, params)
		acc := anthropic.Message{}

		for s.Next() {
			event := s.Current()
			if err := acc.Accumulate(event); err != nil {
				yield(nil, fmt.Errorf("anthropic: accumulate stream event: %w", err))
				return
			}

			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					if !yield(&model.Response{Text: text, Partial: true}, nil) {
						return
					}
				}
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, fmt.Errorf("anthropic: stream: %w", err))
			return
		}

		yield(toResponse(&acc), nil)
	}
}

// buildParams converts a model.Request into anthropic-sdk-go's request
// params.
func buildParams(modelName anthropic.Model, maxTokens int64, req *model.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     modelName,
		MaxTokens: maxTokens,
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}

	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		var blocks []anthropic.ContentBlockParamUnion
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case model.TextPart:
				blocks = append(blocks, anthropic.NewTextBlock(p.Text))
			case model.ToolCallPart:
				blocks = append(blocks, anthropic.NewToolUseBlock(p.Call.ID, p.Call.Args, p.Call.Name))
			case model.ToolResultPart:
				out := p.Result.Output
				if out == "" {
					out = p.Result.Error
				}
				if out == "" {
					out = "(no output)"
				}
				blocks = append(blocks, anthropic.NewToolResultBlock(p.CallID, out, !p.Result.Success))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == model.RoleAgent {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
		}
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{Properties: t.Parameters},
			},
		})
	}

	return params
}

// toResponse converts an accumulated anthropic.Message into the
// authoritative terminal model.Response (§4.8 critical contract).
func toResponse(msg *anthropic.Message) *model.Response {
	out := &model.Response{
		Partial: false,
		Usage: &model.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		FinishReason: mapStopReason(string(msg.StopReason)),
	}

	var text string
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			_ = json.Unmarshal(b.Input, &args)
			out.ToolCalls = append(out.ToolCalls, tool.Call{ID: b.ID, Name: b.Name, Args: args})
		}
	}
	out.Text = text
	return out
}

func mapStopReason(s string) model.FinishReason {
	switch s {
	case "tool_use":
		return model.FinishReasonToolCalls
	case "max_tokens":
		return model.FinishReasonLength
	default:
		return model.FinishReasonStop
	}
}
