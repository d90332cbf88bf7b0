// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai implements model.LLM on top of the official
// openai-go client's Chat Completions API. Aligned with the core
// model.LLM contract: one GenerateContent method handling both
// streaming and non-streaming calls, with the SDK's own
// ChatCompletionAccumulator producing the terminal, authoritative
// Response.
package openai

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentos-run/turncore/model"
	"github.com/agentos-run/turncore/tool"
)

const (
	defaultModel     = openai.ChatModelGPT4o
	defaultMaxTokens = 4096
	defaultTimeout   = 120 * time.Second
)

// Config configures the OpenAI client.
type Config struct {
	APIKey     string
	Model      string
	MaxTokens  int64
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client is an OpenAI implementation of model.LLM, wrapping the
// official openai-go client.
type Client struct {
	sdk       openai.Client
	model     openai.ChatModel
	maxTokens int64
}

var _ model.LLM = (*Client)(nil)

// New creates a new OpenAI client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
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

	modelName := openai.ChatModel(cfg.Model)
	if modelName == "" {
		modelName = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		sdk:       openai.NewClient(opts...),
		model:     modelName,
		maxTokens: maxTokens,
	}, nil
}

func (c *Client) Name() string     { return string(c.model) }
func (c *Client) Provider() string { return "openai" }
func (c *Client) Close() error     { return nil }

// GenerateContent implements model.LLM.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request, stream bool) iter.Seq2[*model.Response, error] {
	params := buildParams(c.model, c.maxTokens, req)

	if !stream {
		return func(yield func(*model.Response, error) bool) {
			completion, err := c.sdk.Chat.Completions.New(ctx, params)
			if err != nil {
				yield(nil, fmt.Errorf("openai: %w", err))
				return
			}
			yield(toResponse(completion), nil)
		}
	}

	return func(yield func(*model.Response, error) bool) {
		s := c.sdk.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}

		for s.Next() {
			chunk := s.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 {
				if delta := chunk.Choices[0].Delta.Content; delta != "" {
					if !yield(&model.Response{Text: delta, Partial: true}, nil) {
						return
					}
				}
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, fmt.Errorf("openai: stream: %w", err))
			return
		}

		yield(toResponse(&acc.ChatCompletion), nil)
	}
}

// buildParams converts a model.Request into openai-go's request params.
func buildParams(modelName openai.ChatModel, maxTokens int64, req *model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:     modelName,
		MaxTokens: openai.Int(maxTokens),
	}

	if req.SystemInstruction != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.SystemInstruction))
	}

	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case model.TextPart:
				if msg.Role == model.RoleAgent {
					params.Messages = append(params.Messages, openai.AssistantMessage(p.Text))
				} else {
					params.Messages = append(params.Messages, openai.UserMessage(p.Text))
				}
			case model.ToolResultPart:
				out := p.Result.Output
				if out == "" {
					out = p.Result.Error
				}
				params.Messages = append(params.Messages, openai.ToolMessage(out, p.CallID))
			}
		}
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Parameters,
			},
		})
	}

	return params
}

// toResponse converts an accumulated ChatCompletion into the
// authoritative terminal model.Response.
func toResponse(completion *openai.ChatCompletion) *model.Response {
	out := &model.Response{
		Partial: false,
		Usage: &model.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	if len(completion.Choices) == 0 {
		out.FinishReason = model.FinishReasonStop
		return out
	}

	choice := completion.Choices[0]
	out.Text = choice.Message.Content
	out.FinishReason = mapFinishReason(choice.FinishReason)
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, tool.Call{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: parseArgs(tc.Function.Arguments),
		})
	}
	return out
}

func mapFinishReason(s string) model.FinishReason {
	switch s {
	case "tool_calls":
		return model.FinishReasonToolCalls
	case "length":
		return model.FinishReasonLength
	default:
		return model.FinishReasonStop
	}
}
