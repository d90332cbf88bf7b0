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

package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"

	"github.com/agentos-run/turncore/model"
	"github.com/agentos-run/turncore/tool"
)

func TestBuildParams_ConvertsTextAndSystemInstruction(t *testing.T) {
	req := &model.Request{
		SystemInstruction: "be terse",
		Messages:          []*model.Message{model.NewTextMessage(model.RoleUser, "hello")},
	}

	params := buildParams(defaultModel, defaultMaxTokens, req)

	assert.Equal(t, "be terse", params.System[0].Text)
	assert.Len(t, params.Messages, 1)
}

func TestBuildParams_ConvertsTools(t *testing.T) {
	req := &model.Request{
		Tools: []tool.Definition{{Name: "echo", Description: "echoes input"}},
	}

	params := buildParams(defaultModel, defaultMaxTokens, req)

	assert.Len(t, params.Tools, 1)
	assert.Equal(t, "echo", params.Tools[0].OfTool.Name)
}

func TestMapStopReason(t *testing.T) {
	assert.Equal(t, model.FinishReasonToolCalls, mapStopReason("tool_use"))
	assert.Equal(t, model.FinishReasonLength, mapStopReason("max_tokens"))
	assert.Equal(t, model.FinishReasonStop, mapStopReason("end_turn"))
}

func TestToResponse_AggregatesTextContent(t *testing.T) {
	msg := &anthropic.Message{
		StopReason: anthropic.StopReasonEndTurn,
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "hello"},
		},
	}

	resp := toResponse(msg)

	assert.Equal(t, "hello", resp.Text)
	assert.False(t, resp.Partial)
	assert.Equal(t, model.FinishReasonStop, resp.FinishReason)
}
