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

package openai

import (
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"

	"github.com/agentos-run/turncore/model"
	"github.com/agentos-run/turncore/tool"
)

func TestBuildParams_ConvertsSystemAndUserMessages(t *testing.T) {
	req := &model.Request{
		SystemInstruction: "be terse",
		Messages:          []*model.Message{model.NewTextMessage(model.RoleUser, "hello")},
	}

	params := buildParams(defaultModel, defaultMaxTokens, req)

	assert.Len(t, params.Messages, 2)
}

func TestBuildParams_ConvertsTools(t *testing.T) {
	req := &model.Request{
		Tools: []tool.Definition{{Name: "echo", Description: "echoes input"}},
	}

	params := buildParams(defaultModel, defaultMaxTokens, req)

	assert.Len(t, params.Tools, 1)
	assert.Equal(t, "echo", params.Tools[0].Function.Name)
}

func TestParseArgs_EmptyStringYieldsNil(t *testing.T) {
	assert.Nil(t, parseArgs(""))
}

func TestParseArgs_DecodesJSON(t *testing.T) {
	args := parseArgs(`{"x": 1}`)
	assert.Equal(t, float64(1), args["x"])
}

func TestMapFinishReason(t *testing.T) {
	assert.Equal(t, model.FinishReasonToolCalls, mapFinishReason("tool_calls"))
	assert.Equal(t, model.FinishReasonLength, mapFinishReason("length"))
	assert.Equal(t, model.FinishReasonStop, mapFinishReason("stop"))
}

func TestToResponse_AggregatesChoice(t *testing.T) {
	completion := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{
				Message:      openai.ChatCompletionMessage{Content: "hi"},
				FinishReason: "stop",
			},
		},
	}

	resp := toResponse(completion)

	assert.Equal(t, "hi", resp.Text)
	assert.False(t, resp.Partial)
	assert.Equal(t, model.FinishReasonStop, resp.FinishReason)
}
