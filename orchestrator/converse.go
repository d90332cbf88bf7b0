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

	"github.com/agentos-run/turncore/model"
	"github.com/agentos-run/turncore/planner"
	"github.com/agentos-run/turncore/tool"
)

// converse runs the GENERATE <-> TOOL_EXEC loop of §4.8: call the LLM,
// stream text deltas, execute any requested tool calls, feed their
// results back, and repeat until the model finishes or
// maxToolCallIterations is exhausted.
//
// It returns the final response text, an unrecoveredErr (set when a
// tool failed and the plan's policy is fail_closed), whether any tool
// call failed but was recovered from (fail_open), and whether the loop
// was truncated by the iteration budget.
func (o *Orchestrator) converse(ctx context.Context, in Input, plan planner.TurnPlan, out chan<- StreamChunk) (finalText string, unrecoveredErr error, recoveredToolErr bool, truncated bool) {
	messages := []*model.Message{model.NewTextMessage(model.RoleUser, in.UserMessage)}

	tools := o.toolDefinitions(plan)

	for iteration := 0; iteration < *o.cfg.MaxToolCallIterations; iteration++ {
		if ctx.Err() != nil {
			return finalText, nil, recoveredToolErr, truncated
		}

		req := &model.Request{
			Messages:          messages,
			Tools:             tools,
			SystemInstruction: in.SystemInstruction,
		}
		if plan.Capability.PromptContext != "" {
			req.SystemInstruction = in.SystemInstruction + "\n\n" + plan.Capability.PromptContext
		}

		var final *model.Response
		for resp, err := range o.llm.GenerateContent(ctx, req, true) {
			if err != nil {
				return finalText, err, recoveredToolErr, truncated
			}
			if resp.Partial {
				emit(out, StreamChunk{Type: ChunkTextDelta, Text: resp.Text})
				continue
			}
			final = resp
		}

		if final == nil {
			return finalText, nil, recoveredToolErr, truncated
		}
		finalText = final.Text

		if !final.HasToolCalls() {
			return finalText, nil, recoveredToolErr, truncated
		}

		messages = append(messages, &model.Message{Role: model.RoleAgent, Parts: toolCallParts(final.ToolCalls)})

		results, errs, anyFailed := o.execTools(ctx, final.ToolCalls, out)
		if anyFailed {
			if plan.Policy.ToolFailureMode == planner.FailClosed {
				idx := firstFailedIndex(results)
				if errs[idx] != nil {
					return finalText, errs[idx], recoveredToolErr, truncated
				}
				return finalText, toolExecutionError(final.ToolCalls[idx].Name, results[idx]), recoveredToolErr, truncated
			}
			recoveredToolErr = true
		}

		messages = append(messages, toolResultMessages(final.ToolCalls, results)...)
	}

	truncated = true
	return finalText, nil, recoveredToolErr, truncated
}

func (o *Orchestrator) toolDefinitions(plan planner.TurnPlan) []tool.Definition {
	if plan.Policy.ToolSelectionMode == planner.SelectDiscovered && len(plan.Capability.SelectedToolNames) > 0 {
		selected := make(map[string]struct{}, len(plan.Capability.SelectedToolNames))
		for _, name := range plan.Capability.SelectedToolNames {
			selected[name] = struct{}{}
		}
		var defs []tool.Definition
		for name, t := range o.tools {
			if _, ok := selected[name]; ok {
				defs = append(defs, tool.ToDefinition(t))
			}
		}
		return defs
	}

	defs := make([]tool.Definition, 0, len(o.tools))
	for _, t := range o.tools {
		defs = append(defs, tool.ToDefinition(t))
	}
	return defs
}

func toolCallParts(calls []tool.Call) []model.Part {
	parts := make([]model.Part, len(calls))
	for i, c := range calls {
		parts[i] = model.ToolCallPart{Call: c}
	}
	return parts
}

func toolResultMessages(calls []tool.Call, results []tool.Result) []*model.Message {
	msgs := make([]*model.Message, len(calls))
	for i, c := range calls {
		msgs[i] = &model.Message{
			Role:  model.RoleUser,
			Parts: []model.Part{model.ToolResultPart{Result: results[i], CallID: c.ID}},
		}
	}
	return msgs
}

func firstFailedIndex(results []tool.Result) int {
	for i, r := range results {
		if !r.Success {
			return i
		}
	}
	return 0
}

