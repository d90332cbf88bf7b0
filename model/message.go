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

package model

import "github.com/agentos-run/turncore/tool"

// Role identifies the sender of a Message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Part is a single piece of message content. The closed set of concrete
// types below is the only legal Part payload; a boundary that receives an
// unrecognized shape from an external collaborator must reject it rather
// than forward it untyped (design note in §9 of SPEC_FULL.md).
type Part interface {
	isPart()
}

// TextPart is plain natural-language content.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// ToolCallPart carries one tool invocation requested by the model.
type ToolCallPart struct {
	Call tool.Call
}

func (ToolCallPart) isPart() {}

// ToolResultPart carries the result of a previously requested tool call.
type ToolResultPart struct {
	Result tool.Result
	CallID string
}

func (ToolResultPart) isPart() {}

// Message is one turn of conversation content.
type Message struct {
	Role  Role
	Parts []Part
}

// NewTextMessage builds a single-part text message.
func NewTextMessage(role Role, text string) *Message {
	return &Message{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all TextPart content in the message.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}
