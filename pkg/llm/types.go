// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package llm defines the text-generation boundary. The agent depends only
// on the Provider interface so the loop's control flow is testable with a
// scripted provider and no network.
package llm

import (
	"context"

	"github.com/teradata-labs/weft/pkg/shuttle"
)

// ToolCall represents a tool invocation proposed by the model.
type ToolCall struct {
	// ID is a unique identifier for this tool call
	ID string

	// Name is the tool name
	Name string

	// Input contains the tool parameters
	Input map[string]interface{}
}

// Message represents a single message in the conversation.
type Message struct {
	// Role is the message sender (system, user, assistant, tool)
	Role string

	// Content is the message text
	Content string

	// ToolCalls contains tool invocations (if role is assistant)
	ToolCalls []ToolCall

	// ToolUseID matches a tool result to the tool_use block it answers
	// (if role is tool)
	ToolUseID string
}

// Usage tracks token usage.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Response represents a response from the model.
type Response struct {
	// Content is the text response (if no tool calls)
	Content string

	// ToolCalls contains requested tool executions
	ToolCalls []ToolCall

	// StopReason indicates why the model stopped
	StopReason string

	// Usage tracks token usage
	Usage Usage
}

// Provider is the pluggable text-generation backend.
type Provider interface {
	// Chat sends a conversation to the model and returns the response
	Chat(ctx context.Context, messages []Message, tools []shuttle.Tool) (*Response, error)

	// Name returns the provider name
	Name() string

	// Model returns the model identifier
	Model() string
}
