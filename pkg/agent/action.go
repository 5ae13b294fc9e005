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
package agent

import (
	"fmt"
	"strings"

	"github.com/teradata-labs/weft/pkg/llm"
)

// ActionKind identifies one variant of the closed action set.
type ActionKind string

const (
	// ActionQuery executes a read-only SQL query.
	ActionQuery ActionKind = "query"
	// ActionDocLookup searches the documentation directory.
	ActionDocLookup ActionKind = "doc_lookup"
	// ActionMemoryWrite records a correction.
	ActionMemoryWrite ActionKind = "memory_write"
	// ActionClarify ends the session with a question back to the user.
	ActionClarify ActionKind = "clarify"
	// ActionFinalize ends the session with a natural-language answer.
	ActionFinalize ActionKind = "finalize"
)

// Action is the decoded form of one model proposal. Exactly one variant's
// fields are populated, selected by Kind. Decoding happens once at the
// provider boundary; the loop never dispatches on raw tool-call strings.
type Action struct {
	Kind ActionKind

	// ToolUseID ties the action back to the provider's tool_use block so
	// the observation can be returned as a matching tool result.
	ToolUseID string

	// Query holds the SQL text for ActionQuery.
	Query string

	// DocQuery holds the search keywords for ActionDocLookup.
	DocQuery string

	// Pattern and Effect hold the correction for ActionMemoryWrite.
	Pattern string
	Effect  string

	// Question holds the clarification prompt for ActionClarify.
	Question string

	// Answer holds the final answer text for ActionFinalize.
	Answer string
}

// MalformedActionError means the model proposed something outside the fixed
// action set. It is repairable and counts against the retry budget.
type MalformedActionError struct {
	Reason string
}

func (e *MalformedActionError) Error() string {
	return fmt.Sprintf("malformed action: %s", e.Reason)
}

// DecodeAction maps a provider response onto the closed action set.
// A response with no tool calls and non-empty text is a finalize. A response
// with a recognized tool call becomes the matching variant. Anything else is
// a MalformedActionError.
func DecodeAction(resp *llm.Response) (*Action, error) {
	if len(resp.ToolCalls) == 0 {
		answer := strings.TrimSpace(resp.Content)
		if answer == "" {
			return nil, &MalformedActionError{Reason: "response contains neither a tool call nor answer text"}
		}
		return &Action{Kind: ActionFinalize, Answer: answer}, nil
	}

	// One action per step. Extra tool calls are a protocol violation, not
	// something to silently execute in sequence.
	if len(resp.ToolCalls) > 1 {
		return nil, &MalformedActionError{
			Reason: fmt.Sprintf("expected one tool call, got %d", len(resp.ToolCalls)),
		}
	}

	tc := resp.ToolCalls[0]
	switch tc.Name {
	case "execute_query":
		query := stringParam(tc.Input, "query")
		if query == "" {
			return nil, &MalformedActionError{Reason: "execute_query call is missing 'query'"}
		}
		return &Action{Kind: ActionQuery, ToolUseID: tc.ID, Query: query}, nil

	case "search_docs":
		q := stringParam(tc.Input, "query")
		if q == "" {
			return nil, &MalformedActionError{Reason: "search_docs call is missing 'query'"}
		}
		return &Action{Kind: ActionDocLookup, ToolUseID: tc.ID, DocQuery: q}, nil

	case "record_correction":
		pattern := stringParam(tc.Input, "pattern")
		effect := stringParam(tc.Input, "effect")
		if pattern == "" || effect == "" {
			return nil, &MalformedActionError{Reason: "record_correction call is missing 'pattern' or 'effect'"}
		}
		return &Action{Kind: ActionMemoryWrite, ToolUseID: tc.ID, Pattern: pattern, Effect: effect}, nil

	case "request_clarification":
		question := stringParam(tc.Input, "question")
		if question == "" {
			return nil, &MalformedActionError{Reason: "request_clarification call is missing 'question'"}
		}
		return &Action{Kind: ActionClarify, ToolUseID: tc.ID, Question: question}, nil

	default:
		return nil, &MalformedActionError{Reason: fmt.Sprintf("unknown tool %q", tc.Name)}
	}
}

func stringParam(input map[string]interface{}, key string) string {
	s, _ := input[key].(string)
	return strings.TrimSpace(s)
}
