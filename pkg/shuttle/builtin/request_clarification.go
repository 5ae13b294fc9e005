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
package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/teradata-labs/weft/pkg/shuttle"
)

// RequestClarificationTool ends the session with a question back to the
// user. The agent loop treats a call to this tool as terminal; Execute only
// validates and echoes the prompt.
type RequestClarificationTool struct{}

// NewRequestClarificationTool creates a request_clarification tool.
func NewRequestClarificationTool() *RequestClarificationTool {
	return &RequestClarificationTool{}
}

func (t *RequestClarificationTool) Name() string {
	return "request_clarification"
}

func (t *RequestClarificationTool) Description() string {
	return `Asks the user a clarifying question and ends the session.

Use this tool when the question is ambiguous and the schema plus
documentation cannot resolve it, for example when "salary" could mean base
pay or total pay and the difference changes the answer.`
}

func (t *RequestClarificationTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for requesting clarification",
		map[string]*shuttle.JSONSchema{
			"question": shuttle.NewStringSchema("The clarifying question to put to the user"),
		},
		[]string{"question"},
	)
}

func (t *RequestClarificationTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	question, ok := params["question"].(string)
	if !ok || strings.TrimSpace(question) == "" {
		return &shuttle.Result{
			Success: false,
			Error: &shuttle.Error{
				Code:       "INVALID_PARAMS",
				Message:    "question is required",
				Suggestion: "State what you need the user to disambiguate",
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	return &shuttle.Result{
		Success:         true,
		Data:            question,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
