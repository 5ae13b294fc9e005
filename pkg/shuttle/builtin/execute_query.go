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

// Package builtin provides the fixed tool surface the agent can dispatch to:
// read-only query execution, documentation search, correction recording,
// and clarification requests.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teradata-labs/weft/pkg/fabric"
	"github.com/teradata-labs/weft/pkg/shuttle"
)

// ExecuteQueryTool runs a read-only SQL query against an execution backend.
// The backend's write guard validates every query before execution, so a
// rejected query surfaces here as a structured error, never as a mutation.
type ExecuteQueryTool struct {
	backend fabric.ExecutionBackend
}

// NewExecuteQueryTool creates an execute_query tool bound to a backend.
func NewExecuteQueryTool(backend fabric.ExecutionBackend) *ExecuteQueryTool {
	return &ExecuteQueryTool{backend: backend}
}

func (t *ExecuteQueryTool) Name() string {
	return "execute_query"
}

func (t *ExecuteQueryTool) Description() string {
	return `Executes a read-only SQL query against the connected database and returns rows.

Use this tool to answer questions about the data. Only SELECT-style queries
are accepted; any statement containing a write keyword is rejected before
execution. Zero rows is a valid result, not an error.`
}

func (t *ExecuteQueryTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for executing a read-only SQL query",
		map[string]*shuttle.JSONSchema{
			"query": shuttle.NewStringSchema("The SQL query to execute (SELECT only)"),
		},
		[]string{"query"},
	)
}

func (t *ExecuteQueryTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	query, ok := params["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return &shuttle.Result{
			Success: false,
			Error: &shuttle.Error{
				Code:       "INVALID_PARAMS",
				Message:    "query is required",
				Suggestion: "Provide a SQL SELECT statement in the 'query' parameter",
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	result, err := t.backend.ExecuteQuery(ctx, query)
	if err != nil {
		return &shuttle.Result{
			Success:         false,
			Error:           classifyQueryError(err),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	return &shuttle.Result{
		Success: true,
		Data:    result,
		Metadata: map[string]interface{}{
			"row_count": result.RowCount,
			"backend":   t.backend.Name(),
		},
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// classifyQueryError maps backend errors to structured tool errors.
// Syntax, missing-table, missing-column and timeout errors are retryable:
// the model can repair the query and try again. Guard rejections and
// permission errors are final for the candidate query.
func classifyQueryError(err error) *shuttle.Error {
	var rej *fabric.GuardRejection
	if errors.As(err, &rej) {
		return &shuttle.Error{
			Code:       "GUARD_REJECTED",
			Message:    rej.Error(),
			Retryable:  false,
			Suggestion: "Rewrite the query as a plain SELECT; write statements are never executed",
		}
	}

	var execErr *fabric.ExecutionError
	if errors.As(err, &execErr) {
		toolErr := &shuttle.Error{
			Code:    strings.ToUpper(string(execErr.Kind)),
			Message: execErr.Message,
		}
		switch execErr.Kind {
		case fabric.ErrKindSyntax:
			toolErr.Retryable = true
			toolErr.Suggestion = "Fix the SQL syntax and retry"
		case fabric.ErrKindTableNotFound:
			toolErr.Retryable = true
			toolErr.Suggestion = "Check the schema for the correct table name"
		case fabric.ErrKindColumnNotFound:
			toolErr.Retryable = true
			toolErr.Suggestion = "Check the schema for the correct column name"
		case fabric.ErrKindTimeout:
			toolErr.Retryable = true
			toolErr.Suggestion = "Narrow the query (add filters or limits) and retry"
		case fabric.ErrKindPermission:
			toolErr.Retryable = false
		default:
			toolErr.Retryable = true
		}
		return toolErr
	}

	return &shuttle.Error{
		Code:      "EXECUTION_FAILED",
		Message:   fmt.Sprintf("query execution failed: %v", err),
		Retryable: true,
	}
}
