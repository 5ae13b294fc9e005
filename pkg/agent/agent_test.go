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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/weft/pkg/fabric"
	"github.com/teradata-labs/weft/pkg/llm"
	"github.com/teradata-labs/weft/pkg/memory"
)

// queryReply is one scripted backend response: a result or an error.
type queryReply struct {
	result *fabric.QueryResult
	err    error
}

// scriptedBackend replays queryReplies in order, one per ExecuteQuery call.
type scriptedBackend struct {
	replies []queryReply
	calls   int
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) ExecuteQuery(ctx context.Context, query string) (*fabric.QueryResult, error) {
	if b.calls >= len(b.replies) {
		return nil, &fabric.ExecutionError{Kind: fabric.ErrKindUnknown, Message: "scripted backend exhausted"}
	}
	reply := b.replies[b.calls]
	b.calls++
	return reply.result, reply.err
}

func (b *scriptedBackend) GetSchema(ctx context.Context, table string) (*fabric.Schema, error) {
	return nil, nil
}

func (b *scriptedBackend) GetRichContext(ctx context.Context) (string, error) {
	return "Table: payroll\n  - agency_name (TEXT)\n  - base_salary (TEXT)", nil
}

func (b *scriptedBackend) Ping(ctx context.Context) error { return nil }
func (b *scriptedBackend) Close() error                   { return nil }

func queryCall(id, sql string) *llm.Response {
	return &llm.Response{
		ToolCalls: []llm.ToolCall{
			{ID: id, Name: "execute_query", Input: map[string]interface{}{"query": sql}},
		},
		StopReason: "tool_use",
	}
}

func finalAnswer(text string) *llm.Response {
	return &llm.Response{Content: text, StopReason: "end_turn"}
}

func oneRow(agency string) *fabric.QueryResult {
	return &fabric.QueryResult{
		Columns:  []fabric.Column{{Name: "agency_name", Type: "TEXT"}},
		Rows:     []map[string]interface{}{{"agency_name": agency}},
		RowCount: 1,
	}
}

func newTestAgent(t *testing.T, backend fabric.ExecutionBackend, provider llm.Provider) *Agent {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DocsDir = t.TempDir()
	cfg.LLMTimeout = 5 * time.Second
	cfg.QueryTimeout = 5 * time.Second
	return NewAgent(backend, provider, memory.NewInMemoryStore(), WithConfig(cfg))
}

func TestRepairLoopRecoversFromSyntaxError(t *testing.T) {
	backend := &scriptedBackend{replies: []queryReply{
		{err: &fabric.ExecutionError{Kind: fabric.ErrKindSyntax, Message: `near "FORM": syntax error`}},
		{result: oneRow("POLICE DEPARTMENT")},
	}}
	provider := llm.NewScriptedProvider(
		queryCall("t1", "SELECT agency_name FORM payroll"),
		queryCall("t2", "SELECT agency_name FROM payroll"),
		finalAnswer("The agency is POLICE DEPARTMENT."),
	)

	agent := newTestAgent(t, backend, provider)
	outcome, err := agent.Run(context.Background(), "which agency is listed?")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswer, outcome.Kind)
	assert.Equal(t, "The agency is POLICE DEPARTMENT.", outcome.Answer)
	assert.Equal(t, StateFinalized, outcome.Session.State)
	assert.Equal(t, 2, outcome.Session.QueryAttempts())
	assert.Equal(t, 1, outcome.Session.FailedAttempts)
}

func TestAlwaysFailingQueryExhaustsRetryBudget(t *testing.T) {
	backend := &scriptedBackend{replies: []queryReply{
		{err: &fabric.ExecutionError{Kind: fabric.ErrKindColumnNotFound, Message: "no such column: salary"}},
		{err: &fabric.ExecutionError{Kind: fabric.ErrKindColumnNotFound, Message: "no such column: salary"}},
		{err: &fabric.ExecutionError{Kind: fabric.ErrKindColumnNotFound, Message: "no such column: salary"}},
	}}
	provider := llm.NewScriptedProvider(
		queryCall("t1", "SELECT salary FROM payroll"),
		queryCall("t2", "SELECT salary FROM payroll"),
		queryCall("t3", "SELECT salary FROM payroll"),
	)

	agent := newTestAgent(t, backend, provider)
	outcome, err := agent.Run(context.Background(), "what is the salary?")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailure, outcome.Kind)
	assert.Contains(t, outcome.FailureReason, "retry budget exhausted")
	assert.Equal(t, StateFailed, outcome.Session.State)
	assert.Equal(t, 3, outcome.Session.QueryAttempts())
	assert.Equal(t, 3, outcome.Session.FailedAttempts)
	// The loop must stop asking for proposals once the budget is gone.
	assert.Equal(t, 3, provider.Calls())
}

func TestGuardRejectionConsumesBudgetAndRepairs(t *testing.T) {
	backend := &scriptedBackend{replies: []queryReply{
		{err: &fabric.GuardRejection{Keyword: "DELETE", Query: "DELETE FROM payroll"}},
		{result: oneRow("FIRE DEPARTMENT")},
	}}
	provider := llm.NewScriptedProvider(
		queryCall("t1", "DELETE FROM payroll"),
		queryCall("t2", "SELECT agency_name FROM payroll"),
		finalAnswer("FIRE DEPARTMENT"),
	)

	agent := newTestAgent(t, backend, provider)
	outcome, err := agent.Run(context.Background(), "show me the agency")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswer, outcome.Kind)
	assert.Equal(t, 1, outcome.Session.FailedAttempts)
}

func TestMalformedActionCountsAgainstBudget(t *testing.T) {
	backend := &scriptedBackend{replies: []queryReply{
		{result: oneRow("POLICE DEPARTMENT")},
	}}
	provider := llm.NewScriptedProvider(
		&llm.Response{
			ToolCalls:  []llm.ToolCall{{ID: "t1", Name: "drop_database", Input: map[string]interface{}{}}},
			StopReason: "tool_use",
		},
		queryCall("t2", "SELECT agency_name FROM payroll"),
		finalAnswer("POLICE DEPARTMENT"),
	)

	agent := newTestAgent(t, backend, provider)
	outcome, err := agent.Run(context.Background(), "which agency?")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswer, outcome.Kind)
	assert.Equal(t, 1, outcome.Session.FailedAttempts)
	assert.Equal(t, 1, outcome.Session.QueryAttempts())
}

func TestClarificationTerminatesSession(t *testing.T) {
	provider := llm.NewScriptedProvider(
		&llm.Response{
			ToolCalls: []llm.ToolCall{{
				ID:   "t1",
				Name: "request_clarification",
				Input: map[string]interface{}{
					"question": "Do you mean base salary or total pay?",
				},
			}},
			StopReason: "tool_use",
		},
	)

	agent := newTestAgent(t, &scriptedBackend{}, provider)
	outcome, err := agent.Run(context.Background(), "what is the salary?")
	require.NoError(t, err)

	assert.Equal(t, OutcomeClarification, outcome.Kind)
	assert.Equal(t, "Do you mean base salary or total pay?", outcome.Clarification)
	assert.Equal(t, StateClarificationRequested, outcome.Session.State)
	require.Len(t, outcome.Session.Steps, 1)
	assert.Equal(t, StepClarification, outcome.Session.Steps[0].Kind)
}

func TestZeroRowsTriggersReformulationWithoutConsumingBudget(t *testing.T) {
	backend := &scriptedBackend{replies: []queryReply{
		{result: &fabric.QueryResult{Columns: []fabric.Column{{Name: "agency_name", Type: "TEXT"}}}},
		{result: oneRow("POLICE DEPARTMENT")},
	}}
	provider := llm.NewScriptedProvider(
		queryCall("t1", "SELECT agency_name FROM payroll WHERE agency_name = 'police'"),
		queryCall("t2", "SELECT agency_name FROM payroll WHERE agency_name LIKE '%POLICE%'"),
		finalAnswer("POLICE DEPARTMENT"),
	)

	agent := newTestAgent(t, backend, provider)
	outcome, err := agent.Run(context.Background(), "find the police agency")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswer, outcome.Kind)
	assert.Equal(t, 2, outcome.Session.QueryAttempts())
	assert.Equal(t, 0, outcome.Session.FailedAttempts)

	// The zero-row observation must carry the reformulation hint.
	require.Len(t, provider.AllInputs, 3)
	secondInput := provider.AllInputs[1]
	last := secondInput[len(secondInput)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Contains(t, last.Content, "LIKE")
}

func TestMemoryWriteStepRecordsCorrection(t *testing.T) {
	store := memory.NewInMemoryStore()
	provider := llm.NewScriptedProvider(
		&llm.Response{
			ToolCalls: []llm.ToolCall{{
				ID:   "t1",
				Name: "record_correction",
				Input: map[string]interface{}{
					"pattern": "police department",
					"effect":  "match agency_name = 'POLICE DEPARTMENT'",
				},
			}},
			StopReason: "tool_use",
		},
		finalAnswer("Noted."),
	)

	cfg := DefaultConfig()
	cfg.DocsDir = t.TempDir()
	agent := NewAgent(&scriptedBackend{}, provider, store, WithConfig(cfg))

	outcome, err := agent.Run(context.Background(), "police department means POLICE DEPARTMENT")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswer, outcome.Kind)
	require.Len(t, outcome.Session.Steps, 1)
	assert.Equal(t, StepMemoryWrite, outcome.Session.Steps[0].Kind)
	require.Len(t, store.All(), 1)
	assert.Equal(t, "police department", store.All()[0].Pattern)
}

func TestCancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := llm.NewScriptedProvider(finalAnswer("never reached"))
	agent := newTestAgent(t, &scriptedBackend{}, provider)

	_, err := agent.Run(ctx, "anything")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, provider.Calls())
}

func TestDecodeAction(t *testing.T) {
	t.Run("plain text is finalize", func(t *testing.T) {
		action, err := DecodeAction(&llm.Response{Content: "The answer is 42."})
		require.NoError(t, err)
		assert.Equal(t, ActionFinalize, action.Kind)
		assert.Equal(t, "The answer is 42.", action.Answer)
	})

	t.Run("empty response is malformed", func(t *testing.T) {
		_, err := DecodeAction(&llm.Response{})
		var malformed *MalformedActionError
		require.ErrorAs(t, err, &malformed)
	})

	t.Run("unknown tool is malformed", func(t *testing.T) {
		_, err := DecodeAction(&llm.Response{
			ToolCalls: []llm.ToolCall{{ID: "t1", Name: "mystery_tool"}},
		})
		var malformed *MalformedActionError
		require.ErrorAs(t, err, &malformed)
		assert.Contains(t, malformed.Reason, "mystery_tool")
	})

	t.Run("multiple tool calls are malformed", func(t *testing.T) {
		_, err := DecodeAction(&llm.Response{
			ToolCalls: []llm.ToolCall{
				{ID: "t1", Name: "execute_query", Input: map[string]interface{}{"query": "SELECT 1"}},
				{ID: "t2", Name: "execute_query", Input: map[string]interface{}{"query": "SELECT 2"}},
			},
		})
		var malformed *MalformedActionError
		require.ErrorAs(t, err, &malformed)
	})

	t.Run("query call decodes", func(t *testing.T) {
		action, err := DecodeAction(queryCall("t1", "SELECT 1"))
		require.NoError(t, err)
		assert.Equal(t, ActionQuery, action.Kind)
		assert.Equal(t, "SELECT 1", action.Query)
		assert.Equal(t, "t1", action.ToolUseID)
	})

	t.Run("missing query param is malformed", func(t *testing.T) {
		_, err := DecodeAction(&llm.Response{
			ToolCalls: []llm.ToolCall{{ID: "t1", Name: "execute_query", Input: map[string]interface{}{}}},
		})
		var malformed *MalformedActionError
		require.ErrorAs(t, err, &malformed)
	})
}
