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

// Package agent implements the reasoning/repair loop: given a question, it
// assembles context once, asks the model to propose one action per step,
// dispatches through the tool registry, and repairs failed queries within a
// bounded retry budget.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/weft/pkg/fabric"
	"github.com/teradata-labs/weft/pkg/llm"
	"github.com/teradata-labs/weft/pkg/memory"
	"github.com/teradata-labs/weft/pkg/shuttle"
	"github.com/teradata-labs/weft/pkg/shuttle/builtin"
)

// Config holds agent configuration.
type Config struct {
	// MaxRetries bounds repair-worthy failures per session: execution
	// errors, guard rejections, timeouts, and malformed proposals all
	// consume the same budget.
	MaxRetries int

	// MaxSteps bounds total recorded steps per session, covering doc
	// lookups and memory writes that do not consume the retry budget.
	MaxSteps int

	// LLMTimeout applies to each model call.
	LLMTimeout time.Duration

	// QueryTimeout applies to each query execution.
	QueryTimeout time.Duration

	// DocsDir is the documentation directory for search_docs.
	DocsDir string
}

// DefaultConfig returns the default agent configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		MaxSteps:     20,
		LLMTimeout:   60 * time.Second,
		QueryTimeout: 30 * time.Second,
		DocsDir:      "docs",
	}
}

// Agent drives sessions against one backend, one model provider, and one
// shared correction store. Safe for concurrent Run calls: per-session state
// lives in the Session, and the correction store serializes its own writes.
type Agent struct {
	backend  fabric.ExecutionBackend
	provider llm.Provider
	store    memory.Store
	tools    *shuttle.Registry
	config   *Config
	logger   *zap.Logger
}

// Option customizes an Agent.
type Option func(*Agent)

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(a *Agent) { a.config = cfg }
}

// WithLogger sets the agent logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// NewAgent creates an agent and registers the fixed tool surface.
func NewAgent(backend fabric.ExecutionBackend, provider llm.Provider, store memory.Store, opts ...Option) *Agent {
	a := &Agent{
		backend:  backend,
		provider: provider,
		store:    store,
		tools:    shuttle.NewRegistry(),
		config:   DefaultConfig(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.tools.Register(builtin.NewExecuteQueryTool(backend))
	a.tools.Register(builtin.NewSearchDocsTool(a.config.DocsDir))
	a.tools.Register(builtin.NewRecordCorrectionTool(store))
	a.tools.Register(builtin.NewRequestClarificationTool())

	return a
}

// OutcomeKind identifies how a session ended.
type OutcomeKind string

const (
	OutcomeAnswer        OutcomeKind = "answer"
	OutcomeClarification OutcomeKind = "clarification"
	OutcomeFailure       OutcomeKind = "failure"
)

// Outcome is the session result returned to the caller. Failures cover
// retry exhaustion and unexpected faults; they are results, not panics.
type Outcome struct {
	Kind          OutcomeKind
	Answer        string
	Clarification string
	FailureReason string
	Session       *Session
}

// Run processes one question to completion. Cancellation is honored between
// steps, never mid-tool-call; a canceled context returns ctx.Err().
func (a *Agent) Run(ctx context.Context, question string) (*Outcome, error) {
	session := NewSession(question)
	logger := a.logger.With(zap.String("session_id", session.ID))
	logger.Info("session started", zap.String("question", question))

	// Context is assembled once, before the first proposal. The loop never
	// re-fetches schema mid-session.
	richContext, err := a.backend.GetRichContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble context: %w", err)
	}
	corrections := a.store.Recall(question)
	if len(corrections) > 0 {
		logger.Debug("recalled corrections", zap.Int("count", len(corrections)))
	}

	messages := []llm.Message{
		{Role: "system", Content: buildSystemPrompt(richContext, corrections)},
		{Role: "user", Content: question},
	}

	zeroRowNudged := false

	for {
		// Cancellation check between steps.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(session.Steps) >= a.config.MaxSteps {
			return a.fail(session, logger, fmt.Sprintf("step limit of %d reached", a.config.MaxSteps)), nil
		}

		session.State = StateAwaitingProposal
		resp, err := a.propose(ctx, messages)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				// Model call timed out. Repairable: consume budget and retry
				// the same conversation.
				logger.Warn("model call timed out")
				if a.consumeBudget(session) {
					return a.failExhausted(session, logger), nil
				}
				continue
			}
			return a.fail(session, logger, fmt.Sprintf("model call failed: %v", err)), nil
		}

		action, err := DecodeAction(resp)
		if err != nil {
			// Proposal outside the fixed action set. Repairable.
			logger.Warn("malformed action", zap.Error(err))
			if a.consumeBudget(session) {
				return a.failExhausted(session, logger), nil
			}
			messages = append(messages,
				llm.Message{Role: "assistant", Content: resp.Content},
				llm.Message{Role: "user", Content: fmt.Sprintf(
					"Your last response was not a valid action (%v). Propose exactly one action using the available tools, or reply with a plain-text final answer.", err)},
			)
			continue
		}

		session.State = StateActionDispatched
		logger.Debug("action dispatched", zap.String("kind", string(action.Kind)))

		switch action.Kind {
		case ActionFinalize:
			session.State = StateFinalized
			logger.Info("session finalized", zap.Int("steps", len(session.Steps)))
			return &Outcome{Kind: OutcomeAnswer, Answer: action.Answer, Session: session}, nil

		case ActionClarify:
			session.AppendStep(StepClarification, action, action.Question, nil)
			session.State = StateClarificationRequested
			logger.Info("clarification requested")
			return &Outcome{Kind: OutcomeClarification, Clarification: action.Question, Session: session}, nil

		case ActionDocLookup:
			result, dispatchErr := a.tools.Dispatch(ctx, "search_docs", map[string]interface{}{
				"query": action.DocQuery,
			})
			obs := observationFromResult(result, dispatchErr)
			if dispatchErr == nil && result != nil && result.Success {
				if excerpts, ok := result.Data.([]string); ok {
					obs = renderDocExcerpts(excerpts)
				}
			}
			session.AppendStep(StepDocLookup, action, obs, dispatchErr)
			messages = appendToolExchange(messages, resp, action, obs)

		case ActionMemoryWrite:
			result, dispatchErr := a.tools.Dispatch(ctx, "record_correction", map[string]interface{}{
				"pattern": action.Pattern,
				"effect":  action.Effect,
			})
			obs := observationFromResult(result, dispatchErr)
			session.AppendStep(StepMemoryWrite, action, obs, dispatchErr)
			messages = appendToolExchange(messages, resp, action, obs)

		case ActionQuery:
			qctx, cancel := context.WithTimeout(ctx, a.config.QueryTimeout)
			result, dispatchErr := a.tools.Dispatch(qctx, "execute_query", map[string]interface{}{
				"query": action.Query,
			})
			cancel()

			if dispatchErr != nil || result == nil || !result.Success {
				obs := observationFromResult(result, dispatchErr)
				session.AppendStep(StepQueryAttempt, action, obs, errors.New(obs))
				logger.Warn("query attempt failed", zap.String("observation", obs))
				if a.consumeBudget(session) {
					return a.failExhausted(session, logger), nil
				}
				messages = appendToolExchange(messages, resp, action,
					obs+"\nPropose a corrected query addressing the stated cause.")
				continue
			}

			qr, ok := result.Data.(*fabric.QueryResult)
			if !ok {
				return a.fail(session, logger, "execute_query returned an unexpected result type"), nil
			}

			obs := renderQueryResult(qr)
			session.AppendStep(StepQueryAttempt, action, obs, nil)

			// Zero rows when the question implies existence usually means an
			// over-strict filter, not an empty dataset. Nudge one
			// reformulation before accepting the result; this does not
			// consume the retry budget.
			if qr.RowCount == 0 && !zeroRowNudged {
				zeroRowNudged = true
				obs += "\nZero rows may mean an over-strict filter (exact match on a value stored differently). " +
					"Consider loosening equality to LIKE, or listing candidate values for the filtered column. " +
					"If you are confident the result is genuinely empty, give a final answer saying so."
			}
			messages = appendToolExchange(messages, resp, action, obs)
		}
	}
}

// propose asks the provider for the next action, bounded by LLMTimeout.
func (a *Agent) propose(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	cctx, cancel := context.WithTimeout(ctx, a.config.LLMTimeout)
	defer cancel()
	return a.provider.Chat(cctx, messages, a.tools.ListTools())
}

// consumeBudget counts one repair-worthy failure and reports whether the
// budget is now exhausted.
func (a *Agent) consumeBudget(session *Session) bool {
	session.FailedAttempts++
	return session.FailedAttempts >= a.config.MaxRetries
}

func (a *Agent) failExhausted(session *Session, logger *zap.Logger) *Outcome {
	err := &RetryBudgetExhaustedError{Attempts: session.FailedAttempts}
	return a.fail(session, logger, err.Error())
}

func (a *Agent) fail(session *Session, logger *zap.Logger, reason string) *Outcome {
	session.State = StateFailed
	logger.Warn("session failed", zap.String("reason", reason))
	return &Outcome{Kind: OutcomeFailure, FailureReason: reason, Session: session}
}

// appendToolExchange records the assistant's tool call and its observation
// in the conversation history.
func appendToolExchange(messages []llm.Message, resp *llm.Response, action *Action, observation string) []llm.Message {
	return append(messages,
		llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls},
		llm.Message{Role: "tool", ToolUseID: action.ToolUseID, Content: observation},
	)
}

// observationFromResult flattens a tool result or dispatch error into text.
func observationFromResult(result *shuttle.Result, err error) string {
	if err != nil {
		return fmt.Sprintf("tool invocation failed: %v", err)
	}
	if result == nil {
		return "tool invocation returned no result"
	}
	if result.Error != nil {
		obs := fmt.Sprintf("%s: %s", result.Error.Code, result.Error.Message)
		if result.Error.Suggestion != "" {
			obs += " (" + result.Error.Suggestion + ")"
		}
		return obs
	}
	return fmt.Sprintf("%v", result.Data)
}
