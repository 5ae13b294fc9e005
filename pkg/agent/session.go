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
	"time"

	"github.com/google/uuid"
)

// State is the loop's position in its state machine.
type State string

const (
	StateAwaitingProposal       State = "awaiting_proposal"
	StateActionDispatched       State = "action_dispatched"
	StateFinalized              State = "finalized"
	StateClarificationRequested State = "clarification_requested"
	StateFailed                 State = "failed"
)

// StepKind tags what a recorded step did.
type StepKind string

const (
	StepQueryAttempt  StepKind = "query_attempt"
	StepDocLookup     StepKind = "doc_lookup"
	StepMemoryWrite   StepKind = "memory_write"
	StepClarification StepKind = "clarification"
)

// Step is one propose/act/observe cycle. Steps are immutable once appended.
type Step struct {
	Kind        StepKind  `json:"kind"`
	Action      *Action   `json:"action"`
	Observation string    `json:"observation"`
	Err         string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Session records one question-to-answer interaction. It is mutated only by
// the loop that owns it; concurrent sessions share nothing except the
// correction store.
type Session struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Steps     []Step    `json:"steps"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`

	// FailedAttempts counts repair-worthy errors consumed so far:
	// execution errors, guard rejections, timeouts, malformed actions.
	FailedAttempts int `json:"failed_attempts"`
}

// NewSession creates a session for one question.
func NewSession(question string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Question:  question,
		State:     StateAwaitingProposal,
		CreatedAt: time.Now(),
	}
}

// AppendStep records a completed step. Append-only: existing steps are
// never modified.
func (s *Session) AppendStep(kind StepKind, action *Action, observation string, stepErr error) {
	step := Step{
		Kind:        kind,
		Action:      action,
		Observation: observation,
		Timestamp:   time.Now(),
	}
	if stepErr != nil {
		step.Err = stepErr.Error()
	}
	s.Steps = append(s.Steps, step)
}

// QueryAttempts counts recorded query-attempt steps.
func (s *Session) QueryAttempts() int {
	n := 0
	for _, step := range s.Steps {
		if step.Kind == StepQueryAttempt {
			n++
		}
	}
	return n
}
