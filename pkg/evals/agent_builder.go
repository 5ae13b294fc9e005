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
package evals

import (
	"context"
	"fmt"

	"github.com/teradata-labs/weft/pkg/agent"
)

// AgentQueryBuilder drives the full reasoning loop per golden case and
// extracts the candidate SQL from the session record: the last query
// attempt that executed without error.
type AgentQueryBuilder struct {
	agent *agent.Agent
}

// NewAgentQueryBuilder wraps an agent as a QueryBuilder.
func NewAgentQueryBuilder(a *agent.Agent) *AgentQueryBuilder {
	return &AgentQueryBuilder{agent: a}
}

func (b *AgentQueryBuilder) BuildQuery(ctx context.Context, question string) (string, error) {
	outcome, err := b.agent.Run(ctx, question)
	if err != nil {
		return "", fmt.Errorf("agent run failed: %w", err)
	}

	switch outcome.Kind {
	case agent.OutcomeAnswer:
		steps := outcome.Session.Steps
		for i := len(steps) - 1; i >= 0; i-- {
			step := steps[i]
			if step.Kind == agent.StepQueryAttempt && step.Err == "" && step.Action != nil {
				return step.Action.Query, nil
			}
		}
		return "", fmt.Errorf("session finalized without a successful query attempt")

	case agent.OutcomeClarification:
		return "", fmt.Errorf("agent requested clarification: %s", outcome.Clarification)

	default:
		return "", fmt.Errorf("agent failed: %s", outcome.FailureReason)
	}
}
