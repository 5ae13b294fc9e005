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
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/weft/pkg/agent"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a natural-language question against the database",
	Long: `Ask runs the reasoning loop against the configured database: the model
proposes SQL, the write guard screens it, and failed attempts are repaired
until an answer is produced or the retry budget runs out.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	a, backend, err := newAgent(ctx, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	outcome, err := a.Run(ctx, question)
	if err != nil {
		return fmt.Errorf("session failed: %w", err)
	}

	switch outcome.Kind {
	case agent.OutcomeAnswer:
		fmt.Println(outcome.Answer)
	case agent.OutcomeClarification:
		fmt.Printf("Clarification needed: %s\n", outcome.Clarification)
	case agent.OutcomeFailure:
		logger.Warn("session ended without an answer",
			zap.String("reason", outcome.FailureReason),
			zap.Int("steps", len(outcome.Session.Steps)))
		return fmt.Errorf("no answer: %s", outcome.FailureReason)
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		printSessionTrace(outcome.Session)
	}
	return nil
}

func printSessionTrace(s *agent.Session) {
	fmt.Printf("\nSession %s (%d steps, %d failed attempts)\n", s.ID, len(s.Steps), s.FailedAttempts)
	for i, step := range s.Steps {
		fmt.Printf("  %d. [%s]", i+1, step.Kind)
		if step.Action != nil && step.Action.Query != "" {
			fmt.Printf(" %s", step.Action.Query)
		}
		if step.Err != "" {
			fmt.Printf(" -- %s", step.Err)
		}
		fmt.Println()
	}
}

func init() {
	askCmd.Flags().BoolP("verbose", "v", false, "print the full session trace after the answer")
}
