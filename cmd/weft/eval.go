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
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teradata-labs/weft/pkg/evals"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run and inspect golden-case evaluations",
}

var evalRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the golden suite against the live agent",
	Long: `Run loads every golden case from the suite directory, has the agent build
a query for each question, and scores the results against the expected SQL.
The process exits with status 2 when the aggregate pass rate drops below 0.5.`,
	RunE: runEval,
}

var evalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent evaluation reports",
	RunE:  runEvalList,
}

var evalShowCmd = &cobra.Command{
	Use:   "show [report-id]",
	Short: "Show a stored evaluation report in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvalShow,
}

func runEval(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	suiteDir := viper.GetString("evals.suite_dir")
	cases, err := evals.LoadSuite(suiteDir)
	if err != nil {
		return fmt.Errorf("failed to load suite from %s: %w", suiteDir, err)
	}

	a, backend, err := newAgent(ctx, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	store, err := evals.NewStore(viper.GetString("evals.report_db"))
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer store.Close()

	opts := []evals.RunnerOption{
		evals.WithStore(store),
		evals.WithWorkers(viper.GetInt("evals.workers")),
		evals.WithRunnerLogger(logger),
	}
	if variations, _ := cmd.Flags().GetBool("variations"); variations {
		opts = append(opts, evals.WithVariations())
	}
	runner := evals.NewRunner(backend, evals.NewAgentQueryBuilder(a), opts...)

	report, err := runner.Run(ctx, filepath.Base(suiteDir), cases)
	if err != nil {
		return fmt.Errorf("evaluation run failed: %w", err)
	}

	printReport(report)
	if report.Failed() {
		logger.Error("evaluation gate failed",
			zap.Float64("pass_rate", report.PassRate),
			zap.Int("total", report.Total))
		os.Exit(2)
	}
	return nil
}

func printReport(report *evals.Report) {
	fmt.Printf("Suite: %s  (%s)\n", report.SuiteName, report.RunAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Passed %d/%d (%.0f%%)\n\n", report.PassCount, report.Total, report.PassRate*100)
	for _, r := range report.Results {
		status := "PASS"
		if !r.Verdict.Passed {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %-40s composite=%.2f (structural=%.2f result=%.2f)\n",
			status, r.CaseName, r.Verdict.CompositeScore, r.Verdict.StructuralScore, r.Verdict.ResultScore)
		if !r.Verdict.Passed && r.Verdict.Diagnostic != "" {
			fmt.Printf("         %s\n", r.Verdict.Diagnostic)
		}
	}
}

func runEvalList(cmd *cobra.Command, args []string) error {
	store, err := evals.NewStore(viper.GetString("evals.report_db"))
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	summaries, err := store.ListReports(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No reports recorded.")
		return nil
	}
	fmt.Printf("%-5s %-20s %-20s %8s %10s %6s\n", "ID", "SUITE", "RUN AT", "PASSED", "PASS RATE", "GATE")
	for _, s := range summaries {
		gate := "ok"
		if s.Failed {
			gate = "FAIL"
		}
		fmt.Printf("%-5d %-20s %-20s %4d/%-3d %9.0f%% %6s\n",
			s.ID, s.SuiteName, s.RunAt, s.PassCount, s.Total, s.PassRate*100, gate)
	}
	return nil
}

func runEvalShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid report id %q", args[0])
	}

	store, err := evals.NewStore(viper.GetString("evals.report_db"))
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer store.Close()

	report, err := store.GetReport(cmd.Context(), id)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func init() {
	evalRunCmd.Flags().Bool("variations", false, "also evaluate each case's question variations (slower)")
	evalListCmd.Flags().Int("limit", 20, "maximum number of reports to list")
	evalCmd.AddCommand(evalRunCmd)
	evalCmd.AddCommand(evalListCmd)
	evalCmd.AddCommand(evalShowCmd)
}
