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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/weft/pkg/backends/sqlitedb"
)

func newEvalBackend(t *testing.T) *sqlitedb.Backend {
	t.Helper()

	backend, err := sqlitedb.NewBackend(context.Background(), sqlitedb.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	_, err = backend.DB().Exec(`
		CREATE TABLE payroll (
			agency_name TEXT,
			base_salary TEXT,
			fiscal_year INTEGER
		);
		INSERT INTO payroll VALUES
			('POLICE DEPARTMENT', '$85,292.00', 2024),
			('FIRE DEPARTMENT', '$92,110.00', 2024),
			('SANITATION', '$61,400.00', 2023);
	`)
	require.NoError(t, err)

	return backend
}

func TestRunnerPassRateGate(t *testing.T) {
	backend := newEvalBackend(t)

	// 10 cases: 4 produce the expected query, 6 produce a wrong one.
	cases := make([]GoldenCase, 10)
	for i := range cases {
		cases[i] = GoldenCase{
			Name:        fmt.Sprintf("case_%02d", i),
			Question:    fmt.Sprintf("question %d", i),
			ExpectedSQL: "SELECT agency_name FROM payroll WHERE fiscal_year = 2024",
			SuccessCriteria: SuccessCriteria{
				MustInclude: []string{"WHERE"},
				ResultCheck: ResultCheck{MinRows: 1},
			},
		}
	}

	builder := QueryBuilderFunc(func(ctx context.Context, question string) (string, error) {
		var n int
		_, err := fmt.Sscanf(question, "question %d", &n)
		require.NoError(t, err)
		if n < 4 {
			return "SELECT agency_name FROM payroll WHERE fiscal_year = 2024", nil
		}
		return "SELECT agency_name FROM payroll", nil
	})

	runner := NewRunner(backend, builder, WithWorkers(4))
	report, err := runner.Run(context.Background(), "payroll-suite", cases)
	require.NoError(t, err)

	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 4, report.PassCount)
	assert.InDelta(t, 0.4, report.PassRate, 1e-9)
	assert.True(t, report.Failed(), "pass rate 0.4 must fail the CI gate")
}

func TestRunnerHalfPassingIsNotFailed(t *testing.T) {
	backend := newEvalBackend(t)

	cases := make([]GoldenCase, 10)
	for i := range cases {
		cases[i] = GoldenCase{
			Name:        fmt.Sprintf("case_%02d", i),
			Question:    fmt.Sprintf("question %d", i),
			ExpectedSQL: "SELECT agency_name FROM payroll",
		}
	}

	builder := QueryBuilderFunc(func(ctx context.Context, question string) (string, error) {
		var n int
		_, _ = fmt.Sscanf(question, "question %d", &n)
		if n < 5 {
			return "SELECT agency_name FROM payroll", nil
		}
		return "SELECT agency_name FROM payroll WHERE 1 = 0", nil
	})

	runner := NewRunner(backend, builder)
	report, err := runner.Run(context.Background(), "payroll-suite", cases)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, report.PassRate, 1e-9)
	assert.False(t, report.Failed(), "pass rate exactly 0.5 passes the gate")
}

func TestRunnerVariationPassScoresEachVariation(t *testing.T) {
	backend := newEvalBackend(t)

	cases := []GoldenCase{{
		Name:        "agencies_2024",
		Question:    "agencies in 2024",
		ExpectedSQL: "SELECT agency_name FROM payroll WHERE fiscal_year = 2024",
		TestCases: []CaseVariation{
			{Question: "which agencies appear in FY2024", ShouldPass: true},
			{Question: "agencies across all years combined", ShouldPass: false},
		},
		SuccessCriteria: SuccessCriteria{
			MustInclude: []string{"fiscal_year = 2024"},
		},
	}}

	builder := QueryBuilderFunc(func(ctx context.Context, question string) (string, error) {
		if strings.Contains(question, "all years") {
			// Drops the year filter, so the required clause is missing.
			return "SELECT agency_name FROM payroll", nil
		}
		return "SELECT agency_name FROM payroll WHERE fiscal_year = 2024", nil
	})

	runner := NewRunner(backend, builder, WithVariations())
	report, err := runner.Run(context.Background(), "payroll-suite", cases)
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.Total)

	assert.Equal(t, "agencies_2024", report.Results[0].CaseName)
	assert.True(t, report.Results[0].Verdict.Passed)

	assert.Equal(t, "agencies_2024/var_1", report.Results[1].CaseName)
	assert.Equal(t, "which agencies appear in FY2024", report.Results[1].Question)
	assert.True(t, report.Results[1].Verdict.Passed)

	// The should_pass: false variation scores below the threshold, so its
	// inverted verdict passes.
	var2 := report.Results[2]
	assert.Equal(t, "agencies_2024/var_2", var2.CaseName)
	assert.Equal(t, 0.0, var2.Verdict.StructuralScore)
	assert.InDelta(t, 0.6, var2.Verdict.CompositeScore, 1e-9)
	assert.True(t, var2.Verdict.Passed)
	assert.Contains(t, var2.Verdict.Diagnostic, "variation expected to fail")

	assert.Equal(t, 3, report.PassCount)
	assert.InDelta(t, 1.0, report.PassRate, 1e-9)
}

func TestRunnerVariationsOffByDefault(t *testing.T) {
	backend := newEvalBackend(t)

	cases := []GoldenCase{{
		Name:        "agencies_2024",
		Question:    "agencies in 2024",
		ExpectedSQL: "SELECT agency_name FROM payroll WHERE fiscal_year = 2024",
		TestCases: []CaseVariation{
			{Question: "which agencies appear in FY2024", ShouldPass: true},
		},
	}}

	builder := QueryBuilderFunc(func(ctx context.Context, question string) (string, error) {
		return "SELECT agency_name FROM payroll WHERE fiscal_year = 2024", nil
	})

	runner := NewRunner(backend, builder)
	report, err := runner.Run(context.Background(), "payroll-suite", cases)
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, 1, report.Total)
}

func TestRunnerCurrencyTolerantComparison(t *testing.T) {
	backend := newEvalBackend(t)

	cases := []GoldenCase{{
		Name:        "avg_salary",
		Question:    "average police salary",
		ExpectedSQL: "SELECT CAST(REPLACE(REPLACE(base_salary, '$', ''), ',', '') AS REAL) AS salary FROM payroll WHERE agency_name = 'POLICE DEPARTMENT'",
	}}

	// The candidate returns the raw currency string; normalization makes
	// it equivalent to the numeric cast.
	builder := QueryBuilderFunc(func(ctx context.Context, question string) (string, error) {
		return "SELECT base_salary AS salary FROM payroll WHERE agency_name = 'POLICE DEPARTMENT'", nil
	})

	runner := NewRunner(backend, builder)
	report, err := runner.Run(context.Background(), "payroll-suite", cases)
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, 1.0, report.Results[0].Verdict.ResultScore)
	assert.True(t, report.Results[0].Verdict.Passed)
}

func TestRunnerSingleCaseFaultDoesNotAbortBatch(t *testing.T) {
	backend := newEvalBackend(t)

	cases := []GoldenCase{
		{Name: "panics", Question: "panic", ExpectedSQL: "SELECT agency_name FROM payroll"},
		{Name: "passes", Question: "ok", ExpectedSQL: "SELECT agency_name FROM payroll"},
	}

	builder := QueryBuilderFunc(func(ctx context.Context, question string) (string, error) {
		if question == "panic" {
			panic("builder exploded")
		}
		return "SELECT agency_name FROM payroll", nil
	})

	runner := NewRunner(backend, builder)
	report, err := runner.Run(context.Background(), "payroll-suite", cases)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].Verdict.Passed)
	assert.Contains(t, report.Results[0].Verdict.Diagnostic, "panicked")
	assert.True(t, report.Results[1].Verdict.Passed)
}

func TestRunnerCandidateExecutionErrorScoresStructuralOnly(t *testing.T) {
	backend := newEvalBackend(t)

	cases := []GoldenCase{{
		Name:        "bad_candidate",
		Question:    "broken",
		ExpectedSQL: "SELECT agency_name FROM payroll",
		SuccessCriteria: SuccessCriteria{
			MustInclude: []string{"SELECT"},
		},
	}}

	builder := QueryBuilderFunc(func(ctx context.Context, question string) (string, error) {
		return "SELECT missing_column FROM payroll", nil
	})

	runner := NewRunner(backend, builder)
	report, err := runner.Run(context.Background(), "payroll-suite", cases)
	require.NoError(t, err)

	verdict := report.Results[0].Verdict
	assert.Equal(t, 1.0, verdict.StructuralScore)
	assert.Equal(t, 0.0, verdict.ResultScore)
	assert.InDelta(t, 0.4, verdict.CompositeScore, 1e-9)
	assert.False(t, verdict.Passed)
	assert.Contains(t, verdict.Diagnostic, "failed to execute")
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	report := &Report{
		SuiteName: "payroll-suite",
		Total:     2,
		PassCount: 1,
		PassRate:  0.5,
		Results: []CaseResult{
			{CaseName: "a", Verdict: Verdict{Passed: true, CompositeScore: 1.0, StructuralScore: 1.0, ResultScore: 1.0}},
			{CaseName: "b", Verdict: Verdict{Passed: false, CompositeScore: 0.3, Diagnostic: "missing required clauses: GROUP BY"}},
		},
	}

	ctx := context.Background()
	id, err := store.SaveReport(ctx, report)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	summaries, err := store.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "payroll-suite", summaries[0].SuiteName)
	assert.InDelta(t, 0.5, summaries[0].PassRate, 1e-9)

	loaded, err := store.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Total)
	require.Len(t, loaded.Results, 2)
	assert.Equal(t, "a", loaded.Results[0].CaseName)

	_, err = store.GetReport(ctx, 999)
	assert.Error(t, err)
}

func TestLoadSuite(t *testing.T) {
	dir := t.TempDir()

	caseYAML := `question: "What is the average base salary by agency?"
description: "Aggregation over currency text"
difficulty: medium
tables_involved: [payroll]
columns_involved: [agency_name, base_salary]
expected_sql: |
  SELECT agency_name, AVG(CAST(REPLACE(REPLACE(base_salary, '$', ''), ',', '') AS REAL)) AS avg_salary
  FROM payroll GROUP BY agency_name
test_cases:
  - question: "average salary per agency"
    should_pass: true
success_criteria:
  must_include: ["GROUP BY", "AVG"]
  result_check:
    min_rows: 1
`
	require.NoError(t, writeFile(dir, "01_avg_salary.yml", caseYAML))
	require.NoError(t, writeFile(dir, "02_count.yaml", "question: q\nexpected_sql: SELECT COUNT(*) FROM payroll\n"))
	require.NoError(t, writeFile(dir, "ignored.txt", "not yaml"))

	cases, err := LoadSuite(dir)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	first := cases[0]
	assert.Equal(t, "01_avg_salary", first.Name)
	assert.Equal(t, "medium", first.Difficulty)
	assert.Equal(t, []string{"GROUP BY", "AVG"}, first.SuccessCriteria.MustInclude)
	assert.Equal(t, 1, first.SuccessCriteria.ResultCheck.MinRows)
	require.Len(t, first.TestCases, 1)
	assert.True(t, first.TestCases[0].ShouldPass)
	assert.True(t, strings.Contains(first.ExpectedSQL, "GROUP BY"))

	assert.Equal(t, "02_count", cases[1].Name)
	assert.Equal(t, "medium", cases[1].Difficulty)
}

func TestLoadCaseValidation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(dir, "no_sql.yml", "question: q\n"))

	_, err := LoadCase(dir + "/no_sql.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected_sql")
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}
