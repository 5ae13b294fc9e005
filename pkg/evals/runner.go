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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/weft/pkg/fabric"
)

// QueryBuilder produces a candidate SQL query for a golden case question.
// The full agent loop satisfies this through an adapter; unit-level scoring
// can supply queries directly.
type QueryBuilder interface {
	BuildQuery(ctx context.Context, question string) (string, error)
}

// QueryBuilderFunc adapts a function to the QueryBuilder interface.
type QueryBuilderFunc func(ctx context.Context, question string) (string, error)

func (f QueryBuilderFunc) BuildQuery(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// CaseResult pairs a golden case with its verdict.
type CaseResult struct {
	CaseName     string  `json:"case_name"`
	Question     string  `json:"question"`
	Difficulty   string  `json:"difficulty"`
	CandidateSQL string  `json:"candidate_sql"`
	ExpectedSQL  string  `json:"expected_sql"`
	Verdict      Verdict `json:"verdict"`
	DurationMs   int64   `json:"duration_ms"`
}

// Report aggregates verdicts for one evaluation run.
type Report struct {
	SuiteName string       `json:"suite_name"`
	RunAt     time.Time    `json:"run_at"`
	Total     int          `json:"total"`
	PassCount int          `json:"pass_count"`
	PassRate  float64      `json:"pass_rate"`
	Results   []CaseResult `json:"results"`
}

// Failed reports whether the run as a whole fails the CI gate.
// The gate is aggregate pass rate below 0.5, not any single case.
func (r *Report) Failed() bool {
	return r.PassRate < 0.5
}

// Runner executes golden cases against a backend and scores each candidate.
type Runner struct {
	backend    fabric.ExecutionBackend
	builder    QueryBuilder
	store      *Store
	workers    int
	variations bool
	logger     *zap.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithStore persists each report after the run.
func WithStore(store *Store) RunnerOption {
	return func(r *Runner) { r.store = store }
}

// WithWorkers sets the number of cases evaluated concurrently. The backend
// must be safe for concurrent reads; the database snapshot must not be
// mutated mid-run.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithVariations also evaluates each case's question variations. A variation
// marked should_pass: false inverts its verdict: the suite expects the
// rephrased question to miss. Off by default since every variation costs a
// builder call against the live agent.
func WithVariations() RunnerOption {
	return func(r *Runner) { r.variations = true }
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates an evaluation runner.
func NewRunner(backend fabric.ExecutionBackend, builder QueryBuilder, opts ...RunnerOption) *Runner {
	r := &Runner{
		backend: backend,
		builder: builder,
		workers: 1,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every golden case and aggregates a report. A single case's
// fault never aborts the batch: panics and builder errors are recorded as
// failing verdicts with a diagnostic, and the run continues.
func (r *Runner) Run(ctx context.Context, suiteName string, cases []GoldenCase) (*Report, error) {
	report := &Report{
		SuiteName: suiteName,
		RunAt:     time.Now(),
	}

	perCase := make([][]CaseResult, len(cases))
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for i := range cases {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			perCase[idx] = r.runCase(ctx, &cases[idx])
		}(i)
	}
	wg.Wait()

	for _, results := range perCase {
		report.Results = append(report.Results, results...)
	}
	report.Total = len(report.Results)

	for _, result := range report.Results {
		if result.Verdict.Passed {
			report.PassCount++
		}
	}
	if report.Total > 0 {
		report.PassRate = float64(report.PassCount) / float64(report.Total)
	}

	r.logger.Info("evaluation run complete",
		zap.String("suite", suiteName),
		zap.Int("total", report.Total),
		zap.Int("passed", report.PassCount),
		zap.Float64("pass_rate", report.PassRate))

	if r.store != nil {
		if _, err := r.store.SaveReport(ctx, report); err != nil {
			return nil, fmt.Errorf("failed to persist report: %w", err)
		}
	}

	return report, nil
}

// runCase evaluates one golden case: the main question, plus (when the
// variation pass is on) each test-case variation against the same expected
// SQL, inverting the verdict for variations declared should_pass: false.
func (r *Runner) runCase(ctx context.Context, gc *GoldenCase) []CaseResult {
	results := []CaseResult{r.evaluate(ctx, gc.Name, gc.Question, gc)}
	if !r.variations {
		return results
	}

	for i, variation := range gc.TestCases {
		name := fmt.Sprintf("%s/var_%d", gc.Name, i+1)
		result := r.evaluate(ctx, name, variation.Question, gc)
		if !variation.ShouldPass {
			result.Verdict.Passed = !result.Verdict.Passed
			if result.Verdict.Diagnostic != "" {
				result.Verdict.Diagnostic += "; "
			}
			result.Verdict.Diagnostic += "variation expected to fail"
		}
		results = append(results, result)
	}
	return results
}

// evaluate scores one question against a case's expected SQL. Recovered
// panics become failing verdicts so a single bad case cannot take down the
// batch.
func (r *Runner) evaluate(ctx context.Context, name, question string, gc *GoldenCase) (result CaseResult) {
	start := time.Now()
	result = CaseResult{
		CaseName:    name,
		Question:    question,
		Difficulty:  gc.Difficulty,
		ExpectedSQL: gc.ExpectedSQL,
	}
	defer func() {
		if rec := recover(); rec != nil {
			result.Verdict = Verdict{
				Passed:     false,
				Diagnostic: fmt.Sprintf("case panicked: %v", rec),
			}
		}
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	candidateSQL, err := r.builder.BuildQuery(ctx, question)
	if err != nil {
		result.Verdict = Verdict{
			Passed:     false,
			Diagnostic: fmt.Sprintf("failed to obtain candidate query: %v", err),
		}
		return result
	}
	result.CandidateSQL = candidateSQL

	candidateResult, candErr := r.backend.ExecuteQuery(ctx, candidateSQL)
	expectedResult, expErr := r.backend.ExecuteQuery(ctx, gc.ExpectedSQL)

	if expErr != nil {
		result.Verdict = Verdict{
			Passed:     false,
			Diagnostic: fmt.Sprintf("expected SQL failed to execute: %v", expErr),
		}
		return result
	}
	if candErr != nil {
		// Structural score still applies; the result component is zero.
		structural, _ := StructuralScore(candidateSQL, gc.SuccessCriteria.MustInclude)
		composite := structuralWeight * structural
		result.Verdict = Verdict{
			StructuralScore: structural,
			CompositeScore:  composite,
			Passed:          composite >= passThreshold,
			Diagnostic:      fmt.Sprintf("candidate SQL failed to execute: %v", candErr),
		}
		return result
	}

	result.Verdict = Score(candidateSQL, gc.SuccessCriteria.MustInclude,
		candidateResult, expectedResult, gc.SuccessCriteria.ResultCheck)

	if !result.Verdict.Passed && result.Verdict.Diagnostic != "" {
		result.Verdict.Diagnostic += fmt.Sprintf("; sql similarity %.2f", SQLSimilarity(gc.ExpectedSQL, candidateSQL))
	}

	r.logger.Debug("case evaluated",
		zap.String("case", name),
		zap.Bool("passed", result.Verdict.Passed),
		zap.Float64("composite", result.Verdict.CompositeScore))

	return result
}
