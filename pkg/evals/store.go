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
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store manages persistent storage of evaluation reports.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a report store at dbPath.
// Use ":memory:" for an in-memory database in tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS eval_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		suite_name TEXT NOT NULL,
		run_at TIMESTAMP NOT NULL,
		total INTEGER NOT NULL,
		pass_count INTEGER NOT NULL,
		pass_rate REAL NOT NULL,
		failed BOOLEAN NOT NULL,
		report_json TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_eval_reports_suite ON eval_reports(suite_name);
	CREATE INDEX IF NOT EXISTS idx_eval_reports_run_at ON eval_reports(run_at);

	CREATE TABLE IF NOT EXISTS eval_case_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL,
		case_name TEXT NOT NULL,
		difficulty TEXT,
		passed BOOLEAN NOT NULL,
		structural_score REAL NOT NULL,
		result_score REAL NOT NULL,
		composite_score REAL NOT NULL,
		diagnostic TEXT,
		candidate_sql TEXT,
		duration_ms INTEGER NOT NULL,

		FOREIGN KEY (report_id) REFERENCES eval_reports(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_eval_case_results_report ON eval_case_results(report_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveReport persists a report and its per-case verdicts, returning the
// report row ID.
func (s *Store) SaveReport(ctx context.Context, report *Report) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO eval_reports (suite_name, run_at, total, pass_count, pass_rate, failed, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.SuiteName, report.RunAt, report.Total, report.PassCount,
		report.PassRate, report.Failed(), string(reportJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	reportID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get report ID: %w", err)
	}

	for _, cr := range report.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO eval_case_results
				(report_id, case_name, difficulty, passed, structural_score, result_score, composite_score, diagnostic, candidate_sql, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			reportID, cr.CaseName, cr.Difficulty, cr.Verdict.Passed,
			cr.Verdict.StructuralScore, cr.Verdict.ResultScore, cr.Verdict.CompositeScore,
			cr.Verdict.Diagnostic, cr.CandidateSQL, cr.DurationMs)
		if err != nil {
			return 0, fmt.Errorf("failed to insert case result %s: %w", cr.CaseName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	return reportID, nil
}

// ReportSummary is one row of the report listing.
type ReportSummary struct {
	ID        int64
	SuiteName string
	RunAt     string
	Total     int
	PassCount int
	PassRate  float64
	Failed    bool
}

// ListReports returns recent reports, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, suite_name, run_at, total, pass_count, pass_rate, failed
		FROM eval_reports
		ORDER BY run_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []ReportSummary
	for rows.Next() {
		var sum ReportSummary
		if err := rows.Scan(&sum.ID, &sum.SuiteName, &sum.RunAt, &sum.Total,
			&sum.PassCount, &sum.PassRate, &sum.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// GetReport loads one full report by ID.
func (s *Store) GetReport(ctx context.Context, id int64) (*Report, error) {
	var reportJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json FROM eval_reports WHERE id = ?`, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %d: %w", id, err)
	}

	var report Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %d: %w", id, err)
	}

	return &report, nil
}
