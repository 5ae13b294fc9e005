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
// Package sqlitedb implements fabric.ExecutionBackend over a SQLite file
// using the pure-Go modernc driver. Every query routes through the write
// guard before it reaches the database.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/teradata-labs/weft/pkg/fabric"
)

const (
	// DefaultMaxRows caps result sets so a runaway SELECT cannot blow up
	// the prompt context.
	DefaultMaxRows = 500

	// DefaultSampleRows is how many rows per table GetRichContext includes.
	DefaultSampleRows = 3
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds configuration for the SQLite backend.
type Config struct {
	// Path to the database file, or ":memory:"
	Path string

	// NotesPath optionally points to a YAML file of curated table notes
	// merged into GetRichContext
	NotesPath string

	// Guard validates queries before execution (default: fabric.NewGuard())
	Guard *fabric.Guard

	// MaxRows caps returned rows (default: DefaultMaxRows)
	MaxRows int

	// SampleRows per table in GetRichContext (default: DefaultSampleRows)
	SampleRows int

	// Logger for backend operations
	Logger *zap.Logger
}

// Backend implements fabric.ExecutionBackend for SQLite files.
type Backend struct {
	db     *sql.DB
	config Config
	guard  *fabric.Guard
	logger *zap.Logger
}

// NewBackend opens the database and verifies connectivity.
func NewBackend(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("Path is required")
	}
	if cfg.Guard == nil {
		cfg.Guard = fabric.NewGuard()
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.SampleRows == 0 {
		cfg.SampleRows = DefaultSampleRows
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Path, err)
	}

	cfg.Logger.Info("sqlite backend ready",
		zap.String("path", cfg.Path))

	return &Backend{
		db:     db,
		config: cfg,
		guard:  cfg.Guard,
		logger: cfg.Logger,
	}, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "sqlite"
}

// DB exposes the underlying handle for callers that need their own
// read-only statements (the evaluation runner does).
func (b *Backend) DB() *sql.DB {
	return b.db
}

// ExecuteQuery validates the query against the guard and runs it.
// Zero matching rows is a successful empty result, not an error.
func (b *Backend) ExecuteQuery(ctx context.Context, query string) (*fabric.QueryResult, error) {
	if err := b.guard.Check(query); err != nil {
		b.logger.Warn("query rejected by guard",
			zap.String("query", query),
			zap.Error(err))
		return nil, err
	}

	start := time.Now()
	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &fabric.ExecutionError{
				Kind:    fabric.ErrKindTimeout,
				Message: "query timed out: " + err.Error(),
			}
		}
		return nil, fabric.NewExecutionError(err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, fabric.NewExecutionError(err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fabric.NewExecutionError(err)
	}

	columns := make([]fabric.Column, len(colNames))
	for i, name := range colNames {
		columns[i] = fabric.Column{Name: name, Type: colTypes[i].DatabaseTypeName()}
	}

	var out []map[string]interface{}
	values := make([]interface{}, len(colNames))
	ptrs := make([]interface{}, len(colNames))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(out) >= b.config.MaxRows {
			b.logger.Debug("result truncated",
				zap.Int("max_rows", b.config.MaxRows))
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fabric.NewExecutionError(err)
		}
		row := make(map[string]interface{}, len(colNames))
		for i, name := range colNames {
			row[name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fabric.NewExecutionError(err)
	}

	return &fabric.QueryResult{
		Columns:  columns,
		Rows:     out,
		RowCount: len(out),
		Stats: fabric.ExecutionStats{
			DurationMs: time.Since(start).Milliseconds(),
		},
	}, nil
}

// GetSchema retrieves the schema for one table via PRAGMA table_info.
func (b *Backend) GetSchema(ctx context.Context, table string) (*fabric.Schema, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	rows, err := b.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fabric.NewExecutionError(err)
	}
	defer rows.Close()

	schema := &fabric.Schema{Name: table}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fabric.NewExecutionError(err)
		}
		schema.Fields = append(schema.Fields, fabric.Field{
			Name:       name,
			Type:       ctype,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fabric.NewExecutionError(err)
	}
	if len(schema.Fields) == 0 {
		return nil, &fabric.ExecutionError{
			Kind:    fabric.ErrKindTableNotFound,
			Message: fmt.Sprintf("no such table: %s", table),
		}
	}
	return schema, nil
}

// GetRichContext assembles the full prompt context: every table's schema,
// a few sample rows, and any curated notes from the notes file.
func (b *Backend) GetRichContext(ctx context.Context) (string, error) {
	tables, err := b.listTables(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("### Database Schema\n\n")
	for _, table := range tables {
		schema, err := b.GetSchema(ctx, table)
		if err != nil {
			return "", err
		}
		sb.WriteString(schema.Describe())
		sb.WriteString("\n")

		sample, err := b.sampleRows(ctx, table)
		if err != nil {
			return "", err
		}
		if sample != "" {
			sb.WriteString("Sample rows:\n")
			sb.WriteString(sample)
			sb.WriteString("\n")
		}
	}

	notes, err := loadNotes(b.config.NotesPath)
	if err != nil {
		b.logger.Warn("failed to load context notes",
			zap.String("path", b.config.NotesPath),
			zap.Error(err))
	} else if notes != "" {
		sb.WriteString("### Curated Notes\n\n")
		sb.WriteString(notes)
	}

	return sb.String(), nil
}

// Ping checks database connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close releases the database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) listTables(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fabric.NewExecutionError(err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fabric.NewExecutionError(err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (b *Backend) sampleRows(ctx context.Context, table string) (string, error) {
	result, err := b.ExecuteQuery(ctx,
		fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, b.config.SampleRows))
	if err != nil {
		return "", err
	}
	if result.RowCount == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, row := range result.Rows {
		parts := make([]string, 0, len(result.Columns))
		for _, col := range result.Columns {
			parts = append(parts, fmt.Sprintf("%s=%v", col.Name, row[col.Name]))
		}
		sb.WriteString("  " + strings.Join(parts, ", ") + "\n")
	}
	return sb.String(), nil
}

// normalizeValue converts driver byte slices to strings so rows serialize
// cleanly into prompts and comparisons.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

var _ fabric.ExecutionBackend = (*Backend)(nil)
