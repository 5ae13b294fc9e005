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
// Package fabric defines the pluggable execution-backend layer: the contract
// between the agent and whatever data store answers its queries, plus the
// read-only guard every candidate query must clear before execution.
package fabric

import (
	"context"
)

// ExecutionBackend is the boundary the agent consumes. Implementations are
// SQL stores (SQLite, Postgres, Teradata); the agent never depends on a
// specific dialect beyond what the Guard's keyword list assumes.
type ExecutionBackend interface {
	// Name returns the backend identifier (e.g., "sqlite")
	Name() string

	// ExecuteQuery runs a read-only query. Store-reported failures are
	// returned as *ExecutionError so callers can classify and repair them;
	// a query that matches no rows returns an empty result, not an error.
	ExecuteQuery(ctx context.Context, query string) (*QueryResult, error)

	// GetSchema retrieves the schema description for one table.
	GetSchema(ctx context.Context, table string) (*Schema, error)

	// GetRichContext returns the full prompt context for the dataset:
	// every table's schema, sample rows, and any curated notes.
	GetRichContext(ctx context.Context) (string, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// QueryResult is the outcome of a successful query execution.
// Never mutated after creation.
type QueryResult struct {
	// Columns in result order
	Columns []Column

	// Rows as column→value mappings
	Rows []map[string]interface{}

	// RowCount is len(Rows), kept for callers that discard Rows
	RowCount int

	// Stats tracks execution metrics
	Stats ExecutionStats
}

// Column describes one result column.
type Column struct {
	Name string
	Type string
}

// ExecutionStats tracks execution metrics.
type ExecutionStats struct {
	DurationMs int64
}

// Schema describes a table.
type Schema struct {
	Name   string
	Fields []Field
}

// Field describes one column of a table schema.
type Field struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
}

// Describe renders the schema in the flat text form injected into prompts.
func (s *Schema) Describe() string {
	out := "Table: " + s.Name + "\n"
	for _, f := range s.Fields {
		out += "  - " + f.Name + " (" + f.Type + ")\n"
	}
	return out
}
