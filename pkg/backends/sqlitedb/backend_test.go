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
package sqlitedb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/weft/pkg/fabric"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	b, err := NewBackend(context.Background(), Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	_, err = b.DB().Exec(`CREATE TABLE payroll (
		id INTEGER PRIMARY KEY,
		agency_name TEXT,
		base_salary TEXT,
		fiscal_year INTEGER
	)`)
	require.NoError(t, err)

	_, err = b.DB().Exec(`INSERT INTO payroll (agency_name, base_salary, fiscal_year) VALUES
		('POLICE DEPARTMENT', '$85,292.00', 2024),
		('FIRE DEPARTMENT', '$79,431.00', 2024),
		('POLICE DEPARTMENT', '$92,073.00', 2023)`)
	require.NoError(t, err)

	return b
}

func TestExecuteQuery_ReturnsRowsAndColumns(t *testing.T) {
	b := newTestBackend(t)

	result, err := b.ExecuteQuery(context.Background(),
		"SELECT agency_name, fiscal_year FROM payroll WHERE fiscal_year = 2024 ORDER BY agency_name")
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowCount)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "agency_name", result.Columns[0].Name)
	assert.Equal(t, "FIRE DEPARTMENT", result.Rows[0]["agency_name"])
}

func TestExecuteQuery_ZeroRowsIsNotAnError(t *testing.T) {
	b := newTestBackend(t)

	result, err := b.ExecuteQuery(context.Background(),
		"SELECT * FROM payroll WHERE agency_name = 'PARKS'")
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
	assert.Empty(t, result.Rows)
}

func TestExecuteQuery_WriteQueriesNeverReachTheStore(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.ExecuteQuery(context.Background(), "DELETE FROM payroll")
	require.Error(t, err)
	assert.True(t, fabric.IsGuardRejection(err))

	// The table is untouched.
	result, err := b.ExecuteQuery(context.Background(), "SELECT COUNT(*) AS n FROM payroll")
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Rows[0]["n"])
}

func TestExecuteQuery_ClassifiesExecutionErrors(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.ExecuteQuery(context.Background(), "SELECT missing_col FROM payroll")
	require.Error(t, err)

	var ee *fabric.ExecutionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, fabric.ErrKindColumnNotFound, ee.Kind)

	_, err = b.ExecuteQuery(context.Background(), "SELECT * FROM nonexistent")
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, fabric.ErrKindTableNotFound, ee.Kind)
}

func TestExecuteQuery_CapsRows(t *testing.T) {
	b, err := NewBackend(context.Background(), Config{Path: ":memory:", MaxRows: 2})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.DB().Exec(`CREATE TABLE t (n INTEGER)`)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = b.DB().Exec(`INSERT INTO t (n) VALUES (?)`, i)
		require.NoError(t, err)
	}

	result, err := b.ExecuteQuery(context.Background(), "SELECT n FROM t")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
}

func TestGetSchema(t *testing.T) {
	b := newTestBackend(t)

	schema, err := b.GetSchema(context.Background(), "payroll")
	require.NoError(t, err)
	require.Len(t, schema.Fields, 4)
	assert.Equal(t, "id", schema.Fields[0].Name)
	assert.True(t, schema.Fields[0].PrimaryKey)

	_, err = b.GetSchema(context.Background(), "ghosts")
	var ee *fabric.ExecutionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, fabric.ErrKindTableNotFound, ee.Kind)

	_, err = b.GetSchema(context.Background(), "x; DROP TABLE payroll")
	assert.Error(t, err)
}

func TestGetRichContext_IncludesSchemaSamplesAndNotes(t *testing.T) {
	notesPath := filepath.Join(t.TempDir(), "notes.yaml")
	notes := `tables:
  payroll:
    description: City payroll, one row per employee per fiscal year.
    columns:
      base_salary: TEXT with a leading '$' and comma separators.
`
	require.NoError(t, os.WriteFile(notesPath, []byte(notes), 0600))

	b, err := NewBackend(context.Background(), Config{Path: ":memory:", NotesPath: notesPath})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.DB().Exec(`CREATE TABLE payroll (agency_name TEXT, base_salary TEXT)`)
	require.NoError(t, err)
	_, err = b.DB().Exec(`INSERT INTO payroll VALUES ('POLICE DEPARTMENT', '$85,292.00')`)
	require.NoError(t, err)

	ctx, err := b.GetRichContext(context.Background())
	require.NoError(t, err)

	assert.Contains(t, ctx, "Table: payroll")
	assert.Contains(t, ctx, "agency_name (TEXT)")
	assert.Contains(t, ctx, "POLICE DEPARTMENT")
	assert.Contains(t, ctx, "leading '$'")
}
