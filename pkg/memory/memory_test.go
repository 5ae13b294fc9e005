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
package memory

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_IdempotentUnderExactPattern(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Record("police department", "use agency_name LIKE '%POLICE%'"))
	require.NoError(t, s.Record("Police  Department", "use agency_name LIKE '%POLICE DEPT%'"))

	all := s.All()
	require.Len(t, all, 1, "re-recording the same pattern must update, not append")
	assert.Equal(t, "use agency_name LIKE '%POLICE DEPT%'", all[0].Effect)
}

func TestRecord_DistinctPatternsAppend(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Record("police department", "effect one"))
	require.NoError(t, s.Record("fire department", "effect two"))

	assert.Len(t, s.All(), 2)
}

func TestRecall_RequiresTokenOverlap(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Record("police department", "use agency_name LIKE '%POLICE%'"))
	require.NoError(t, s.Record("overtime pay", "sum ot_paid after stripping '$'"))

	got := s.Recall("How many police officers are there?")
	require.Len(t, got, 1)
	assert.Equal(t, "police department", got[0].Pattern)

	// A question with no token overlap recalls nothing.
	assert.Empty(t, s.Recall("List all boroughs"))
}

func TestRecall_FuzzyMatchesPlurals(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Record("teacher salary", "salaries are TEXT with '$' prefix"))

	got := s.Recall("What are the teachers salaries?")
	require.Len(t, got, 1)
}

func TestRecall_MostRecentlyUpdatedFirst(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Record("police department", "old rule"))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Record("police overtime", "newer rule"))

	got := s.Recall("police pay")
	require.Len(t, got, 2)
	assert.Equal(t, "police overtime", got[0].Pattern,
		"later corrections must come first so they override at injection time")
}

func TestRecall_BumpsUseCount(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Record("police department", "rule"))
	s.Recall("police headcount")
	s.Recall("police headcount")

	assert.Equal(t, 2, s.All()[0].UseCount)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.json")

	s, err := NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Record("police department", "use LIKE"))
	require.NoError(t, s.Record("overtime", "strip '$' before casting"))

	// Reopen from disk.
	reopened, err := NewFileStore(path, nil)
	require.NoError(t, err)

	all := reopened.All()
	require.Len(t, all, 2)
	for _, c := range all {
		assert.NotEmpty(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.NoError(t, err)
	assert.Empty(t, s.All())
}

func TestFileStore_ConcurrentRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.json")
	s, err := NewFileStore(path, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Same pattern from every goroutine: last write wins, no duplicates.
			assert.NoError(t, s.Record("police department", "rule"))
		}()
	}
	wg.Wait()

	assert.Len(t, s.All(), 1)
}
