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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/teradata-labs/weft/pkg/fabric"
)

const (
	// structuralWeight and resultWeight combine the two scores into the
	// composite. Structural stays at or above 0.3 so a missing required
	// clause alone can sink a composite below the pass threshold.
	structuralWeight = 0.4
	resultWeight     = 0.6

	// passThreshold is fixed, not configurable per case.
	passThreshold = 0.7
)

// Verdict is the scored outcome of one golden case.
type Verdict struct {
	StructuralScore float64 `json:"structural_score"`
	ResultScore     float64 `json:"result_score"`
	CompositeScore  float64 `json:"composite_score"`
	Passed          bool    `json:"passed"`
	Diagnostic      string  `json:"diagnostic,omitempty"`
}

// StructuralScore returns the fraction of required clauses present in the
// candidate SQL, matched case-insensitively. No required clauses scores 1.
func StructuralScore(candidateSQL string, mustInclude []string) (float64, []string) {
	if len(mustInclude) == 0 {
		return 1.0, nil
	}

	normalized := strings.ToLower(collapseWhitespace(candidateSQL))
	found := 0
	var missing []string
	for _, clause := range mustInclude {
		want := strings.ToLower(collapseWhitespace(clause))
		if strings.Contains(normalized, want) {
			found++
		} else {
			missing = append(missing, clause)
		}
	}

	return float64(found) / float64(len(mustInclude)), missing
}

// ResultScore compares the candidate's executed result against the expected
// one under a tolerant equivalence: currency strings normalize to numbers,
// and row order is ignored unless the check declares ordering.
func ResultScore(candidate, expected *fabric.QueryResult, check ResultCheck) (float64, string) {
	if candidate == nil {
		return 0, "candidate query produced no result"
	}
	if expected == nil {
		return 0, "expected query produced no result"
	}

	if check.MinRows > 0 && candidate.RowCount < check.MinRows {
		return 0, fmt.Sprintf("row count %d below required minimum %d", candidate.RowCount, check.MinRows)
	}

	candRows := normalizeRows(candidate)
	expRows := normalizeRows(expected)

	if check.Ordered {
		return compareOrdered(candRows, expRows, check.FirstN)
	}
	return compareUnordered(candRows, expRows)
}

// Score combines the structural and result components into a Verdict.
func Score(candidateSQL string, mustInclude []string, candidate, expected *fabric.QueryResult, check ResultCheck) Verdict {
	structural, missing := StructuralScore(candidateSQL, mustInclude)
	result, resultDiag := ResultScore(candidate, expected, check)

	composite := structuralWeight*structural + resultWeight*result

	var diags []string
	if len(missing) > 0 {
		diags = append(diags, fmt.Sprintf("missing required clauses: %s", strings.Join(missing, ", ")))
	}
	if resultDiag != "" {
		diags = append(diags, resultDiag)
	}

	return Verdict{
		StructuralScore: structural,
		ResultScore:     result,
		CompositeScore:  composite,
		Passed:          composite >= passThreshold,
		Diagnostic:      strings.Join(diags, "; "),
	}
}

// normalizeRows renders each row as a canonical fingerprint: column names
// sorted, values normalized (currency and numeric strings become numbers).
func normalizeRows(result *fabric.QueryResult) []string {
	rows := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, normalizeCell(row[k]))
		}
		rows = append(rows, strings.Join(parts, "\x1f"))
	}
	return rows
}

// normalizeCell canonicalizes a single value. Known lossy transforms are
// undone: "$85,292.00" and 85292.0 normalize to the same token.
func normalizeCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case int:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case int64:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case string:
		if f, ok := parseCurrency(val); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return strings.TrimSpace(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// parseCurrency converts strings like "$1,234.56", "1,234", or "85292.00"
// to a number. Plain text returns ok=false.
func parseCurrency(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "$")
	t = strings.ReplaceAll(t, ",", "")
	if t == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// compareUnordered scores two row multisets ignoring order: the fraction of
// expected rows matched by candidate rows.
func compareUnordered(candidate, expected []string) (float64, string) {
	if len(expected) == 0 && len(candidate) == 0 {
		return 1.0, ""
	}
	if len(expected) == 0 {
		return 0, fmt.Sprintf("expected zero rows, candidate returned %d", len(candidate))
	}

	pool := make(map[string]int, len(candidate))
	for _, row := range candidate {
		pool[row]++
	}

	matched := 0
	for _, row := range expected {
		if pool[row] > 0 {
			pool[row]--
			matched++
		}
	}

	score := float64(matched) / float64(len(expected))
	if matched < len(expected) || len(candidate) != len(expected) {
		return score, fmt.Sprintf("matched %d of %d expected rows (candidate returned %d)",
			matched, len(expected), len(candidate))
	}
	return score, ""
}

// compareOrdered scores rows positionally. firstN > 0 limits the
// comparison window.
func compareOrdered(candidate, expected []string, firstN int) (float64, string) {
	n := len(expected)
	if firstN > 0 && firstN < n {
		n = firstN
	}
	if n == 0 {
		if len(candidate) == 0 {
			return 1.0, ""
		}
		return 0, fmt.Sprintf("expected zero rows, candidate returned %d", len(candidate))
	}

	matched := 0
	for i := 0; i < n; i++ {
		if i < len(candidate) && candidate[i] == expected[i] {
			matched++
		}
	}

	score := float64(matched) / float64(n)
	if matched < n {
		return score, fmt.Sprintf("%d of first %d rows match positionally", matched, n)
	}
	return score, ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
