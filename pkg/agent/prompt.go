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
package agent

import (
	"fmt"
	"strings"

	"github.com/teradata-labs/weft/pkg/fabric"
	"github.com/teradata-labs/weft/pkg/memory"
)

const systemPromptHeader = `You are a data analyst agent. Your job is to answer user questions by
querying a read-only SQL database.

Rules:
1. Propose exactly one action per turn, using the tools you are given.
2. Only SELECT queries are executed; any write statement is rejected.
3. Use LIKE for loose string matching when exact equality returns nothing.
4. Always LIMIT results to 100 rows unless the question asks otherwise.
5. If a query fails, read the error message and propose a corrected query.
6. When the question is ambiguous and the schema cannot resolve it, use
   request_clarification instead of guessing.
7. When you learn a data quirk worth remembering, record it with
   record_correction before finalizing.
8. When you have the rows you need, reply with a plain-text answer that
   references the data. Do not call a tool in that final reply.`

// maxObservationRows caps the rows rendered into the conversation so one
// large result cannot flood the context window.
const maxObservationRows = 20

// buildSystemPrompt assembles the full context bundle once, before the
// first proposal. The loop never re-fetches schema mid-session.
func buildSystemPrompt(richContext string, corrections []memory.Correction) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)

	if richContext != "" {
		b.WriteString("\n\n## Database context\n\n")
		b.WriteString(richContext)
	}

	if len(corrections) > 0 {
		// Most-recently-updated first: when two corrections conflict, the
		// later one appears first and wins at injection time.
		b.WriteString("\n\n## Known corrections\n\n")
		b.WriteString("Previously learned mappings that apply to questions like this one:\n")
		for _, c := range corrections {
			fmt.Fprintf(&b, "- When the question mentions %q: %s\n", c.Pattern, c.Effect)
		}
	}

	return b.String()
}

// renderQueryResult flattens an execution result into the textual
// observation returned to the model.
func renderQueryResult(result *fabric.QueryResult) string {
	if result.RowCount == 0 {
		return "The query executed successfully but returned zero rows."
	}

	names := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		names[i] = col.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Rows returned: %d\n", result.RowCount)
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(names, ", "))

	limit := len(result.Rows)
	if limit > maxObservationRows {
		limit = maxObservationRows
	}
	for _, row := range result.Rows[:limit] {
		values := make([]string, len(names))
		for i, name := range names {
			values[i] = fmt.Sprintf("%v", row[name])
		}
		b.WriteString(strings.Join(values, " | "))
		b.WriteString("\n")
	}
	if result.RowCount > limit {
		fmt.Fprintf(&b, "... (%d more rows)\n", result.RowCount-limit)
	}

	return b.String()
}

// renderDocExcerpts joins documentation excerpts into one observation.
func renderDocExcerpts(excerpts []string) string {
	if len(excerpts) == 0 {
		return "No relevant documentation found."
	}
	return strings.Join(excerpts, "\n")
}
