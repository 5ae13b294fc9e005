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
package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/teradata-labs/weft/pkg/shuttle"
)

// MaxDocExcerptBytes caps the content returned per document so one large
// file cannot crowd the model's context window.
const MaxDocExcerptBytes = 8 * 1024

// SearchDocsTool performs keyword search over a directory of markdown
// documentation files. Scoring is occurrence counting per query term;
// matching documents are returned highest score first.
type SearchDocsTool struct {
	docsDir string
}

// NewSearchDocsTool creates a search_docs tool rooted at docsDir.
func NewSearchDocsTool(docsDir string) *SearchDocsTool {
	return &SearchDocsTool{docsDir: docsDir}
}

func (t *SearchDocsTool) Name() string {
	return "search_docs"
}

func (t *SearchDocsTool) Description() string {
	return `Searches the project documentation for background on tables, columns,
business terms, and data quirks.

Use this tool when the question uses terminology that does not map directly
onto the schema, or when a query result looks suspicious and the data
dictionary might explain why.`
}

func (t *SearchDocsTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for searching documentation",
		map[string]*shuttle.JSONSchema{
			"query": shuttle.NewStringSchema("Keywords to search for (matched case-insensitively)"),
		},
		[]string{"query"},
	)
}

type scoredDoc struct {
	name    string
	content string
	score   int
}

func (t *SearchDocsTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	query, ok := params["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return &shuttle.Result{
			Success: false,
			Error: &shuttle.Error{
				Code:       "INVALID_PARAMS",
				Message:    "query is required",
				Suggestion: "Provide one or more keywords to search for",
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	docs, err := t.search(query)
	if err != nil {
		return &shuttle.Result{
			Success: false,
			Error: &shuttle.Error{
				Code:    "DOCS_UNAVAILABLE",
				Message: fmt.Sprintf("failed to read docs directory: %v", err),
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	excerpts := make([]string, 0, len(docs))
	for _, d := range docs {
		excerpts = append(excerpts, fmt.Sprintf("--- From %s ---\n%s", d.name, d.content))
	}

	return &shuttle.Result{
		Success: true,
		Data:    excerpts,
		Metadata: map[string]interface{}{
			"match_count": len(excerpts),
		},
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// search scores every *.md file under docsDir by counting query term
// occurrences. Zero-score documents are excluded.
func (t *SearchDocsTool) search(query string) ([]scoredDoc, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	paths, err := filepath.Glob(filepath.Join(t.docsDir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var docs []scoredDoc
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		lower := strings.ToLower(string(raw))
		score := 0
		for _, term := range terms {
			score += strings.Count(lower, term)
		}
		if score == 0 {
			continue
		}

		content := string(raw)
		if len(content) > MaxDocExcerptBytes {
			content = content[:MaxDocExcerptBytes] + "\n... (truncated)"
		}

		docs = append(docs, scoredDoc{
			name:    filepath.Base(path),
			content: content,
			score:   score,
		})
	}

	// Highest score first; ties break on filename for stable output.
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].score > docs[j].score
	})

	return docs, nil
}
