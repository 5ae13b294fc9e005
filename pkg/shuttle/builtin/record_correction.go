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
	"strings"
	"time"

	"github.com/teradata-labs/weft/pkg/memory"
	"github.com/teradata-labs/weft/pkg/shuttle"
)

// RecordCorrectionTool persists a question-pattern correction so future
// sessions recall it before generating SQL. Recording the same pattern
// again updates the stored effect rather than duplicating the entry.
type RecordCorrectionTool struct {
	store memory.Store
}

// NewRecordCorrectionTool creates a record_correction tool backed by store.
func NewRecordCorrectionTool(store memory.Store) *RecordCorrectionTool {
	return &RecordCorrectionTool{store: store}
}

func (t *RecordCorrectionTool) Name() string {
	return "record_correction"
}

func (t *RecordCorrectionTool) Description() string {
	return `Records a correction learned during this session so future questions
benefit from it.

Use this tool after discovering a mapping the schema alone does not reveal,
for example "police department" is stored as "POLICE DEPARTMENT" in
agency_name, or salaries are text with dollar signs. Pattern is the phrase
users say; effect is what the SQL must do about it.`
}

func (t *RecordCorrectionTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for recording a correction",
		map[string]*shuttle.JSONSchema{
			"pattern": shuttle.NewStringSchema("The question phrasing this correction applies to"),
			"effect":  shuttle.NewStringSchema("What the SQL must do when the pattern appears"),
		},
		[]string{"pattern", "effect"},
	)
}

func (t *RecordCorrectionTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	pattern, _ := params["pattern"].(string)
	effect, _ := params["effect"].(string)
	if strings.TrimSpace(pattern) == "" || strings.TrimSpace(effect) == "" {
		return &shuttle.Result{
			Success: false,
			Error: &shuttle.Error{
				Code:       "INVALID_PARAMS",
				Message:    "pattern and effect are both required",
				Suggestion: "Provide the question phrase and the SQL adjustment it implies",
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	if err := t.store.Record(pattern, effect); err != nil {
		return &shuttle.Result{
			Success: false,
			Error: &shuttle.Error{
				Code:      "MEMORY_WRITE_FAILED",
				Message:   fmt.Sprintf("failed to record correction: %v", err),
				Retryable: true,
			},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	return &shuttle.Result{
		Success:         true,
		Data:            "Correction recorded.",
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
