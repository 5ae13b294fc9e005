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

// Package evals scores candidate SQL against golden cases: a structural
// check on required clauses plus a tolerant comparison of executed results.
package evals

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// GoldenCase is one immutable test fixture, loaded once per evaluation run.
type GoldenCase struct {
	Question        string          `yaml:"question"`
	Description     string          `yaml:"description"`
	Difficulty      string          `yaml:"difficulty"`
	TablesInvolved  []string        `yaml:"tables_involved"`
	ColumnsInvolved []string        `yaml:"columns_involved"`
	ExpectedSQL     string          `yaml:"expected_sql"`
	TestCases       []CaseVariation `yaml:"test_cases"`
	SuccessCriteria SuccessCriteria `yaml:"success_criteria"`

	// Name identifies the case in reports; defaults to the source filename.
	Name string `yaml:"name"`
}

// CaseVariation is an alternate phrasing of the main question.
type CaseVariation struct {
	Question   string `yaml:"question"`
	ShouldPass bool   `yaml:"should_pass"`
}

// SuccessCriteria declares what a passing candidate must satisfy.
type SuccessCriteria struct {
	// MustInclude lists clause substrings the candidate SQL must contain
	// (case-insensitive). Drives the structural score.
	MustInclude []string `yaml:"must_include"`

	// ResultCheck constrains the executed result.
	ResultCheck ResultCheck `yaml:"result_check"`
}

// ResultCheck constrains the comparison of executed result sets.
type ResultCheck struct {
	// MinRows is the minimum row count the candidate result must reach.
	MinRows int `yaml:"min_rows"`

	// Ordered requires rows to match the expected result positionally.
	// When false (the default) comparison is order-insensitive.
	Ordered bool `yaml:"ordered"`

	// FirstN limits a positional comparison to the first N rows.
	// Zero means compare all rows.
	FirstN int `yaml:"first_n"`
}

// LoadCase loads one golden case from a YAML file.
func LoadCase(path string) (*GoldenCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden case %s: %w", path, err)
	}

	var gc GoldenCase
	if err := yaml.Unmarshal(data, &gc); err != nil {
		return nil, fmt.Errorf("failed to parse golden case %s: %w", path, err)
	}

	if gc.Question == "" {
		return nil, fmt.Errorf("golden case %s: question is required", path)
	}
	if gc.ExpectedSQL == "" {
		return nil, fmt.Errorf("golden case %s: expected_sql is required", path)
	}
	if gc.Difficulty == "" {
		gc.Difficulty = "medium"
	}
	if gc.Name == "" {
		base := filepath.Base(path)
		gc.Name = base[:len(base)-len(filepath.Ext(base))]
	}

	return &gc, nil
}

// LoadSuite loads every golden case (*.yml, *.yaml) in a directory, sorted
// by filename for stable run order.
func LoadSuite(dir string) ([]GoldenCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yml" || ext == ".yaml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("suite directory %s contains no golden cases", dir)
	}

	cases := make([]GoldenCase, 0, len(paths))
	for _, path := range paths {
		gc, err := LoadCase(path)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *gc)
	}

	return cases, nil
}
