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
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// notesFile is the curated-context format: human-written descriptions that
// the schema alone cannot express (units, encodings, quirks like
// currency-as-TEXT columns).
type notesFile struct {
	Tables map[string]tableNotes `yaml:"tables"`
}

type tableNotes struct {
	Description string            `yaml:"description"`
	Columns     map[string]string `yaml:"columns"`
}

// loadNotes reads the notes file and renders it for prompt injection.
// A missing path or file is not an error; notes are optional.
func loadNotes(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read notes file %s: %w", path, err)
	}

	var nf notesFile
	if err := yaml.Unmarshal(data, &nf); err != nil {
		return "", fmt.Errorf("failed to parse notes file %s: %w", path, err)
	}

	tables := make([]string, 0, len(nf.Tables))
	for t := range nf.Tables {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var sb strings.Builder
	for _, t := range tables {
		tn := nf.Tables[t]
		sb.WriteString(fmt.Sprintf("Table %s: %s\n", t, tn.Description))

		cols := make([]string, 0, len(tn.Columns))
		for c := range tn.Columns {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", c, tn.Columns[c]))
		}
	}
	return sb.String(), nil
}
