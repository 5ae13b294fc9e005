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
// Package memory persists user-taught corrections and recalls the ones
// relevant to an incoming question. Corrections teach the agent things the
// schema cannot: synonym→filter mappings ("NYPD" means agency_name LIKE
// '%POLICE%'), calculation rules, join conventions.
package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
)

// Correction is a single user-taught rule: a natural-language trigger
// phrase and the query-construction guidance it maps to.
type Correction struct {
	ID        string    `json:"id"`
	Pattern   string    `json:"pattern"`
	Effect    string    `json:"effect"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UseCount  int       `json:"use_count"`
}

// Store is the injectable correction repository. Implementations must
// serialize writes; Record is idempotent under exact pattern match.
type Store interface {
	// Recall returns corrections related to the question by token or
	// fuzzy-token overlap, most-recently-updated first. Unrelated
	// corrections are never returned.
	Recall(question string) []Correction

	// Record stores a correction. Re-recording an existing pattern
	// updates its effect in place rather than appending a duplicate.
	Record(pattern, effect string) error

	// All returns every stored correction, most-recently-updated first.
	All() []Correction
}

// normalizePattern is the identity key for update-vs-append decisions:
// case-folded, whitespace-collapsed exact match.
func normalizePattern(pattern string) string {
	return strings.Join(strings.Fields(strings.ToLower(pattern)), " ")
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "by": true, "for": true,
	"from": true, "how": true, "in": true, "is": true, "many": true, "me": true,
	"of": true, "on": true, "or": true, "show": true, "the": true, "to": true,
	"what": true, "which": true, "who": true, "with": true,
}

func contentTokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if !stopwords[f] && len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// relevance scores how related a correction pattern is to the question.
// Zero means unrelated (never injected). Exact token overlap dominates;
// fuzzy subsequence matches catch plurals and near-misses.
func relevance(questionTokens []string, pattern string) int {
	patternTokens := contentTokens(pattern)
	if len(patternTokens) == 0 {
		return 0
	}

	score := 0
	for _, qt := range questionTokens {
		for _, pt := range patternTokens {
			if qt == pt {
				score += 2
			} else if len(qt) >= 4 && len(pt) >= 4 {
				if len(fuzzy.Find(pt, []string{qt})) > 0 || len(fuzzy.Find(qt, []string{pt})) > 0 {
					score++
				}
			}
		}
	}
	return score
}

// rank filters corrections by relevance to question and orders the matches
// most-recently-updated first so later corrections override earlier
// conflicting ones at prompt-injection time.
func rank(corrections []Correction, question string) []Correction {
	questionTokens := contentTokens(question)

	var matched []Correction
	for _, c := range corrections {
		if relevance(questionTokens, c.Pattern) > 0 {
			matched = append(matched, c)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return matched
}
