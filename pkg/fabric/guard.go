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
package fabric

import (
	"strings"
)

// DefaultDenylist are the write-intent keywords rejected by the guard.
var DefaultDenylist = []string{
	"CREATE", "ALTER", "DROP", "INSERT", "UPDATE", "DELETE", "TRUNCATE",
}

// Guard validates candidate queries before any execution reaches the backend.
// The scan is case-insensitive and matches whole tokens only: a column named
// update_time must pass while "UPDATE t SET ..." must not. String literals
// and comments are stripped before scanning so keyword text inside them
// cannot trip the check.
type Guard struct {
	denylist map[string]bool
}

// NewGuard creates a guard with the default denylist.
func NewGuard() *Guard {
	return NewGuardWithDenylist(DefaultDenylist)
}

// NewGuardWithDenylist creates a guard with a custom keyword set.
func NewGuardWithDenylist(keywords []string) *Guard {
	dl := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		dl[strings.ToUpper(kw)] = true
	}
	return &Guard{denylist: dl}
}

// Check returns a *GuardRejection if query contains a denylisted keyword as
// a whole token, nil otherwise.
func (g *Guard) Check(query string) error {
	for _, tok := range tokenize(query) {
		if g.denylist[strings.ToUpper(tok)] {
			return &GuardRejection{Keyword: strings.ToUpper(tok), Query: query}
		}
	}
	return nil
}

// tokenize extracts identifier-like tokens from query, skipping string
// literals, quoted identifiers, and comments.
func tokenize(query string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			flush()
			i = skipQuoted(runes, i, c)
		case c == '[': // bracket-quoted identifier
			flush()
			i = skipUntil(runes, i, ']')
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			flush()
			i = skipUntil(runes, i, '\n')
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			flush()
			for i += 2; i+1 < len(runes); i++ {
				if runes[i] == '*' && runes[i+1] == '/' {
					i++
					break
				}
			}
		case isWordRune(c):
			cur.WriteRune(c)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// skipQuoted advances past a quoted region, honoring doubled-quote escapes.
func skipQuoted(runes []rune, start int, quote rune) int {
	for i := start + 1; i < len(runes); i++ {
		if runes[i] == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				i++
				continue
			}
			return i
		}
	}
	return len(runes)
}

func skipUntil(runes []rune, start int, end rune) int {
	for i := start + 1; i < len(runes); i++ {
		if runes[i] == end {
			return i
		}
	}
	return len(runes)
}

func isWordRune(c rune) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
