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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a Store kept entirely in process memory. Used in tests
// and anywhere persistence is not wanted.
type InMemoryStore struct {
	mu          sync.RWMutex
	corrections []Correction
}

// NewInMemoryStore creates an empty in-memory correction store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Record stores or updates a correction (see FileStore.Record).
func (s *InMemoryStore) Record(pattern, effect string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := normalizePattern(pattern)
	for i := range s.corrections {
		if normalizePattern(s.corrections[i].Pattern) == key {
			s.corrections[i].Effect = effect
			s.corrections[i].UpdatedAt = now
			return nil
		}
	}
	s.corrections = append(s.corrections, Correction{
		ID:        uuid.NewString(),
		Pattern:   pattern,
		Effect:    effect,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

// Recall returns corrections relevant to question, most recent first.
func (s *InMemoryStore) Recall(question string) []Correction {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := rank(s.corrections, question)
	matchedIDs := make(map[string]bool, len(matched))
	for _, c := range matched {
		matchedIDs[c.ID] = true
	}
	for i := range s.corrections {
		if matchedIDs[s.corrections[i].ID] {
			s.corrections[i].UseCount++
		}
	}
	return matched
}

// All returns every stored correction, most-recently-updated first.
func (s *InMemoryStore) All() []Correction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Correction, len(s.corrections))
	copy(out, s.corrections)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

var _ Store = (*InMemoryStore)(nil)
