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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileStore is a JSON-file-backed correction store. Writes are serialized
// behind a mutex and flushed with a tmp+rename so concurrent sessions never
// observe a torn file.
type FileStore struct {
	mu          sync.RWMutex
	path        string
	corrections []Correction
	logger      *zap.Logger
}

type fileLayout struct {
	Corrections []Correction `json:"corrections"`
}

// NewFileStore opens (or creates) the correction file at path.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read correction file %s: %w", path, err)
	}

	var layout fileLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse correction file %s: %w", path, err)
	}
	s.corrections = layout.Corrections
	return s, nil
}

// Record stores or updates a correction. Idempotent under exact pattern
// match (case-folded, whitespace-normalized): the existing entry's effect
// and timestamp are updated in place.
func (s *FileStore) Record(pattern, effect string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := normalizePattern(pattern)

	for i := range s.corrections {
		if normalizePattern(s.corrections[i].Pattern) == key {
			s.corrections[i].Effect = effect
			s.corrections[i].UpdatedAt = now
			s.logger.Debug("correction updated",
				zap.String("pattern", pattern))
			return s.flushLocked()
		}
	}

	s.corrections = append(s.corrections, Correction{
		ID:        uuid.NewString(),
		Pattern:   pattern,
		Effect:    effect,
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.logger.Debug("correction recorded",
		zap.String("pattern", pattern))
	return s.flushLocked()
}

// Recall returns the corrections relevant to question, most recently
// updated first, and bumps their use counters.
func (s *FileStore) Recall(question string) []Correction {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := rank(s.corrections, question)
	if len(matched) == 0 {
		return nil
	}

	matchedIDs := make(map[string]bool, len(matched))
	for _, c := range matched {
		matchedIDs[c.ID] = true
	}
	for i := range s.corrections {
		if matchedIDs[s.corrections[i].ID] {
			s.corrections[i].UseCount++
		}
	}
	// Use-count bumps are bookkeeping; losing them on crash is harmless.
	if err := s.flushLocked(); err != nil {
		s.logger.Warn("failed to persist use counts", zap.Error(err))
	}
	return matched
}

// All returns every stored correction, most-recently-updated first.
func (s *FileStore) All() []Correction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Correction, len(s.corrections))
	copy(out, s.corrections)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(fileLayout{Corrections: s.corrections}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal corrections: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create correction dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".corrections-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write corrections: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

var _ Store = (*FileStore)(nil)
