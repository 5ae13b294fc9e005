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
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teradata-labs/weft/internal/log"
	"github.com/teradata-labs/weft/pkg/agent"
	"github.com/teradata-labs/weft/pkg/backends/sqlitedb"
	"github.com/teradata-labs/weft/pkg/llm"
	"github.com/teradata-labs/weft/pkg/llm/anthropic"
	"github.com/teradata-labs/weft/pkg/memory"
)

// newLogger builds the process logger from the configured level.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level, err := zap.ParseAtomicLevel(viper.GetString("logging.level")); err == nil {
		cfg.Level = level
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	log.SetLogger(logger)
	return logger
}

// newBackend opens the configured SQLite database behind the write guard.
func newBackend(ctx context.Context, logger *zap.Logger) (*sqlitedb.Backend, error) {
	backend, err := sqlitedb.NewBackend(ctx, sqlitedb.Config{
		Path:      viper.GetString("database.path"),
		NotesPath: viper.GetString("database.notes_path"),
		MaxRows:   viper.GetInt("database.max_rows"),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", viper.GetString("database.path"), err)
	}
	return backend, nil
}

// newProvider builds the configured LLM provider.
func newProvider() (llm.Provider, error) {
	switch provider := viper.GetString("llm.provider"); provider {
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			Model:       viper.GetString("llm.model"),
			MaxTokens:   viper.GetInt("llm.max_tokens"),
			Temperature: viper.GetFloat64("llm.temperature"),
			Timeout:     time.Duration(viper.GetInt("llm.timeout_seconds")) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// newMemoryStore opens the correction memory file.
func newMemoryStore(logger *zap.Logger) (memory.Store, error) {
	store, err := memory.NewFileStore(viper.GetString("memory.path"), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open correction memory: %w", err)
	}
	return store, nil
}

// newAgent wires backend, provider, and memory into an agent.
func newAgent(ctx context.Context, logger *zap.Logger) (*agent.Agent, *sqlitedb.Backend, error) {
	backend, err := newBackend(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	provider, err := newProvider()
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	store, err := newMemoryStore(logger)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	cfg := agent.DefaultConfig()
	cfg.MaxRetries = viper.GetInt("agent.max_retries")
	cfg.MaxSteps = viper.GetInt("agent.max_steps")
	cfg.LLMTimeout = time.Duration(viper.GetInt("llm.timeout_seconds")) * time.Second
	cfg.QueryTimeout = time.Duration(viper.GetInt("agent.query_timeout_seconds")) * time.Second
	cfg.DocsDir = viper.GetString("docs.dir")

	a := agent.NewAgent(backend, provider, store,
		agent.WithConfig(cfg),
		agent.WithLogger(logger),
	)
	return a, backend, nil
}
