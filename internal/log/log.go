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

// Package log holds the process-wide zap logger. The weft CLI replaces the
// default development logger at startup with one built from the configured
// level; library packages take their loggers by injection and fall back to
// this one only at the process edges.
package log

import (
	"go.uber.org/zap"
)

var logger *zap.Logger

func init() {
	var err error
	if logger, err = zap.NewDevelopment(); err != nil {
		logger = zap.NewNop()
	}
}

// Logger returns the process logger.
func Logger() *zap.Logger {
	return logger
}

// SetLogger replaces the process logger. Called once from CLI startup.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// Debug logs a debug message on the process logger.
func Debug(msg string, fields ...zap.Field) {
	logger.Debug(msg, fields...)
}

// Info logs an info message on the process logger.
func Info(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

// Warn logs a warning on the process logger.
func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}

// Error logs an error on the process logger.
func Error(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
}

// Fatal logs a fatal message and exits.
func Fatal(msg string, fields ...zap.Field) {
	logger.Fatal(msg, fields...)
}

// With returns the process logger extended with fields.
func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

// Sync flushes buffered entries on the process logger.
func Sync() error {
	return logger.Sync()
}
