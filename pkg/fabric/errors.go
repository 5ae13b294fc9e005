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
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a store-reported execution failure so the repair loop
// can propose a targeted fix.
type ErrorKind string

const (
	ErrKindSyntax         ErrorKind = "syntax_error"
	ErrKindTableNotFound  ErrorKind = "table_not_found"
	ErrKindColumnNotFound ErrorKind = "column_not_found"
	ErrKindPermission     ErrorKind = "permission_denied"
	ErrKindTimeout        ErrorKind = "timeout"
	ErrKindUnknown        ErrorKind = "unknown"
)

// ExecutionError is a store-reported query failure. It is repairable: the
// loop feeds Message back to the model as an observation.
type ExecutionError struct {
	Kind    ErrorKind
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error (%s): %s", e.Kind, e.Message)
}

// NewExecutionError classifies and wraps a raw driver error.
func NewExecutionError(err error) *ExecutionError {
	return &ExecutionError{
		Kind:    ClassifyError(err.Error()),
		Message: err.Error(),
	}
}

// GuardRejection means write intent was detected. Rejection is final for the
// candidate query: the loop must revise, never strip the keyword and retry.
type GuardRejection struct {
	Keyword string
	Query   string
}

func (e *GuardRejection) Error() string {
	return fmt.Sprintf("query rejected: write keyword %q is not allowed", e.Keyword)
}

// IsGuardRejection reports whether err is a guard rejection.
func IsGuardRejection(err error) bool {
	var gr *GuardRejection
	return errors.As(err, &gr)
}

// IsTimeout reports whether err is a timeout-classified execution error.
func IsTimeout(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee) && ee.Kind == ErrKindTimeout
}

// ClassifyError infers an ErrorKind from a driver error message.
// Column checks run before table checks since they are more specific.
func ClassifyError(message string) ErrorKind {
	m := strings.ToLower(message)

	switch {
	case strings.Contains(m, "syntax"):
		return ErrKindSyntax
	case strings.Contains(m, "permission") || strings.Contains(m, "access denied") ||
		strings.Contains(m, "readonly") || strings.Contains(m, "read-only"):
		return ErrKindPermission
	case strings.Contains(m, "no such column") ||
		(strings.Contains(m, "column") && notFound(m)):
		return ErrKindColumnNotFound
	case strings.Contains(m, "no such table") ||
		((strings.Contains(m, "table") || strings.Contains(m, "object")) && notFound(m)):
		return ErrKindTableNotFound
	case strings.Contains(m, "timeout") || strings.Contains(m, "deadline exceeded") ||
		strings.Contains(m, "interrupted"):
		return ErrKindTimeout
	default:
		return ErrKindUnknown
	}
}

func notFound(m string) bool {
	return strings.Contains(m, "not found") || strings.Contains(m, "does not exist")
}
