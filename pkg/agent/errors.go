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
package agent

import "fmt"

// RetryBudgetExhaustedError is the loop's terminal failure: the configured
// number of repair attempts was consumed without reaching an answer. It is
// surfaced to the caller inside a Failure outcome, never as a panic.
type RetryBudgetExhaustedError struct {
	Attempts int
}

func (e *RetryBudgetExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d failed attempts", e.Attempts)
}
