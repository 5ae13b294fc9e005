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
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/teradata-labs/weft/pkg/shuttle"
)

// ScriptedProvider replays a fixed sequence of responses. It makes the
// agent loop's control flow deterministic in tests: each Chat call pops the
// next scripted response regardless of input.
type ScriptedProvider struct {
	mu        sync.Mutex
	script    []*Response
	calls     int
	LastMsgs  []Message
	AllInputs [][]Message
}

// NewScriptedProvider creates a provider that returns the given responses
// in order.
func NewScriptedProvider(script ...*Response) *ScriptedProvider {
	return &ScriptedProvider{script: script}
}

// Chat pops the next scripted response.
func (p *ScriptedProvider) Chat(ctx context.Context, messages []Message, tools []shuttle.Tool) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.LastMsgs = messages
	p.AllInputs = append(p.AllInputs, messages)
	if p.calls >= len(p.script) {
		return nil, fmt.Errorf("scripted provider exhausted after %d calls", p.calls)
	}
	resp := p.script[p.calls]
	p.calls++
	return resp, nil
}

// Calls returns how many times Chat was invoked.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Name returns the provider name.
func (p *ScriptedProvider) Name() string { return "scripted" }

// Model returns the model identifier.
func (p *ScriptedProvider) Model() string { return "scripted-v0" }

var _ Provider = (*ScriptedProvider)(nil)
