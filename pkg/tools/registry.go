// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
	"github.com/cxbxmxcx/agenticbt/pkg/llm"
)

// Registry holds the tools available to an agent, keyed by name.
// Registration order is preserved so the model sees a stable tool list.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique and the tool must carry an
// executable body.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return errors.New(errors.CodeInvalidArguments, "tool name is required", nil)
	}
	if t.Func == nil {
		return errors.New(errors.CodeInvalidArguments, "tool has no executable body", nil).
			WithContext("tool", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return errors.New(errors.CodeInvalidArguments, "tool already registered", nil).
			WithContext("tool", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister registers a tool and panics on error. Intended for static
// tool sets wired at startup.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the LLM tool definitions in registration order.
func (r *Registry) Definitions() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Invoke executes the tool named by the model's call. An unknown name is an
// UNKNOWN_TOOL error, undecodable or incomplete arguments are
// INVALID_ARGUMENTS, and a failure inside the tool body is wrapped as
// TOOL_FAILURE.
func (r *Registry) Invoke(ctx context.Context, call llm.ToolCall) (any, error) {
	name := call.Function.Name
	tool, ok := r.Get(name)
	if !ok {
		return nil, errors.New(errors.CodeUnknownTool, "tool is not registered", nil).
			WithContext("tool", name)
	}

	args, err := decodeArgs(call.Function.Arguments)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidArguments, "tool arguments are not a JSON object", err).
			WithContext("tool", name)
	}
	for _, p := range tool.Params {
		if p.Required {
			if _, ok := args[p.Name]; !ok {
				return nil, errors.New(errors.CodeInvalidArguments, "missing required argument", nil).
					WithContext("tool", name).
					WithContext("argument", p.Name)
			}
		}
	}

	result, err := tool.Func(ctx, args)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "tool execution failed", err).
			WithContext("tool", name)
	}
	return result, nil
}

func decodeArgs(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
