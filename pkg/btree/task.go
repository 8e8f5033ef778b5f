// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"context"
	"log/slog"
	"strings"
	"text/template"

	"github.com/cxbxmxcx/agenticbt/pkg/agent"
	"github.com/cxbxmxcx/agenticbt/pkg/blackboard"
	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// Markers the agent's response content is scanned for when mapping a reply
// to a node status.
const (
	FailureMarker = "FAILURE"
	SuccessMarker = "SUCCESS"
)

// Task is a leaf workload: it gathers declared inputs from the blackboard,
// renders its instruction template, asks the agent, and writes declared
// outputs back. Every error inside Run is downgraded to a Failure status at
// this boundary so one broken leaf cannot crash tree evaluation.
type Task struct {
	name         string
	agent        *agent.Agent
	client       *blackboard.Client
	instructions *template.Template
	inputs       []string
	outputs      []string
	useThread    bool
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// WithInputs declares the blackboard keys gathered into the template context.
func WithInputs(keys ...string) TaskOption {
	return func(t *Task) { t.inputs = keys }
}

// WithOutputs declares the blackboard keys the task may write from the
// agent's response.
func WithOutputs(keys ...string) TaskOption {
	return func(t *Task) { t.outputs = keys }
}

// WithoutThread detaches the task from the shared conversation keys.
func WithoutThread() TaskOption {
	return func(t *Task) { t.useThread = false }
}

// NewTask creates a leaf task bound to an agent and a board. Input keys are
// registered read-only and output keys write-only; with thread use enabled
// (the default) the shared thread and content keys are registered
// read-write.
func NewTask(name string, ag *agent.Agent, board *blackboard.Board, instructions string, opts ...TaskOption) (*Task, error) {
	if ag == nil {
		return nil, errors.New(errors.CodeConfig, "task agent is required", nil).
			WithContext("task", name)
	}
	if board == nil {
		return nil, errors.New(errors.CodeConfig, "task board is required", nil).
			WithContext("task", name)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(instructions)
	if err != nil {
		return nil, errors.New(errors.CodeTemplate, "failed to parse task instructions", err).
			WithContext("task", name)
	}

	t := &Task{
		name:         name,
		agent:        ag,
		client:       board.Client(name),
		instructions: tmpl,
		useThread:    true,
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, key := range t.inputs {
		t.client.RegisterKey(key, blackboard.Read)
	}
	for _, key := range t.outputs {
		t.client.RegisterKey(key, blackboard.Write)
	}
	if t.useThread {
		t.client.RegisterKey(blackboard.KeyThread, blackboard.ReadWrite)
		t.client.RegisterKey(blackboard.KeyContent, blackboard.ReadWrite)
	}
	return t, nil
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Inputs returns the declared input keys.
func (t *Task) Inputs() []string { return t.inputs }

// Outputs returns the declared output keys.
func (t *Task) Outputs() []string { return t.outputs }

// Run executes one evaluation. Condition leaves succeed only on the success
// marker; action leaves succeed unless the failure marker appears. Errors
// from gathering, rendering or asking are logged and mapped to Failure.
func (t *Task) Run(ctx context.Context, condition bool) Status {
	data, err := t.gather()
	if err != nil {
		slog.ErrorContext(ctx, "task input gathering failed", "task", t.name, "error", err)
		return StatusFailure
	}

	var sb strings.Builder
	if err := t.instructions.Execute(&sb, data); err != nil {
		slog.ErrorContext(ctx, "task template rendering failed", "task", t.name,
			"error", errors.New(errors.CodeTemplate, "unresolved instruction placeholder", err))
		return StatusFailure
	}

	resp, err := t.agent.Ask(ctx, sb.String())
	if err != nil {
		slog.ErrorContext(ctx, "task ask failed", "task", t.name, "error", err)
		return StatusFailure
	}

	if err := t.writeOutputs(resp); err != nil {
		slog.ErrorContext(ctx, "task output write failed", "task", t.name, "error", err)
		return StatusFailure
	}

	if strings.Contains(resp.Content, FailureMarker) {
		return StatusFailure
	}
	if condition {
		if strings.Contains(resp.Content, SuccessMarker) {
			return StatusSuccess
		}
		return StatusFailure
	}
	return StatusSuccess
}

// gather collects declared inputs into the template context. Absent keys are
// skipped; the template decides whether that is fatal.
func (t *Task) gather() (map[string]any, error) {
	data := make(map[string]any, len(t.inputs))
	for _, key := range t.inputs {
		value, err := t.client.Get(key)
		if err != nil {
			if errors.HasCode(err, errors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		data[key] = value
	}
	return data, nil
}

func (t *Task) writeOutputs(resp *agent.Response) error {
	produced := map[string]any{
		blackboard.KeyContent: resp.Content,
		blackboard.KeyThread:  resp.Thread,
	}
	keys := t.outputs
	if t.useThread {
		keys = append(append([]string(nil), keys...), blackboard.KeyContent, blackboard.KeyThread)
	}
	written := make(map[string]bool, len(keys))
	for _, key := range keys {
		if written[key] {
			continue
		}
		value, ok := produced[key]
		if !ok {
			continue
		}
		if err := t.client.Set(key, value); err != nil {
			return err
		}
		written[key] = true
	}
	return nil
}
