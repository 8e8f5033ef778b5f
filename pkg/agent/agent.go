// SPDX-License-Identifier: Apache-2.0

// Package agent binds a conversation thread, a completion engine and a tool
// registry into a single Ask operation that runs the tool-calling loop to
// convergence.
package agent

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
	"github.com/cxbxmxcx/agenticbt/pkg/llm"
	"github.com/cxbxmxcx/agenticbt/pkg/tools"
)

// DefaultMaxToolRounds caps how many tool-invocation rounds a single Ask may
// spend before giving up.
const DefaultMaxToolRounds = 8

// Agent owns one conversation thread for its lifetime. Every Ask appends to
// the same thread, so later questions see the full prior exchange.
type Agent struct {
	name          string
	engine        *llm.Engine
	registry      *tools.Registry
	thread        *llm.Thread
	systemPrompt  string
	templates     *TemplateSet
	maxToolRounds int
	tracer        trace.Tracer
}

// Option configures an Agent instance.
type Option func(*Agent) error

// New creates an agent over the given engine. Without WithTools the agent
// exposes no tools.
func New(name string, engine *llm.Engine, opts ...Option) (*Agent, error) {
	if engine == nil {
		return nil, errors.New(errors.CodeConfig, "agent engine is required", nil)
	}
	a := &Agent{
		name:          name,
		engine:        engine,
		registry:      tools.NewRegistry(),
		thread:        llm.NewThread(),
		maxToolRounds: DefaultMaxToolRounds,
		tracer:        otel.Tracer("agenticbt/agent"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// WithSystemPrompt sets a static system prompt sent ahead of the thread.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) error {
		a.systemPrompt = prompt
		return nil
	}
}

// WithTools attaches a tool registry.
func WithTools(registry *tools.Registry) Option {
	return func(a *Agent) error {
		if registry == nil {
			return errors.New(errors.CodeConfig, "tool registry must not be nil", nil)
		}
		a.registry = registry
		return nil
	}
}

// WithTemplates attaches a system-template set for per-request prompts.
func WithTemplates(ts *TemplateSet) Option {
	return func(a *Agent) error {
		a.templates = ts
		return nil
	}
}

// WithMaxToolRounds overrides the tool-round cap.
func WithMaxToolRounds(n int) Option {
	return func(a *Agent) error {
		if n <= 0 {
			return errors.New(errors.CodeConfig, "max tool rounds must be positive", nil)
		}
		a.maxToolRounds = n
		return nil
	}
}

// Response is the outcome of one Ask.
type Response struct {
	// Content is the model's final assistant message.
	Content string
	// Thread is the agent's conversation thread, including this exchange.
	Thread *llm.Thread
	// Usage is the engine's cumulative token usage.
	Usage llm.Usage
}

// AskOption adjusts a single Ask call.
type AskOption func(*askConfig)

type askConfig struct {
	template     string
	templateData map[string]any
}

// WithSystemTemplate renders the named template from the agent's template set
// and sends it as the system message for this request only.
func WithSystemTemplate(name string, data map[string]any) AskOption {
	return func(c *askConfig) {
		c.template = name
		c.templateData = data
	}
}

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tools.Registry { return a.registry }

// Thread returns the agent's conversation thread.
func (a *Agent) Thread() *llm.Thread { return a.thread }

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Ask appends the user input to the thread and drives the completion loop to
// convergence. Each round the full thread plus tool definitions go to the
// engine; responses carrying tool calls are executed and recorded as one
// paired thread message before the next round. A response without tool calls
// is final. The loop aborts with a TIMEOUT error after maxToolRounds rounds.
func (a *Agent) Ask(ctx context.Context, input string, opts ...AskOption) (*Response, error) {
	ctx, span := a.tracer.Start(ctx, "Agent.Ask",
		trace.WithAttributes(attribute.String("agent.name", a.name)),
	)
	defer span.End()

	var cfg askConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	system := a.systemPrompt
	if cfg.template != "" {
		if a.templates == nil {
			return nil, errors.New(errors.CodeTemplate, "agent has no template set", nil).
				WithContext("template", cfg.template)
		}
		rendered, err := a.templates.Render(cfg.template, cfg.templateData)
		if err != nil {
			return nil, err
		}
		system = rendered
	}

	a.thread.AppendText(llm.RoleUser, input)
	defs := a.registry.Definitions()

	for round := 0; round < a.maxToolRounds; round++ {
		messages := a.thread.ServiceMessages()
		if system != "" {
			messages = append([]llm.Message{{Role: llm.RoleSystem, Content: system}}, messages...)
		}

		resp, err := a.engine.Complete(ctx, messages, defs)
		if err != nil {
			return nil, err
		}

		if len(resp.ToolCalls) == 0 {
			a.thread.AppendText(llm.RoleAssistant, resp.Content)
			span.SetAttributes(attribute.Int("agent.tool_rounds", round))
			return &Response{
				Content: resp.Content,
				Thread:  a.thread,
				Usage:   a.engine.Usage(),
			}, nil
		}

		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			result, err := a.registry.Invoke(ctx, call)
			if err != nil {
				// One failed invocation aborts the whole ask. Partial tool
				// application is never papered over.
				slog.ErrorContext(ctx, "tool invocation failed",
					"agent", a.name, "tool", call.Function.Name, "error", err)
				return nil, err
			}
			results = append(results, llm.ToolResult{Call: call, Result: result})
		}
		if err := a.thread.Append(llm.ThreadMessage{
			Role:        llm.RoleAssistant,
			Content:     resp.Content,
			ToolCalls:   resp.ToolCalls,
			ToolResults: results,
		}); err != nil {
			return nil, err
		}
	}

	return nil, errors.New(errors.CodeTimeout, "tool-calling loop did not converge", nil).
		WithContext("agent", a.name).
		WithContext("max_rounds", a.maxToolRounds)
}
