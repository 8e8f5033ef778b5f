// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
	"github.com/cxbxmxcx/agenticbt/pkg/resilience"
)

// Engine drives a single completion call to convergence: it retries
// rate-limited calls with exponential backoff, surfaces every other provider
// failure immediately, and accumulates token usage for its lifetime. The
// engine holds no conversation state.
type Engine struct {
	provider    Provider
	model       string
	temperature float64
	maxTokens   int
	retry       resilience.RetryConfig
	tracer      trace.Tracer

	inTokens  atomic.Int64
	outTokens atomic.Int64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithModel sets the model identifier sent with every request.
func WithModel(model string) EngineOption {
	return func(e *Engine) { e.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) EngineOption {
	return func(e *Engine) { e.temperature = t }
}

// WithMaxTokens caps the completion length per request.
func WithMaxTokens(n int) EngineOption {
	return func(e *Engine) { e.maxTokens = n }
}

// WithRetry overrides the rate-limit retry policy. Tests use this to shrink
// the backoff delays to milliseconds.
func WithRetry(cfg resilience.RetryConfig) EngineOption {
	return func(e *Engine) { e.retry = cfg }
}

// NewEngine creates a completion engine over the given provider.
// The default retry policy makes 3 attempts with a 5s initial delay, doubling
// between attempts, and retries rate-limited calls only.
func NewEngine(provider Provider, opts ...EngineOption) *Engine {
	e := &Engine{
		provider: provider,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 5 * time.Second,
			Multiplier:   2.0,
		},
		tracer: otel.Tracer("agenticbt/llm"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.retry.IsRecoverable = func(err error) bool {
		return errors.HasCode(err, errors.CodeRateLimit)
	}
	return e
}

// Complete issues one logical completion over the given messages and tool
// specs. Rate-limited attempts are retried per the engine's policy; once the
// budget is exhausted the final error carries RATE_LIMITED and is no longer
// recoverable. Any other provider failure is returned on the first attempt.
func (e *Engine) Complete(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Complete",
		trace.WithAttributes(
			attribute.String("llm.model", e.model),
			attribute.Int("llm.messages", len(messages)),
			attribute.Int("llm.tools", len(tools)),
		),
	)
	defer span.End()

	req := ChatRequest{
		Model:       e.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}

	var resp *ChatResponse
	attempt := 0
	err := e.retry.Do(ctx, func() error {
		attempt++
		var chatErr error
		resp, chatErr = e.provider.Chat(ctx, req)
		if chatErr != nil && errors.HasCode(chatErr, errors.CodeRateLimit) {
			slog.WarnContext(ctx, "completion rate limited",
				"attempt", attempt, "model", e.model)
		}
		return chatErr
	})
	if err != nil {
		if errors.HasCode(err, errors.CodeRateLimit) {
			return nil, errors.New(errors.CodeRateLimit, "rate limit retries exhausted", err).
				WithContext("attempts", attempt).
				WithRecoverable(false)
		}
		if _, ok := err.(*errors.Error); ok {
			return nil, err
		}
		return nil, errors.New(errors.CodeLLMError, "completion call failed", err)
	}

	e.inTokens.Add(int64(resp.Usage.PromptTokens))
	e.outTokens.Add(int64(resp.Usage.CompletionTokens))
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp, nil
}

// Usage returns the cumulative token totals for the engine's lifetime.
func (e *Engine) Usage() Usage {
	in := int(e.inTokens.Load())
	out := int(e.outTokens.Load())
	return Usage{
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
	}
}
