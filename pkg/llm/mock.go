package llm

import (
	"context"
	"sync"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// MockProvider returns a fixed response. Useful for wiring tests.
type MockProvider struct {
	Response string
	Err      error
	// CallCount tracks how many times Chat has been called.
	CallCount int

	mu sync.Mutex
}

// Chat returns the configured response or error.
func (m *MockProvider) Chat(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Content: m.Response,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}, nil
}

// ScriptedProvider is a mock provider that returns a pre-defined sequence of
// responses. Useful for testing multi-turn tool-calling loops: a scripted
// response may carry tool calls, driving the loop through another round.
type ScriptedProvider struct {
	mu        sync.Mutex
	Responses []*ChatResponse
	// Errs are consumed before Responses; a nil entry means "no error, pop
	// the next response". This lets tests script rate-limit sequences like
	// [429, 429, success].
	Errs []error
	// CallCount tracks how many times Chat has been called.
	CallCount int
	// Requests records each request for assertions.
	Requests []ChatRequest
}

// NewScriptedProvider creates a provider returning the given responses in order.
func NewScriptedProvider(responses ...*ChatResponse) *ScriptedProvider {
	return &ScriptedProvider{Responses: responses}
}

// ScriptText is shorthand for a text-only scripted response.
func ScriptText(content string) *ChatResponse {
	return &ChatResponse{
		Content: content,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}
}

// ScriptToolCall is shorthand for a scripted response requesting one tool call.
func ScriptToolCall(id, name, arguments string) *ChatResponse {
	return &ChatResponse{
		ToolCalls: []ToolCall{{
			ID:       id,
			Type:     ToolTypeFunction,
			Function: FunctionCall{Name: name, Arguments: arguments},
		}},
		Usage: Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}
}

// PushError queues an error to be returned before the remaining responses.
func (s *ScriptedProvider) PushError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errs = append(s.Errs, err)
}

// Chat pops the next scripted error or response.
func (s *ScriptedProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++
	s.Requests = append(s.Requests, req)

	if len(s.Errs) > 0 {
		err := s.Errs[0]
		s.Errs = s.Errs[1:]
		if err != nil {
			return nil, err
		}
	}

	if len(s.Responses) == 0 {
		return nil, errors.New(errors.CodeLLMError, "scripted provider: no more responses available", nil)
	}
	resp := s.Responses[0]
	s.Responses = s.Responses[1:]
	return resp, nil
}
