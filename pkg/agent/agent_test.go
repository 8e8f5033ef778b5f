package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
	"github.com/cxbxmxcx/agenticbt/pkg/llm"
	"github.com/cxbxmxcx/agenticbt/pkg/resilience"
	"github.com/cxbxmxcx/agenticbt/pkg/tools"
)

func newTestEngine(provider llm.Provider) *llm.Engine {
	return llm.NewEngine(provider,
		llm.WithModel("test-model"),
		llm.WithRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			Multiplier:   2.0,
		}),
	)
}

func timestampRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	r.MustRegister(tools.Tool{
		Name:        "get_timestamp",
		Description: "Returns the current timestamp",
		Func: func(_ context.Context, _ map[string]any) (any, error) {
			return "2026-08-31T12:00:00Z", nil
		},
	})
	r.MustRegister(tools.Tool{
		Name:        "report",
		Description: "Formats a value for the user",
		Params: []tools.Param{
			{Name: "value", Type: "string", Required: true},
		},
		Func: func(_ context.Context, args map[string]any) (any, error) {
			return fmt.Sprintf("Report: %v", args["value"]), nil
		},
	})
	return r
}

func TestAskWithoutToolCalls(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ScriptText("Hello there."))
	a, err := New("qa", newTestEngine(provider))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := a.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Hello there." {
		t.Errorf("expected scripted content, got %q", resp.Content)
	}
	// user + assistant
	if a.Thread().Len() != 2 {
		t.Errorf("expected 2 thread messages, got %d", a.Thread().Len())
	}
}

func TestAskRunsToolRound(t *testing.T) {
	provider := llm.NewScriptedProvider(
		llm.ScriptToolCall("call_1", "get_timestamp", "{}"),
		llm.ScriptText("The time is 2026-08-31T12:00:00Z."),
	)
	a, err := New("qa", newTestEngine(provider), WithTools(timestampRegistry(t)))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := a.Ask(context.Background(), "what time is it?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Content, "2026-08-31T12:00:00Z") {
		t.Errorf("expected timestamp in final content, got %q", resp.Content)
	}

	msgs := a.Thread().Messages()
	// user + tool exchange + final assistant
	if len(msgs) != 3 {
		t.Fatalf("expected 3 thread messages, got %d", len(msgs))
	}
	exchange := msgs[1]
	if len(exchange.ToolCalls) != 1 || len(exchange.ToolResults) != 1 {
		t.Errorf("expected paired tool exchange, got %+v", exchange)
	}
	if exchange.ToolResults[0].Result != "2026-08-31T12:00:00Z" {
		t.Errorf("expected tool result recorded, got %v", exchange.ToolResults[0].Result)
	}

	// Second request must replay the expanded exchange.
	second := provider.Requests[1]
	sawToolRecord := false
	for _, m := range second.Messages {
		if m.Role == llm.RoleTool && m.ToolCallID == "call_1" {
			sawToolRecord = true
		}
	}
	if !sawToolRecord {
		t.Error("second round should carry the tool result record")
	}
}

func TestAskPairsMultipleCallsInOneMessage(t *testing.T) {
	multi := &llm.ChatResponse{
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Type: llm.ToolTypeFunction, Function: llm.FunctionCall{Name: "get_timestamp", Arguments: "{}"}},
			{ID: "call_2", Type: llm.ToolTypeFunction, Function: llm.FunctionCall{Name: "report", Arguments: `{"value":"noon"}`}},
		},
		Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}
	provider := llm.NewScriptedProvider(multi, llm.ScriptText("It is noon."))
	a, err := New("qa", newTestEngine(provider), WithTools(timestampRegistry(t)))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := a.Ask(context.Background(), "what time is it?")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(resp.Content, "call_") {
		t.Errorf("final content must not contain raw tool-call syntax: %q", resp.Content)
	}

	var exchanges int
	for _, m := range a.Thread().Messages() {
		if len(m.ToolCalls) > 0 {
			exchanges++
			if len(m.ToolCalls) != 2 || len(m.ToolResults) != 2 {
				t.Errorf("expected both calls paired in one message, got %+v", m)
			}
		}
	}
	if exchanges != 1 {
		t.Errorf("expected exactly one tool-exchange message, got %d", exchanges)
	}
}

func TestAskAbortsOnInvokerFailure(t *testing.T) {
	provider := llm.NewScriptedProvider(
		llm.ScriptToolCall("call_1", "no_such_tool", "{}"),
		llm.ScriptText("never reached"),
	)
	a, err := New("qa", newTestEngine(provider), WithTools(timestampRegistry(t)))
	if err != nil {
		t.Fatal(err)
	}

	_, err = a.Ask(context.Background(), "use a bad tool")
	if !errors.HasCode(err, errors.CodeUnknownTool) {
		t.Fatalf("expected UNKNOWN_TOOL to propagate out of Ask, got %v", err)
	}
	if provider.CallCount != 1 {
		t.Errorf("a failed invocation must abort the loop, got %d rounds", provider.CallCount)
	}
}

func TestAskStopsAfterMaxToolRounds(t *testing.T) {
	var responses []*llm.ChatResponse
	for i := 0; i < 5; i++ {
		responses = append(responses, llm.ScriptToolCall(fmt.Sprintf("call_%d", i), "get_timestamp", "{}"))
	}
	provider := llm.NewScriptedProvider(responses...)
	a, err := New("qa", newTestEngine(provider),
		WithTools(timestampRegistry(t)),
		WithMaxToolRounds(3),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = a.Ask(context.Background(), "loop forever")
	if !errors.HasCode(err, errors.CodeTimeout) {
		t.Fatalf("expected TIMEOUT after round cap, got %v", err)
	}
	if provider.CallCount != 3 {
		t.Errorf("expected exactly 3 rounds, got %d", provider.CallCount)
	}
}

func TestAskPrependsSystemPrompt(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ScriptText("ok"))
	a, err := New("qa", newTestEngine(provider), WithSystemPrompt("You are terse."))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.Ask(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	first := provider.Requests[0].Messages[0]
	if first.Role != llm.RoleSystem || first.Content != "You are terse." {
		t.Errorf("expected system message first, got %+v", first)
	}
}

func TestAskRendersSystemTemplate(t *testing.T) {
	ts, err := NewTemplateSet(map[string]string{
		"persona": "You are {{.role}}.",
	})
	if err != nil {
		t.Fatal(err)
	}
	provider := llm.NewScriptedProvider(llm.ScriptText("ok"))
	a, err := New("qa", newTestEngine(provider), WithTemplates(ts))
	if err != nil {
		t.Fatal(err)
	}

	_, err = a.Ask(context.Background(), "hi",
		WithSystemTemplate("persona", map[string]any{"role": "a pirate"}))
	if err != nil {
		t.Fatal(err)
	}
	first := provider.Requests[0].Messages[0]
	if first.Content != "You are a pirate." {
		t.Errorf("expected rendered template as system message, got %q", first.Content)
	}
}

func TestAskThreadGrowsAcrossCalls(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ScriptText("one"), llm.ScriptText("two"))
	a, err := New("qa", newTestEngine(provider))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.Ask(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Ask(context.Background(), "second"); err != nil {
		t.Fatal(err)
	}
	if a.Thread().Len() != 4 {
		t.Errorf("expected 4 messages after two exchanges, got %d", a.Thread().Len())
	}
	if len(provider.Requests[1].Messages) != 3 {
		t.Errorf("second ask should replay prior exchange, got %d messages", len(provider.Requests[1].Messages))
	}
}
