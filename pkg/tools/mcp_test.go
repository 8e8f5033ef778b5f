package tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

type fakeCaller struct {
	lastName string
	lastArgs map[string]any
	result   *mcp.CallToolResult
	err      error
}

func (f *fakeCaller) CallTool(_ context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	f.lastName = name
	f.lastArgs = args
	return f.result, f.err
}

func weatherDef() mcp.Tool {
	return mcp.Tool{
		Name:        "get_weather",
		Description: "Returns the weather for a city",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"city": map[string]any{"type": "string", "description": "City name"},
			},
			Required: []string{"city"},
		},
	}
}

func TestFromMCPRequiresNameAndCaller(t *testing.T) {
	if _, err := FromMCP(mcp.Tool{}, &fakeCaller{}); err == nil {
		t.Error("expected error for unnamed tool")
	}
	if _, err := FromMCP(weatherDef(), nil); err == nil {
		t.Error("expected error for nil caller")
	}
}

func TestFromMCPDerivesParams(t *testing.T) {
	tool, err := FromMCP(weatherDef(), &fakeCaller{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tool.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(tool.Params))
	}
	if p := tool.Params[0]; p.Name != "city" || !p.Required || p.Type != "string" {
		t.Errorf("unexpected param: %+v", p)
	}
}

func TestMCPInvokeValidatesLocally(t *testing.T) {
	caller := &fakeCaller{}
	r := NewRegistry()
	if err := RegisterMCP(r, []mcp.Tool{weatherDef()}, caller); err != nil {
		t.Fatal(err)
	}

	_, err := r.Invoke(context.Background(), call("get_weather", `{}`))
	if !errors.HasCode(err, errors.CodeInvalidArguments) {
		t.Errorf("expected INVALID_ARGUMENTS before the wire call, got %v", err)
	}
	if caller.lastName != "" {
		t.Error("invalid arguments must not reach the caller")
	}
}

func TestMCPInvokeReturnsText(t *testing.T) {
	caller := &fakeCaller{
		result: &mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "sunny"}},
		},
	}
	r := NewRegistry()
	if err := RegisterMCP(r, []mcp.Tool{weatherDef()}, caller); err != nil {
		t.Fatal(err)
	}

	result, err := r.Invoke(context.Background(), call("get_weather", `{"city":"Madrid"}`))
	if err != nil {
		t.Fatal(err)
	}
	if result != "sunny" {
		t.Errorf("expected text content, got %v", result)
	}
	if caller.lastArgs["city"] != "Madrid" {
		t.Errorf("expected city argument forwarded, got %v", caller.lastArgs)
	}
}

func TestMCPInvokeErrorResult(t *testing.T) {
	caller := &fakeCaller{
		result: &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "city not found"}},
		},
	}
	r := NewRegistry()
	if err := RegisterMCP(r, []mcp.Tool{weatherDef()}, caller); err != nil {
		t.Fatal(err)
	}

	_, err := r.Invoke(context.Background(), call("get_weather", `{"city":"Atlantis"}`))
	if !errors.HasCode(err, errors.CodeToolFailure) {
		t.Errorf("expected TOOL_FAILURE for error result, got %v", err)
	}
}
