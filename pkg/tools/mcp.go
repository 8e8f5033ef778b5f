// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// MCPCaller abstracts MCP tool execution so adapters can be tested without
// a live server session.
type MCPCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// FromMCP adapts an MCP tool definition into a registry Tool. The MCP input
// schema's properties become declared parameters, so required-argument
// validation happens locally before the call crosses the wire.
func FromMCP(def mcp.Tool, caller MCPCaller) (Tool, error) {
	if def.Name == "" {
		return Tool{}, errors.New(errors.CodeInvalidArguments, "mcp tool name is required", nil)
	}
	if caller == nil {
		return Tool{}, errors.New(errors.CodeInvalidArguments, "mcp tool caller is required", nil)
	}

	return Tool{
		Name:        def.Name,
		Description: def.Description,
		Params:      paramsFromSchema(def.InputSchema),
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			result, err := caller.CallTool(ctx, def.Name, args)
			if err != nil {
				return nil, err
			}
			return mcpResultToOutput(result)
		},
	}, nil
}

// RegisterMCP adapts and registers every tool in the list.
func RegisterMCP(r *Registry, defs []mcp.Tool, caller MCPCaller) error {
	for _, def := range defs {
		tool, err := FromMCP(def, caller)
		if err != nil {
			return err
		}
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func paramsFromSchema(schema mcp.ToolInputSchema) []Param {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	params := make([]Param, 0, len(schema.Properties))
	for name, raw := range schema.Properties {
		p := Param{Name: name, Type: "string", Required: required[name]}
		if prop, ok := raw.(map[string]any); ok {
			if t, ok := prop["type"].(string); ok {
				p.Type = t
			}
			if d, ok := prop["description"].(string); ok {
				p.Description = d
			}
			if enum, ok := prop["enum"].([]any); ok {
				for _, e := range enum {
					if s, ok := e.(string); ok {
						p.Enum = append(p.Enum, s)
					}
				}
			}
		}
		params = append(params, p)
	}
	return params
}

func mcpResultToOutput(result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool returned no result", nil)
	}
	if result.IsError {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool returned an error", nil).
			WithContext("detail", extractTextContent(result.Content))
	}
	if result.StructuredContent != nil {
		if encoded, err := json.Marshal(result.StructuredContent); err == nil {
			return string(encoded), nil
		}
	}
	if text := extractTextContent(result.Content); text != "" {
		return text, nil
	}
	return "", nil
}

func extractTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}
