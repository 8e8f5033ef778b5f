// SPDX-License-Identifier: Apache-2.0

// Package tools provides the declarative tool model and registry used for
// LLM tool calling. A tool declares its parameters up front so the JSON
// schema sent to the completion service is derived rather than hand-written.
package tools

import (
	"context"

	"github.com/cxbxmxcx/agenticbt/pkg/llm"
)

// Param describes a single tool parameter.
type Param struct {
	Name        string
	Type        string // JSON schema type: string, number, integer, boolean
	Description string
	Required    bool
	Enum        []string
}

// Func is the executable body of a tool. Arguments arrive as the decoded
// JSON object from the model's tool call.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Tool is a callable capability exposed to the model.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Func        Func
}

// Definition derives the LLM function definition from the declared
// parameters.
func (t Tool) Definition() llm.Tool {
	props := map[string]any{}
	var required []string
	for _, p := range t.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if required == nil {
		required = []string{}
	}
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		},
	}
}
