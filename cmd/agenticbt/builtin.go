// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cxbxmxcx/agenticbt/pkg/btree"
	"github.com/cxbxmxcx/agenticbt/pkg/tools"
)

// builtinRegistry returns the default tool set exposed to the agent.
func builtinRegistry() *tools.Registry {
	r := tools.NewRegistry()
	r.MustRegister(tools.Tool{
		Name:        "get_timestamp",
		Description: "Returns the current date and time in RFC 3339 format",
		Func: func(_ context.Context, _ map[string]any) (any, error) {
			return time.Now().Format(time.RFC3339), nil
		},
	})
	r.MustRegister(tools.Tool{
		Name:        "report",
		Description: "Formats a value into a short report line for the user",
		Params: []tools.Param{
			{Name: "value", Type: "string", Description: "The value to report", Required: true},
			{Name: "unit", Type: "string", Description: "Unit to report the value in", Enum: []string{"celsius", "fahrenheit"}},
		},
		Func: func(_ context.Context, args map[string]any) (any, error) {
			if unit, ok := args["unit"].(string); ok && unit != "" {
				return fmt.Sprintf("Report: %v (%s)", args["value"], unit), nil
			}
			return fmt.Sprintf("Report: %v", args["value"]), nil
		},
	})
	return r
}

// builtinDefinition is the default question-answering tree: a four-stage
// pipeline with a clarifying-question fallback.
func builtinDefinition() *btree.Definition {
	yes := true
	stage := func(name, instructions string) btree.NodeSpec {
		return btree.NodeSpec{
			Kind:         "action",
			Name:         name,
			Instructions: instructions,
			Inputs:       []string{"question"},
			Thread:       &yes,
		}
	}
	return &btree.Definition{
		ID: "qa",
		Root: btree.NodeSpec{
			Kind: "selector",
			Name: "respond",
			Children: []btree.NodeSpec{
				{
					Kind: "sequence",
					Name: "answer-pipeline",
					Children: []btree.NodeSpec{
						stage("expand",
							"Restate and expand the user's question so its intent is unambiguous: {{.question}}. If the question is too vague to expand, reply with the single word FAILURE."),
						stage("identify-sources",
							"List the kinds of knowledge needed to answer: {{.question}}. Reply FAILURE if you cannot identify any."),
						stage("answer",
							"Answer the question fully, using tools when helpful: {{.question}}"),
						{
							Kind: "condition",
							Name: "safety-check",
							Instructions: "Review your previous answer for accuracy and safety. " +
								"Reply SUCCESS if it is ready to show the user, or FAILURE if it is not.",
						},
					},
				},
				stage("clarify",
					"The question could not be answered as asked: {{.question}}. Ask the user one short clarifying question."),
			},
		},
	}
}
