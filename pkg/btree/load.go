// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cxbxmxcx/agenticbt/pkg/agent"
	"github.com/cxbxmxcx/agenticbt/pkg/blackboard"
	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// Definition is a declarative tree description as loaded from YAML.
type Definition struct {
	ID   string   `yaml:"id"`
	Root NodeSpec `yaml:"root"`
}

// NodeSpec describes one node of a tree definition. Composites carry
// children; leaves carry instructions plus declared input/output keys.
type NodeSpec struct {
	Kind         string     `yaml:"kind"`
	Name         string     `yaml:"name"`
	Instructions string     `yaml:"instructions,omitempty"`
	Inputs       []string   `yaml:"inputs,omitempty"`
	Outputs      []string   `yaml:"outputs,omitempty"`
	Thread       *bool      `yaml:"thread,omitempty"`
	Children     []NodeSpec `yaml:"children,omitempty"`
}

// LoadDefinition reads and parses a YAML tree definition file.
func LoadDefinition(path string) (*Definition, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.CodeConfig, "tree definition path is required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfig, "failed to read tree definition", err).
			WithContext("path", path)
	}
	return ParseDefinition(data)
}

// ParseDefinition parses a YAML tree definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.New(errors.CodeConfig, "invalid tree definition yaml", err)
	}
	if def.ID == "" {
		return nil, errors.New(errors.CodeConfig, "tree definition needs an id", nil)
	}
	if err := def.Root.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (s NodeSpec) validate() error {
	if s.Name == "" {
		return errors.New(errors.CodeConfig, "node spec needs a name", nil)
	}
	switch s.Kind {
	case "sequence", "selector":
		if len(s.Children) == 0 {
			return errors.New(errors.CodeConfig, "composite node needs children", nil).
				WithContext("node", s.Name)
		}
		if s.Instructions != "" {
			return errors.New(errors.CodeConfig, "composite node cannot carry instructions", nil).
				WithContext("node", s.Name)
		}
		for _, child := range s.Children {
			if err := child.validate(); err != nil {
				return err
			}
		}
	case "action", "condition":
		if len(s.Children) > 0 {
			return errors.New(errors.CodeConfig, "leaf node cannot carry children", nil).
				WithContext("node", s.Name)
		}
		if s.Instructions == "" {
			return errors.New(errors.CodeConfig, "leaf node needs instructions", nil).
				WithContext("node", s.Name)
		}
	default:
		return errors.New(errors.CodeConfig, "unknown node kind", nil).
			WithContext("node", s.Name).
			WithContext("kind", s.Kind)
	}
	return nil
}

// Build compiles the definition into a Tree bound to the given agent and
// board.
func (d *Definition) Build(ag *agent.Agent, board *blackboard.Board, opts ...TreeOption) (*Tree, error) {
	root, err := d.Root.build(ag, board)
	if err != nil {
		return nil, err
	}
	return NewTree(d.ID, root, opts...), nil
}

func (s NodeSpec) build(ag *agent.Agent, board *blackboard.Board) (*Node, error) {
	switch s.Kind {
	case "sequence", "selector":
		children := make([]*Node, 0, len(s.Children))
		for _, spec := range s.Children {
			child, err := spec.build(ag, board)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if s.Kind == "sequence" {
			return NewSequence(s.Name, children...), nil
		}
		return NewSelector(s.Name, children...), nil
	default:
		opts := []TaskOption{WithInputs(s.Inputs...), WithOutputs(s.Outputs...)}
		if s.Thread != nil && !*s.Thread {
			opts = append(opts, WithoutThread())
		}
		task, err := NewTask(s.Name, ag, board, s.Instructions, opts...)
		if err != nil {
			return nil, err
		}
		if s.Kind == "condition" {
			return NewCondition(s.Name, task), nil
		}
		return NewAction(s.Name, task), nil
	}
}
