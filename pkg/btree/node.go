// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"context"
	"time"
)

// Kind discriminates the closed set of node variants.
type Kind int

const (
	// KindAction is a leaf that asks the agent and succeeds unless the
	// response carries the failure marker.
	KindAction Kind = iota
	// KindCondition is a leaf that succeeds only when the response carries
	// the success marker.
	KindCondition
	// KindSequence runs children in order until one fails.
	KindSequence
	// KindSelector runs children in order until one succeeds.
	KindSelector
)

// String returns the lower-case variant name.
func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindCondition:
		return "condition"
	case KindSequence:
		return "sequence"
	case KindSelector:
		return "selector"
	default:
		return "unknown"
	}
}

// NodeEvent describes one completed node evaluation, fed to tree observers.
type NodeEvent struct {
	Node       string
	Kind       Kind
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
}

type observer func(NodeEvent)

// Runner is the workload contract of a leaf node. Task is the standard
// implementation; tests substitute scripted runners.
type Runner interface {
	Run(ctx context.Context, condition bool) Status
}

// Node is a behavior tree node. The variant kind selects the Tick behavior;
// composites own their children exclusively, leaves carry a Task. Memory
// composites remember the index of the last Running child and resume there
// on the next tick.
type Node struct {
	kind     Kind
	name     string
	status   Status
	children []*Node
	running  int
	task     Runner
	observe  observer
}

// NewAction creates an action leaf over the given task.
func NewAction(name string, task Runner) *Node {
	return &Node{kind: KindAction, name: name, task: task}
}

// NewCondition creates a condition leaf over the given task.
func NewCondition(name string, task Runner) *Node {
	return &Node{kind: KindCondition, name: name, task: task}
}

// NewSequence creates a sequence-with-memory composite.
func NewSequence(name string, children ...*Node) *Node {
	return &Node{kind: KindSequence, name: name, children: children}
}

// NewSelector creates a selector-with-memory composite.
func NewSelector(name string, children ...*Node) *Node {
	return &Node{kind: KindSelector, name: name, children: children}
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Status returns the status from the node's most recent evaluation.
func (n *Node) Status() Status { return n.status }

// Children returns the node's direct children.
func (n *Node) Children() []*Node { return n.children }

// Reset returns the node and its subtree to Invalid and clears composite
// memory, readying the tree for a fresh cycle.
func (n *Node) Reset() {
	n.status = StatusInvalid
	n.running = 0
	for _, child := range n.children {
		child.Reset()
	}
}

// Walk visits the node and its subtree in declaration (preorder) order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, child := range n.children {
		child.Walk(visit)
	}
}

func (n *Node) setObserver(fn observer) {
	n.observe = fn
	for _, child := range n.children {
		child.setObserver(fn)
	}
}

// Tick evaluates the node synchronously and returns its status. Children of
// a composite are visited strictly in declaration order; a leaf runs its
// task to completion before control returns.
func (n *Node) Tick(ctx context.Context) Status {
	started := time.Now()

	switch n.kind {
	case KindSequence:
		n.status = n.tickSequence(ctx)
	case KindSelector:
		n.status = n.tickSelector(ctx)
	default:
		if n.task == nil {
			n.status = StatusFailure
		} else {
			n.status = n.task.Run(ctx, n.kind == KindCondition)
		}
	}

	if n.observe != nil {
		n.observe(NodeEvent{
			Node:       n.name,
			Kind:       n.kind,
			Status:     n.status,
			StartedAt:  started,
			FinishedAt: time.Now(),
		})
	}
	return n.status
}

// tickSequence advances left-to-right from the remembered index. A Running
// child is remembered for the next tick; a Failure fails the sequence and
// clears the memory; all children succeeding succeeds and clears.
func (n *Node) tickSequence(ctx context.Context) Status {
	for i := n.running; i < len(n.children); i++ {
		switch n.children[i].Tick(ctx) {
		case StatusRunning:
			n.running = i
			return StatusRunning
		case StatusFailure:
			n.running = 0
			return StatusFailure
		}
	}
	n.running = 0
	return StatusSuccess
}

// tickSelector advances left-to-right from the remembered index. A Success
// succeeds the selector immediately and clears the memory; a Running child
// is remembered; all children failing fails and clears.
func (n *Node) tickSelector(ctx context.Context) Status {
	for i := n.running; i < len(n.children); i++ {
		switch n.children[i].Tick(ctx) {
		case StatusRunning:
			n.running = i
			return StatusRunning
		case StatusSuccess:
			n.running = 0
			return StatusSuccess
		}
	}
	n.running = 0
	return StatusFailure
}
