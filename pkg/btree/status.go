// SPDX-License-Identifier: Apache-2.0

// Package btree implements the tick-driven behavior tree that schedules
// agent-backed decision nodes: leaf tasks ask an agent, composites combine
// children with memory-aware sequence/selector semantics, and a Tree owns
// the root plus per-run observability.
package btree

// Status is the evaluation state of a node. It is transient per tick cycle
// and resets to Invalid on tree restart.
type Status int

const (
	// StatusInvalid marks a node that has not been evaluated this cycle.
	StatusInvalid Status = iota
	// StatusRunning marks a node still making progress.
	StatusRunning
	// StatusSuccess marks a node that completed successfully.
	StatusSuccess
	// StatusFailure marks a node that completed unsuccessfully.
	StatusFailure
)

// String returns the canonical upper-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	default:
		return "INVALID"
	}
}

// Terminal reports whether the status ends a tick cycle for its node.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}
