// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cxbxmxcx/agenticbt/pkg/telemetry"
)

// Tree owns a root node and drives its evaluation. Ticking is synchronous
// and not reentrant; the caller must not issue a tick before the previous
// one returns.
type Tree struct {
	id        string
	root      *Node
	tickCount int
	runID     string
	tracer    trace.Tracer
	audit     AuditStore
	metrics   *telemetry.RunMetrics
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithAudit records every node evaluation into the given store.
func WithAudit(store AuditStore) TreeOption {
	return func(t *Tree) { t.audit = store }
}

// WithMetrics reports tick and node-failure counters.
func WithMetrics(m *telemetry.RunMetrics) TreeOption {
	return func(t *Tree) { t.metrics = m }
}

// NewTree creates a tree over the given root.
func NewTree(id string, root *Node, opts ...TreeOption) *Tree {
	t := &Tree{
		id:     id,
		root:   root,
		tracer: otel.Tracer("agenticbt/btree"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the tree identifier.
func (t *Tree) ID() string { return t.id }

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// RunID returns the identifier of the current run (one run per reset).
func (t *Tree) RunID() string { return t.runID }

// TickCount returns the number of ticks issued since Setup.
func (t *Tree) TickCount() int { return t.tickCount }

// Setup prepares the tree for its first run: statuses go to Invalid, memory
// clears, a fresh run ID is issued and observers are attached.
func (t *Tree) Setup(ctx context.Context) {
	t.root.setObserver(func(ev NodeEvent) { t.observe(ctx, ev) })
	t.ResetNodes()
}

// ResetNodes returns every node to Invalid, clears composite memory and
// starts a new run. Called between independent external requests.
func (t *Tree) ResetNodes() {
	t.root.Reset()
	t.runID = uuid.NewString()
}

// Tick issues one synchronous evaluation pass from the root and returns the
// root status. There is no mid-call cancellation; ctx reaches the leaves for
// their completion calls.
func (t *Tree) Tick(ctx context.Context) Status {
	t.tickCount++
	ctx, span := t.tracer.Start(ctx, "Tree.Tick",
		trace.WithAttributes(
			attribute.String("tree.id", t.id),
			attribute.String("tree.run_id", t.runID),
			attribute.Int("tree.tick", t.tickCount),
		),
	)
	defer span.End()

	status := t.root.Tick(ctx)
	span.SetAttributes(attribute.String("tree.status", status.String()))
	if t.metrics != nil {
		t.metrics.RecordTick(ctx, t.id, status.String())
	}
	return status
}

// Nodes enumerates the tree's nodes in declaration (preorder) order.
func (t *Tree) Nodes() []*Node {
	var nodes []*Node
	t.root.Walk(func(n *Node) { nodes = append(nodes, n) })
	return nodes
}

func (t *Tree) observe(ctx context.Context, ev NodeEvent) {
	if t.metrics != nil && ev.Status == StatusFailure {
		t.metrics.RecordNodeFailure(ctx, t.id, ev.Node)
	}
	if t.audit == nil {
		return
	}
	err := t.audit.Record(ctx, AuditEvent{
		TreeID:     t.id,
		RunID:      t.runID,
		Node:       ev.Node,
		Kind:       ev.Kind.String(),
		Status:     ev.Status.String(),
		StartedAt:  ev.StartedAt,
		FinishedAt: ev.FinishedAt,
	})
	if err != nil {
		slog.WarnContext(ctx, "audit record failed", "tree", t.id, "node", ev.Node, "error", err)
	}
}
