// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunMetrics tracks tree execution and token consumption counters.
type RunMetrics struct {
	tickCounter        metric.Int64Counter
	nodeFailureCounter metric.Int64Counter
	tokenCounter       metric.Int64Counter
}

// NewRunMetrics creates the runtime counters on the global meter provider.
func NewRunMetrics() (*RunMetrics, error) {
	meter := otel.Meter("agenticbt/runtime")

	tickCounter, err := meter.Int64Counter(
		"agenticbt.tree.ticks",
		metric.WithDescription("Tree ticks by tree id and resulting root status"),
	)
	if err != nil {
		return nil, err
	}

	nodeFailureCounter, err := meter.Int64Counter(
		"agenticbt.node.failures",
		metric.WithDescription("Node evaluations that ended in FAILURE"),
	)
	if err != nil {
		return nil, err
	}

	tokenCounter, err := meter.Int64Counter(
		"agenticbt.llm.tokens",
		metric.WithDescription("Tokens consumed by direction (prompt/completion)"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		tickCounter:        tickCounter,
		nodeFailureCounter: nodeFailureCounter,
		tokenCounter:       tokenCounter,
	}, nil
}

// RecordTick counts one tick of the given tree with its root status.
func (m *RunMetrics) RecordTick(ctx context.Context, treeID, status string) {
	if m == nil {
		return
	}
	m.tickCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tree.id", treeID),
			attribute.String("tree.status", status),
		),
	)
}

// RecordNodeFailure counts a node evaluation that ended in FAILURE.
func (m *RunMetrics) RecordNodeFailure(ctx context.Context, treeID, node string) {
	if m == nil {
		return
	}
	m.nodeFailureCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tree.id", treeID),
			attribute.String("node", node),
		),
	)
}

// AddTokens counts prompt and completion tokens for a model.
func (m *RunMetrics) AddTokens(ctx context.Context, model string, prompt, completion int) {
	if m == nil {
		return
	}
	if prompt > 0 {
		m.tokenCounter.Add(ctx, int64(prompt),
			metric.WithAttributes(
				attribute.String("model", model),
				attribute.String("direction", "prompt"),
			),
		)
	}
	if completion > 0 {
		m.tokenCounter.Add(ctx, int64(completion),
			metric.WithAttributes(
				attribute.String("model", model),
				attribute.String("direction", "completion"),
			),
		)
	}
}
