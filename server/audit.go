package main

import (
	"context"
	"log/slog"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/events"
)

// auditChange writes every editor change to the log.
func auditChange(logger *slog.Logger) events.Handler {
	logger = logger.With("module", "audit")
	return func(ctx context.Context, c flow.Change) error {
		logger.InfoContext(ctx, "Workflow changed",
			"workflow_id", c.WorkflowID,
			"kind", c.Kind,
			"node_id", c.NodeID,
			"edge_id", c.EdgeID,
			"version", c.Version,
		)
		return nil
	}
}
