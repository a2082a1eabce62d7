package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/flow"
)

// SaveGraph replaces the stored nodes and edges of g.ID in one transaction.
// The write only happens if the stored version is older than g.Version (or
// nothing is stored yet); otherwise flow.ErrVersionConflict is returned.
func (s *PGStore) SaveGraph(ctx context.Context, g *flow.Graph) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		INSERT INTO workflows (id, version) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, updated_at = NOW()
		WHERE workflows.version < EXCLUDED.version`,
		g.ID, g.Version,
	)
	if err != nil {
		return fmt.Errorf("flow: upsert workflow: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: workflow %s at version %d", flow.ErrVersionConflict, g.ID, g.Version)
	}

	// Replace semantics: the snapshot is the whole graph.
	if _, err := tx.Exec(ctx, `DELETE FROM workflow_edges WHERE workflow_id = $1`, g.ID); err != nil {
		return fmt.Errorf("flow: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM workflow_nodes WHERE workflow_id = $1`, g.ID); err != nil {
		return fmt.Errorf("flow: delete nodes: %w", err)
	}

	for i, n := range g.Nodes {
		data, err := marshalNodeData(n)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_nodes (workflow_id, id, kind, ord, x, y, data) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			g.ID, n.ID, string(n.Kind), i, n.Position.X, n.Position.Y, data,
		); err != nil {
			return fmt.Errorf("flow: insert node %s: %w", n.ID, err)
		}
	}

	for i, e := range g.Edges {
		data, err := marshalEdgeData(e)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_edges (workflow_id, id, source_id, target_id, ord, data) VALUES ($1, $2, $3, $4, $5, $6)`,
			g.ID, e.ID, e.Source, e.Target, i, data,
		); err != nil {
			return fmt.Errorf("flow: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("flow: commit: %w", err)
	}
	return nil
}

// GetGraph retrieves a full graph (nodes + edges) by workflow ID.
// Returns nil, nil if the workflow doesn't exist.
func (s *PGStore) GetGraph(ctx context.Context, workflowID string) (*flow.Graph, error) {
	g := &flow.Graph{ID: workflowID}

	err := s.db.QueryRow(ctx, `SELECT version FROM workflows WHERE id = $1`, workflowID).Scan(&g.Version)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flow: get workflow: %w", err)
	}

	if g.Nodes, err = s.ListNodes(ctx, workflowID); err != nil {
		return nil, err
	}
	if g.Edges, err = s.ListEdges(ctx, workflowID); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGraph removes a workflow with its nodes and edges.
// No error if the workflow doesn't exist.
func (s *PGStore) DeleteGraph(ctx context.Context, workflowID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, workflowID); err != nil {
		return fmt.Errorf("flow: delete workflow: %w", err)
	}
	return nil
}
