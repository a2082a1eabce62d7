package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/flow"
)

// ListNodes returns all nodes of a workflow in chain order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, workflowID string) ([]flow.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, kind, x, y, data FROM workflow_nodes WHERE workflow_id = $1 ORDER BY ord`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("flow: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []flow.Node{}
	for rows.Next() {
		var (
			n    flow.Node
			kind string
			data []byte
		)
		if err := rows.Scan(&n.ID, &kind, &n.Position.X, &n.Position.Y, &data); err != nil {
			return nil, fmt.Errorf("flow: scan node: %w", err)
		}
		n.Kind = flow.NodeKind(kind)
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("flow: decode node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows nodes: %w", err)
	}

	return nodes, nil
}

func marshalNodeData(n flow.Node) ([]byte, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, fmt.Errorf("flow: encode node %s: %w", n.ID, err)
	}
	return data, nil
}
