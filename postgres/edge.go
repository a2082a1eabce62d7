package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/flow"
)

// edgeData is the rendering metadata stored in workflow_edges.data.
type edgeData struct {
	Type     string            `json:"type,omitempty"`
	Animated bool              `json:"animated,omitempty"`
	Label    string            `json:"label,omitempty"`
	Style    map[string]string `json:"style,omitempty"`
}

// ListEdges returns all edges of a workflow in stored order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, workflowID string) ([]flow.Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source_id, target_id, data FROM workflow_edges WHERE workflow_id = $1 ORDER BY ord`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("flow: list edges: %w", err)
	}
	defer rows.Close()

	edges := []flow.Edge{}
	for rows.Next() {
		var (
			e    flow.Edge
			raw  []byte
			meta edgeData
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &raw); err != nil {
			return nil, fmt.Errorf("flow: scan edge: %w", err)
		}
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("flow: decode edge %s: %w", e.ID, err)
		}
		e.Type, e.Animated, e.Label, e.Style = meta.Type, meta.Animated, meta.Label, meta.Style
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows edges: %w", err)
	}

	return edges, nil
}

func marshalEdgeData(e flow.Edge) ([]byte, error) {
	data, err := json.Marshal(edgeData{Type: e.Type, Animated: e.Animated, Label: e.Label, Style: e.Style})
	if err != nil {
		return nil, fmt.Errorf("flow: encode edge %s: %w", e.ID, err)
	}
	return data, nil
}
