// Package redisstore keeps workflow graph snapshots in Redis, one JSON
// document per workflow.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meikuraledutech/flow"
	redis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "flow:graph:"

var _ flow.Store = (*Store)(nil)

// Store implements flow.Store on a Redis client.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New creates a Store using rdb.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, prefix: defaultPrefix}
}

func (s *Store) key(workflowID string) string {
	return s.prefix + workflowID
}

// CreateSchema only checks connectivity; Redis needs no schema.
func (s *Store) CreateSchema(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("flow: ping redis: %w", err)
	}
	return nil
}

// DropSchema deletes every stored graph.
func (s *Store) DropSchema(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("flow: delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("flow: scan graphs: %w", err)
	}
	return nil
}

// SaveGraph writes g if the stored copy is older than g.Version. The check
// and the write run in one WATCH/MULTI transaction.
func (s *Store) SaveGraph(ctx context.Context, g *flow.Graph) error {
	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("flow: encode graph: %w", err)
	}
	key := s.key(g.ID)

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("flow: get graph: %w", err)
		default:
			var stored struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal(raw, &stored); err != nil {
				return fmt.Errorf("flow: decode graph: %w", err)
			}
			if stored.Version >= g.Version {
				return fmt.Errorf("%w: workflow %s at version %d", flow.ErrVersionConflict, g.ID, g.Version)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: workflow %s changed concurrently", flow.ErrVersionConflict, g.ID)
	}
	return err
}

// GetGraph returns nil, nil if the workflow doesn't exist.
func (s *Store) GetGraph(ctx context.Context, workflowID string) (*flow.Graph, error) {
	raw, err := s.rdb.Get(ctx, s.key(workflowID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("flow: get graph: %w", err)
	}

	var g flow.Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("flow: decode graph: %w", err)
	}
	return &g, nil
}

// DeleteGraph removes a workflow. No error if it doesn't exist.
func (s *Store) DeleteGraph(ctx context.Context, workflowID string) error {
	if err := s.rdb.Del(ctx, s.key(workflowID)).Err(); err != nil {
		return fmt.Errorf("flow: delete graph: %w", err)
	}
	return nil
}

// ListNodes returns an empty slice (not nil) if the workflow doesn't exist.
func (s *Store) ListNodes(ctx context.Context, workflowID string) ([]flow.Node, error) {
	g, err := s.GetGraph(ctx, workflowID)
	if err != nil || g == nil {
		return []flow.Node{}, err
	}
	return append([]flow.Node{}, g.Nodes...), nil
}

// ListEdges returns an empty slice (not nil) if the workflow doesn't exist.
func (s *Store) ListEdges(ctx context.Context, workflowID string) ([]flow.Edge, error) {
	g, err := s.GetGraph(ctx, workflowID)
	if err != nil || g == nil {
		return []flow.Edge{}, err
	}
	return append([]flow.Edge{}, g.Edges...), nil
}
