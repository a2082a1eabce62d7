package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/meikuraledutech/flow"
)

var errWorkflowExists = errors.New("workflow already exists")

// sessions keeps one editor per open workflow so that changes to a graph
// are serialised through a single writer.
type sessions struct {
	mu      sync.Mutex
	editors map[string]*flow.Editor
	store   flow.Store
	engine  *flow.Engine
	opts    []flow.EditorOption
}

func newSessions(store flow.Store, engine *flow.Engine, opts ...flow.EditorOption) *sessions {
	return &sessions{
		editors: make(map[string]*flow.Editor),
		store:   store,
		engine:  engine,
		opts:    opts,
	}
}

// get returns the editor for a workflow, loading it from the store on first
// use.
func (s *sessions) get(ctx context.Context, workflowID string) (*flow.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ed, ok := s.editors[workflowID]; ok {
		return ed, nil
	}

	g, err := s.store.GetGraph(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", flow.ErrGraphNotFound, workflowID)
	}
	if err := flow.CheckGraph(*g); err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}

	ed := flow.NewEditor(s.engine, *g, s.opts...)
	s.editors[workflowID] = ed
	return ed, nil
}

// create stores a new start → end skeleton.
func (s *sessions) create(ctx context.Context, workflowID string) (flow.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetGraph(ctx, workflowID)
	if err != nil {
		return flow.Graph{}, err
	}
	if existing != nil {
		return flow.Graph{}, fmt.Errorf("%w: %s", errWorkflowExists, workflowID)
	}

	g := s.engine.NewGraph(workflowID)
	if err := s.store.SaveGraph(ctx, &g); err != nil {
		return flow.Graph{}, err
	}

	s.editors[workflowID] = flow.NewEditor(s.engine, g, s.opts...)
	return g, nil
}

// drop forgets the editor of a workflow; the next get reloads it.
func (s *sessions) drop(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.editors, workflowID)
}
