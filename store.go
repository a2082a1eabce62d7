package flow

import (
	"context"
	"errors"
)

var (
	ErrCycleDetected   = errors.New("flow: cycle detected, graph is not acyclic")
	ErrNodeNotFound    = errors.New("flow: node not found")
	ErrEdgeNotFound    = errors.New("flow: edge not found")
	ErrGraphNotFound   = errors.New("flow: workflow graph not found")
	ErrTerminalNode    = errors.New("flow: start and end nodes cannot be deleted")
	ErrNotTask         = errors.New("flow: node is not a task")
	ErrDuplicateEdge   = errors.New("flow: edge already exists")
	ErrUnknownTaskType = errors.New("flow: unknown task type")
	ErrMalformedGraph  = errors.New("flow: malformed graph")
	ErrVersionConflict = errors.New("flow: graph version conflict")
	ErrNothingToUndo   = errors.New("flow: nothing to undo")
	ErrNothingToRedo   = errors.New("flow: nothing to redo")
	ErrSaveFailed      = errors.New("flow: saving graph failed")
)

// Store defines the contract for persisting and retrieving workflow graphs.
// SaveGraph must refuse to overwrite a stored graph whose version is not
// older than g.Version, returning ErrVersionConflict.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Graph snapshots
	SaveGraph(ctx context.Context, g *Graph) error
	GetGraph(ctx context.Context, workflowID string) (*Graph, error)
	DeleteGraph(ctx context.Context, workflowID string) error

	// Read-only views
	ListNodes(ctx context.Context, workflowID string) ([]Node, error)
	ListEdges(ctx context.Context, workflowID string) ([]Edge, error)
}
