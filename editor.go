package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AnyVersion skips the optimistic version check in Editor.Apply.
const AnyVersion int64 = -1

const defaultHistoryLimit = 50

// ChangeKind names an editor change.
type ChangeKind string

const (
	ChangeTaskInserted  ChangeKind = "task_inserted"
	ChangeTaskDeleted   ChangeKind = "task_deleted"
	ChangeTaskUpdated   ChangeKind = "task_updated"
	ChangeEdgeConnected ChangeKind = "edge_connected"
	ChangeUndone        ChangeKind = "undone"
	ChangeRedone        ChangeKind = "redone"
)

// Change describes one applied editor change.
type Change struct {
	WorkflowID string     `json:"workflowId"`
	Kind       ChangeKind `json:"kind"`
	NodeID     string     `json:"nodeId,omitempty"`
	EdgeID     string     `json:"edgeId,omitempty"`
	Version    int64      `json:"version"`
	At         time.Time  `json:"at"`
}

// Notifier receives every change the editor applies.
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

// Saver persists graph snapshots. Every Store is a Saver.
type Saver interface {
	SaveGraph(ctx context.Context, g *Graph) error
}

// Op is a structural or configuration change to run through an Editor.
type Op struct {
	kind  ChangeKind
	apply func(e *Engine, g Graph) (Graph, Change, error)
}

// InsertTaskOp inserts a task of type t on the anchor edge.
func InsertTaskOp(anchorEdgeID string, t TaskType) Op {
	return Op{kind: ChangeTaskInserted, apply: func(e *Engine, g Graph) (Graph, Change, error) {
		out, err := e.InsertTask(g, anchorEdgeID, t)
		if err != nil {
			return g, Change{}, err
		}
		return out, Change{NodeID: newNodeID(g, out)}, nil
	}}
}

// DeleteTaskOp deletes a task node.
func DeleteTaskOp(nodeID string) Op {
	return Op{kind: ChangeTaskDeleted, apply: func(e *Engine, g Graph) (Graph, Change, error) {
		out, err := e.DeleteTask(g, nodeID)
		return out, Change{NodeID: nodeID}, err
	}}
}

// UpdateTaskOp applies a configuration delta to a task node.
func UpdateTaskOp(nodeID string, p TaskPatch) Op {
	return Op{kind: ChangeTaskUpdated, apply: func(e *Engine, g Graph) (Graph, Change, error) {
		out, err := e.UpdateTask(g, nodeID, p)
		return out, Change{NodeID: nodeID}, err
	}}
}

// ConnectOp adds a manual edge.
func ConnectOp(source, target string) Op {
	return Op{kind: ChangeEdgeConnected, apply: func(e *Engine, g Graph) (Graph, Change, error) {
		out, err := e.Connect(g, source, target)
		return out, Change{EdgeID: EdgeID(source, target)}, err
	}}
}

// Editor owns the current graph of one editing session. All changes go
// through it one at a time; each successful change bumps Graph.Version and
// is recorded for undo.
type Editor struct {
	mu       sync.Mutex
	engine   *Engine
	graph    Graph
	undo     []Graph
	redo     []Graph
	limit    int
	saver    Saver
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithNotifier sets the receiver of applied changes.
func WithNotifier(n Notifier) EditorOption {
	return func(ed *Editor) { ed.notifier = n }
}

// WithSaver makes the editor save every new graph before installing it.
// A failed save leaves the session unchanged.
func WithSaver(s Saver) EditorOption {
	return func(ed *Editor) { ed.saver = s }
}

// WithHistoryLimit bounds the undo history.
func WithHistoryLimit(n int) EditorOption {
	return func(ed *Editor) { ed.limit = n }
}

// WithEditorLogger sets the editor's logger.
func WithEditorLogger(l *slog.Logger) EditorOption {
	return func(ed *Editor) { ed.logger = l }
}

// NewEditor starts a session on g.
func NewEditor(engine *Engine, g Graph, opts ...EditorOption) *Editor {
	ed := &Editor{
		engine: engine,
		graph:  g.Clone(),
		limit:  defaultHistoryLimit,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ed)
	}
	ed.logger = ed.logger.With("module", "editor", "workflow_id", g.ID)
	return ed
}

// Graph returns a snapshot of the current graph.
func (ed *Editor) Graph() Graph {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.graph.Clone()
}

// Apply runs op against the current graph. If expected is not AnyVersion
// and differs from the current version, ErrVersionConflict is returned.
// Rejections and other errors leave the graph unchanged.
func (ed *Editor) Apply(ctx context.Context, expected int64, op Op) (Graph, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if expected != AnyVersion && expected != ed.graph.Version {
		return ed.graph.Clone(), fmt.Errorf("%w: have %d, got %d", ErrVersionConflict, ed.graph.Version, expected)
	}

	out, change, err := op.apply(ed.engine, ed.graph)
	if err != nil {
		return ed.graph.Clone(), err
	}

	prev := ed.graph
	if err := ed.commit(ctx, out, op.kind, change); err != nil {
		return ed.graph.Clone(), err
	}
	ed.push(&ed.undo, prev)
	ed.redo = nil
	return ed.graph.Clone(), nil
}

// InsertTask inserts a task regardless of version.
func (ed *Editor) InsertTask(ctx context.Context, anchorEdgeID string, t TaskType) (Graph, error) {
	return ed.Apply(ctx, AnyVersion, InsertTaskOp(anchorEdgeID, t))
}

// DeleteTask deletes a task regardless of version.
func (ed *Editor) DeleteTask(ctx context.Context, nodeID string) (Graph, error) {
	return ed.Apply(ctx, AnyVersion, DeleteTaskOp(nodeID))
}

// UpdateTask updates a task regardless of version.
func (ed *Editor) UpdateTask(ctx context.Context, nodeID string, p TaskPatch) (Graph, error) {
	return ed.Apply(ctx, AnyVersion, UpdateTaskOp(nodeID, p))
}

// Connect adds an edge regardless of version.
func (ed *Editor) Connect(ctx context.Context, source, target string) (Graph, error) {
	return ed.Apply(ctx, AnyVersion, ConnectOp(source, target))
}

// Undo restores the graph as it was before the last change.
func (ed *Editor) Undo(ctx context.Context) (Graph, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if len(ed.undo) == 0 {
		return ed.graph.Clone(), ErrNothingToUndo
	}
	cur := ed.graph
	if err := ed.commit(ctx, ed.undo[len(ed.undo)-1], ChangeUndone, Change{}); err != nil {
		return ed.graph.Clone(), err
	}
	ed.undo = ed.undo[:len(ed.undo)-1]
	ed.push(&ed.redo, cur)
	return ed.graph.Clone(), nil
}

// Redo re-applies the last undone change.
func (ed *Editor) Redo(ctx context.Context) (Graph, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if len(ed.redo) == 0 {
		return ed.graph.Clone(), ErrNothingToRedo
	}
	cur := ed.graph
	if err := ed.commit(ctx, ed.redo[len(ed.redo)-1], ChangeRedone, Change{}); err != nil {
		return ed.graph.Clone(), err
	}
	ed.redo = ed.redo[:len(ed.redo)-1]
	ed.push(&ed.undo, cur)
	return ed.graph.Clone(), nil
}

// commit saves g under a new version, installs it as the current graph and
// notifies. The caller holds mu.
func (ed *Editor) commit(ctx context.Context, g Graph, kind ChangeKind, change Change) error {
	g.Version = ed.graph.Version + 1
	if ed.saver != nil {
		if err := ed.saver.SaveGraph(ctx, &g); err != nil {
			ed.logger.ErrorContext(ctx, "failed to save graph", "kind", kind, "version", g.Version, "error", err)
			return fmt.Errorf("%w: %w", ErrSaveFailed, err)
		}
	}
	ed.graph = g

	change.WorkflowID = g.ID
	change.Kind = kind
	change.Version = g.Version
	change.At = ed.now()

	ed.logger.DebugContext(ctx, "graph changed", "kind", kind, "version", g.Version, "node_id", change.NodeID)

	if ed.notifier == nil {
		return nil
	}
	if err := ed.notifier.Notify(ctx, change); err != nil {
		ed.logger.ErrorContext(ctx, "failed to notify change", "kind", kind, "version", g.Version, "error", err)
	}
	return nil
}

func (ed *Editor) push(stack *[]Graph, g Graph) {
	*stack = append(*stack, g)
	if ed.limit > 0 && len(*stack) > ed.limit {
		*stack = (*stack)[len(*stack)-ed.limit:]
	}
}

// newNodeID finds the node present in after but not in before.
func newNodeID(before, after Graph) string {
	for _, n := range after.Nodes {
		if _, ok := before.Node(n.ID); !ok {
			return n.ID
		}
	}
	return ""
}
