package flow

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Ids of the two chain endpoints in every graph.
const (
	StartID = "start"
	EndID   = "end"
)

// DefaultEdgeType is the rendering type given to edges the engine creates
// from scratch. Edges produced by Split and Bridge inherit theirs.
const DefaultEdgeType = "smoothstep"

// Rejection messages for disallowed inserts.
const (
	MsgOnlyOneCreate     = "Only one Create task is allowed in the workflow"
	MsgCreateFirstOnly   = "Create task can only be added as the first step"
	MsgCreateMustBeFirst = "A Create task must be the first step"
)

// Rejection is a business-rule refusal of an insert. It is an expected
// outcome to be shown to the user; the graph is left unchanged.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// IsRejection reports whether err is a *Rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// Engine performs structural mutations on workflow graphs. Every operation
// takes a graph value and returns a new one; on error the input graph is
// returned as is. After a node is added or removed the engine re-derives
// layout, sequence numbers, previous steps and validation errors for the
// whole chain.
type Engine struct {
	layout Layout
	newID  func() string
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLayout sets the stack layout constants.
func WithLayout(l Layout) Option {
	return func(e *Engine) { e.layout = l }
}

// WithIDFunc sets the generator for new task node ids.
func WithIDFunc(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// WithLogger sets the logger used to report invariant breaches.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine with the default layout and uuid node ids.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		layout: DefaultLayout(),
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("module", "flow")
	return e
}

// Layout returns the engine's layout constants.
func (e *Engine) Layout() Layout { return e.layout }

// NewGraph returns the start → end skeleton.
func (e *Engine) NewGraph(id string) Graph {
	g := Graph{
		ID: id,
		Nodes: []Node{
			{ID: StartID, Kind: KindStart, Data: TaskData{Label: "Start"}},
			{ID: EndID, Kind: KindEnd, Data: TaskData{Label: "End"}},
		},
		Edges: []Edge{
			{ID: EdgeID(StartID, EndID), Source: StartID, Target: EndID, Type: DefaultEdgeType},
		},
	}
	g.Nodes = Arrange(g.Nodes, e.layout)
	return g
}

// InsertTask places a new task of type t on the anchor edge S→T, between S
// and T. Create tasks are limited to one per workflow and must be the first
// step; violations come back as *Rejection.
func (e *Engine) InsertTask(g Graph, anchorEdgeID string, t TaskType) (Graph, error) {
	if !t.Valid() {
		return g, fmt.Errorf("%w: %q", ErrUnknownTaskType, t)
	}

	hasCreate := hasTaskType(g, TaskCreate)
	if t == TaskCreate && hasCreate {
		return g, &Rejection{Message: MsgOnlyOneCreate}
	}

	anchor, ok := g.Edge(anchorEdgeID)
	if !ok {
		return g, fmt.Errorf("%w: %s", ErrEdgeNotFound, anchorEdgeID)
	}
	source, ok := g.Node(anchor.Source)
	if !ok {
		return g, fmt.Errorf("%w: %s", ErrNodeNotFound, anchor.Source)
	}
	target, ok := g.Node(anchor.Target)
	if !ok {
		return g, fmt.Errorf("%w: %s", ErrNodeNotFound, anchor.Target)
	}

	fromStart := source.Kind == KindStart
	if t == TaskCreate && !fromStart {
		return g, &Rejection{Message: MsgCreateFirstOnly}
	}
	if fromStart && hasCreate {
		return g, &Rejection{Message: MsgCreateMustBeFirst}
	}

	id := e.freshID(g)
	edges, err := Split(anchor.ID, id, g.Edges)
	if err != nil {
		return g, err
	}

	node := Node{
		ID:       id,
		Kind:     KindTask,
		Position: target.Position,
		Data:     defaultTaskData(t),
	}

	nodes := make([]Node, 0, len(g.Nodes)+1)
	for _, n := range g.Nodes {
		n = n.clone()
		if n.Position.Y >= target.Position.Y {
			n.Position.Y += e.layout.VerticalSpacing
		}
		nodes = append(nodes, n)
		if n.ID == source.ID {
			nodes = append(nodes, node)
		}
	}

	return e.refresh(Graph{ID: g.ID, Version: g.Version, Nodes: nodes, Edges: edges}), nil
}

// DeleteTask removes a task node and bridges its neighbours. A task with
// extra manual edges has each predecessor joined to each successor. Deleting
// the start or end node is refused with ErrTerminalNode.
func (e *Engine) DeleteTask(g Graph, nodeID string) (Graph, error) {
	node, ok := g.Node(nodeID)
	if !ok {
		return g, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if !node.IsTask() {
		e.logger.Warn("refusing to delete chain endpoint", "workflow_id", g.ID, "node_id", nodeID, "kind", node.Kind)
		return g, fmt.Errorf("%w: %s", ErrTerminalNode, nodeID)
	}

	if in, out := incident(nodeID, g.Edges); len(in) != 1 || len(out) != 1 {
		e.logger.Warn("task does not have exactly two incident edges, bridging every predecessor to every successor",
			"workflow_id", g.ID, "node_id", nodeID, "inbound", len(in), "outbound", len(out))
	}
	edges := Bridge(nodeID, g.Edges)

	nodes := make([]Node, 0, len(g.Nodes)-1)
	for _, n := range g.Nodes {
		if n.ID != nodeID {
			nodes = append(nodes, n)
		}
	}

	return e.refresh(Graph{ID: g.ID, Version: g.Version, Nodes: nodes, Edges: edges}), nil
}

// Connect adds an edge between two existing nodes without touching the
// rest of the graph. Derived node state is not recomputed.
func (e *Engine) Connect(g Graph, source, target string) (Graph, error) {
	if _, ok := g.Node(source); !ok {
		return g, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if _, ok := g.Node(target); !ok {
		return g, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}

	id := EdgeID(source, target)
	if _, exists := g.Edge(id); exists {
		return g, fmt.Errorf("%w: %s", ErrDuplicateEdge, id)
	}

	out := g.Clone()
	out.Edges = append(out.Edges, Edge{ID: id, Source: source, Target: target, Type: DefaultEdgeType})
	if err := validateAcyclic(out.Nodes, out.Edges); err != nil {
		return g, err
	}
	return out, nil
}

// TaskPatch is a configuration delta from the task form widgets. Nil fields
// are left unchanged.
type TaskPatch struct {
	Label       *string
	Tags        *[]string
	Assignment  *Assignment
	Actions     *[]Action
	APIConfig   *APIConfig
	NotifySteps *[]string
}

// UpdateTask applies p to a task node's data and re-derives state, since a
// label change shows up in every later task's previous steps.
func (e *Engine) UpdateTask(g Graph, nodeID string, p TaskPatch) (Graph, error) {
	node, ok := g.Node(nodeID)
	if !ok {
		return g, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if !node.IsTask() {
		return g, fmt.Errorf("%w: %s", ErrNotTask, nodeID)
	}

	out := g.Clone()
	for i := range out.Nodes {
		if out.Nodes[i].ID != nodeID {
			continue
		}
		d := &out.Nodes[i].Data
		if p.Label != nil {
			d.Label = *p.Label
		}
		if p.Tags != nil {
			d.Tags = cloneSlice(*p.Tags)
		}
		if p.Assignment != nil {
			a := *p.Assignment
			a.Values = cloneSlice(a.Values)
			d.Assignment = &a
		}
		if p.Actions != nil {
			d.Actions = cloneSlice(*p.Actions)
		}
		if p.APIConfig != nil {
			c := *p.APIConfig
			c.Mappings = cloneMap(c.Mappings)
			d.APIConfig = &c
		}
		if p.NotifySteps != nil {
			d.NotifySteps = cloneSlice(*p.NotifySteps)
		}
	}

	return e.refresh(out), nil
}

// Refresh re-derives positions, sequence numbers, previous steps and
// validation errors of g from its chain order.
func (e *Engine) Refresh(g Graph) Graph {
	return e.refresh(g)
}

func (e *Engine) refresh(g Graph) Graph {
	nodes := Arrange(orderByPosition(g.Nodes), e.layout)

	var tasks []Node
	for _, n := range nodes {
		if n.IsTask() {
			tasks = append(tasks, n)
		}
	}
	sequenced := make(map[string]Node, len(tasks))
	for _, n := range Resequence(tasks) {
		n.Data.ValidationErrors = Validate(n.Data.TaskType, n.Data)
		sequenced[n.ID] = n
	}
	for i, n := range nodes {
		if s, ok := sequenced[n.ID]; ok {
			nodes[i] = s
		}
	}

	edges := make([]Edge, len(g.Edges))
	for i, ed := range g.Edges {
		edges[i] = ed.clone()
	}
	return Graph{ID: g.ID, Version: g.Version, Nodes: nodes, Edges: edges}
}

const maxIDAttempts = 16

// freshID asks the id generator for an unused id, falling back to a uuid
// when the generator keeps returning taken or empty ids.
func (e *Engine) freshID(g Graph) string {
	for range maxIDAttempts {
		id := e.newID()
		if _, taken := g.Node(id); !taken && id != "" {
			return id
		}
	}
	e.logger.Warn("id generator returned no usable id, using a uuid", "workflow_id", g.ID, "attempts", maxIDAttempts)
	for {
		id := uuid.NewString()
		if _, taken := g.Node(id); !taken {
			return id
		}
	}
}

func hasTaskType(g Graph, t TaskType) bool {
	for _, n := range g.Nodes {
		if n.IsTask() && n.Data.TaskType == t {
			return true
		}
	}
	return false
}

func defaultTaskData(t TaskType) TaskData {
	d := TaskData{TaskType: t}
	switch t {
	case TaskCreate:
		d.Label = "Create Request"
	case TaskApproval:
		d.Label = "Approval"
		d.Actions = []Action{
			{ID: "accept", Label: "Accept", Kind: ActionAccept},
			{ID: "reject", Label: "Reject", Kind: ActionReject},
		}
	case TaskIntegration:
		d.Label = "Integration"
	}
	return d
}
