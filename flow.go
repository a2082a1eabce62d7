package flow

// Graph is a workflow graph: a chain of task nodes bounded by one start and
// one end node. Version is bumped by the Editor on every change.
type Graph struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// NodeKind distinguishes the chain endpoints from task nodes.
type NodeKind string

const (
	KindStart NodeKind = "start"
	KindEnd   NodeKind = "end"
	KindTask  NodeKind = "task"
)

// TaskType is the closed set of task variants. Each variant has its own
// validation rule-set.
type TaskType string

const (
	TaskCreate      TaskType = "create"
	TaskApproval    TaskType = "approval"
	TaskIntegration TaskType = "integration"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskCreate, TaskApproval, TaskIntegration:
		return true
	}
	return false
}

// Position is a derived layout coordinate. It is recomputed from chain order
// after every structural change.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a vertex in the workflow graph.
type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Position Position `json:"position"`
	Data     TaskData `json:"data"`
}

// IsTask reports whether n is a task node.
func (n Node) IsTask() bool { return n.Kind == KindTask }

// TaskData holds a node's configuration plus the fields derived by the
// engine (SequenceNumber, PreviousSteps, ValidationErrors).
type TaskData struct {
	Label       string      `json:"label"`
	TaskType    TaskType    `json:"taskType,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Assignment  *Assignment `json:"assignment,omitempty"`
	Actions     []Action    `json:"actions,omitempty"`
	APIConfig   *APIConfig  `json:"apiConfig,omitempty"`
	NotifySteps []string    `json:"notifySteps,omitempty"`

	SequenceNumber   int            `json:"sequenceNumber,omitempty"`
	PreviousSteps    []PreviousStep `json:"previousSteps,omitempty"`
	ValidationErrors []string       `json:"validationErrors,omitempty"`
}

// AssignmentType says who a task is assigned to.
type AssignmentType string

const (
	AssignRole              AssignmentType = "role"
	AssignUser              AssignmentType = "user"
	AssignSupplier          AssignmentType = "supplier"
	AssignManager           AssignmentType = "manager"
	AssignSkipLevelManager  AssignmentType = "skip_level_manager"
	AssignDepartmentManager AssignmentType = "department_manager"
)

// Assignment is produced by the assignment form widget.
type Assignment struct {
	Type   AssignmentType `json:"type"`
	Values []string       `json:"values,omitempty"`
}

// ActionKind is the outcome an approval action leads to.
type ActionKind string

const (
	ActionAccept   ActionKind = "accept"
	ActionReject   ActionKind = "reject"
	ActionSendBack ActionKind = "send_back"
)

// Action is one button on an approval task. SendBackTo names a previous
// step id when Kind is ActionSendBack.
type Action struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Kind       ActionKind `json:"kind"`
	SendBackTo string     `json:"sendBackTo,omitempty"`
}

// APIConfig is produced by the API-integration form widget.
type APIConfig struct {
	SelectedAPI string            `json:"selectedApi"`
	Method      string            `json:"method,omitempty"`
	Mappings    map[string]string `json:"mappings,omitempty"`
}

// PreviousStep references an earlier task node by identity.
type PreviousStep struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	SequenceNumber int    `json:"sequenceNumber"`
}

// Edge is a directed connection between two nodes. Type, Animated, Label
// and Style are rendering metadata; the engine carries them over untouched.
type Edge struct {
	ID       string            `json:"id"`
	Source   string            `json:"source"`
	Target   string            `json:"target"`
	Type     string            `json:"type,omitempty"`
	Animated bool              `json:"animated,omitempty"`
	Label    string            `json:"label,omitempty"`
	Style    map[string]string `json:"style,omitempty"`
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{ID: g.ID, Version: g.Version}
	if g.Nodes != nil {
		out.Nodes = make([]Node, len(g.Nodes))
		for i, n := range g.Nodes {
			out.Nodes[i] = n.clone()
		}
	}
	if g.Edges != nil {
		out.Edges = make([]Edge, len(g.Edges))
		for i, e := range g.Edges {
			out.Edges[i] = e.clone()
		}
	}
	return out
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge returns the edge with the given id.
func (g Graph) Edge(id string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// Tasks returns the task nodes in chain order.
func (g Graph) Tasks() []Node {
	var tasks []Node
	for _, n := range orderByPosition(g.Nodes) {
		if n.IsTask() {
			tasks = append(tasks, n)
		}
	}
	return tasks
}

func (n Node) clone() Node {
	n.Data = n.Data.clone()
	return n
}

func (d TaskData) clone() TaskData {
	d.Tags = cloneSlice(d.Tags)
	d.Actions = cloneSlice(d.Actions)
	d.NotifySteps = cloneSlice(d.NotifySteps)
	d.PreviousSteps = cloneSlice(d.PreviousSteps)
	d.ValidationErrors = cloneSlice(d.ValidationErrors)
	if d.Assignment != nil {
		a := *d.Assignment
		a.Values = cloneSlice(a.Values)
		d.Assignment = &a
	}
	if d.APIConfig != nil {
		c := *d.APIConfig
		c.Mappings = cloneMap(c.Mappings)
		d.APIConfig = &c
	}
	return d
}

func (e Edge) clone() Edge {
	e.Style = cloneMap(e.Style)
	return e
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
