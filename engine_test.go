package flow_test

import (
	"math/rand"
	"testing"

	"github.com/meikuraledutech/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_NewGraph(t *testing.T) {
	t.Parallel()

	g := newTestEngine().NewGraph("wf")

	assert.Equal(t, "wf", g.ID)
	assert.Equal(t, []string{flow.StartID, flow.EndID}, nodeIDs(g))
	assert.Equal(t, []string{"e-start-end"}, edgeIDs(g))
	assert.NoError(t, flow.CheckGraph(g))
}

func TestEngine_InsertFirstCreateTask(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g, err := e.InsertTask(e.NewGraph("wf"), "e-start-end", flow.TaskCreate)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 3)
	assert.Equal(t, []string{"e-start-n1", "e-n1-end"}, edgeIDs(g))

	n1 := mustNode(t, g, "n1")
	assert.Equal(t, flow.KindTask, n1.Kind)
	assert.Equal(t, flow.TaskCreate, n1.Data.TaskType)
	assert.Equal(t, "Create Request", n1.Data.Label)
	assert.Equal(t, 1, n1.Data.SequenceNumber)
	assert.Empty(t, n1.Data.PreviousSteps)
	assert.Equal(t, []string{flow.MsgAssignmentRequired}, n1.Data.ValidationErrors)

	assert.Equal(t, flow.Position{X: 340, Y: 50}, mustNode(t, g, flow.StartID).Position)
	assert.Equal(t, flow.Position{X: 260, Y: 200}, n1.Position)
	assert.Equal(t, flow.Position{X: 340, Y: 350}, mustNode(t, g, flow.EndID).Position)
	assert.NoError(t, flow.CheckGraph(g))
}

func TestEngine_InsertBetweenTasks(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := chain(t, e)

	g, err := e.InsertTask(g, "e-n1-n2", flow.TaskIntegration)
	require.NoError(t, err)

	order := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		order = append(order, n.ID)
	}
	assert.Equal(t, []string{"start", "n1", "n4", "n2", "n3", "end"}, order)
	assert.Equal(t, []string{"e-start-n1", "e-n1-n4", "e-n4-n2", "e-n2-n3", "e-n3-end"}, edgeIDs(g))

	for i, n := range g.Nodes {
		assert.Equal(t, 50+float64(i)*150, n.Position.Y, n.ID)
	}

	n2 := mustNode(t, g, "n2")
	assert.Equal(t, 3, n2.Data.SequenceNumber)
	assert.Equal(t, []flow.PreviousStep{
		{ID: "n4", Label: "Integration", SequenceNumber: 2},
		{ID: "n1", Label: "Create Request", SequenceNumber: 1},
	}, n2.Data.PreviousSteps)
	assert.NoError(t, flow.CheckGraph(g))
}

func TestEngine_InsertRejections(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	withCreate, err := e.InsertTask(e.NewGraph("wf"), "e-start-end", flow.TaskCreate)
	require.NoError(t, err)
	withApproval, err := e.InsertTask(e.NewGraph("wf"), "e-start-end", flow.TaskApproval)
	require.NoError(t, err)

	tests := []struct {
		name     string
		graph    flow.Graph
		anchor   string
		taskType flow.TaskType
		message  string
	}{
		{
			name:     "second create task",
			graph:    withCreate,
			anchor:   "e-n1-end",
			taskType: flow.TaskCreate,
			message:  flow.MsgOnlyOneCreate,
		},
		{
			name:     "second create task checked before the anchor",
			graph:    withCreate,
			anchor:   "e-missing",
			taskType: flow.TaskCreate,
			message:  flow.MsgOnlyOneCreate,
		},
		{
			name:     "create task after another task",
			graph:    withApproval,
			anchor:   "e-n2-end",
			taskType: flow.TaskCreate,
			message:  flow.MsgCreateFirstOnly,
		},
		{
			name:     "non-create task ahead of the create task",
			graph:    withCreate,
			anchor:   "e-start-n1",
			taskType: flow.TaskApproval,
			message:  flow.MsgCreateMustBeFirst,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			before := tt.graph.Clone()

			out, err := e.InsertTask(tt.graph, tt.anchor, tt.taskType)

			require.Error(t, err)
			assert.True(t, flow.IsRejection(err))
			assert.EqualError(t, err, tt.message)
			assert.Equal(t, before, out)
			assert.Equal(t, before, tt.graph)
		})
	}
}

func TestEngine_InsertCreateAheadOfOtherTasks(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g, err := e.InsertTask(e.NewGraph("wf"), "e-start-end", flow.TaskApproval)
	require.NoError(t, err)

	g, err = e.InsertTask(g, "e-start-n1", flow.TaskCreate)
	require.NoError(t, err)

	assert.Equal(t, 1, mustNode(t, g, "n2").Data.SequenceNumber)
	approval := mustNode(t, g, "n1")
	assert.Equal(t, 2, approval.Data.SequenceNumber)
	assert.Equal(t, []flow.PreviousStep{{ID: "n2", Label: "Create Request", SequenceNumber: 1}}, approval.Data.PreviousSteps)
}

func TestEngine_InsertErrors(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := e.NewGraph("wf")

	_, err := e.InsertTask(g, "e-start-end", flow.TaskType("split"))
	assert.ErrorIs(t, err, flow.ErrUnknownTaskType)
	assert.False(t, flow.IsRejection(err))

	_, err = e.InsertTask(g, "e-nope", flow.TaskApproval)
	assert.ErrorIs(t, err, flow.ErrEdgeNotFound)
}

func TestEngine_DeleteMiddleTask(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := chain(t, e)

	g, err := e.DeleteTask(g, "n2")
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "n1", "n3", "end"}, nodeIDs(g))
	assert.Equal(t, []string{"e-start-n1", "e-n1-n3", "e-n3-end"}, edgeIDs(g))

	n3 := mustNode(t, g, "n3")
	assert.Equal(t, 2, n3.Data.SequenceNumber)
	assert.Equal(t, []flow.PreviousStep{{ID: "n1", Label: "Create Request", SequenceNumber: 1}}, n3.Data.PreviousSteps)
	assert.Equal(t, float64(350), n3.Position.Y)
	assert.Equal(t, float64(500), mustNode(t, g, flow.EndID).Position.Y)
	assert.NoError(t, flow.CheckGraph(g))
}

func TestEngine_DeleteOnlyTask(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g, err := e.InsertTask(e.NewGraph("wf"), "e-start-end", flow.TaskCreate)
	require.NoError(t, err)

	g, err = e.DeleteTask(g, "n1")
	require.NoError(t, err)

	assert.Equal(t, []flow.Edge{{ID: "e-start-end", Source: flow.StartID, Target: flow.EndID, Type: flow.DefaultEdgeType}}, g.Edges)
	assert.Equal(t, e.NewGraph("wf"), g)
}

func TestEngine_DeleteRevalidatesDownstream(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := chain(t, e)

	actions := []flow.Action{
		{ID: "accept", Label: "Accept", Kind: flow.ActionAccept},
		{ID: "back", Label: "Send back", Kind: flow.ActionSendBack, SendBackTo: "n1"},
	}
	g, err := e.UpdateTask(g, "n2", flow.TaskPatch{
		Assignment: &flow.Assignment{Type: flow.AssignManager},
		Actions:    &actions,
	})
	require.NoError(t, err)
	assert.Empty(t, mustNode(t, g, "n2").Data.ValidationErrors)

	g, err = e.DeleteTask(g, "n1")
	require.NoError(t, err)

	n2 := mustNode(t, g, "n2")
	assert.Equal(t, 1, n2.Data.SequenceNumber)
	assert.Equal(t, []string{flow.MsgSendBackNotPrevious}, n2.Data.ValidationErrors)
}

func TestEngine_DeleteErrors(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := chain(t, e)

	for _, id := range []string{flow.StartID, flow.EndID} {
		out, err := e.DeleteTask(g, id)
		assert.ErrorIs(t, err, flow.ErrTerminalNode)
		assert.Equal(t, g, out)
	}

	_, err := e.DeleteTask(g, "ghost")
	assert.ErrorIs(t, err, flow.ErrNodeNotFound)
}

func TestEngine_DeleteDanglingTaskDropsEdges(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g, err := e.InsertTask(e.NewGraph("wf"), "e-start-end", flow.TaskCreate)
	require.NoError(t, err)
	g.Edges = g.Edges[:1] // only e-start-n1 remains

	g, err = e.DeleteTask(g, "n1")
	require.NoError(t, err)

	assert.Empty(t, g.Edges)
	assert.Equal(t, []string{flow.StartID, flow.EndID}, nodeIDs(g))
}

func TestEngine_DeleteAfterConnectKeepsChainLinked(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g, err := e.InsertTask(e.NewGraph("wf"), "e-start-end", flow.TaskApproval)
	require.NoError(t, err)
	g, err = e.InsertTask(g, "e-n1-end", flow.TaskIntegration)
	require.NoError(t, err)
	g, err = e.Connect(g, flow.StartID, "n2")
	require.NoError(t, err)

	g, err = e.DeleteTask(g, "n2")
	require.NoError(t, err)

	assert.Equal(t, []string{"e-start-n1", "e-n1-end", "e-start-end"}, edgeIDs(g))
	assert.Equal(t, []string{flow.StartID, "n1", flow.EndID}, nodeIDs(g))
	assert.NoError(t, flow.CheckGraph(g))
}

func TestEngine_Connect(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := chain(t, e)

	out, err := e.Connect(g, "n1", flow.EndID)
	require.NoError(t, err)
	assert.Len(t, out.Edges, len(g.Edges)+1)
	assert.Equal(t, flow.Edge{ID: "e-n1-end", Source: "n1", Target: flow.EndID, Type: flow.DefaultEdgeType}, out.Edges[len(out.Edges)-1])
	assert.Equal(t, g.Nodes, out.Nodes)

	_, err = e.Connect(out, "n1", flow.EndID)
	assert.ErrorIs(t, err, flow.ErrDuplicateEdge)

	_, err = e.Connect(g, "n3", "n1")
	assert.ErrorIs(t, err, flow.ErrCycleDetected)

	_, err = e.Connect(g, "n2", "n2")
	assert.ErrorIs(t, err, flow.ErrCycleDetected)

	_, err = e.Connect(g, "n1", "ghost")
	assert.ErrorIs(t, err, flow.ErrNodeNotFound)
}

func TestEngine_UpdateTask(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := chain(t, e)

	label := "Raise purchase order"
	tags := []string{"procurement"}
	out, err := e.UpdateTask(g, "n1", flow.TaskPatch{Label: &label, Tags: &tags})
	require.NoError(t, err)

	n1 := mustNode(t, out, "n1")
	assert.Equal(t, label, n1.Data.Label)
	assert.Equal(t, tags, n1.Data.Tags)
	assert.Equal(t, flow.PreviousStep{ID: "n1", Label: label, SequenceNumber: 1}, mustNode(t, out, "n3").Data.PreviousSteps[1])
	assert.Equal(t, "Create Request", mustNode(t, g, "n1").Data.Label)

	blank := ""
	out, err = e.UpdateTask(out, "n3", flow.TaskPatch{Label: &blank})
	require.NoError(t, err)
	assert.Equal(t, []string{flow.MsgLabelRequired, flow.MsgAPIRequired}, mustNode(t, out, "n3").Data.ValidationErrors)

	_, err = e.UpdateTask(g, flow.StartID, flow.TaskPatch{Label: &label})
	assert.ErrorIs(t, err, flow.ErrNotTask)

	_, err = e.UpdateTask(g, "ghost", flow.TaskPatch{})
	assert.ErrorIs(t, err, flow.ErrNodeNotFound)
}

func TestEngine_ReinsertKeepsShape(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	g := chain(t, e)
	shape := sequenceShape(g)

	g, err := e.DeleteTask(g, "n2")
	require.NoError(t, err)
	g, err = e.InsertTask(g, "e-n1-n3", flow.TaskApproval)
	require.NoError(t, err)

	assert.Equal(t, shape, sequenceShape(g))
}

// TestEngine_RandomEdits applies a long random series of inserts and deletes
// and checks the chain stays well formed after each one.
func TestEngine_RandomEdits(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	rng := rand.New(rand.NewSource(7))
	types := []flow.TaskType{flow.TaskCreate, flow.TaskApproval, flow.TaskIntegration}
	g := e.NewGraph("wf")

	for step := 0; step < 300; step++ {
		tasks := g.Tasks()
		if len(tasks) > 0 && rng.Intn(3) == 0 {
			var err error
			g, err = e.DeleteTask(g, tasks[rng.Intn(len(tasks))].ID)
			require.NoError(t, err)
		} else {
			anchor := g.Edges[rng.Intn(len(g.Edges))]
			out, err := e.InsertTask(g, anchor.ID, types[rng.Intn(len(types))])
			if err != nil {
				require.True(t, flow.IsRejection(err), err)
				require.Equal(t, g, out)
				continue
			}
			g = out
		}

		require.NoError(t, flow.CheckGraph(g))
		for i, n := range g.Tasks() {
			require.Equal(t, i+1, n.Data.SequenceNumber)
			require.Len(t, n.Data.PreviousSteps, i)
			for j, p := range n.Data.PreviousSteps {
				require.Equal(t, i-j, p.SequenceNumber)
			}
			if n.Data.TaskType == flow.TaskCreate {
				require.Equal(t, 1, n.Data.SequenceNumber)
			}
		}
	}
}

func sequenceShape(g flow.Graph) []flow.TaskType {
	var shape []flow.TaskType
	for _, n := range g.Tasks() {
		shape = append(shape, n.Data.TaskType)
	}
	return shape
}

func TestEngine_StuckIDFuncFallsBackToUUID(t *testing.T) {
	t.Parallel()

	e := flow.NewEngine(
		flow.WithIDFunc(func() string { return "n1" }),
		flow.WithLogger(discardLogger()),
	)

	g, err := e.InsertTask(e.NewGraph("wf"), "e-start-end", flow.TaskApproval)
	require.NoError(t, err)
	g, err = e.InsertTask(g, "e-n1-end", flow.TaskApproval)
	require.NoError(t, err)

	tasks := g.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "n1", tasks[0].ID)
	assert.NotEqual(t, "n1", tasks[1].ID)
	assert.NotEmpty(t, tasks[1].ID)
	assert.NoError(t, flow.CheckGraph(g))

	empty := flow.NewEngine(
		flow.WithIDFunc(func() string { return "" }),
		flow.WithLogger(discardLogger()),
	)
	g, err = empty.InsertTask(empty.NewGraph("wf"), "e-start-end", flow.TaskIntegration)
	require.NoError(t, err)
	assert.NotEmpty(t, g.Tasks()[0].ID)
}
