package flow_test

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/meikuraledutech/flow"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine returns an engine whose task ids are n1, n2, ...
func newTestEngine() *flow.Engine {
	n := 0
	return flow.NewEngine(
		flow.WithIDFunc(func() string {
			n++
			return fmt.Sprintf("n%d", n)
		}),
		flow.WithLogger(discardLogger()),
	)
}

// chain builds start → create(n1) → approval(n2) → integration(n3) → end.
func chain(t *testing.T, e *flow.Engine) flow.Graph {
	t.Helper()
	g := e.NewGraph("wf")
	g, err := e.InsertTask(g, "e-start-end", flow.TaskCreate)
	require.NoError(t, err)
	g, err = e.InsertTask(g, "e-n1-end", flow.TaskApproval)
	require.NoError(t, err)
	g, err = e.InsertTask(g, "e-n2-end", flow.TaskIntegration)
	require.NoError(t, err)
	return g
}

func mustNode(t *testing.T, g flow.Graph, id string) flow.Node {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %s not found", id)
	return n
}

func edgeIDs(g flow.Graph) []string {
	ids := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func nodeIDs(g flow.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
