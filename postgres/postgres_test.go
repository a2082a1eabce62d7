//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *tcpostgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

// setupStore starts (or reuses) a postgres container and returns a store
// with a fresh schema.
func setupStore(t *testing.T) (*postgres.PGStore, context.Context) {
	t.Helper()
	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("flow_test"),
			tcpostgres.WithUsername("flow"),
			tcpostgres.WithPassword("flow"),
			tcpostgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := postgres.New(pool)
	require.NoError(t, store.DropSchema(ctx))
	require.NoError(t, store.CreateSchema(ctx))

	return store, ctx
}

func sampleGraph(t *testing.T) flow.Graph {
	t.Helper()
	e := flow.NewEngine()
	g := e.NewGraph("wf-1")
	g, err := e.InsertTask(g, "e-start-end", flow.TaskCreate)
	require.NoError(t, err)
	g, err = e.InsertTask(g, g.Edges[1].ID, flow.TaskApproval)
	require.NoError(t, err)
	g.Edges[0].Style = map[string]string{"stroke": "#888"}
	g.Edges[0].Animated = true
	return g
}

func TestPGStore_SaveAndGetGraph(t *testing.T) {
	store, ctx := setupStore(t)
	g := sampleGraph(t)

	require.NoError(t, store.SaveGraph(ctx, &g))

	got, err := store.GetGraph(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, g, *got)

	nodes, err := store.ListNodes(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, nodes, 4)

	edges, err := store.ListEdges(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, g.Edges, edges)
}

func TestPGStore_VersionGuard(t *testing.T) {
	store, ctx := setupStore(t)
	g := sampleGraph(t)
	g.Version = 2

	require.NoError(t, store.SaveGraph(ctx, &g))

	stale := g.Clone()
	stale.Version = 2
	assert.ErrorIs(t, store.SaveGraph(ctx, &stale), flow.ErrVersionConflict)

	e := flow.NewEngine()
	next, err := e.DeleteTask(g, g.Nodes[1].ID)
	require.NoError(t, err)
	next.Version = 3
	require.NoError(t, store.SaveGraph(ctx, &next))

	got, err := store.GetGraph(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.Len(t, got.Nodes, 3)
}

func TestPGStore_GetMissingAndDelete(t *testing.T) {
	store, ctx := setupStore(t)

	got, err := store.GetGraph(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	g := sampleGraph(t)
	require.NoError(t, store.SaveGraph(ctx, &g))
	require.NoError(t, store.DeleteGraph(ctx, "wf-1"))

	got, err = store.GetGraph(ctx, "wf-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	nodes, err := store.ListNodes(ctx, "wf-1")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
