package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/postgres"
)

func main() {
	ctx := context.Background()
	engine := flow.NewEngine()

	// ── Build a chain: create → approval → integration ────────────────
	g := engine.NewGraph("purchase-order")

	g, err := engine.InsertTask(g, flow.EdgeID(flow.StartID, flow.EndID), flow.TaskCreate)
	if err != nil {
		log.Fatalf("insert create: %v", err)
	}
	create := g.Tasks()[0]

	g, err = engine.InsertTask(g, flow.EdgeID(create.ID, flow.EndID), flow.TaskApproval)
	if err != nil {
		log.Fatalf("insert approval: %v", err)
	}
	approval := g.Tasks()[1]

	g, err = engine.InsertTask(g, flow.EdgeID(approval.ID, flow.EndID), flow.TaskIntegration)
	if err != nil {
		log.Fatalf("insert integration: %v", err)
	}
	fmt.Println("chain built")
	printJSON(g)

	// ── A second create task is refused ───────────────────────────────
	_, err = engine.InsertTask(g, flow.EdgeID(approval.ID, g.Tasks()[2].ID), flow.TaskCreate)
	var rejection *flow.Rejection
	if errors.As(err, &rejection) {
		fmt.Printf("\nrejected: %s\n", rejection.Message)
	}

	// ── Configure and check the publish summary ───────────────────────
	label := "Raise purchase order"
	g, err = engine.UpdateTask(g, create.ID, flow.TaskPatch{
		Label:      &label,
		Assignment: &flow.Assignment{Type: flow.AssignRole, Values: []string{"buyer"}},
	})
	if err != nil {
		log.Fatalf("update: %v", err)
	}
	fmt.Println("\nerrors before publish:")
	printJSON(flow.CollectErrors(g))

	// ── Delete the approval; integration moves up ─────────────────────
	g, err = engine.DeleteTask(g, approval.ID)
	if err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nafter deleting the approval:")
	printJSON(g.Tasks())

	// ── Persist when a database is configured ─────────────────────────
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	var store flow.Store = postgres.New(pool)
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	g.Version = 1
	if err := store.SaveGraph(ctx, &g); err != nil {
		log.Fatalf("save: %v", err)
	}
	stored, err := store.GetGraph(ctx, g.ID)
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	fmt.Println("\ngraph retrieved:")
	printJSON(stored)

	if err := store.DeleteGraph(ctx, g.ID); err != nil {
		log.Fatalf("delete graph: %v", err)
	}
	fmt.Println("\ngraph deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
