package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/events"
	"github.com/meikuraledutech/flow/postgres"
	"github.com/meikuraledutech/flow/redisstore"
	redis "github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 3000

func main() {
	cmd := &cli.Command{
		Name:  "flow-server",
		Usage: "Edit approval workflow graphs over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Graph store (postgres, redis)",
				Value:   "postgres",
				Sources: cli.EnvVars("STORE"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection URL",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.FloatFlag{
				Name:    "vertical-spacing",
				Usage:   "Vertical distance between stacked nodes",
				Value:   flow.DefaultLayout().VerticalSpacing,
				Sources: cli.EnvVars("VERTICAL_SPACING"),
			},
			&cli.FloatFlag{
				Name:    "start-y",
				Usage:   "Y coordinate of the start node",
				Value:   flow.DefaultLayout().StartY,
				Sources: cli.EnvVars("START_Y"),
			},
			&cli.FloatFlag{
				Name:    "center-x",
				Usage:   "X coordinate of the chain's centre line",
				Value:   flow.DefaultLayout().CenterX,
				Sources: cli.EnvVars("CENTER_X"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	logger := setupLogger(command.String("log-level")).With("module", "server")

	store, closeStore, err := openStore(ctx, command)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	layout := flow.DefaultLayout()
	layout.VerticalSpacing = command.Float("vertical-spacing")
	layout.StartY = command.Float("start-y")
	layout.CenterX = command.Float("center-x")
	engine := flow.NewEngine(flow.WithLayout(layout), flow.WithLogger(logger))

	pubSub := events.NewGoChannel(logger)
	defer func() {
		if err := pubSub.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	auditCtx, stopAudit := context.WithCancel(ctx)
	defer stopAudit()
	go func() {
		if err := events.Consume(auditCtx, pubSub, logger, auditChange(logger)); err != nil {
			logger.ErrorContext(ctx, "Audit consumer stopped", "error", err)
		}
	}()

	api := NewAPI(logger, store, engine, events.NewPublisher(pubSub))

	logger.InfoContext(ctx, "Starting flow server", "port", command.Int("port"), "store", command.String("store"))
	return api.Start(command.Int("port"))
}

func openStore(ctx context.Context, command *cli.Command) (flow.Store, func(), error) {
	switch command.String("store") {
	case "postgres":
		dbURL := command.String("database-url")
		if dbURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is not set")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return postgres.New(pool), pool.Close, nil

	case "redis":
		redisURL := command.String("redis-url")
		if redisURL == "" {
			return nil, nil, fmt.Errorf("REDIS_URL is not set")
		}
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		return redisstore.New(rdb), func() { _ = rdb.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store %q", command.String("store"))
	}
}
