package main

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/google/uuid"
	"github.com/meikuraledutech/flow"
)

// API serves the workflow editor over HTTP.
type API struct {
	logger   *slog.Logger
	store    flow.Store
	engine   *flow.Engine
	sessions *sessions
	validate *validator.Validate
}

// NewAPI wires the handlers. notifier may be nil.
func NewAPI(log *slog.Logger, store flow.Store, engine *flow.Engine, notifier flow.Notifier) *API {
	opts := []flow.EditorOption{flow.WithEditorLogger(log), flow.WithSaver(store)}
	if notifier != nil {
		opts = append(opts, flow.WithNotifier(notifier))
	}

	return &API{
		logger:   log,
		store:    store,
		engine:   engine,
		sessions: newSessions(store, engine, opts...),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// App builds the fiber application.
func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(logger.New())

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", a.CreateSchema)
	app.Delete("/schema", a.DropSchema)

	// ── Workflows ─────────────────────────────────────────────────────
	w := app.Group("/workflows")
	w.Post("/", a.CreateWorkflow)
	w.Get("/:id", a.GetWorkflow)
	w.Delete("/:id", a.DeleteWorkflow)
	w.Get("/:id/errors", a.GetErrors)
	w.Post("/:id/undo", a.Undo)
	w.Post("/:id/redo", a.Redo)

	// ── Tasks & edges ─────────────────────────────────────────────────
	w.Post("/:id/tasks", a.InsertTask)
	w.Patch("/:id/tasks/:nodeId", a.UpdateTask)
	w.Delete("/:id/tasks/:nodeId", a.DeleteTask)
	w.Post("/:id/edges", a.Connect)

	return app
}

// Start listens on port.
func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}

func (a *API) CreateSchema(c fiber.Ctx) error {
	if err := a.store.CreateSchema(c.Context()); err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (a *API) DropSchema(c fiber.Ctx) error {
	if err := a.store.DropSchema(c.Context()); err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

func (a *API) CreateWorkflow(c fiber.Ctx) error {
	var req createWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	if err := a.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	g, err := a.sessions.create(c.Context(), id)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (a *API) GetWorkflow(c fiber.Ctx) error {
	ed, err := a.sessions.get(c.Context(), c.Params("id"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(ed.Graph())
}

func (a *API) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if err := a.store.DeleteGraph(c.Context(), id); err != nil {
		return a.handleError(c, err)
	}
	a.sessions.drop(id)
	return c.SendStatus(fiber.StatusNoContent)
}

// GetErrors returns the workflow-level validation summary. A workflow is
// publishable only when the list is empty.
func (a *API) GetErrors(c fiber.Ctx) error {
	ed, err := a.sessions.get(c.Context(), c.Params("id"))
	if err != nil {
		return a.handleError(c, err)
	}
	g := ed.Graph()
	return c.JSON(errorsResponse{
		Errors:      flow.CollectErrors(g),
		Publishable: flow.CanPublish(g),
	})
}

func (a *API) InsertTask(c fiber.Ctx) error {
	var req insertTaskRequest
	if detail := a.bind(c, &req); detail != "" {
		return badRequest(c, detail)
	}
	op := flow.InsertTaskOp(req.AnchorEdgeID, flow.TaskType(req.TaskType))
	return a.apply(c, versionOf(req.Version), op, fiber.StatusCreated)
}

func (a *API) UpdateTask(c fiber.Ctx) error {
	var req updateTaskRequest
	if detail := a.bind(c, &req); detail != "" {
		return badRequest(c, detail)
	}
	op := flow.UpdateTaskOp(c.Params("nodeId"), req.patch())
	return a.apply(c, versionOf(req.Version), op, fiber.StatusOK)
}

func (a *API) DeleteTask(c fiber.Ctx) error {
	version := flow.AnyVersion
	if v := c.Query("version"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return badRequest(c, "invalid version")
		}
		version = parsed
	}
	return a.apply(c, version, flow.DeleteTaskOp(c.Params("nodeId")), fiber.StatusOK)
}

func (a *API) Connect(c fiber.Ctx) error {
	var req connectRequest
	if detail := a.bind(c, &req); detail != "" {
		return badRequest(c, detail)
	}
	return a.apply(c, versionOf(req.Version), flow.ConnectOp(req.Source, req.Target), fiber.StatusCreated)
}

func (a *API) Undo(c fiber.Ctx) error {
	return a.step(c, (*flow.Editor).Undo)
}

func (a *API) Redo(c fiber.Ctx) error {
	return a.step(c, (*flow.Editor).Redo)
}

// bind decodes and validates a JSON body into req. A non-empty return is
// the detail for a 400 response.
func (a *API) bind(c fiber.Ctx, req any) string {
	if err := c.Bind().JSON(req); err != nil {
		return "invalid body"
	}
	if err := a.validate.Struct(req); err != nil {
		return err.Error()
	}
	return ""
}

// apply runs op on the workflow's editor, which saves the result.
func (a *API) apply(c fiber.Ctx, version int64, op flow.Op, status int) error {
	ed, err := a.sessions.get(c.Context(), c.Params("id"))
	if err != nil {
		return a.handleError(c, err)
	}

	g, err := ed.Apply(c.Context(), version, op)
	if err != nil {
		return a.changeFailed(c, err)
	}
	return c.Status(status).JSON(g)
}

func (a *API) step(c fiber.Ctx, fn func(*flow.Editor, context.Context) (flow.Graph, error)) error {
	ed, err := a.sessions.get(c.Context(), c.Params("id"))
	if err != nil {
		return a.handleError(c, err)
	}

	g, err := fn(ed, c.Context())
	if err != nil {
		return a.changeFailed(c, err)
	}
	return c.JSON(g)
}

// changeFailed reports a failed editor change. When the store holds a newer
// graph than the session, the session is dropped so the next request
// reloads it.
func (a *API) changeFailed(c fiber.Ctx, err error) error {
	if errors.Is(err, flow.ErrSaveFailed) && errors.Is(err, flow.ErrVersionConflict) {
		a.sessions.drop(c.Params("id"))
	}
	return a.handleError(c, err)
}
