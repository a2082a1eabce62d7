package main

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flow"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func problem(c fiber.Ctx, status int, kind string, err error) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(err.Error())

	return c.Status(status).JSON(p)
}

// handleError maps engine and store errors to problem responses.
func (a *API) handleError(c fiber.Ctx, err error) error {
	var rejection *flow.Rejection

	switch {
	case errors.As(err, &rejection):
		return problem(c, fiber.StatusUnprocessableEntity, "rejected", rejection)

	case errors.Is(err, flow.ErrGraphNotFound):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", err)
	case errors.Is(err, flow.ErrNodeNotFound):
		return problem(c, fiber.StatusNotFound, "node_not_found", err)
	case errors.Is(err, flow.ErrEdgeNotFound):
		return problem(c, fiber.StatusNotFound, "edge_not_found", err)

	case errors.Is(err, flow.ErrTerminalNode),
		errors.Is(err, flow.ErrNotTask),
		errors.Is(err, flow.ErrUnknownTaskType):
		return problem(c, fiber.StatusBadRequest, "invalid_operation", err)

	case errors.Is(err, flow.ErrVersionConflict):
		return problem(c, fiber.StatusConflict, "version_conflict", err)
	case errors.Is(err, flow.ErrDuplicateEdge),
		errors.Is(err, flow.ErrCycleDetected),
		errors.Is(err, flow.ErrNothingToUndo),
		errors.Is(err, flow.ErrNothingToRedo),
		errors.Is(err, errWorkflowExists):
		return problem(c, fiber.StatusConflict, "conflict", err)

	default:
		a.logger.ErrorContext(c.Context(), "Request failed", "path", c.Path(), "error", err)

		p := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(p)
	}
}
