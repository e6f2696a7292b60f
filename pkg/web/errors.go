package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/openhaus/flowengine/pkg/persistence"
	"github.com/openhaus/flowengine/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
// Validation and toggle failures carry the precise rules violated; storage
// failures stay opaque to the caller and are logged server-side.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		var flowErr *services.FlowValidationError
		if errors.As(err, &flowErr) {
			problem := problems.NewStatusProblem(400).
				WithInstance(c.Path()).
				WithType("flow_validation_error").
				WithDetail(flowErr.Error())

			return c.Status(fiber.StatusBadRequest).JSON(struct {
				*problems.Problem
				Errors []string `json:"errors"`
			}{Problem: problem, Errors: flowErr.Violations})
		}

		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.IsAuthorizationError(err):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("device_not_owned").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case services.IsToggleRefusal(err):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("toggle_refused").
			WithDetail(err.Error())

		var toggleErr *services.ToggleError
		if errors.As(err, &toggleErr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(struct {
				*problems.Problem
				Errors []string `json:"errors"`
			}{Problem: problem, Errors: toggleErr.Reasons})
		}

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case services.IsNotFound(err) || persistence.IsAutomationNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("automation_not_found").
			WithDetail("automation not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
