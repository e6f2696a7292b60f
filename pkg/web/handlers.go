// Package web provides HTTP handlers and REST API endpoints for automation
// management and the runner read path.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/openhaus/flowengine/pkg/models"
	"github.com/openhaus/flowengine/pkg/services"
)

type APIHandlers struct {
	automationService *services.Automation
	runnerService     *services.Runner
	logService        *services.ExecutionLog
	validator         *validator.Validate
}

func NewAPIHandlers(
	automationService *services.Automation,
	runnerService *services.Runner,
	logService *services.ExecutionLog,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		automationService: automationService,
		runnerService:     runnerService,
		logService:        logService,
		validator:         validator,
	}
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	req, err := h.parseListAutomationsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.automationService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"automations":   result.Automations,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
	})
}

// parseListAutomationsRequest parses query parameters for listing.
func (h *APIHandlers) parseListAutomationsRequest(c fiber.Ctx) (*services.ListAutomationsRequest, error) {
	req := &services.ListAutomationsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.OwnerID = c.Query("owner_id")

	if enabledStr := c.Query("enabled"); enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return nil, err
		}

		req.Enabled = &enabled
	}

	if draftStr := c.Query("is_draft"); draftStr != "" {
		isDraft, err := strconv.ParseBool(draftStr)
		if err != nil {
			return nil, err
		}

		req.IsDraft = &isDraft
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var req CreateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	automation, err := h.automationService.Create(c.Context(), services.SaveAutomationRequest{
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		IsDraft:     req.IsDraft,
		Triggers:    req.Triggers,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		Flow:        req.Flow,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(automation)
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automationService.FetchByID(c.Context(), id)
	if err != nil {
		if services.IsNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) UpdateAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req UpdateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	automation, err := h.automationService.Update(c.Context(), id, services.UpdateAutomationRequest{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		IsDraft:     req.IsDraft,
		Triggers:    req.Triggers,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		Flow:        req.Flow,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	if err := h.automationService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

func (h *APIHandlers) ToggleAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automationService.ToggleEnabled(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

// GetRunnerAutomations is the batch assembler entry point the external
// runner polls: enabled, non-draft automations with validation verdicts and
// resolved execution paths.
func (h *APIHandlers) GetRunnerAutomations(c fiber.Ctx) error {
	limit := 50

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	offset := 0

	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil {
			return badRequest(c, "Invalid offset parameter")
		}

		offset = parsed
	}

	batch, err := h.runnerService.ActiveAutomations(c.Context(), limit, offset)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"automations": batch,
		"count":       len(batch),
	})
}

func (h *APIHandlers) RecordExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req RecordExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	entry, err := h.logService.Record(c.Context(), id, models.ExecutionStatus(req.Status), req.Details, req.ExecutedAt)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(entry)
}

func (h *APIHandlers) RecordExecutionBatch(c fiber.Ctx) error {
	var req RecordExecutionBatchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	entries := make([]*models.AutomationLog, 0, len(req.Executions))
	for _, execution := range req.Executions {
		entries = append(entries, &models.AutomationLog{
			AutomationID: execution.AutomationID,
			Status:       models.ExecutionStatus(execution.Status),
			Details:      execution.Details,
			ExecutedAt:   execution.ExecutedAt,
		})
	}

	if err := h.logService.RecordBatch(c.Context(), entries); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"recorded": len(entries)})
}

func (h *APIHandlers) GetExecutionHistory(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	logs, err := h.logService.History(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"logs": logs})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.automationService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowengine API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Flowengine API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
