// Package main provides the Flowengine API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"go.opentelemetry.io/otel/trace"

	"github.com/openhaus/flowengine/pkg/persistence"
	"github.com/openhaus/flowengine/pkg/services"
	"github.com/openhaus/flowengine/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	tracer      trace.Tracer
	validate    *validator.Validate
}

// NewAPI wires the HTTP surface. tracer may be nil when tracing is disabled.
func NewAPI(logger *slog.Logger, persistence persistence.Persistence, tracer trace.Tracer) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	automationService := services.NewAutomation(a.persistence, services.AllowAllDevices(), a.logger)
	runnerService := services.NewRunner(a.persistence, a.tracer, a.logger)
	logService := services.NewExecutionLog(a.persistence, a.logger)

	handlers := web.NewAPIHandlers(automationService, runnerService, logService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowengine API")
	})

	automations := app.Group("/automations")
	automations.Get("/", handlers.GetAutomations)
	automations.Post("/", handlers.CreateAutomation)
	automations.Get("/:id", handlers.GetAutomation)
	automations.Patch("/:id", handlers.UpdateAutomation)
	automations.Delete("/:id", handlers.DeleteAutomation)
	automations.Post("/:id/toggle", handlers.ToggleAutomation)

	// Execution reporting from the external runner:
	automations.Post("/:id/executions", handlers.RecordExecution)
	automations.Get("/:id/executions", handlers.GetExecutionHistory)
	app.Post("/executions/batch", handlers.RecordExecutionBatch)

	runner := app.Group("/runner")
	runner.Get("/automations", handlers.GetRunnerAutomations)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
