// Package main provides the automation API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/leadfuse/leadfuse/pkg/eventbus"
	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/persistence"
	"github.com/leadfuse/leadfuse/pkg/registry"
	"github.com/leadfuse/leadfuse/pkg/web"
	"github.com/leadfuse/leadfuse/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
}

func NewAPI(logger *slog.Logger, persistence persistence.Persistence, eventBus eventbus.EventBus) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
	}
}

func (a *API) App() *fiber.App {
	expressions := expression.NewEngine()

	// The API's scheduler only serves cancellation; it never executes nodes,
	// so an empty registry and no lead store are fine here.
	scheduler := workflow.NewScheduler(
		a.persistence,
		registry.NewRegistry(a.logger),
		nil,
		expressions,
		a.eventBus,
		a.logger,
	)

	handlers := web.NewAPIHandlers(a.persistence, a.eventBus, scheduler, expressions, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("LeadFuse Automation API")
	})

	v1 := app.Group("/v1")
	v1.Post("/events", handlers.NotifyEvent)

	w := v1.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/deactivate", handlers.DeactivateWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	e := v1.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
