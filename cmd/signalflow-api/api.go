package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/quantor/signalflow/pkg/persistence"
	"github.com/quantor/signalflow/pkg/registry"
	"github.com/quantor/signalflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	runner      web.Runner
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	runner web.Runner,
) *API {
	return &API{
		logger:      logger,
		persistence: store,
		registry:    reg,
		runner:      runner,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.persistence, a.runner, a.registry, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Signalflow API")
	})

	app.Get("/health", handlers.HealthCheck)

	automations := app.Group("/automations")
	automations.Get("/", handlers.GetAutomations)
	automations.Get("/:id", handlers.GetAutomation)
	automations.Post("/:id/run", handlers.RunAutomation)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
