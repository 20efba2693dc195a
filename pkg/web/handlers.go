// Package web provides the operational HTTP API: listing automations,
// inspecting run state, and triggering manual runs.
package web

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/persistence"
	"github.com/quantor/signalflow/pkg/registry"
)

// Runner triggers a single automation run outside the schedule.
type Runner interface {
	RunByID(ctx context.Context, id string) (models.RunOutcome, error)
}

type APIHandlers struct {
	persistence persistence.Persistence
	runner      Runner
	registry    *registry.Registry
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	p persistence.Persistence,
	runner Runner,
	reg *registry.Registry,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		runner:      runner,
		registry:    reg,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": "persistence unavailable",
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	automations, err := h.persistence.Automations(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	summaries := make([]AutomationSummary, 0, len(automations))
	for _, automation := range automations {
		summaries = append(summaries, summarize(automation))
	}

	return c.JSON(fiber.Map{
		"automations": summaries,
		"total_count": len(summaries),
	})
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.persistence.AutomationByID(c.Context(), id)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	return c.JSON(automation)
}

// RunAutomation triggers an immediate evaluation pass. The graph is
// validated first so a malformed definition answers 400 instead of burning a
// run on it.
func (h *APIHandlers) RunAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.persistence.AutomationByID(c.Context(), id)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	if err := h.validate.Struct(automation); err != nil {
		return badRequest(c, "Invalid automation record: "+err.Error())
	}

	if err := h.registry.ValidateAutomation(automation); err != nil {
		return badRequest(c, "Invalid automation graph: "+err.Error())
	}

	outcome, err := h.runner.RunByID(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	h.logger.Info("Manual run triggered", "automation_id", id, "status", outcome.Status)

	return c.JSON(outcome)
}
