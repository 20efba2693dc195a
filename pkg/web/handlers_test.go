package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/persistence"
	"github.com/quantor/signalflow/pkg/registry"
)

type stubPersistence struct {
	automations []*models.Automation
	healthErr   error
}

func (p *stubPersistence) Automations(_ context.Context) ([]*models.Automation, error) {
	return p.automations, nil
}

func (p *stubPersistence) AutomationByID(_ context.Context, id string) (*models.Automation, error) {
	for _, a := range p.automations {
		if a.ID == id {
			return a, nil
		}
	}

	return nil, persistence.NewAutomationError("read", id, persistence.ErrAutomationNotFound)
}

func (p *stubPersistence) SaveAutomation(_ context.Context, _ *models.Automation) error { return nil }

func (p *stubPersistence) DeleteAutomation(_ context.Context, _ string) error { return nil }

func (p *stubPersistence) HealthCheck(_ context.Context) error { return p.healthErr }

func (p *stubPersistence) Close(_ context.Context) error { return nil }

type stubRunner struct {
	outcome models.RunOutcome
	ranIDs  []string
}

func (r *stubRunner) RunByID(_ context.Context, id string) (models.RunOutcome, error) {
	r.ranIDs = append(r.ranIDs, id)

	return r.outcome, nil
}

func testApp(t *testing.T, store *stubPersistence, runner *stubRunner) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg, err := registry.NewDefaultRegistry(logger)
	require.NoError(t, err)

	handlers := NewAPIHandlers(store, runner, reg, logger)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Get("/automations", handlers.GetAutomations)
	app.Get("/automations/:id", handlers.GetAutomation)
	app.Post("/automations/:id/run", handlers.RunAutomation)

	return app
}

func sampleAutomation() *models.Automation {
	return &models.Automation{
		ID:     "auto-1",
		Name:   "Morning Rebalance",
		Active: true,
		Owner:  "owner@example.com",
		Nodes: []*models.Node{
			{ID: "p1", Type: models.NodeTypePrice, Data: map[string]any{
				"ticker": "AAPL", "op": ">", "value": 100.0,
			}},
			{ID: "n1", Type: models.NodeTypeNexus, Data: map[string]any{"code": "pf-1"}},
		},
		Edges: []*models.Edge{{Source: "p1", Target: "n1"}},
	}
}

func TestHealthCheck(t *testing.T) {
	app := testApp(t, &stubPersistence{}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetAutomationsListsSummaries(t *testing.T) {
	store := &stubPersistence{automations: []*models.Automation{sampleAutomation()}}
	app := testApp(t, store, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest("GET", "/automations", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Automations []AutomationSummary `json:"automations"`
		TotalCount  int                 `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, 1, body.TotalCount)
	require.Len(t, body.Automations, 1)
	assert.Equal(t, "auto-1", body.Automations[0].ID)
	assert.Equal(t, 2, body.Automations[0].NodeCount)
}

func TestGetAutomationByID(t *testing.T) {
	store := &stubPersistence{automations: []*models.Automation{sampleAutomation()}}
	app := testApp(t, store, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest("GET", "/automations/auto-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var automation models.Automation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&automation))
	assert.Equal(t, "Morning Rebalance", automation.Name)
	assert.Len(t, automation.Nodes, 2)
}

func TestGetAutomationNotFound(t *testing.T) {
	app := testApp(t, &stubPersistence{}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest("GET", "/automations/missing", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRunAutomation(t *testing.T) {
	store := &stubPersistence{automations: []*models.Automation{sampleAutomation()}}
	runner := &stubRunner{outcome: models.RunOutcome{Status: models.RunStatusSuccess}}
	app := testApp(t, store, runner)

	resp, err := app.Test(httptest.NewRequest("POST", "/automations/auto-1/run", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var outcome models.RunOutcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
	assert.Equal(t, models.RunStatusSuccess, outcome.Status)
	assert.Equal(t, []string{"auto-1"}, runner.ranIDs)
}

func TestRunAutomationRejectsInvalidGraph(t *testing.T) {
	broken := sampleAutomation()
	broken.Nodes[0].Data = map[string]any{"ticker": "AAPL"}

	store := &stubPersistence{automations: []*models.Automation{broken}}
	runner := &stubRunner{}
	app := testApp(t, store, runner)

	resp, err := app.Test(httptest.NewRequest("POST", "/automations/auto-1/run", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, runner.ranIDs)
}

func TestRunAutomationNotFound(t *testing.T) {
	app := testApp(t, &stubPersistence{}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest("POST", "/automations/missing/run", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
