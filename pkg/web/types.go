package web

import (
	"time"

	"github.com/quantor/signalflow/pkg/models"
)

// AutomationSummary is the list-view shape of an automation; node and edge
// payloads are omitted.
type AutomationSummary struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Active    bool             `json:"active"`
	Owner     string           `json:"owner"`
	NodeCount int              `json:"node_count"`
	LastRun   *time.Time       `json:"last_run,omitempty"`
	NextRun   *time.Time       `json:"next_run,omitempty"`
	LastError *models.RunError `json:"last_error,omitempty"`
}

func summarize(automation *models.Automation) AutomationSummary {
	return AutomationSummary{
		ID:        automation.ID,
		Name:      automation.Name,
		Active:    automation.Active,
		Owner:     automation.Owner,
		NodeCount: len(automation.Nodes),
		LastRun:   automation.LastRun,
		NextRun:   automation.NextRun,
		LastError: automation.LastError,
	}
}
