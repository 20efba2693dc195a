package models

import "time"

// RunStatus classifies the terminal state of one evaluation pass.
type RunStatus string

const (
	// RunStatusSuccess means at least one action executed without error.
	RunStatusSuccess RunStatus = "success"
	// RunStatusStopped means the gate was open but no action executed.
	RunStatusStopped RunStatus = "stopped"
	// RunStatusFailed means an action executor raised and aborted the run.
	RunStatusFailed RunStatus = "failed"
	// RunStatusGateClosed means every time interval node evaluated false and
	// nothing else was touched.
	RunStatusGateClosed RunStatus = "gate_closed"
	// RunStatusSkipped means the automation was inactive and never evaluated.
	RunStatusSkipped RunStatus = "skipped"
)

// RunOutcome is the terminal record of a run, written back onto the
// automation by the engine. Exactly one of the timestamp and reason fields is
// meaningful per status.
type RunOutcome struct {
	Status     RunStatus `json:"status"`
	FinishedAt time.Time `json:"finished_at"`
	// Reason holds the stop reason for stopped runs and the error message
	// for failed runs.
	Reason string `json:"reason,omitempty"`
}
