// Package engine implements the automation run loop: time gating, condition
// evaluation, signal propagation through the graph, action dispatch, and
// terminal run-state bookkeeping.
package engine

// StopReasonGateClosed is reported when every time interval node evaluated
// false and the run never started.
const StopReasonGateClosed = "Time Gate Closed"

// StopReasonExplicit is recorded when an end_automation node is reached.
const StopReasonExplicit = "Automation Ended"

// StopReasonDefault is used when a run stopped without a more specific
// reason.
const StopReasonDefault = "Conditions not met"

// RunContext carries the ephemeral state of one run. It is created fresh per
// run and never persisted; passing it explicitly keeps the engine free of
// shared mutable state between runs.
type RunContext struct {
	RunID string

	// Results maps node ID to its boolean outcome this run. Writes are
	// idempotent within a run.
	Results map[string]bool

	// processed guards gates and actions against double evaluation.
	processed map[string]struct{}

	stopReason   string
	gateFailed   bool
	explicitStop bool

	// ActionsExecuted counts dispatches that actually reached an executor.
	ActionsExecuted int
}

func NewRunContext(runID string) *RunContext {
	return &RunContext{
		RunID:     runID,
		Results:   make(map[string]bool),
		processed: make(map[string]struct{}),
	}
}

// Result returns a node's recorded outcome; unknown nodes read as false.
func (rc *RunContext) Result(nodeID string) bool {
	return rc.Results[nodeID]
}

// SetResult records a node's outcome.
func (rc *RunContext) SetResult(nodeID string, value bool) {
	rc.Results[nodeID] = value
}

// HasResult reports whether the node was evaluated this run.
func (rc *RunContext) HasResult(nodeID string) bool {
	_, ok := rc.Results[nodeID]

	return ok
}

// MarkProcessed marks a node as handled and reports whether this call was
// the first to do so.
func (rc *RunContext) MarkProcessed(nodeID string) bool {
	if _, done := rc.processed[nodeID]; done {
		return false
	}

	rc.processed[nodeID] = struct{}{}

	return true
}

// NoteConditionFailure records a candidate stop reason from a false
// conditional. The first candidate wins; gate failures and explicit stops
// take precedence.
func (rc *RunContext) NoteConditionFailure(reason string) {
	if rc.stopReason == "" {
		rc.stopReason = reason
	}
}

// NoteGateFailure records a failed logic gate as the stop reason, replacing
// any conditional candidate.
func (rc *RunContext) NoteGateFailure(reason string) {
	if rc.explicitStop {
		return
	}

	rc.stopReason = reason
	rc.gateFailed = true
}

// NoteExplicitStop records that an end_automation node was reached. This
// overrides every other stop reason.
func (rc *RunContext) NoteExplicitStop() {
	rc.stopReason = StopReasonExplicit
	rc.explicitStop = true
}

// StopReason returns the best available stop reason for a stopped run.
func (rc *RunContext) StopReason() string {
	if rc.stopReason == "" {
		return StopReasonDefault
	}

	return rc.stopReason
}
