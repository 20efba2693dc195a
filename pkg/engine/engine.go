package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quantor/signalflow/pkg/eventbus"
	"github.com/quantor/signalflow/pkg/events"
	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/otelhelper"
	"github.com/quantor/signalflow/pkg/persistence"
	"github.com/quantor/signalflow/pkg/protocol"
	"github.com/quantor/signalflow/pkg/telemetry"
)

// DefaultTimezone is the market timezone used when none is configured.
const DefaultTimezone = "America/New_York"

// Config wires the engine to its collaborators. Nil executors are replaced
// with no-ops; nil providers make the matching condition types evaluate
// false with a fetch-failure reason.
type Config struct {
	Persistence persistence.Persistence

	MarketData protocol.MarketData
	Risk       protocol.RiskProvider
	Sentiment  protocol.SentimentProvider

	Rebalancer protocol.Rebalancer
	Email      protocol.EmailSender
	Webhooks   protocol.WebhookPoster

	Usage     telemetry.UsageRecorder
	Publisher eventbus.EventPublisher
	Tracer    trace.Tracer
	Logger    *slog.Logger

	// Location is the timezone for time gate evaluation.
	Location *time.Location
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine runs automations: one full evaluation-and-propagation pass per
// call, with durable run-state bookkeeping. Independent automations may run
// in parallel; a single automation run is one cooperative task.
type Engine struct {
	persistence persistence.Persistence
	gate        *TimeGate
	evaluator   *ConditionEvaluator
	propagator  *GraphPropagator
	notifier    *FailureNotifier
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	location := cfg.Location
	if location == nil {
		var err error

		location, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			location = time.UTC
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	rebalancer := cfg.Rebalancer
	if rebalancer == nil {
		rebalancer = protocol.NoopRebalancer{}
	}

	email := cfg.Email
	if email == nil {
		email = protocol.NoopEmailSender{}
	}

	webhooks := cfg.Webhooks
	if webhooks == nil {
		webhooks = protocol.NoopWebhookPoster{}
	}

	usage := cfg.Usage
	if usage == nil {
		usage = telemetry.NewMemoryRecorder()
	}

	dispatcher := NewActionDispatcher(rebalancer, email, webhooks, usage, logger)
	dispatcher.SetPublisher(cfg.Publisher)

	return &Engine{
		persistence: cfg.Persistence,
		gate:        NewTimeGate(location, now, logger),
		evaluator:   NewConditionEvaluator(cfg.MarketData, cfg.Risk, cfg.Sentiment, logger),
		propagator:  NewGraphPropagator(dispatcher, logger),
		notifier:    NewFailureNotifier(email, logger),
		publisher:   cfg.Publisher,
		tracer:      cfg.Tracer,
		logger:      logger.With("module", "engine"),
		now:         now,
	}
}

// RunAll evaluates every active automation sequentially. Per-automation
// failures are recorded on their records and do not stop the sweep.
func (e *Engine) RunAll(ctx context.Context) error {
	automations, err := e.persistence.Automations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list automations: %w", err)
	}

	for _, automation := range automations {
		e.Run(ctx, automation)
	}

	return nil
}

// RunByID loads and runs a single automation.
func (e *Engine) RunByID(ctx context.Context, id string) (models.RunOutcome, error) {
	automation, err := e.persistence.AutomationByID(ctx, id)
	if err != nil {
		return models.RunOutcome{}, err
	}

	return e.Run(ctx, automation), nil
}

// Run performs one full pass over an automation. Inactive automations are
// never evaluated. The returned outcome mirrors what was persisted.
func (e *Engine) Run(ctx context.Context, automation *models.Automation) models.RunOutcome {
	if !automation.Active {
		return models.RunOutcome{Status: models.RunStatusSkipped, FinishedAt: e.now()}
	}

	runID := "run-" + uuid.New().String()[:8]
	started := e.now()
	logger := e.logger.With("automation_id", automation.ID, "run_id", runID)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "automation.run",
			attribute.String(otelhelper.AutomationIDKey, automation.ID),
			attribute.String(otelhelper.AutomationNameKey, automation.Name),
			attribute.String(otelhelper.RunIDKey, runID),
		)
		defer span.End()
	}

	logger.Info("Starting automation run")
	e.publish(ctx, automation.ID, events.RunStarted{
		BaseEvent: e.baseEvent(events.RunStartedEvent, automation.ID, runID),
	})

	rc := NewRunContext(runID)

	gate := e.gate.Evaluate(automation, rc)
	if gate.Present && !gate.Open {
		logger.Info("Time gate closed, stopping run")

		// Only next_run moved; last_run and last_error stay untouched.
		e.save(ctx, automation, logger)

		outcome := models.RunOutcome{
			Status:     models.RunStatusGateClosed,
			FinishedAt: e.now(),
			Reason:     StopReasonGateClosed,
		}
		e.publishFinished(ctx, automation.ID, runID, outcome, started)

		return outcome
	}

	e.evaluateConditions(ctx, automation, rc, logger)

	runErr := e.propagate(ctx, automation, rc)

	outcome := e.finalize(ctx, automation, rc, runErr, logger)
	e.publishFinished(ctx, automation.ID, runID, outcome, started)

	return outcome
}

// evaluateConditions resolves every market conditional. Providers are
// independent and read-only, so nodes are fetched concurrently; results are
// folded back in graph order to keep the candidate stop reason
// deterministic.
func (e *Engine) evaluateConditions(ctx context.Context, automation *models.Automation, rc *RunContext, logger *slog.Logger) {
	nodes := automation.ConditionNodes()
	if len(nodes) == 0 {
		return
	}

	type evaluation struct {
		result bool
		reason string
	}

	evaluations := make([]evaluation, len(nodes))

	var wg sync.WaitGroup

	for i, node := range nodes {
		wg.Add(1)

		go func(i int, node *models.Node) {
			defer wg.Done()

			result, reason := e.evaluator.Evaluate(ctx, node)
			evaluations[i] = evaluation{result: result, reason: reason}
		}(i, node)
	}

	wg.Wait()

	for i, node := range nodes {
		rc.SetResult(node.ID, evaluations[i].result)
		logger.Debug("Condition evaluated",
			"node_id", node.ID,
			"node_type", node.Type,
			"result", evaluations[i].result,
			"reason", evaluations[i].reason,
		)

		event := events.NodeEvaluated{
			BaseEvent: e.baseEvent(events.NodeEvaluatedEvent, automation.ID, rc.RunID),
			NodeID:    node.ID,
			NodeType:  node.Type,
			Result:    evaluations[i].result,
			Reason:    evaluations[i].reason,
		}
		e.publish(ctx, automation.ID, event)
	}
}

// propagate drains the graph. A panic below (a misbehaving executor or
// provider client) is converted into a run error so one automation cannot
// take down the scheduler loop.
func (e *Engine) propagate(ctx context.Context, automation *models.Automation, rc *RunContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()

	return e.propagator.Run(ctx, automation, rc)
}

// finalize classifies the run into exactly one terminal state and persists
// it. Success updates last_run and clears last_error; stopped and failed
// runs set last_error only.
func (e *Engine) finalize(ctx context.Context, automation *models.Automation, rc *RunContext, runErr error, logger *slog.Logger) models.RunOutcome {
	now := e.now()

	switch {
	case runErr != nil:
		logger.Error("Automation run failed", "error", runErr)
		e.notifier.Notify(ctx, automation, runErr)

		automation.LastError = &models.RunError{
			Date:    now,
			Message: "CRITICAL: " + runErr.Error(),
		}
		e.save(ctx, automation, logger)

		return models.RunOutcome{
			Status:     models.RunStatusFailed,
			FinishedAt: now,
			Reason:     runErr.Error(),
		}

	case rc.ActionsExecuted > 0:
		logger.Info("Automation run succeeded", "actions_executed", rc.ActionsExecuted)

		automation.LastRun = &now
		automation.LastError = nil
		e.save(ctx, automation, logger)

		return models.RunOutcome{
			Status:     models.RunStatusSuccess,
			FinishedAt: now,
		}

	default:
		reason := rc.StopReason()
		logger.Info("Automation run stopped", "reason", reason)

		automation.LastError = &models.RunError{Date: now, Message: reason}
		e.save(ctx, automation, logger)

		return models.RunOutcome{
			Status:     models.RunStatusStopped,
			FinishedAt: now,
			Reason:     reason,
		}
	}
}

func (e *Engine) save(ctx context.Context, automation *models.Automation, logger *slog.Logger) {
	if e.persistence == nil {
		return
	}

	automation.UpdatedAt = e.now()

	if err := e.persistence.SaveAutomation(ctx, automation); err != nil {
		logger.Error("Failed to persist automation run state", "error", err)
	}
}

func (e *Engine) baseEvent(eventType events.EventType, automationID, runID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, automationID)
	base.RunID = runID

	return base
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) publishFinished(ctx context.Context, automationID, runID string, outcome models.RunOutcome, started time.Time) {
	duration := outcome.FinishedAt.Sub(started)

	if outcome.Status == models.RunStatusFailed {
		e.publish(ctx, automationID, events.RunFailed{
			BaseEvent: e.baseEvent(events.RunFailedEvent, automationID, runID),
			Error:     outcome.Reason,
			Duration:  duration,
		})

		return
	}

	e.publish(ctx, automationID, events.RunFinished{
		BaseEvent: e.baseEvent(events.RunFinishedEvent, automationID, runID),
		Status:    outcome.Status,
		Reason:    outcome.Reason,
		Duration:  duration,
	})
}
