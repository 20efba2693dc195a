package engine

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/quantor/signalflow/pkg/eventbus"
	"github.com/quantor/signalflow/pkg/events"
	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/protocol"
	"github.com/quantor/signalflow/pkg/telemetry"
)

// ActionDispatcher maps an action node onto its external executor. Executor
// errors are returned unwrapped in meaning: they are the only error class
// that aborts a run.
type ActionDispatcher struct {
	rebalancer protocol.Rebalancer
	email      protocol.EmailSender
	webhooks   protocol.WebhookPoster
	usage      telemetry.UsageRecorder
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
}

func NewActionDispatcher(
	rebalancer protocol.Rebalancer,
	email protocol.EmailSender,
	webhooks protocol.WebhookPoster,
	usage telemetry.UsageRecorder,
	logger *slog.Logger,
) *ActionDispatcher {
	return &ActionDispatcher{
		rebalancer: rebalancer,
		email:      email,
		webhooks:   webhooks,
		usage:      usage,
		logger:     logger.With("module", "action_dispatcher"),
	}
}

// SetPublisher enables action.dispatched events. A nil publisher disables
// them.
func (d *ActionDispatcher) SetPublisher(publisher eventbus.EventPublisher) {
	d.publisher = publisher
}

// Dispatch executes one action node. The returned bool reports whether an
// executor actually ran: configuration gaps (missing code, no recipient)
// downgrade to logged no-ops so a half-built graph cannot abort a run.
func (d *ActionDispatcher) Dispatch(ctx context.Context, automation *models.Automation, node *models.Node, rc *RunContext) (bool, error) {
	logger := d.logger.With(
		"automation_id", automation.ID,
		"node_id", node.ID,
		"node_type", node.Type,
	)

	var (
		executed bool
		err      error
	)

	switch node.Type {
	case models.NodeTypeNexus, models.NodeTypeTracking:
		executed, err = d.dispatchRebalance(ctx, automation, node, logger)
	case models.NodeTypeSendEmail:
		executed, err = d.dispatchEmail(ctx, automation, node, logger)
	case models.NodeTypeCompletionEmail:
		executed, err = d.dispatchCompletionEmail(ctx, automation, node, rc, logger)
	case models.NodeTypeWebhook:
		executed, err = d.dispatchWebhook(ctx, automation, node, logger)
	default:
		logger.Warn("Not an action node, skipping dispatch")

		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("%s action %s: %w", node.Type, node.ID, err)
	}

	if executed {
		if usageErr := d.usage.IncrAction(ctx, node.Type); usageErr != nil {
			logger.Warn("Failed to record action usage", "error", usageErr)
		}

		if d.publisher != nil {
			base := events.NewBaseEvent(events.ActionDispatchedEvent, automation.ID)
			base.RunID = rc.RunID

			event := events.ActionDispatched{BaseEvent: base, NodeID: node.ID, NodeType: node.Type}
			if pubErr := d.publisher.Publish(ctx, automation.ID, event); pubErr != nil {
				logger.Warn("Failed to publish action event", "error", pubErr)
			}
		}
	}

	return executed, nil
}

func (d *ActionDispatcher) dispatchRebalance(ctx context.Context, automation *models.Automation, node *models.Node, logger *slog.Logger) (bool, error) {
	code := node.DataString("code")
	if code == "" {
		if info := auxNode(automation, node, models.NodeTypeRHInfo); info != nil {
			code = info.DataString("code")
		}
	}

	if code == "" {
		logger.Info("Rebalance node has no portfolio code, skipping")

		return false, nil
	}

	params := map[string]any{
		"automation_id":   automation.ID,
		"automation_name": automation.Name,
		"node_id":         node.ID,
		"kind":            string(node.Type),
	}

	if err := d.rebalancer.Rebalance(ctx, code, params); err != nil {
		return false, err
	}

	logger.Info("Portfolio rebalance dispatched", "code", code)

	return true, nil
}

func (d *ActionDispatcher) dispatchEmail(ctx context.Context, automation *models.Automation, node *models.Node, logger *slog.Logger) (bool, error) {
	recipient := resolveRecipient(automation, node)
	if recipient == "" {
		logger.Info("No recipient resolvable for email node, skipping")

		return false, nil
	}

	subject := node.DataString("subject")
	if subject == "" {
		subject = "Signalflow Alert: " + automation.Name
	}

	message := node.DataString("message")
	if message == "" {
		message = fmt.Sprintf("Automation %q fired.", automation.Name)
	}

	body := "<p>" + html.EscapeString(message) + "</p>"

	if err := d.email.Send(ctx, subject, body, []string{recipient}); err != nil {
		return false, err
	}

	logger.Info("Alert email dispatched", "recipient", recipient)

	return true, nil
}

func (d *ActionDispatcher) dispatchCompletionEmail(ctx context.Context, automation *models.Automation, node *models.Node, rc *RunContext, logger *slog.Logger) (bool, error) {
	recipient := resolveRecipient(automation, node)
	if recipient == "" {
		logger.Info("No recipient resolvable for completion email node, skipping")

		return false, nil
	}

	subject := "Signalflow Run Summary: " + automation.Name
	body := buildRunSummary(automation, rc)

	if err := d.email.Send(ctx, subject, body, []string{recipient}); err != nil {
		return false, err
	}

	logger.Info("Completion email dispatched", "recipient", recipient)

	return true, nil
}

func (d *ActionDispatcher) dispatchWebhook(ctx context.Context, automation *models.Automation, node *models.Node, logger *slog.Logger) (bool, error) {
	url := node.DataString("url")
	if url == "" {
		logger.Info("Webhook node has no URL, skipping")

		return false, nil
	}

	message := node.DataString("message")
	if message == "" {
		message = fmt.Sprintf("Automation %q fired.", automation.Name)
	}

	// Discord rejects the generic {"text": ...} shape.
	payload := map[string]any{"text": message}
	if strings.Contains(url, "discord.com") || strings.Contains(url, "discordapp.com") {
		payload = map[string]any{"content": message}
	}

	if err := d.webhooks.Post(ctx, url, payload); err != nil {
		return false, err
	}

	logger.Info("Webhook dispatched", "url", url)

	return true, nil
}

// auxNode finds a configuration node of the wanted type wired as an input to
// the action node.
func auxNode(automation *models.Automation, action *models.Node, wanted models.NodeType) *models.Node {
	for _, edge := range automation.EdgesTo(action.ID) {
		source := automation.NodeByID(edge.Source)
		if source != nil && source.Type == wanted {
			return source
		}
	}

	return nil
}

// resolveRecipient picks the email recipient in priority order: the node's
// own email field, a connected email_info node, then the automation owner.
func resolveRecipient(automation *models.Automation, node *models.Node) string {
	if node != nil {
		if email := node.DataString("email"); email != "" {
			return email
		}

		if info := auxNode(automation, node, models.NodeTypeEmailInfo); info != nil {
			if email := info.DataString("email"); email != "" {
				return email
			}
		}
	}

	return automation.Owner
}

// buildRunSummary renders the per-node pass/fail/skip table sent with
// completion emails.
func buildRunSummary(automation *models.Automation, rc *RunContext) string {
	var b strings.Builder

	b.WriteString("<h2>" + html.EscapeString(automation.Name) + "</h2>")
	b.WriteString("<table><tr><th>Node</th><th>Type</th><th>Status</th></tr>")

	for _, node := range automation.Nodes {
		status := "skipped"

		if rc.HasResult(node.ID) {
			if rc.Result(node.ID) {
				status = "passed"
			} else {
				status = "failed"
			}
		}

		b.WriteString("<tr><td>" + html.EscapeString(node.ID) + "</td><td>" +
			html.EscapeString(string(node.Type)) + "</td><td>" + status + "</td></tr>")
	}

	b.WriteString("</table>")

	return b.String()
}
