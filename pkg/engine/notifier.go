package engine

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/protocol"
)

// FailureNotifier reports an aborted run to whoever the automation is
// configured to tell. It must never crash the run loop and never mask the
// original error: its own failures are logged and dropped.
type FailureNotifier struct {
	email  protocol.EmailSender
	logger *slog.Logger
}

func NewFailureNotifier(email protocol.EmailSender, logger *slog.Logger) *FailureNotifier {
	return &FailureNotifier{
		email:  email,
		logger: logger.With("module", "failure_notifier"),
	}
}

// Notify sends a failure report for the run. The recipient is resolved from
// any completion email node in the graph, falling back to the automation
// owner.
func (n *FailureNotifier) Notify(ctx context.Context, automation *models.Automation, runErr error) {
	logger := n.logger.With("automation_id", automation.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Failure notification panicked", "panic", r)
		}
	}()

	var configNode *models.Node
	if nodes := automation.NodesByType(models.NodeTypeCompletionEmail); len(nodes) > 0 {
		configNode = nodes[0]
	}

	recipient := resolveRecipient(automation, configNode)
	if recipient == "" {
		logger.Warn("No recipient for failure report, skipping notification")

		return
	}

	subject := "Signalflow Automation Failed: " + automation.Name
	body := fmt.Sprintf(
		"<p>Automation %q failed at %s.</p><p>Error: %s</p>",
		automation.Name,
		time.Now().Format(time.RFC1123),
		html.EscapeString(runErr.Error()),
	)

	if err := n.email.Send(ctx, subject, body, []string{recipient}); err != nil {
		logger.Error("Failed to send failure report", "recipient", recipient, "error", err)

		return
	}

	logger.Info("Failure report sent", "recipient", recipient)
}
