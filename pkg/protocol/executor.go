package protocol

import "context"

// Rebalancer applies a portfolio strategy identified by its code. An error
// return aborts the automation run that dispatched it.
type Rebalancer interface {
	Rebalance(ctx context.Context, code string, params map[string]any) error
}

// EmailSender delivers an HTML email to one or more recipients.
type EmailSender interface {
	Send(ctx context.Context, subject, htmlBody string, recipients []string) error
}

// WebhookPoster performs an HTTP POST of a JSON payload to a URL.
type WebhookPoster interface {
	Post(ctx context.Context, url string, payload map[string]any) error
}
