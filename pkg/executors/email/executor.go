// Package email provides the SMTP executor for email action nodes.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// Config holds the SMTP relay settings. Username may be empty for relays
// that accept unauthenticated mail on a private network.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Executor sends HTML email over a plain SMTP relay.
type Executor struct {
	config Config
	logger *slog.Logger

	// send is swapped in tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewExecutor(config Config, logger *slog.Logger) *Executor {
	return &Executor{
		config: config,
		logger: logger.With("module", "email_executor"),
		send:   smtp.SendMail,
	}
}

func (e *Executor) Send(ctx context.Context, subject, htmlBody string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients for email %q", subject)
	}

	var auth smtp.Auth
	if e.config.Username != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	msg := buildMessage(e.config.From, recipients, subject, htmlBody)

	if err := e.send(addr, auth, e.config.From, recipients, msg); err != nil {
		return fmt.Errorf("failed to send email %q: %w", subject, err)
	}

	e.logger.InfoContext(ctx, "Email sent", "subject", subject, "recipients", len(recipients))

	return nil
}

// buildMessage assembles an RFC 5322 message with an HTML body.
func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	return []byte(b.String())
}

// sanitizeHeader strips CR and LF so node-supplied subjects cannot inject
// headers.
func sanitizeHeader(v string) string {
	v = strings.ReplaceAll(v, "\r", " ")

	return strings.ReplaceAll(v, "\n", " ")
}
