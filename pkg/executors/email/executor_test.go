package email

import (
	"context"
	"log/slog"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorSend(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)

	executor := NewExecutor(Config{
		Host: "smtp.example.com",
		Port: 587,
		From: "alerts@example.com",
	}, slog.Default())
	executor.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotFrom = from
		gotTo = to
		gotMsg = msg

		return nil
	}

	err := executor.Send(context.Background(), "Alert", "<p>hi</p>", []string{"ops@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "alerts@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Alert\r\n")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html")
	assert.Contains(t, string(gotMsg), "<p>hi</p>")
}

func TestExecutorRequiresRecipients(t *testing.T) {
	executor := NewExecutor(Config{Host: "smtp.example.com", Port: 25}, slog.Default())

	err := executor.Send(context.Background(), "Alert", "<p>hi</p>", nil)

	require.Error(t, err)
}

func TestBuildMessageSanitizesSubject(t *testing.T) {
	msg := string(buildMessage("a@example.com", []string{"b@example.com"}, "hi\r\nBcc: evil@example.com", "<p>x</p>"))

	assert.Contains(t, msg, "Subject: hi  Bcc: evil@example.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
}
