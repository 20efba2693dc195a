package protocol

import "context"

// No-op implementations stand in for integrations that are not configured.
// They keep the engine's wiring total: every collaborator is always present.

type NoopRebalancer struct{}

func (NoopRebalancer) Rebalance(_ context.Context, _ string, _ map[string]any) error { return nil }

type NoopEmailSender struct{}

func (NoopEmailSender) Send(_ context.Context, _, _ string, _ []string) error { return nil }

type NoopWebhookPoster struct{}

func (NoopWebhookPoster) Post(_ context.Context, _ string, _ map[string]any) error { return nil }
