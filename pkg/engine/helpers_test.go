package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/persistence"
	"github.com/quantor/signalflow/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newNode(id string, nodeType models.NodeType, data map[string]any) *models.Node {
	return &models.Node{ID: id, Type: nodeType, Data: data}
}

func newEdge(source, target string) *models.Edge {
	return &models.Edge{Source: source, Target: target}
}

func newHandleEdge(source, target, sourceHandle, targetHandle string) *models.Edge {
	return &models.Edge{Source: source, Target: target, SourceHandle: sourceHandle, TargetHandle: targetHandle}
}

func newAutomation(nodes []*models.Node, edges []*models.Edge) *models.Automation {
	return &models.Automation{
		ID:     "auto-1",
		Name:   "Test Automation",
		Active: true,
		Owner:  "owner@example.com",
		Nodes:  nodes,
		Edges:  edges,
	}
}

type stubMarket struct {
	prices map[string]float64
	closes map[string]float64
	err    error
}

func (m stubMarket) Price(_ context.Context, ticker string) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}

	return m.prices[ticker], nil
}

func (m stubMarket) HistoricalClose(_ context.Context, ticker, _ string) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}

	return m.closes[ticker], nil
}

type stubRisk struct {
	scores protocol.RiskScores
	err    error
}

func (r stubRisk) Scores(_ context.Context) (protocol.RiskScores, error) {
	return r.scores, r.err
}

type stubSentiment struct {
	score float64
	err   error
}

func (s stubSentiment) Sentiment(_ context.Context, _ string) (float64, error) {
	return s.score, s.err
}

type recordingRebalancer struct {
	codes []string
	err   error
}

func (r *recordingRebalancer) Rebalance(_ context.Context, code string, _ map[string]any) error {
	if r.err != nil {
		return r.err
	}

	r.codes = append(r.codes, code)

	return nil
}

type sentEmail struct {
	subject    string
	body       string
	recipients []string
}

type recordingEmail struct {
	sent []sentEmail
	err  error
}

func (r *recordingEmail) Send(_ context.Context, subject, htmlBody string, recipients []string) error {
	if r.err != nil {
		return r.err
	}

	r.sent = append(r.sent, sentEmail{subject: subject, body: htmlBody, recipients: recipients})

	return nil
}

type recordingWebhook struct {
	urls     []string
	payloads []map[string]any
	err      error
}

func (r *recordingWebhook) Post(_ context.Context, url string, payload map[string]any) error {
	if r.err != nil {
		return r.err
	}

	r.urls = append(r.urls, url)
	r.payloads = append(r.payloads, payload)

	return nil
}

// stubPersistence records saves so tests can assert exactly what run state
// was written back.
type stubPersistence struct {
	automations []*models.Automation
	saved       []*models.Automation
}

var _ persistence.Persistence = (*stubPersistence)(nil)

func (p *stubPersistence) Automations(_ context.Context) ([]*models.Automation, error) {
	return p.automations, nil
}

func (p *stubPersistence) AutomationByID(_ context.Context, id string) (*models.Automation, error) {
	for _, a := range p.automations {
		if a.ID == id {
			return a, nil
		}
	}

	return nil, persistence.ErrAutomationNotFound
}

func (p *stubPersistence) SaveAutomation(_ context.Context, automation *models.Automation) error {
	p.saved = append(p.saved, automation)

	return nil
}

func (p *stubPersistence) DeleteAutomation(_ context.Context, _ string) error { return nil }

func (p *stubPersistence) HealthCheck(_ context.Context) error { return nil }

func (p *stubPersistence) Close(_ context.Context) error { return nil }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
