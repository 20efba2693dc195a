package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/telemetry"
)

func newTestPropagator(rebalancer *recordingRebalancer, email *recordingEmail, webhook *recordingWebhook) *GraphPropagator {
	if rebalancer == nil {
		rebalancer = &recordingRebalancer{}
	}

	if email == nil {
		email = &recordingEmail{}
	}

	if webhook == nil {
		webhook = &recordingWebhook{}
	}

	dispatcher := NewActionDispatcher(rebalancer, email, webhook, telemetry.NewMemoryRecorder(), testLogger())

	return NewGraphPropagator(dispatcher, testLogger())
}

func TestPropagateConditionToAction(t *testing.T) {
	webhook := &recordingWebhook{}
	propagator := newTestPropagator(nil, nil, webhook)

	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("w1", models.NodeTypeWebhook, map[string]any{"url": "https://hooks.example.com/x"}),
		},
		[]*models.Edge{newEdge("p1", "w1")},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", true)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Equal(t, []string{"https://hooks.example.com/x"}, webhook.urls)
	assert.Equal(t, 1, rc.ActionsExecuted)
}

func TestPropagateFalseConditionStopsWithReason(t *testing.T) {
	webhook := &recordingWebhook{}
	propagator := newTestPropagator(nil, nil, webhook)

	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("w1", models.NodeTypeWebhook, map[string]any{"url": "https://hooks.example.com/x"}),
		},
		[]*models.Edge{newEdge("p1", "w1")},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", false)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Empty(t, webhook.urls)
	assert.Zero(t, rc.ActionsExecuted)
	assert.Equal(t, "Condition Failed: Price", rc.StopReason())
}

func TestPropagateFirstFalseConditionWins(t *testing.T) {
	propagator := newTestPropagator(nil, nil, nil)

	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("r1", models.NodeTypeRisk, nil),
		},
		nil,
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", false)
	rc.SetResult("r1", false)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Equal(t, "Condition Failed: Price", rc.StopReason())
}

func TestLogicGateAnd(t *testing.T) {
	tests := []struct {
		name     string
		p1       bool
		r1       bool
		fired    bool
		stopWith string
	}{
		{name: "all true fires", p1: true, r1: true, fired: true},
		{name: "one false blocks", p1: true, r1: false, fired: false, stopWith: "Logic Gate (AND) Failed"},
		{name: "all false blocks", p1: false, r1: false, fired: false, stopWith: "Logic Gate (AND) Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			webhook := &recordingWebhook{}
			propagator := newTestPropagator(nil, nil, webhook)

			automation := newAutomation(
				[]*models.Node{
					newNode("p1", models.NodeTypePrice, nil),
					newNode("r1", models.NodeTypeRisk, nil),
					newNode("g1", models.NodeTypeLogicGate, map[string]any{"op": "AND"}),
					newNode("w1", models.NodeTypeWebhook, map[string]any{"url": "https://hooks.example.com/x"}),
				},
				[]*models.Edge{
					newEdge("p1", "g1"),
					newEdge("r1", "g1"),
					newEdge("g1", "w1"),
				},
			)

			rc := NewRunContext("run-test")
			rc.SetResult("p1", tt.p1)
			rc.SetResult("r1", tt.r1)

			require.NoError(t, propagator.Run(context.Background(), automation, rc))

			if tt.fired {
				assert.Len(t, webhook.urls, 1)
			} else {
				assert.Empty(t, webhook.urls)
			}

			if tt.stopWith != "" {
				assert.Equal(t, tt.stopWith, rc.StopReason())
			}
		})
	}
}

func TestLogicGateOr(t *testing.T) {
	webhook := &recordingWebhook{}
	propagator := newTestPropagator(nil, nil, webhook)

	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("r1", models.NodeTypeRisk, nil),
			newNode("g1", models.NodeTypeLogicGate, map[string]any{"op": "OR"}),
			newNode("w1", models.NodeTypeWebhook, map[string]any{"url": "https://hooks.example.com/x"}),
		},
		[]*models.Edge{
			newEdge("p1", "g1"),
			newEdge("r1", "g1"),
			newEdge("g1", "w1"),
		},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", true)
	rc.SetResult("r1", false)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Len(t, webhook.urls, 1)
}

func TestLogicGateFailureOverridesConditionReason(t *testing.T) {
	propagator := newTestPropagator(nil, nil, nil)

	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("r1", models.NodeTypeRisk, nil),
			newNode("g1", models.NodeTypeLogicGate, map[string]any{"op": "AND"}),
		},
		[]*models.Edge{
			newEdge("p1", "g1"),
			newEdge("r1", "g1"),
		},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", true)
	rc.SetResult("r1", false)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Equal(t, "Logic Gate (AND) Failed", rc.StopReason())
}

func TestIfGateRoutesByPriority(t *testing.T) {
	tests := []struct {
		name   string
		p0     bool
		p1     bool
		p2     bool
		target string
	}{
		{name: "first true wins", p0: true, p1: true, p2: true, target: "w0"},
		{name: "skips false higher priority", p0: false, p1: true, p2: true, target: "w1"},
		{name: "falls to last input", p0: false, p1: false, p2: true, target: "w2"},
		{name: "all false takes else", p0: false, p1: false, p2: false, target: "welse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			webhook := &recordingWebhook{}
			propagator := newTestPropagator(nil, nil, webhook)

			urlFor := func(id string) string { return "https://hooks.example.com/" + id }

			automation := newAutomation(
				[]*models.Node{
					newNode("p0", models.NodeTypePrice, nil),
					newNode("p1", models.NodeTypePrice, nil),
					newNode("p2", models.NodeTypePrice, nil),
					newNode("if1", models.NodeTypeIfGate, nil),
					newNode("w0", models.NodeTypeWebhook, map[string]any{"url": urlFor("w0")}),
					newNode("w1", models.NodeTypeWebhook, map[string]any{"url": urlFor("w1")}),
					newNode("w2", models.NodeTypeWebhook, map[string]any{"url": urlFor("w2")}),
					newNode("welse", models.NodeTypeWebhook, map[string]any{"url": urlFor("welse")}),
				},
				[]*models.Edge{
					newHandleEdge("p0", "if1", "", "in-0"),
					newHandleEdge("p1", "if1", "", "in-1"),
					newHandleEdge("p2", "if1", "", "in-2"),
					newHandleEdge("if1", "w0", "out-0", ""),
					newHandleEdge("if1", "w1", "out-1", ""),
					newHandleEdge("if1", "w2", "out-2", ""),
					newHandleEdge("if1", "welse", "out-else", ""),
				},
			)

			rc := NewRunContext("run-test")
			rc.SetResult("p0", tt.p0)
			rc.SetResult("p1", tt.p1)
			rc.SetResult("p2", tt.p2)

			require.NoError(t, propagator.Run(context.Background(), automation, rc))

			require.Len(t, webhook.urls, 1)
			assert.Equal(t, urlFor(tt.target), webhook.urls[0])
		})
	}
}

func TestEndAutomationPrunesQueue(t *testing.T) {
	webhook := &recordingWebhook{}
	propagator := newTestPropagator(nil, nil, webhook)

	// p1 fans out to the end node and a webhook; the end node is processed
	// first, so the webhook must never fire.
	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("end1", models.NodeTypeEndAutomation, nil),
			newNode("w1", models.NodeTypeWebhook, map[string]any{"url": "https://hooks.example.com/x"}),
		},
		[]*models.Edge{
			newEdge("p1", "end1"),
			newEdge("p1", "w1"),
		},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", true)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Empty(t, webhook.urls)
	assert.Equal(t, StopReasonExplicit, rc.StopReason())
}

func TestEndAutomationStillSendsCompletionEmail(t *testing.T) {
	email := &recordingEmail{}
	propagator := newTestPropagator(nil, email, nil)

	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("end1", models.NodeTypeEndAutomation, nil),
			newNode("ce1", models.NodeTypeCompletionEmail, map[string]any{"email": "ops@example.com"}),
		},
		[]*models.Edge{
			newEdge("p1", "end1"),
			newEdge("end1", "ce1"),
		},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", true)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	require.Len(t, email.sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, email.sent[0].recipients)
	assert.Equal(t, StopReasonExplicit, rc.StopReason())
}

func TestActionsChain(t *testing.T) {
	rebalancer := &recordingRebalancer{}
	email := &recordingEmail{}
	propagator := newTestPropagator(rebalancer, email, nil)

	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("n1", models.NodeTypeNexus, map[string]any{"code": "pf-123"}),
			newNode("e1", models.NodeTypeSendEmail, map[string]any{"email": "ops@example.com"}),
		},
		[]*models.Edge{
			newEdge("p1", "n1"),
			newEdge("n1", "e1"),
		},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", true)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Equal(t, []string{"pf-123"}, rebalancer.codes)
	require.Len(t, email.sent, 1)
	assert.Equal(t, 2, rc.ActionsExecuted)
}

func TestActionRunsOncePerRun(t *testing.T) {
	webhook := &recordingWebhook{}
	propagator := newTestPropagator(nil, nil, webhook)

	// Two true conditions converge on one webhook.
	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("r1", models.NodeTypeRisk, nil),
			newNode("w1", models.NodeTypeWebhook, map[string]any{"url": "https://hooks.example.com/x"}),
		},
		[]*models.Edge{
			newEdge("p1", "w1"),
			newEdge("r1", "w1"),
		},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", true)
	rc.SetResult("r1", true)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Len(t, webhook.urls, 1)
	assert.Equal(t, 1, rc.ActionsExecuted)
}

func TestUnconfiguredActionIsNoOpNotFailure(t *testing.T) {
	rebalancer := &recordingRebalancer{}
	propagator := newTestPropagator(rebalancer, nil, nil)

	automation := newAutomation(
		[]*models.Node{
			newNode("p1", models.NodeTypePrice, nil),
			newNode("n1", models.NodeTypeNexus, nil),
		},
		[]*models.Edge{newEdge("p1", "n1")},
	)

	rc := NewRunContext("run-test")
	rc.SetResult("p1", true)

	require.NoError(t, propagator.Run(context.Background(), automation, rc))

	assert.Empty(t, rebalancer.codes)
	assert.Zero(t, rc.ActionsExecuted)
	// The node still passes signal downstream.
	assert.True(t, rc.Result("n1"))
}
