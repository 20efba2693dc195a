package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantor/signalflow/pkg/models"
)

// 2026-01-06 is a Tuesday.
func tuesday(hour, minute int) time.Time {
	return time.Date(2026, time.January, 6, hour, minute, 0, 0, time.UTC)
}

func timeNode(id, targetTime string) *models.Node {
	return newNode(id, models.NodeTypeTimeInterval, map[string]any{"target_time": targetTime})
}

func gateAt(now time.Time) *TimeGate {
	return NewTimeGate(time.UTC, fixedClock(now), testLogger())
}

func TestTimeGateOpensInsideWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		open bool
	}{
		{name: "before target", now: tuesday(9, 29), open: false},
		{name: "exactly at target", now: tuesday(9, 30), open: true},
		{name: "inside window", now: tuesday(9, 44), open: true},
		{name: "at window end", now: tuesday(9, 45), open: false},
		{name: "after window", now: tuesday(10, 0), open: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := timeNode("t1", "09:30")
			automation := newAutomation([]*models.Node{node}, nil)
			rc := NewRunContext("run-test")

			result := gateAt(tt.now).Evaluate(automation, rc)

			assert.True(t, result.Present)
			assert.Equal(t, tt.open, result.Open)
			assert.Equal(t, tt.open, rc.Result("t1"))
		})
	}
}

func TestTimeGateClosedOnWeekends(t *testing.T) {
	// 2026-01-10 is a Saturday.
	saturday := time.Date(2026, time.January, 10, 9, 35, 0, 0, time.UTC)

	node := timeNode("t1", "09:30")
	automation := newAutomation([]*models.Node{node}, nil)
	rc := NewRunContext("run-test")

	result := gateAt(saturday).Evaluate(automation, rc)

	assert.True(t, result.Present)
	assert.False(t, result.Open)
}

func TestTimeGateFiresOncePerDay(t *testing.T) {
	node := timeNode("t1", "09:30")
	automation := newAutomation([]*models.Node{node}, nil)

	first := gateAt(tuesday(9, 32)).Evaluate(automation, NewRunContext("run-1"))
	require.True(t, first.Open)

	// The fire stamped last_run on the node, so a second pass inside the
	// same window stays closed.
	lastRun, ok := node.DataTime("last_run")
	require.True(t, ok)
	assert.Equal(t, tuesday(9, 32), lastRun)

	second := gateAt(tuesday(9, 40)).Evaluate(automation, NewRunContext("run-2"))
	assert.False(t, second.Open)
}

func TestTimeGateFiresAgainNextTradingDay(t *testing.T) {
	node := timeNode("t1", "09:30")
	node.SetDataTime("last_run", tuesday(9, 32))
	automation := newAutomation([]*models.Node{node}, nil)

	wednesday := tuesday(9, 35).AddDate(0, 0, 1)

	result := gateAt(wednesday).Evaluate(automation, NewRunContext("run-test"))

	assert.True(t, result.Open)
}

func TestTimeGateAbsentMeansAlwaysOpen(t *testing.T) {
	automation := newAutomation([]*models.Node{
		newNode("p1", models.NodeTypePrice, map[string]any{"op": ">", "value": 100.0}),
	}, nil)

	result := gateAt(tuesday(3, 0)).Evaluate(automation, NewRunContext("run-test"))

	assert.False(t, result.Present)
	assert.True(t, result.Open)
}

func TestTimeGateAnyNodeFiringOpensGate(t *testing.T) {
	early := timeNode("t1", "06:00")
	early.SetDataTime("last_run", tuesday(6, 1))
	due := timeNode("t2", "09:30")

	automation := newAutomation([]*models.Node{early, due}, nil)
	rc := NewRunContext("run-test")

	result := gateAt(tuesday(9, 35)).Evaluate(automation, rc)

	assert.True(t, result.Open)
	assert.False(t, rc.Result("t1"))
	assert.True(t, rc.Result("t2"))
}

func TestTimeGateUpdatesNextRunWhenClosed(t *testing.T) {
	node := timeNode("t1", "09:30")
	automation := newAutomation([]*models.Node{node}, nil)

	result := gateAt(tuesday(8, 0)).Evaluate(automation, NewRunContext("run-test"))

	require.False(t, result.Open)
	require.NotNil(t, automation.NextRun)
	assert.Equal(t, tuesday(9, 30), *automation.NextRun)

	// No last_run stamp when the gate stays closed.
	_, stamped := node.DataTime("last_run")
	assert.False(t, stamped)
}

func TestTimeGateNextRunSkipsWeekend(t *testing.T) {
	// 2026-01-09 is a Friday; after the window passes, the next slot is
	// Monday the 12th.
	friday := time.Date(2026, time.January, 9, 11, 0, 0, 0, time.UTC)

	node := timeNode("t1", "09:30")
	automation := newAutomation([]*models.Node{node}, nil)

	gateAt(friday).Evaluate(automation, NewRunContext("run-test"))

	require.NotNil(t, automation.NextRun)
	assert.Equal(t, time.Date(2026, time.January, 12, 9, 30, 0, 0, time.UTC), *automation.NextRun)
}

func TestTimeGateMalformedNodeStaysClosed(t *testing.T) {
	node := newNode("t1", models.NodeTypeTimeInterval, map[string]any{"target_time": "half past nine"})
	automation := newAutomation([]*models.Node{node}, nil)
	rc := NewRunContext("run-test")

	result := gateAt(tuesday(9, 35)).Evaluate(automation, rc)

	assert.True(t, result.Present)
	assert.False(t, result.Open)
}
