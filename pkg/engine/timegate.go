package engine

import (
	"log/slog"
	"time"

	"github.com/quantor/signalflow/pkg/models"
)

// gateWindow is how long after target_time a time node still fires. Runs are
// scheduled on a coarse tick, so the window must absorb scheduler jitter.
const gateWindow = 15 * time.Minute

// TimeGate decides whether a run may proceed at all. When the graph contains
// time interval nodes, every other condition is evaluated only if at least
// one of them fires this run.
type TimeGate struct {
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// GateResult reports the gate decision for one run.
type GateResult struct {
	// Present is true when the graph contains at least one time node.
	Present bool
	// Open is true when the run may proceed. Graphs without time nodes are
	// always open.
	Open bool
}

func NewTimeGate(location *time.Location, now func() time.Time, logger *slog.Logger) *TimeGate {
	return &TimeGate{
		location: location,
		now:      now,
		logger:   logger.With("module", "time_gate"),
	}
}

// Evaluate checks every time interval node, records outcomes into the run
// context, and stamps last_run on nodes that fired. It also refreshes the
// automation's next_run so schedulers can skip dormant records; next_run is
// updated in memory whether or not the gate opens.
func (g *TimeGate) Evaluate(automation *models.Automation, rc *RunContext) GateResult {
	timeNodes := automation.TimeNodes()
	if len(timeNodes) == 0 {
		return GateResult{Present: false, Open: true}
	}

	now := g.now().In(g.location)
	open := false

	var nextRun *time.Time

	for _, node := range timeNodes {
		fired := g.evaluateNode(node, now)
		rc.SetResult(node.ID, fired)

		if fired {
			open = true

			node.SetDataTime("last_run", now)
		}

		if next, ok := g.nextFire(node, now, fired); ok {
			if nextRun == nil || next.Before(*nextRun) {
				nextRun = &next
			}
		}
	}

	automation.NextRun = nextRun

	return GateResult{Present: true, Open: open}
}

// evaluateNode reports whether a single time node fires right now: weekday,
// inside the [target, target+window) slot, and not already fired today.
func (g *TimeGate) evaluateNode(node *models.Node, now time.Time) bool {
	data, err := node.TimeInterval()
	if err != nil {
		g.logger.Warn("Skipping malformed time interval node", "node_id", node.ID, "error", err)

		return false
	}

	if !isTradingDay(now) {
		return false
	}

	target := atWallClock(now, data.TargetTime)
	if now.Before(target) || !now.Before(target.Add(gateWindow)) {
		return false
	}

	if data.LastRun != nil {
		lastRun := data.LastRun.In(g.location)
		if sameDay(lastRun, now) || !lastRun.Before(target) {
			return false
		}
	}

	return true
}

// nextFire computes when the node becomes eligible again. A node that fired
// today, or whose slot already passed, is next due on the following trading
// day.
func (g *TimeGate) nextFire(node *models.Node, now time.Time, firedNow bool) (time.Time, bool) {
	data, err := node.TimeInterval()
	if err != nil {
		return time.Time{}, false
	}

	target := atWallClock(now, data.TargetTime)

	if !firedNow && isTradingDay(now) && now.Before(target.Add(gateWindow)) {
		alreadyFired := data.LastRun != nil && sameDay(data.LastRun.In(g.location), now)
		if !alreadyFired {
			return target, true
		}
	}

	return nextTradingDay(target), true
}

func isTradingDay(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}

// atWallClock returns the given "15:04" wall-clock time on the same day as
// ref, in ref's location. The payload is validated before parsing, so a
// parse failure cannot occur here.
func atWallClock(ref time.Time, wallClock string) time.Time {
	parsed, _ := time.Parse("15:04", wallClock)

	return time.Date(ref.Year(), ref.Month(), ref.Day(), parsed.Hour(), parsed.Minute(), 0, 0, ref.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// nextTradingDay advances at least one day from the given target, skipping
// weekends while keeping the wall-clock time.
func nextTradingDay(target time.Time) time.Time {
	next := target.AddDate(0, 0, 1)
	for !isTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}
