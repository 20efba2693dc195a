package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/quantor/signalflow/pkg/models"
)

// GraphPropagator walks signals from satisfied condition nodes through logic
// gates, if-gates and terminal nodes down to actions. Traversal is strictly
// sequential: gates must see a stable snapshot of the result map, and the
// processed-set dedup is what guarantees termination.
type GraphPropagator struct {
	dispatcher *ActionDispatcher
	logger     *slog.Logger
}

func NewGraphPropagator(dispatcher *ActionDispatcher, logger *slog.Logger) *GraphPropagator {
	return &GraphPropagator{
		dispatcher: dispatcher,
		logger:     logger.With("module", "graph_propagator"),
	}
}

// Run seeds the queue from evaluated condition nodes and drains it. The only
// error it returns is an action executor failure, which aborts the run.
func (p *GraphPropagator) Run(ctx context.Context, automation *models.Automation, rc *RunContext) error {
	queue := newPropagationQueue()

	p.seed(automation, rc, queue)

	for {
		item, ok := queue.Dequeue()
		if !ok {
			return nil
		}

		node := automation.NodeByID(item.Target)
		if node == nil {
			p.logger.Debug("Edge targets missing node, skipping", "target", item.Target, "source", item.Source)

			continue
		}

		if err := p.process(ctx, automation, node, item, rc, queue); err != nil {
			return err
		}
	}
}

// seed enqueues the outgoing edges of every node that evaluated true. False
// conditionals do not propagate; the first one is remembered as the
// candidate stop reason.
func (p *GraphPropagator) seed(automation *models.Automation, rc *RunContext, queue *propagationQueue) {
	for _, node := range automation.Nodes {
		if !node.IsCondition() && node.Type != models.NodeTypeTimeInterval {
			continue
		}

		if !rc.HasResult(node.ID) {
			continue
		}

		if !rc.Result(node.ID) {
			if node.IsCondition() {
				rc.NoteConditionFailure("Condition Failed: " + ConditionLabel(node.Type))
			}

			continue
		}

		p.fanOut(automation, node.ID, "", queue)
	}
}

func (p *GraphPropagator) process(ctx context.Context, automation *models.Automation, node *models.Node, item Item, rc *RunContext, queue *propagationQueue) error {
	switch {
	case node.Type == models.NodeTypeLogicGate:
		p.processLogicGate(automation, node, rc, queue)
	case node.Type == models.NodeTypeIfGate:
		p.processIfGate(automation, node, rc, queue)
	case node.Type == models.NodeTypeEndAutomation:
		p.processEndAutomation(automation, node, rc, queue)
	case node.IsAction():
		return p.processAction(ctx, automation, node, item, rc, queue)
	default:
		// Conditionals were evaluated up front and config nodes carry no
		// signal; either way there is nothing to do mid-traversal.
		p.logger.Debug("Ignoring non-executable propagation target", "node_id", node.ID, "node_type", node.Type)
	}

	return nil
}

// processLogicGate combines all incoming source results. AND requires every
// input true and at least one input; OR requires any. Gates are evaluated at
// most once per run.
func (p *GraphPropagator) processLogicGate(automation *models.Automation, node *models.Node, rc *RunContext, queue *propagationQueue) {
	if !rc.MarkProcessed(node.ID) {
		return
	}

	op, err := node.LogicGate()
	if err != nil {
		p.logger.Warn("Skipping malformed logic gate", "node_id", node.ID, "error", err)

		return
	}

	incoming := automation.EdgesTo(node.ID)

	result := op == models.LogicAnd && len(incoming) > 0

	for _, edge := range incoming {
		value := rc.Result(edge.Source)

		if op == models.LogicAnd && !value {
			result = false

			break
		}

		if op == models.LogicOr && value {
			result = true

			break
		}
	}

	rc.SetResult(node.ID, result)

	if !result {
		rc.NoteGateFailure(fmt.Sprintf("Logic Gate (%s) Failed", op))

		return
	}

	p.fanOut(automation, node.ID, "", queue)
}

// processIfGate routes on priority: incoming edges are ordered by the
// numeric suffix of their target handle and the first true source picks the
// matching output branch, else the out-else branch fires. The downstream
// signal is always true; the routing choice itself is the information.
func (p *GraphPropagator) processIfGate(automation *models.Automation, node *models.Node, rc *RunContext, queue *propagationQueue) {
	if !rc.MarkProcessed(node.ID) {
		return
	}

	incoming := automation.EdgesTo(node.ID)
	sort.SliceStable(incoming, func(i, j int) bool {
		return handleIndex(incoming[i].TargetHandle) < handleIndex(incoming[j].TargetHandle)
	})

	branch := "out-else"

	for _, edge := range incoming {
		if rc.Result(edge.Source) {
			branch = "out-" + strconv.Itoa(handleIndex(edge.TargetHandle))

			break
		}
	}

	rc.SetResult(node.ID, true)
	p.fanOut(automation, node.ID, branch, queue)
}

// processEndAutomation prunes the run: everything still queued is dropped
// except work targeting a completion email wired directly to this node,
// which is enqueued so the summary still goes out.
func (p *GraphPropagator) processEndAutomation(automation *models.Automation, node *models.Node, rc *RunContext, queue *propagationQueue) {
	if !rc.MarkProcessed(node.ID) {
		return
	}

	rc.NoteExplicitStop()
	rc.SetResult(node.ID, true)

	allowed := make(map[string]bool)

	for _, edge := range automation.EdgesFrom(node.ID) {
		target := automation.NodeByID(edge.Target)
		if target != nil && target.Type == models.NodeTypeCompletionEmail {
			allowed[target.ID] = true

			queue.Enqueue(Item{
				Target:       edge.Target,
				TargetHandle: edge.TargetHandle,
				Signal:       true,
				Source:       node.ID,
			})
		}
	}

	queue.ReplaceWith(func(item Item) bool {
		return allowed[item.Target]
	})

	p.logger.Info("End automation node reached, pruning queue", "node_id", node.ID, "retained", queue.Len())
}

// processAction dispatches the node and, on success, records its result and
// propagates outgoing edges so actions can chain.
func (p *GraphPropagator) processAction(ctx context.Context, automation *models.Automation, node *models.Node, item Item, rc *RunContext, queue *propagationQueue) error {
	if !item.Signal {
		return nil
	}

	if !rc.MarkProcessed(node.ID) {
		return nil
	}

	executed, err := p.dispatcher.Dispatch(ctx, automation, node, rc)
	if err != nil {
		return err
	}

	rc.SetResult(node.ID, true)

	if executed {
		rc.ActionsExecuted++
	}

	p.fanOut(automation, node.ID, "", queue)

	return nil
}

// fanOut enqueues a node's outgoing edges with a true signal. When branch is
// non-empty only edges leaving that source handle fire.
func (p *GraphPropagator) fanOut(automation *models.Automation, nodeID, branch string, queue *propagationQueue) {
	for _, edge := range automation.EdgesFrom(nodeID) {
		if branch != "" && edge.SourceHandle != branch {
			continue
		}

		queue.Enqueue(Item{
			Target:       edge.Target,
			TargetHandle: edge.TargetHandle,
			Signal:       true,
			Source:       nodeID,
		})
	}
}

// handleIndex extracts the numeric suffix of a handle like "in-2". Handles
// without one sort last.
func handleIndex(handle string) int {
	i := strings.LastIndex(handle, "-")
	if i < 0 {
		return int(^uint(0) >> 1)
	}

	n, err := strconv.Atoi(handle[i+1:])
	if err != nil {
		return int(^uint(0) >> 1)
	}

	return n
}
