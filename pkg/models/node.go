package models

import (
	"fmt"
	"strconv"
	"time"
)

// NodeType discriminates how a node's Data payload is interpreted.
type NodeType string

const (
	// Gate node evaluated before everything else in a run.
	NodeTypeTimeInterval NodeType = "time_interval"

	// Market-driven conditional nodes.
	NodeTypePrice      NodeType = "price"
	NodeTypePercentage NodeType = "percentage"
	NodeTypeRisk       NodeType = "risk"
	NodeTypeSentiment  NodeType = "sentiment"

	// Signal combinators and routing.
	NodeTypeLogicGate     NodeType = "logic_gate"
	NodeTypeIfGate        NodeType = "if_gate"
	NodeTypeEndAutomation NodeType = "end_automation"

	// Action nodes dispatched to external executors.
	NodeTypeTracking        NodeType = "tracking"
	NodeTypeNexus           NodeType = "nexus"
	NodeTypeSendEmail       NodeType = "send_email"
	NodeTypeCompletionEmail NodeType = "completion_email"
	NodeTypeWebhook         NodeType = "webhook"

	// Configuration nodes attached as inputs to action nodes.
	NodeTypeEmailInfo NodeType = "email_info"
	NodeTypeRHInfo    NodeType = "rh_info"
)

// Node is a single vertex of an automation graph. Data carries the
// type-specific payload; use the typed accessors below instead of reading the
// map at call sites.
type Node struct {
	ID   string         `json:"id"   validate:"required"`
	Type NodeType       `json:"type" validate:"required"`
	Data map[string]any `json:"data"`
}

// Edge connects two nodes. Handles disambiguate multi-output nodes (the
// if gate) and multi-input nodes (logic and if gates).
type Edge struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}

// IsCondition reports whether the node is a market-driven conditional.
func (n *Node) IsCondition() bool {
	switch n.Type {
	case NodeTypePrice, NodeTypePercentage, NodeTypeRisk, NodeTypeSentiment:
		return true
	default:
		return false
	}
}

// IsAction reports whether the node dispatches to an external executor.
func (n *Node) IsAction() bool {
	switch n.Type {
	case NodeTypeTracking, NodeTypeNexus, NodeTypeSendEmail, NodeTypeCompletionEmail, NodeTypeWebhook:
		return true
	default:
		return false
	}
}

// IsConfig reports whether the node only carries configuration for a
// connected action node.
func (n *Node) IsConfig() bool {
	return n.Type == NodeTypeEmailInfo || n.Type == NodeTypeRHInfo
}

// DataString returns a string field of the payload, empty when absent.
func (n *Node) DataString(key string) string {
	if n.Data == nil {
		return ""
	}

	s, _ := n.Data[key].(string)

	return s
}

// DataFloat returns a numeric field of the payload. JSON decoding yields
// float64, but stores may hand back ints or numeric strings.
func (n *Node) DataFloat(key string) (float64, bool) {
	if n.Data == nil {
		return 0, false
	}

	switch v := n.Data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// DataTime returns an RFC3339 timestamp field of the payload.
func (n *Node) DataTime(key string) (time.Time, bool) {
	raw := n.DataString(key)
	if raw == "" {
		return time.Time{}, false
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// SetDataTime writes an RFC3339 timestamp field into the payload.
func (n *Node) SetDataTime(key string, t time.Time) {
	if n.Data == nil {
		n.Data = make(map[string]any)
	}

	n.Data[key] = t.Format(time.RFC3339)
}

// CompareOp is the comparison operator of a conditional node.
type CompareOp string

const (
	OpGreater      CompareOp = ">"
	OpLess         CompareOp = "<"
	OpGreaterEqual CompareOp = ">="
	OpLessEqual    CompareOp = "<="
	OpEqual        CompareOp = "=="
)

// Compare applies the operator to current and target values.
func (op CompareOp) Compare(current, target float64) bool {
	switch op {
	case OpGreater:
		return current > target
	case OpLess:
		return current < target
	case OpGreaterEqual:
		return current >= target
	case OpLessEqual:
		return current <= target
	case OpEqual:
		return current == target
	default:
		return false
	}
}

// ConditionData is the decoded payload of a conditional node. Lookback is
// only meaningful for percentage nodes, Metric only for risk nodes.
type ConditionData struct {
	Ticker   string
	Op       CompareOp
	Value    float64
	Lookback string
	Metric   string
}

// Condition decodes the payload of a conditional node.
func (n *Node) Condition() (ConditionData, error) {
	if !n.IsCondition() {
		return ConditionData{}, fmt.Errorf("node %s: %w", n.ID, ErrNotConditionNode)
	}

	value, ok := n.DataFloat("value")
	if !ok {
		return ConditionData{}, fmt.Errorf("node %s: %w", n.ID, ErrMissingValue)
	}

	op := CompareOp(n.DataString("op"))
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
	default:
		return ConditionData{}, fmt.Errorf("node %s: op %q: %w", n.ID, op, ErrInvalidOperator)
	}

	return ConditionData{
		Ticker:   n.DataString("ticker"),
		Op:       op,
		Value:    value,
		Lookback: n.DataString("lookback"),
		Metric:   n.DataString("metric"),
	}, nil
}

// TimeIntervalData is the decoded payload of a time interval node.
// TargetTime is a wall-clock "15:04" value in the engine's timezone. LastRun
// is the only durable node-local field, updated in memory when the gate opens
// and persisted with the run outcome.
type TimeIntervalData struct {
	TargetTime string
	LastRun    *time.Time
}

// TimeInterval decodes the payload of a time interval node.
func (n *Node) TimeInterval() (TimeIntervalData, error) {
	if n.Type != NodeTypeTimeInterval {
		return TimeIntervalData{}, fmt.Errorf("node %s: %w", n.ID, ErrNotTimeNode)
	}

	target := n.DataString("target_time")
	if target == "" {
		return TimeIntervalData{}, fmt.Errorf("node %s: %w", n.ID, ErrMissingTargetTime)
	}

	if _, err := time.Parse("15:04", target); err != nil {
		return TimeIntervalData{}, fmt.Errorf("node %s: target_time %q: %w", n.ID, target, err)
	}

	data := TimeIntervalData{TargetTime: target}
	if lastRun, ok := n.DataTime("last_run"); ok {
		data.LastRun = &lastRun
	}

	return data, nil
}

// LogicOp is the combinator of a logic gate node.
type LogicOp string

const (
	LogicAnd LogicOp = "AND"
	LogicOr  LogicOp = "OR"
)

// LogicGate decodes the payload of a logic gate node.
func (n *Node) LogicGate() (LogicOp, error) {
	if n.Type != NodeTypeLogicGate {
		return "", fmt.Errorf("node %s: %w", n.ID, ErrNotLogicGateNode)
	}

	op := LogicOp(n.DataString("op"))
	if op != LogicAnd && op != LogicOr {
		return "", fmt.Errorf("node %s: op %q: %w", n.ID, op, ErrInvalidOperator)
	}

	return op, nil
}
