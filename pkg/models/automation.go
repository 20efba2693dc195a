// Package models defines the core domain models for graph-based market automations.
package models

import "time"

// RunError records the most recent unsuccessful run of an automation.
// Message is surfaced verbatim in operator tooling.
type RunError struct {
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
}

// Automation is a user-authored directed graph of condition, gate and action
// nodes evaluated on a schedule. Definitions are created and edited
// externally; the engine only mutates LastRun, NextRun and LastError after a
// run, plus the last_run field of time interval nodes.
type Automation struct {
	ID        string     `json:"id"         validate:"required"`
	Name      string     `json:"name"       validate:"required,min=3"`
	Active    bool       `json:"active"`
	Nodes     []*Node    `json:"nodes"      validate:"dive"`
	Edges     []*Edge    `json:"edges"      validate:"dive"`
	Owner     string     `json:"owner"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError *RunError  `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NodeByID returns the node with the given ID, or nil if the graph does not
// contain it.
func (a *Automation) NodeByID(id string) *Node {
	for _, n := range a.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// NodesByType returns all nodes of the given type, preserving graph order.
func (a *Automation) NodesByType(t NodeType) []*Node {
	var nodes []*Node

	for _, n := range a.Nodes {
		if n.Type == t {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// TimeNodes returns the time interval nodes of the graph.
func (a *Automation) TimeNodes() []*Node {
	return a.NodesByType(NodeTypeTimeInterval)
}

// ConditionNodes returns every market-driven conditional node. Time interval
// nodes are excluded, they are handled by the time gate before anything else
// runs.
func (a *Automation) ConditionNodes() []*Node {
	var nodes []*Node

	for _, n := range a.Nodes {
		if n.IsCondition() {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// EdgesFrom returns the outgoing edges of a node.
func (a *Automation) EdgesFrom(nodeID string) []*Edge {
	var edges []*Edge

	for _, e := range a.Edges {
		if e.Source == nodeID {
			edges = append(edges, e)
		}
	}

	return edges
}

// EdgesTo returns the incoming edges of a node.
func (a *Automation) EdgesTo(nodeID string) []*Edge {
	var edges []*Edge

	for _, e := range a.Edges {
		if e.Target == nodeID {
			edges = append(edges, e)
		}
	}

	return edges
}
