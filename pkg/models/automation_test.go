package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphFixture() *Automation {
	return &Automation{
		ID:   "auto-1",
		Name: "Fixture",
		Nodes: []*Node{
			{ID: "t1", Type: NodeTypeTimeInterval},
			{ID: "p1", Type: NodeTypePrice},
			{ID: "r1", Type: NodeTypeRisk},
			{ID: "g1", Type: NodeTypeLogicGate},
			{ID: "n1", Type: NodeTypeNexus},
		},
		Edges: []*Edge{
			{Source: "t1", Target: "g1"},
			{Source: "p1", Target: "g1"},
			{Source: "g1", Target: "n1"},
		},
	}
}

func TestNodeByID(t *testing.T) {
	automation := graphFixture()

	node := automation.NodeByID("p1")
	require.NotNil(t, node)
	assert.Equal(t, NodeTypePrice, node.Type)

	assert.Nil(t, automation.NodeByID("missing"))
}

func TestConditionNodesExcludeTimeNodes(t *testing.T) {
	automation := graphFixture()

	conditions := automation.ConditionNodes()

	require.Len(t, conditions, 2)
	assert.Equal(t, "p1", conditions[0].ID)
	assert.Equal(t, "r1", conditions[1].ID)
}

func TestTimeNodes(t *testing.T) {
	automation := graphFixture()

	timeNodes := automation.TimeNodes()

	require.Len(t, timeNodes, 1)
	assert.Equal(t, "t1", timeNodes[0].ID)
}

func TestEdgesFromAndTo(t *testing.T) {
	automation := graphFixture()

	incoming := automation.EdgesTo("g1")
	require.Len(t, incoming, 2)
	assert.Equal(t, "t1", incoming[0].Source)
	assert.Equal(t, "p1", incoming[1].Source)

	outgoing := automation.EdgesFrom("g1")
	require.Len(t, outgoing, 1)
	assert.Equal(t, "n1", outgoing[0].Target)

	assert.Empty(t, automation.EdgesFrom("n1"))
}
