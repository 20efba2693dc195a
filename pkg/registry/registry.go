// Package registry holds the known node types, their payload schemas, and
// validation of automation graphs against them.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/quantor/signalflow/pkg/models"
)

// Registry validates node payloads against per-type JSON schemas and answers
// which node types are known.
type Registry struct {
	logger  *slog.Logger
	schemas map[models.NodeType]*gojsonschema.Schema
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		schemas: make(map[models.NodeType]*gojsonschema.Schema),
	}
}

// RegisterSchema compiles and stores the payload schema for a node type.
func (r *Registry) RegisterSchema(nodeType models.NodeType, schema map[string]any) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return fmt.Errorf("failed to compile schema for node type %s: %w", nodeType, err)
	}

	r.schemas[nodeType] = compiled

	return nil
}

// Known reports whether a node type has a registered schema.
func (r *Registry) Known(nodeType models.NodeType) bool {
	_, ok := r.schemas[nodeType]

	return ok
}

// ValidateNode checks a node's payload against its type schema.
func (r *Registry) ValidateNode(node *models.Node) error {
	schema, ok := r.schemas[node.Type]
	if !ok {
		return fmt.Errorf("node %s: unknown node type %q", node.ID, node.Type)
	}

	data := node.Data
	if data == nil {
		data = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("node %s: schema validation failed: %w", node.ID, err)
	}

	if !result.Valid() {
		return fmt.Errorf("node %s: invalid %s payload: %s", node.ID, node.Type, result.Errors()[0].String())
	}

	return nil
}

// ValidateAutomation checks every node payload and that every edge
// references nodes present in the graph.
func (r *Registry) ValidateAutomation(automation *models.Automation) error {
	seen := make(map[string]bool, len(automation.Nodes))

	for _, node := range automation.Nodes {
		if seen[node.ID] {
			return fmt.Errorf("duplicate node id %s", node.ID)
		}

		seen[node.ID] = true

		if err := r.ValidateNode(node); err != nil {
			return err
		}
	}

	for _, edge := range automation.Edges {
		if !seen[edge.Source] {
			r.logger.Warn("Edge references missing source node", "source", edge.Source, "target", edge.Target)
		}

		if !seen[edge.Target] {
			r.logger.Warn("Edge references missing target node", "source", edge.Source, "target", edge.Target)
		}
	}

	return nil
}

// NewDefaultRegistry returns a registry with every built-in node type
// registered.
func NewDefaultRegistry(logger *slog.Logger) (*Registry, error) {
	reg := NewRegistry(logger)

	for nodeType, schema := range defaultSchemas() {
		if err := reg.RegisterSchema(nodeType, schema); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
