package dag

import (
	"context"
	"fmt"

	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/pipeline"
	"github.com/vk/gwpipe/internal/registry"
)

// Build constructs a complete, validated dependency graph from a pipeline plan.
func Build(ctx context.Context, plan *pipeline.Plan, r *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	if err := r.ValidatePlan(ctx, plan); err != nil {
		return nil, err
	}

	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create one node per stage.
	for _, stage := range plan.Stages {
		graph.Nodes[stage.Name] = &Node{
			ID:         stage.Name,
			Stage:      stage,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link dependencies.
	for _, stage := range plan.Stages {
		node := graph.Nodes[stage.Name]
		for _, depName := range stage.DependsOn {
			dep, ok := graph.Nodes[depName]
			if !ok {
				return nil, fmt.Errorf("stage '%s' depends on unknown stage '%s'", stage.Name, depName)
			}
			node.Deps[dep.ID] = dep
			dep.Dependents[node.ID] = node
		}
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}
	logger.Debug("Build: Counter initialization complete.")

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	logger.Debug("Build: Graph construction successful.")
	return graph, nil
}

// detectCycles checks for circular dependencies in the graph using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return fmt.Errorf("cycle detected involving '%s'", dep.ID)
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
