package dag

import (
	"sync"
	"sync/atomic"

	"github.com/vk/gwpipe/internal/pipeline"
	"github.com/vk/gwpipe/internal/registry"
)

// NodeState represents the execution state of a node.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
)

// Node represents a single pipeline stage in the graph.
type Node struct {
	// ID is the unique identifier for the node, taken from the stage name.
	// Example: "plot_corner"
	ID string
	// Stage holds the pipeline stage this node executes.
	Stage *pipeline.Stage

	// Deps holds the set of nodes that this node depends on (predecessors).
	Deps map[string]*Node
	// Dependents holds the set of nodes that depend on this node (successors).
	Dependents map[string]*Node

	// Error stores any error that occurred during the node's execution.
	Error error
	// State is the node's current execution state, managed atomically.
	State atomic.Int32

	// depCount is an atomic counter for unmet dependencies, used by the scheduler.
	depCount atomic.Int32
	// skipOnce ensures a node is marked as skipped and processed exactly once.
	skipOnce sync.Once
}

// SetInitialCounters primes the scheduling counter from the linked graph.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// Graph is a collection of nodes and their dependencies, representing a DAG.
type Graph struct {
	Nodes map[string]*Node
}

// Executor runs a graph's nodes concurrently with a fixed worker pool.
type Executor struct {
	Graph      *Graph
	registry   *registry.Registry
	numWorkers int
	wg         sync.WaitGroup
}

// NewExecutor creates a new graph executor.
func NewExecutor(graph *Graph, numWorkers int, reg *registry.Registry) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Executor{
		Graph:      graph,
		registry:   reg,
		numWorkers: numWorkers,
	}
}
