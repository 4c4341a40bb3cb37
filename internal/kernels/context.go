package kernels

import (
	"fmt"

	"github.com/born-ml/kernelgen/internal/graph"
)

// GenerationContext is the read-only view a generator receives.
type GenerationContext struct {
	Graph graph.Reader
	Node  *graph.Node
}

// NewGenerationContext builds a context for the node with the given ID.
func NewGenerationContext(g graph.Reader, id graph.NodeID) (GenerationContext, error) {
	node := g.FindNode(id)
	if node == nil {
		return GenerationContext{}, fmt.Errorf("%w: %d", graph.ErrUnknownNode, id)
	}
	return GenerationContext{Graph: g, Node: node}, nil
}

// Inputs returns the node's ordered input tensors.
func (c GenerationContext) Inputs() []*graph.Value {
	return c.Graph.FindInputs(c.Node.ID)
}

// Outputs returns the node's ordered output tensors.
func (c GenerationContext) Outputs() []*graph.Value {
	return c.Graph.FindOutputs(c.Node.ID)
}

// valid reports a context that is missing its graph or node.
func (c GenerationContext) valid() error {
	if c.Graph == nil {
		return ErrNoGraphInContext
	}
	if c.Node == nil {
		return ErrNoNodeInContext
	}
	return nil
}

// single returns the only input and output of the node, failing with
// ErrPrecondition otherwise.
func (c GenerationContext) single() (in, out *graph.Value, err error) {
	if err := c.valid(); err != nil {
		return nil, nil, err
	}
	inputs, outputs := c.Inputs(), c.Outputs()
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, nil, fmt.Errorf("%w: requires 1 input and 1 output, got %d and %d",
			ErrPrecondition, len(inputs), len(outputs))
	}
	return inputs[0], outputs[0], nil
}
