// Package graph holds the resolved tensor graph consumed by kernel generators.
//
// Shapes are expected to be fully resolved before a graph reaches this
// package; no shape inference happens here.
package graph

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrUnknownNode   = errors.New("unknown node")
	ErrUnknownValue  = errors.New("unknown value")
	ErrTwoProducers  = errors.New("value already has a producer")
	ErrDuplicateName = errors.New("duplicate value name")
)

// Reader is the read-only view of a graph handed to kernel generators.
//
// Implementations must be safe for concurrent use by readers.
type Reader interface {
	// FindNode returns the node with the given ID, or nil. The node is a
	// copy; changing it does not change the graph.
	FindNode(id NodeID) *Node
	// FindInputs returns the ordered input values of a node.
	FindInputs(id NodeID) []*Value
	// FindOutputs returns the ordered output values of a node.
	FindOutputs(id NodeID) []*Value
}

// Graph is a dataflow graph of nodes connected through values.
//
// Building a graph is not safe for concurrent use; once built, concurrent
// lookups are safe as long as nobody mutates it.
type Graph struct {
	nodes    []*Node
	values   []*Value
	byName   map[string]ValueID
	inputs   map[NodeID][]ValueID
	outputs  map[NodeID][]ValueID
	producer map[ValueID]NodeID
}

// Compile-time check that Graph implements Reader.
var _ Reader = (*Graph)(nil)

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byName:   make(map[string]ValueID),
		inputs:   make(map[NodeID][]ValueID),
		outputs:  make(map[NodeID][]ValueID),
		producer: make(map[ValueID]NodeID),
	}
}

// NewValue adds a tensor value with a resolved shape.
func (g *Graph) NewValue(name string, shape Shape) (*Value, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("value %q: %w", name, err)
	}
	if name != "" {
		if _, ok := g.byName[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}
	v := &Value{ID: ValueID(len(g.values)), Name: name, Shape: shape}
	g.values = append(g.values, v)
	if name != "" {
		g.byName[name] = v.ID
	}
	return v, nil
}

// NewNode adds an operation node.
func (g *Graph) NewNode(name, opType string, attrs ...Attribute) *Node {
	n := &Node{
		ID:         NodeID(len(g.nodes)),
		Name:       name,
		OpType:     opType,
		Attributes: attrs,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// AddInput appends value as the next input of node.
func (g *Graph) AddInput(node NodeID, value ValueID) error {
	if err := g.check(node, value); err != nil {
		return err
	}
	g.inputs[node] = append(g.inputs[node], value)
	return nil
}

// AddOutput appends value as the next output of node.
// A value can be produced by at most one node.
func (g *Graph) AddOutput(node NodeID, value ValueID) error {
	if err := g.check(node, value); err != nil {
		return err
	}
	if p, ok := g.producer[value]; ok {
		return fmt.Errorf("%w: value %d produced by node %d", ErrTwoProducers, value, p)
	}
	g.producer[value] = node
	g.outputs[node] = append(g.outputs[node], value)
	return nil
}

// FindNode returns a copy of the node with the given ID, or nil.
func (g *Graph) FindNode(id NodeID) *Node {
	if int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id].Clone()
}

// FindValue returns the value with the given name, or nil.
func (g *Graph) FindValue(name string) *Value {
	id, ok := g.byName[name]
	if !ok {
		return nil
	}
	return g.values[id]
}

// FindInputs returns the ordered input values of a node.
func (g *Graph) FindInputs(id NodeID) []*Value {
	return g.lookup(g.inputs[id])
}

// FindOutputs returns the ordered output values of a node.
func (g *Graph) FindOutputs(id NodeID) []*Value {
	return g.lookup(g.outputs[id])
}

// FindProducer returns the node producing a value, or nil for graph inputs.
func (g *Graph) FindProducer(id ValueID) *Node {
	n, ok := g.producer[id]
	if !ok {
		return nil
	}
	return g.nodes[n].Clone()
}

// Nodes returns all nodes in ID order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Values returns all values in ID order.
func (g *Graph) Values() []*Value {
	out := make([]*Value, len(g.values))
	copy(out, g.values)
	return out
}

// lookup returns copies so readers cannot alter the graph's values.
func (g *Graph) lookup(ids []ValueID) []*Value {
	out := make([]*Value, len(ids))
	for i, id := range ids {
		v := *g.values[id]
		out[i] = &v
	}
	return out
}

func (g *Graph) check(node NodeID, value ValueID) error {
	if int(node) >= len(g.nodes) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	if int(value) >= len(g.values) {
		return fmt.Errorf("%w: %d", ErrUnknownValue, value)
	}
	return nil
}
