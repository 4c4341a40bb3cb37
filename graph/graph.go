// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the public API for building and loading tensor graphs.
//
// A graph is a set of operation nodes connected through tensor values. Every
// value carries a fully resolved BHWC shape; kernel generators read shapes
// but never infer them.
//
// # Example Usage
//
//	g := graph.New()
//	x, _ := g.NewValue("x", graph.NewShape(1, 4, 4, 8))
//	y, _ := g.NewValue("y", graph.NewShape(1, 4, 4, 1))
//	n := g.NewNode("max", "ReduceMax", graph.IntAttr("axis", 3))
//	_ = g.AddInput(n.ID, x.ID)
//	_ = g.AddOutput(n.ID, y.ID)
//
// Graphs can also be described in YAML or JSON and read with [Load]:
//
//	values:
//	  - {name: x, shape: [1, 4, 4, 8]}
//	  - {name: y, shape: [1, 4, 4, 1]}
//	nodes:
//	  - {name: max, op: ReduceMax, inputs: [x], outputs: [y], attributes: {axis: 3}}
package graph

import (
	internalgraph "github.com/born-ml/kernelgen/internal/graph"
)

// Graph is a dataflow graph of nodes connected through values.
type Graph = internalgraph.Graph

// Reader is the read-only view of a graph handed to kernel generators.
type Reader = internalgraph.Reader

// Node is an operation with its attributes.
type Node = internalgraph.Node

// Value is a tensor edge with a resolved shape.
type Value = internalgraph.Value

// Attribute is a named node attribute.
type Attribute = internalgraph.Attribute

// Shape is a BHWC tensor shape.
type Shape = internalgraph.Shape

// NodeID identifies a node within a graph.
type NodeID = internalgraph.NodeID

// ValueID identifies a value within a graph.
type ValueID = internalgraph.ValueID

// Graph errors.
var (
	ErrUnknownNode   = internalgraph.ErrUnknownNode
	ErrUnknownValue  = internalgraph.ErrUnknownValue
	ErrTwoProducers  = internalgraph.ErrTwoProducers
	ErrDuplicateName = internalgraph.ErrDuplicateName
)

// New creates an empty graph.
func New() *Graph {
	return internalgraph.New()
}

// NewShape creates a BHWC shape.
func NewShape(b, h, w, c int) Shape {
	return internalgraph.NewShape(b, h, w, c)
}

// Load reads a graph description from a YAML or JSON file.
func Load(path string) (*Graph, error) {
	return internalgraph.Load(path)
}

// Parse decodes a YAML or JSON graph description.
func Parse(data []byte) (*Graph, error) {
	return internalgraph.Parse(data)
}

// IntAttr creates an integer attribute.
func IntAttr(name string, v int64) Attribute {
	return internalgraph.IntAttr(name, v)
}

// FloatAttr creates a float attribute.
func FloatAttr(name string, v float32) Attribute {
	return internalgraph.FloatAttr(name, v)
}

// StringAttr creates a string attribute.
func StringAttr(name, v string) Attribute {
	return internalgraph.StringAttr(name, v)
}

// IntsAttr creates an integer list attribute.
func IntsAttr(name string, v ...int64) Attribute {
	return internalgraph.IntsAttr(name, v...)
}
