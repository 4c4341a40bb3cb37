package graph

import "slices"

// Attribute types.
const (
	AttrUndefined = 0
	AttrFloat     = 1
	AttrInt       = 2
	AttrString    = 3
	AttrInts      = 7
	AttrFloats    = 6
)

// NodeID identifies a node within one graph.
type NodeID uint32

// ValueID identifies a tensor value within one graph.
type ValueID uint32

// Node is one operation instance.
//
// A node owns no tensors; its inputs and outputs are looked up through the
// graph by ID.
type Node struct {
	ID         NodeID
	Name       string      // Node name (optional)
	OpType     string      // Operation type (e.g., "ReduceMax", "ResizeNearestNeighbor")
	Attributes []Attribute // Operation attributes
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.Attributes = slices.Clone(n.Attributes)
	for i := range c.Attributes {
		c.Attributes[i].Floats = slices.Clone(c.Attributes[i].Floats)
		c.Attributes[i].Ints = slices.Clone(c.Attributes[i].Ints)
	}
	return &c
}

// Value is a tensor descriptor: a tensor identity paired with its shape.
type Value struct {
	ID    ValueID
	Name  string
	Shape Shape
}

// Attribute represents a node attribute.
type Attribute struct {
	Name   string    // Attribute name
	Type   int32     // Attribute type
	F      float32   // FLOAT value
	I      int64     // INT value
	S      string    // STRING value
	Floats []float32 // FLOATS array
	Ints   []int64   // INTS array
}

// IntAttr builds an INT attribute.
func IntAttr(name string, v int64) Attribute {
	return Attribute{Name: name, Type: AttrInt, I: v}
}

// FloatAttr builds a FLOAT attribute.
func FloatAttr(name string, v float32) Attribute {
	return Attribute{Name: name, Type: AttrFloat, F: v}
}

// StringAttr builds a STRING attribute.
func StringAttr(name, v string) Attribute {
	return Attribute{Name: name, Type: AttrString, S: v}
}

// IntsAttr builds an INTS attribute.
func IntsAttr(name string, v ...int64) Attribute {
	return Attribute{Name: name, Type: AttrInts, Ints: v}
}

// HasAttr reports whether the node carries the named attribute.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.attr(name)
	return ok
}

// AttrInt returns an integer attribute or default value.
func (n *Node) AttrInt(name string, defaultVal int64) int64 {
	if a, ok := n.attr(name); ok {
		return a.I
	}
	return defaultVal
}

// AttrInts returns an integer array attribute.
func (n *Node) AttrInts(name string) []int64 {
	if a, ok := n.attr(name); ok {
		return a.Ints
	}
	return nil
}

// AttrFloat returns a float attribute or default value.
func (n *Node) AttrFloat(name string, defaultVal float32) float32 {
	if a, ok := n.attr(name); ok {
		return a.F
	}
	return defaultVal
}

// AttrString returns a string attribute or default value.
func (n *Node) AttrString(name, defaultVal string) string {
	if a, ok := n.attr(name); ok {
		return a.S
	}
	return defaultVal
}

func (n *Node) attr(name string) (*Attribute, bool) {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i], true
		}
	}
	return nil, false
}
