package graph

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// fileGraph mirrors the on-disk graph description.
// YAML is a superset of JSON, so both formats decode through it.
type fileGraph struct {
	Values []fileValue `yaml:"values"`
	Nodes  []fileNode  `yaml:"nodes"`
}

type fileValue struct {
	Name  string `yaml:"name"`
	Shape []int  `yaml:"shape"` // [B, H, W, C], or [H, W, C] with B = 1
}

type fileNode struct {
	Name       string         `yaml:"name"`
	Op         string         `yaml:"op"`
	Inputs     []string       `yaml:"inputs"`
	Outputs    []string       `yaml:"outputs"`
	Attributes map[string]any `yaml:"attributes"`
}

// Load reads a graph description file (YAML or JSON).
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes a graph description.
//
// Values are declared up front with resolved shapes; nodes refer to them by
// name. Node IDs follow declaration order.
func Parse(data []byte) (*Graph, error) {
	var fg fileGraph
	if err := yaml.Unmarshal(data, &fg); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}

	g := New()
	for _, fv := range fg.Values {
		shape, err := shapeFromDims(fv.Shape)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", fv.Name, err)
		}
		if _, err := g.NewValue(fv.Name, shape); err != nil {
			return nil, err
		}
	}

	for i, fn := range fg.Nodes {
		if fn.Op == "" {
			return nil, fmt.Errorf("node %d (%q): missing op", i, fn.Name)
		}
		attrs, err := attributesFromMap(fn.Attributes)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", fn.Name, err)
		}
		node := g.NewNode(fn.Name, fn.Op, attrs...)
		for _, name := range fn.Inputs {
			v := g.FindValue(name)
			if v == nil {
				return nil, fmt.Errorf("node %q: %w: %q", fn.Name, ErrUnknownValue, name)
			}
			if err := g.AddInput(node.ID, v.ID); err != nil {
				return nil, fmt.Errorf("node %q: %w", fn.Name, err)
			}
		}
		for _, name := range fn.Outputs {
			v := g.FindValue(name)
			if v == nil {
				return nil, fmt.Errorf("node %q: %w: %q", fn.Name, ErrUnknownValue, name)
			}
			if err := g.AddOutput(node.ID, v.ID); err != nil {
				return nil, fmt.Errorf("node %q: %w", fn.Name, err)
			}
		}
	}
	return g, nil
}

func shapeFromDims(dims []int) (Shape, error) {
	switch len(dims) {
	case 3:
		return NewShape(1, dims[0], dims[1], dims[2]), nil
	case 4:
		return NewShape(dims[0], dims[1], dims[2], dims[3]), nil
	default:
		return Shape{}, fmt.Errorf("shape must have 3 or 4 dimensions, got %d", len(dims))
	}
}

// attributesFromMap converts decoded attributes, sorted by name so the
// resulting node is independent of map iteration order.
func attributesFromMap(m map[string]any) ([]Attribute, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]Attribute, 0, len(names))
	for _, name := range names {
		a, err := attributeFromValue(name, m[name])
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func attributeFromValue(name string, v any) (Attribute, error) {
	switch val := v.(type) {
	case int:
		return IntAttr(name, int64(val)), nil
	case float64:
		return FloatAttr(name, float32(val)), nil
	case string:
		return StringAttr(name, val), nil
	case bool:
		if val {
			return IntAttr(name, 1), nil
		}
		return IntAttr(name, 0), nil
	case []any:
		return listAttribute(name, val)
	default:
		return Attribute{}, fmt.Errorf("attribute %q: unsupported value %v (%T)", name, v, v)
	}
}

func listAttribute(name string, list []any) (Attribute, error) {
	ints := make([]int64, 0, len(list))
	floats := make([]float32, 0, len(list))
	isFloat := false
	for _, item := range list {
		switch x := item.(type) {
		case int:
			ints = append(ints, int64(x))
			floats = append(floats, float32(x))
		case float64:
			isFloat = true
			floats = append(floats, float32(x))
		default:
			return Attribute{}, fmt.Errorf("attribute %q: list items must be numbers, got %T", name, item)
		}
	}
	if isFloat {
		return Attribute{Name: name, Type: AttrFloats, Floats: floats}, nil
	}
	return IntsAttr(name, ints...), nil
}
