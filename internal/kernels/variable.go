package kernels

// Int2 is a two-component signed integer vector.
type Int2 [2]int32

// Int4 is a four-component signed integer vector.
type Int4 [4]int32

// Float2 is a two-component float vector.
type Float2 [2]float32

// Float4 is a four-component float vector.
type Float4 [4]float32

// Uint3 is a three-component extent: workloads, workgroups, object sizes.
type Uint3 struct {
	X, Y, Z uint32
}

// NewUint3 builds a Uint3 from ints.
func NewUint3(x, y, z int) Uint3 {
	return Uint3{X: uint32(x), Y: uint32(y), Z: uint32(z)}
}

// IsZero reports whether all components are zero.
func (u Uint3) IsZero() bool {
	return u == Uint3{}
}

// Variable is a named value substituted for $Name$ in shader source.
//
// Value holds one of int32, uint32, float32, Int2, Int4, Uint3, Float2 or
// Float4.
type Variable struct {
	Name  string
	Value any
}

// IntVar builds an int32 variable.
func IntVar(name string, v int) Variable {
	return Variable{Name: name, Value: int32(v)}
}

// UintVar builds a uint32 variable.
func UintVar(name string, v uint32) Variable {
	return Variable{Name: name, Value: v}
}

// FloatVar builds a float32 variable.
func FloatVar(name string, v float32) Variable {
	return Variable{Name: name, Value: v}
}
