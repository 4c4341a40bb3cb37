package kernels

// IOStructure tells the compiler how much tensor I/O code to generate.
type IOStructure int

const (
	// OnlyDefinitions declares the tensor bindings only; the body indexes
	// them explicitly through accessors.
	OnlyDefinitions IOStructure = iota
	// Auto additionally loads value_0 from input_data_0 at gid before the
	// body and stores value_0 to output_data_0 at gid after it.
	Auto
)

// String returns the mode name.
func (s IOStructure) String() string {
	switch s {
	case OnlyDefinitions:
		return "only_definitions"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// AccessType is the shader's access mode for a bound object.
type AccessType int

const (
	// ReadOnly objects are bound as var<storage, read>.
	ReadOnly AccessType = iota
	// WriteOnly objects are bound as var<storage, read_write>; WGSL has no write-only storage.
	WriteOnly
	// ReadWrite objects are bound as var<storage, read_write>.
	ReadWrite
)

// Object is an extra storage buffer of vec4<f32> elements bound after the
// node's input and output tensors.
type Object struct {
	Name   string
	Access AccessType
	Size   Uint3 // logical extent; the buffer holds X*Y*Z elements
}

// SharedVariable is a workgroup-local array of vec4<f32>.
type SharedVariable struct {
	Name string
	Size int
}

// GeneratedCode is the output of one node generation.
type GeneratedCode struct {
	Parameters      []Variable
	Objects         []Object
	SharedVariables []SharedVariable

	// Workload is the number of invocations along x, y and z.
	Workload Uint3
	// Workgroup is a scheduling hint; zero lets the compiler choose.
	Workgroup Uint3

	// Source is the WGSL body with $...$ placeholders.
	Source string

	Input  IOStructure
	Output IOStructure
}

// Parameter returns the named parameter.
func (c *GeneratedCode) Parameter(name string) (Variable, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Variable{}, false
}
