package kernels

import (
	"fmt"
	"sort"
	"strconv"
)

// Operation types with built-in generators.
const (
	OpReduceMax             = "ReduceMax"
	OpReduceMaximum         = "ReduceMaximum"
	OpResize                = "Resize"
	OpResizeNearestNeighbor = "ResizeNearestNeighbor"
	OpRelu                  = "Relu"
	OpAdd                   = "Add"
)

// Options configures the built-in generators.
type Options struct {
	// StrictResize makes nearest-neighbor resize fail on output extents that
	// are not exact multiples of the input extents instead of truncating.
	StrictResize bool
}

// DefaultOptions returns the default options: non-exact resize ratios truncate.
func DefaultOptions() Options {
	return Options{StrictResize: false}
}

// Registry maps operation types to generators.
//
// Register is not safe for concurrent use; build the registry once, then
// share it between any number of generating goroutines.
type Registry struct {
	shaders map[string]NodeShader
}

// NewRegistry creates a registry with all built-in generators and default options.
func NewRegistry() *Registry {
	return NewRegistryWithOptions(DefaultOptions())
}

// NewRegistryWithOptions creates a registry with all built-in generators.
func NewRegistryWithOptions(opts Options) *Registry {
	r := &Registry{
		shaders: make(map[string]NodeShader),
	}

	reduce := ReduceMax{}
	r.Register(OpReduceMax, reduce)
	r.Register(OpReduceMaximum, reduce)

	resize := ResizeNearestNeighbor{Strict: opts.StrictResize}
	r.Register(OpResizeNearestNeighbor, resize)
	r.Register(OpResize, resize)

	r.Register(OpRelu, Relu{})
	r.Register(OpAdd, Add{})

	return r
}

// Register adds or replaces the generator for an operation type.
func (r *Registry) Register(opType string, shader NodeShader) {
	r.shaders[opType] = shader
}

// Get returns the generator for an operation type.
func (r *Registry) Get(opType string) (NodeShader, bool) {
	s, ok := r.shaders[opType]
	return s, ok
}

// Generate runs the generator registered for the context's node.
// Failures are returned as *GenerationError.
func (r *Registry) Generate(ctx GenerationContext) (GeneratedCode, error) {
	if err := ctx.valid(); err != nil {
		return GeneratedCode{}, err
	}

	shader, ok := r.shaders[ctx.Node.OpType]
	if !ok {
		return GeneratedCode{}, r.wrap(ctx, fmt.Errorf("%w: %s", ErrUnsupportedOp, ctx.Node.OpType))
	}
	code, err := shader.GenerateCode(ctx)
	if err != nil {
		return GeneratedCode{}, r.wrap(ctx, err)
	}
	return code, nil
}

// SupportedOps returns all registered operation types, sorted.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.shaders))
	for op := range r.shaders {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

func (r *Registry) wrap(ctx GenerationContext, err error) error {
	name := ctx.Node.Name
	if name == "" {
		name = "#" + strconv.Itoa(int(ctx.Node.ID))
	}
	return &GenerationError{Node: name, OpType: ctx.Node.OpType, Err: err}
}
