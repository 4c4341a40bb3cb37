// Package delegate turns every node of a graph into a compiled compute kernel.
package delegate

import (
	"errors"
	"fmt"

	"github.com/born-ml/kernelgen/internal/compiler"
	"github.com/born-ml/kernelgen/internal/graph"
	"github.com/born-ml/kernelgen/internal/kernels"
	"github.com/born-ml/kernelgen/internal/logging"
	"github.com/born-ml/kernelgen/internal/parallel"
)

// ErrEmptyGraph is returned when a graph has no nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// Options configures Build.
type Options struct {
	// Registry supplies the node generators. Nil means kernels.NewRegistry().
	Registry *kernels.Registry
	// Compiler assembles and compiles kernels. Nil means a compiler with
	// compiler.DefaultOptions().
	Compiler *compiler.Compiler
	// Parallel controls how many nodes are generated at once.
	Parallel parallel.Config
	// SPIRV compiles every assembled shader to SPIR-V. When false, kernels
	// carry WGSL only.
	SPIRV bool
}

// DefaultOptions returns options with built-in generators, a default compiler
// and one worker per CPU.
func DefaultOptions() Options {
	return Options{
		Registry: kernels.NewRegistry(),
		Compiler: compiler.New(compiler.DefaultOptions()),
		Parallel: parallel.DefaultConfig(),
		SPIRV:    true,
	}
}

// Kernel is the compiled form of one graph node.
type Kernel struct {
	Node  *graph.Node
	Code  kernels.GeneratedCode
	WGSL  string
	SPIRV []byte
	// NumWorkgroups is the dispatch size for Code.Workload.
	NumWorkgroups kernels.Uint3
}

// Plan holds one kernel per graph node, in node ID order.
type Plan struct {
	Kernels []Kernel
}

// Kernel returns the kernel generated for a node, or nil.
func (p *Plan) Kernel(id graph.NodeID) *Kernel {
	if int(id) >= len(p.Kernels) {
		return nil
	}
	return &p.Kernels[id]
}

// Build generates, assembles and optionally compiles a kernel for every node
// of g. Nodes are processed concurrently; when several fail, the error of the
// node with the lowest ID is returned.
func Build(g *graph.Graph, opts Options) (*Plan, error) {
	if opts.Registry == nil {
		opts.Registry = kernels.NewRegistry()
	}
	if opts.Compiler == nil {
		opts.Compiler = compiler.New(compiler.DefaultOptions())
	}

	nodes := g.Nodes()
	if len(nodes) == 0 {
		return nil, ErrEmptyGraph
	}

	log := logging.Logger()
	out := make([]Kernel, len(nodes))
	err := parallel.ForErr(len(nodes), func(i int) error {
		k, err := buildKernel(g, nodes[i], opts)
		if err != nil {
			return err
		}
		out[i] = k
		log.Debug("delegate: built kernel",
			"node", nodes[i].Name,
			"op", nodes[i].OpType,
			"workload", fmt.Sprintf("%dx%dx%d", k.Code.Workload.X, k.Code.Workload.Y, k.Code.Workload.Z))
		return nil
	}, opts.Parallel)
	if err != nil {
		return nil, err
	}

	entries, hits, _ := opts.Compiler.CacheStats()
	log.Info("delegate: plan ready", "kernels", len(out), "shaders", entries, "cache_hits", hits)
	return &Plan{Kernels: out}, nil
}

func buildKernel(g *graph.Graph, node *graph.Node, opts Options) (Kernel, error) {
	ctx, err := kernels.NewGenerationContext(g, node.ID)
	if err != nil {
		return Kernel{}, err
	}
	code, err := opts.Registry.Generate(ctx)
	if err != nil {
		return Kernel{}, err
	}

	inputs := shapes(ctx.Inputs())
	outputs := shapes(ctx.Outputs())
	k := Kernel{Node: node, Code: code, NumWorkgroups: opts.Compiler.NumWorkgroups(&code)}
	if !opts.SPIRV {
		k.WGSL, err = opts.Compiler.Assemble(&code, inputs, outputs)
		if err != nil {
			return Kernel{}, fmt.Errorf("node %s: %w", label(node), err)
		}
		return k, nil
	}

	prog, err := opts.Compiler.Compile(&code, inputs, outputs)
	if err != nil {
		return Kernel{}, fmt.Errorf("node %s: %w", label(node), err)
	}
	k.WGSL = prog.WGSL
	k.SPIRV = prog.SPIRV
	return k, nil
}

func shapes(values []*graph.Value) []graph.Shape {
	out := make([]graph.Shape, len(values))
	for i, v := range values {
		out[i] = v.Shape
	}
	return out
}

func label(n *graph.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("#%d", n.ID)
}
