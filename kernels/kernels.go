// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package kernels generates WGSL compute kernels for graph nodes and compiles
// them to SPIR-V.
//
// Each supported operation has a generator that turns a node and its tensor
// shapes into a kernel body with $placeholders$. The compiler resolves the
// placeholders into buffer indexing and literals, wraps the body in a compute
// entry point and hands the result to naga.
//
// # Example Usage
//
//	g, err := graph.Load("model.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plan, err := kernels.Build(g, kernels.DefaultBuildOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, k := range plan.Kernels {
//	    fmt.Println(k.Node.Name, len(k.SPIRV))
//	}
//
// Use [SupportedOps] to list the operations with built-in generators.
package kernels

import (
	"log/slog"

	"github.com/born-ml/kernelgen/graph"
	"github.com/born-ml/kernelgen/internal/compiler"
	"github.com/born-ml/kernelgen/internal/delegate"
	internalkernels "github.com/born-ml/kernelgen/internal/kernels"
	"github.com/born-ml/kernelgen/internal/logging"
)

// GeneratedCode is the output of a node generator.
type GeneratedCode = internalkernels.GeneratedCode

// GenerationContext is the read-only view a generator receives.
type GenerationContext = internalkernels.GenerationContext

// NodeShader generates code for one operation type.
type NodeShader = internalkernels.NodeShader

// NodeShaderFunc adapts a function to NodeShader.
type NodeShaderFunc = internalkernels.NodeShaderFunc

// GenerationError reports a failed node generation.
type GenerationError = internalkernels.GenerationError

// Registry maps operation types to generators.
type Registry = internalkernels.Registry

// Options configures the built-in generators.
type Options = internalkernels.Options

// Variable is a named kernel parameter.
type Variable = internalkernels.Variable

// Uint3 is a three-dimensional extent.
type Uint3 = internalkernels.Uint3

// IOStructure selects how a kernel body reads and writes its tensors.
type IOStructure = internalkernels.IOStructure

// I/O structures.
const (
	OnlyDefinitions = internalkernels.OnlyDefinitions
	Auto            = internalkernels.Auto
)

// Generator errors.
var (
	ErrPrecondition    = internalkernels.ErrPrecondition
	ErrInvalidShape    = internalkernels.ErrInvalidShape
	ErrShapeMismatch   = internalkernels.ErrShapeMismatch
	ErrUnsupportedOp   = internalkernels.ErrUnsupportedOp
	ErrUnsupportedAttr = internalkernels.ErrUnsupportedAttr
)

// NewRegistry creates a registry with all built-in generators.
func NewRegistry() *Registry {
	return internalkernels.NewRegistry()
}

// NewRegistryWithOptions creates a registry with all built-in generators
// configured by opts.
func NewRegistryWithOptions(opts Options) *Registry {
	return internalkernels.NewRegistryWithOptions(opts)
}

// NewGenerationContext builds a context for the node with the given ID.
func NewGenerationContext(g graph.Reader, id graph.NodeID) (GenerationContext, error) {
	return internalkernels.NewGenerationContext(g, id)
}

// SupportedOps returns the operation types with built-in generators, sorted.
func SupportedOps() []string {
	return internalkernels.NewRegistry().SupportedOps()
}

// Compiler assembles generated code into WGSL and compiles it to SPIR-V.
type Compiler = compiler.Compiler

// CompilerOptions configures a Compiler.
type CompilerOptions = compiler.Options

// Program is a compiled kernel ready for dispatch.
type Program = compiler.Program

// DefaultCompilerOptions returns the default compiler options.
func DefaultCompilerOptions() CompilerOptions {
	return compiler.DefaultOptions()
}

// NewCompiler creates a compiler.
func NewCompiler(opts CompilerOptions) *Compiler {
	return compiler.New(opts)
}

// BuildOptions configures Build.
type BuildOptions = delegate.Options

// Plan holds one compiled kernel per graph node.
type Plan = delegate.Plan

// Kernel is the compiled form of one graph node.
type Kernel = delegate.Kernel

// DefaultBuildOptions returns options with built-in generators, a default
// compiler and one worker per CPU.
func DefaultBuildOptions() BuildOptions {
	return delegate.DefaultOptions()
}

// Build generates and compiles a kernel for every node of g.
func Build(g *graph.Graph, opts BuildOptions) (*Plan, error) {
	return delegate.Build(g, opts)
}

// SetLogger installs the logger used for generation and compilation
// diagnostics. Logging is silent by default; nil restores that.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}
