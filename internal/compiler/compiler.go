// Package compiler resolves generated kernel code into complete WGSL compute
// shaders and compiles them with naga.
package compiler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"

	"github.com/born-ml/kernelgen/internal/graph"
	"github.com/born-ml/kernelgen/internal/kernels"
	"github.com/born-ml/kernelgen/internal/logging"
)

// Options configures a Compiler.
type Options struct {
	// DefaultWorkgroup replaces a zero workgroup hint.
	DefaultWorkgroup kernels.Uint3
	// SPIRVVersion is the target SPIR-V version.
	SPIRVVersion spirv.Version
	// Validate enables naga IR validation before code generation.
	Validate bool
	// Debug includes debug info (OpName, OpLine) in SPIR-V output.
	Debug bool
	// GLSLVersion is the target for CompileGLSL.
	GLSLVersion glsl.Version
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		DefaultWorkgroup: kernels.Uint3{X: 8, Y: 8, Z: 1},
		SPIRVVersion:     spirv.Version1_3,
		Validate:         true,
		GLSLVersion:      glsl.VersionES310,
	}
}

// Program is a compiled node kernel ready for dispatch.
type Program struct {
	WGSL      string
	SPIRV     []byte
	Workload  kernels.Uint3
	Workgroup kernels.Uint3
	// NumWorkgroups is ceil(Workload / Workgroup) per axis.
	NumWorkgroups kernels.Uint3
}

// Compiler assembles and compiles kernels. SPIR-V results are cached by
// WGSL source; a Compiler is safe for concurrent use.
type Compiler struct {
	opts Options

	mu    sync.RWMutex
	cache map[string][]byte

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a compiler.
func New(opts Options) *Compiler {
	if opts.DefaultWorkgroup.IsZero() {
		opts.DefaultWorkgroup = DefaultOptions().DefaultWorkgroup
	}
	return &Compiler{
		opts:  opts,
		cache: make(map[string][]byte),
	}
}

// Assemble resolves code into a complete WGSL compute shader for tensors of
// the given shapes.
func (c *Compiler) Assemble(code *kernels.GeneratedCode, inputs, outputs []graph.Shape) (string, error) {
	return assemble(code, inputs, outputs, c.opts.DefaultWorkgroup)
}

// Compile assembles code and compiles it to SPIR-V.
func (c *Compiler) Compile(code *kernels.GeneratedCode, inputs, outputs []graph.Shape) (*Program, error) {
	src, err := c.Assemble(code, inputs, outputs)
	if err != nil {
		return nil, err
	}
	bin, err := c.CompileSPIRV(src)
	if err != nil {
		return nil, err
	}

	wg := c.workgroup(code)
	return &Program{
		WGSL:          src,
		SPIRV:         bin,
		Workload:      code.Workload,
		Workgroup:     wg,
		NumWorkgroups: c.NumWorkgroups(code),
	}, nil
}

// NumWorkgroups returns ceil(Workload / Workgroup) per axis, applying the
// default workgroup when code leaves it unset.
func (c *Compiler) NumWorkgroups(code *kernels.GeneratedCode) kernels.Uint3 {
	wg := c.workgroup(code)
	return kernels.Uint3{
		X: (code.Workload.X + wg.X - 1) / wg.X,
		Y: (code.Workload.Y + wg.Y - 1) / wg.Y,
		Z: (code.Workload.Z + wg.Z - 1) / wg.Z,
	}
}

func (c *Compiler) workgroup(code *kernels.GeneratedCode) kernels.Uint3 {
	wg := code.Workgroup
	if wg.IsZero() {
		wg = c.opts.DefaultWorkgroup
	}
	return kernels.Uint3{X: max(wg.X, 1), Y: max(wg.Y, 1), Z: max(wg.Z, 1)}
}

// CompileSPIRV compiles WGSL source to SPIR-V.
// Results are cached by source text.
func (c *Compiler) CompileSPIRV(source string) ([]byte, error) {
	c.mu.RLock()
	if bin, ok := c.cache[source]; ok {
		c.mu.RUnlock()
		c.hits.Add(1)
		return bin, nil
	}
	c.mu.RUnlock()
	c.misses.Add(1)

	module, err := c.lower(source)
	if err != nil {
		return nil, err
	}
	bin, err := naga.GenerateSPIRV(module, spirv.Options{
		Version: c.opts.SPIRVVersion,
		Debug:   c.opts.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	c.mu.Lock()
	if cached, ok := c.cache[source]; ok {
		bin = cached
	} else {
		c.cache[source] = bin
	}
	c.mu.Unlock()

	logging.Logger().Debug("compiler: compiled shader", "spirv_bytes", len(bin))
	return bin, nil
}

// CompileGLSL translates WGSL source to GLSL.
func (c *Compiler) CompileGLSL(source string) (string, error) {
	module, err := c.lower(source)
	if err != nil {
		return "", err
	}
	opts := glsl.DefaultOptions()
	opts.LangVersion = c.opts.GLSLVersion
	out, _, err := glsl.Compile(module, opts)
	if err != nil {
		return "", fmt.Errorf("compile glsl: %w", err)
	}
	return out, nil
}

// CacheStats returns the number of cached shaders, cache hits and misses.
func (c *Compiler) CacheStats() (entries int, hits, misses int64) {
	c.mu.RLock()
	entries = len(c.cache)
	c.mu.RUnlock()
	return entries, c.hits.Load(), c.misses.Load()
}

func (c *Compiler) lower(source string) (*ir.Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("compile: lowering error: %w", err)
	}
	if c.opts.Validate {
		errs, err := naga.Validate(module)
		if err != nil {
			return nil, fmt.Errorf("compile: validation error: %w", err)
		}
		if len(errs) > 0 {
			return nil, fmt.Errorf("compile: validation failed: %w", &errs[0])
		}
	}
	return module, nil
}
