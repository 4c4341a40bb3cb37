// Package kernels generates per-node compute shader source for the GPU delegate.
//
// Each supported operation has a NodeShader that turns one graph node, seen
// through a read-only GenerationContext, into a GeneratedCode: a WGSL body
// with $name$ placeholders, the parameters that fill them, and the workload
// the dispatch must cover. Tensor reads and writes use positional accessors:
//
//	$input_data_0[gid.x, gid.y, d]$
//	$output_data_0[gid.x, gid.y, 0] = vec4<f32>(max_value)$
//
// Coordinates are [x, y, z] = [width, height, 4-channel slab]. Resolving the
// placeholders into a complete shader is the job of package compiler.
//
// Generators are stateless: the same shapes always yield byte-identical
// source and parameters, so callers may cache on the result.
package kernels
