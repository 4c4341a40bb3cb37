package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/born-ml/kernelgen/internal/graph"
	"github.com/born-ml/kernelgen/internal/kernels"
)

// assemble turns generated code into a complete WGSL compute shader.
//
// Bindings are numbered input_data_*, then output_data_*, then objects.
// Every tensor is a fixed-length array of vec4<f32> in PHWC4 order: element
// (x, y, z) lives at (z * H + y) * W + x. Coordinates are u32 throughout;
// gid is the global invocation id itself, so no conversions are emitted.
//
// Locals are declared with an explicit type and at most a constant
// initializer. naga hoists every local initializer to the function entry,
// so anything computed from gid or a buffer is assigned after declaration.
func assemble(code *kernels.GeneratedCode, inputs, outputs []graph.Shape, defaultWorkgroup kernels.Uint3) (string, error) {
	if err := Check(code, len(inputs), len(outputs)); err != nil {
		return "", err
	}
	load := code.Workload
	if load.X == 0 || load.Y == 0 || load.Z == 0 {
		return "", fmt.Errorf("%w: %d x %d x %d", ErrEmptyWorkload, load.X, load.Y, load.Z)
	}
	wg := code.Workgroup
	if wg.IsZero() {
		wg = defaultWorkgroup
	}
	wg = kernels.Uint3{X: max(wg.X, 1), Y: max(wg.Y, 1), Z: max(wg.Z, 1)}

	var b strings.Builder
	binding := 0
	for i, s := range inputs {
		n, err := arrayLength(s)
		if err != nil {
			return "", fmt.Errorf("%s%d: %w", inputPrefix, i, err)
		}
		fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, read> %s%d: %s;\n", binding, inputPrefix, i, slabArray(n))
		binding++
	}
	for i, s := range outputs {
		n, err := arrayLength(s)
		if err != nil {
			return "", fmt.Errorf("%s%d: %w", outputPrefix, i, err)
		}
		fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, read_write> %s%d: %s;\n", binding, outputPrefix, i, slabArray(n))
		binding++
	}
	for _, obj := range code.Objects {
		n := int(obj.Size.X) * int(obj.Size.Y) * int(obj.Size.Z)
		if !isIdentifier(obj.Name) || n <= 0 {
			return "", fmt.Errorf("%w: object %q of size %d x %d x %d",
				ErrInvalidParameter, obj.Name, obj.Size.X, obj.Size.Y, obj.Size.Z)
		}
		access := "read_write"
		if obj.Access == kernels.ReadOnly {
			access = "read"
		}
		fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, %s> %s: %s;\n", binding, access, obj.Name, slabArray(n))
		binding++
	}
	for _, sv := range code.SharedVariables {
		if !isIdentifier(sv.Name) || sv.Size <= 0 {
			return "", fmt.Errorf("%w: shared variable %q of size %d", ErrInvalidParameter, sv.Name, sv.Size)
		}
		fmt.Fprintf(&b, "var<workgroup> %s: %s;\n", sv.Name, slabArray(sv.Size))
	}

	fmt.Fprintf(&b, "\n@compute @workgroup_size(%d, %d, %d)\n", wg.X, wg.Y, wg.Z)
	b.WriteString("fn main(@builtin(global_invocation_id) gid: vec3<u32>) {\n")
	fmt.Fprintf(&b, "    if (gid.x >= %du || gid.y >= %du || gid.z >= %du) {\n        return;\n    }\n", load.X, load.Y, load.Z)

	body := code.Source
	if code.Input == kernels.Auto {
		if len(inputs) > 0 {
			body = "    var value_0: vec4<f32>;\n" +
				"    value_0 = $" + inputPrefix + "0[gid.x, gid.y, gid.z]$;\n" + body
		} else {
			body = "    var value_0: vec4<f32> = vec4<f32>(0.0);\n" + body
		}
	}
	if code.Output == kernels.Auto && len(outputs) > 0 {
		if !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		body += "    $" + outputPrefix + "0[gid.x, gid.y, gid.z] = value_0$;\n"
	}

	resolved, err := resolve(body, code.Parameters, inputs, outputs)
	if err != nil {
		return "", err
	}
	b.WriteString(resolved)
	if !strings.HasSuffix(resolved, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// arrayLength returns the number of vec4 slabs backing a tensor.
func arrayLength(s graph.Shape) (int, error) {
	n := max(s.B, 1) * s.H * s.W * s.Depth()
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyTensor, s)
	}
	return n, nil
}

// slabArray spells a fixed-length vec4<f32> array type. naga has no
// runtime-sized arrays yet, so the length is always a literal.
func slabArray(n int) string {
	return fmt.Sprintf("array<vec4<f32>, %d>", n)
}

// resolve replaces every placeholder in src with parameter literals and
// buffer indexing.
func resolve(src string, params []kernels.Variable, inputs, outputs []graph.Shape) (string, error) {
	tokens, err := Placeholders(src)
	if err != nil {
		return "", err
	}
	values := make(map[string]any, len(params))
	for _, p := range params {
		values[p.Name] = p.Value
	}

	var b strings.Builder
	last := 0
	for _, tok := range tokens {
		b.WriteString(src[last:tok.Start])
		switch tok.Kind {
		case TokenParameter:
			v, ok := values[tok.Name]
			if !ok {
				return "", fmt.Errorf("%w: $%s$", ErrDanglingPlaceholder, tok.Name)
			}
			lit, err := literal(v)
			if err != nil {
				return "", fmt.Errorf("parameter %q: %w", tok.Name, err)
			}
			b.WriteString(lit)
		case TokenInput:
			if tok.Index >= len(inputs) {
				return "", fmt.Errorf("%w: %s", ErrDanglingPlaceholder, tok.Name)
			}
			fmt.Fprintf(&b, "%s[%s]", tok.Name, linearIndex(tok.Coords, inputs[tok.Index]))
		case TokenOutput:
			if tok.Index >= len(outputs) {
				return "", fmt.Errorf("%w: %s", ErrDanglingPlaceholder, tok.Name)
			}
			fmt.Fprintf(&b, "%s[%s] = %s", tok.Name, linearIndex(tok.Coords, outputs[tok.Index]), tok.Value)
		}
		last = tok.End
	}
	b.WriteString(src[last:])
	return b.String(), nil
}

// linearIndex renders the PHWC4 offset of coords [x, y, z] in a tensor.
func linearIndex(coords [3]string, s graph.Shape) string {
	return fmt.Sprintf("(%s * %du + %s) * %du + %s", operand(coords[2]), s.H, operand(coords[1]), s.W, operand(coords[0]))
}

// operand parenthesizes compound expressions.
func operand(expr string) string {
	for _, r := range expr {
		if r != '.' && r != '_' && !isAlnum(r) {
			return "(" + expr + ")"
		}
	}
	return expr
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// literal renders a parameter value as a WGSL expression.
func literal(v any) (string, error) {
	switch val := v.(type) {
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10) + "u", nil
	case float32:
		return floatLiteral(val)
	case kernels.Int2:
		return fmt.Sprintf("vec2<i32>(%d, %d)", val[0], val[1]), nil
	case kernels.Int4:
		return fmt.Sprintf("vec4<i32>(%d, %d, %d, %d)", val[0], val[1], val[2], val[3]), nil
	case kernels.Uint3:
		return fmt.Sprintf("vec3<u32>(%du, %du, %du)", val.X, val.Y, val.Z), nil
	case kernels.Float2:
		return floatVector("vec2<f32>", val[:])
	case kernels.Float4:
		return floatVector("vec4<f32>", val[:])
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidParameter, v)
	}
}

func floatLiteral(f float32) (string, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidParameter, f)
	}
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func floatVector(typ string, vals []float32) (string, error) {
	parts := make([]string, len(vals))
	for i, f := range vals {
		s, err := floatLiteral(f)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return typ + "(" + strings.Join(parts, ", ") + ")", nil
}
