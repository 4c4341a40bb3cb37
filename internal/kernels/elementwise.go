package kernels

import (
	"fmt"
	"strconv"
	"strings"
)

// Relu clamps negatives to zero, optionally leaky (alpha) and capped (clip).
// It works on value_0 and relies on Auto I/O.
type Relu struct{}

// GenerateCode implements NodeShader.
func (Relu) GenerateCode(ctx GenerationContext) (GeneratedCode, error) {
	input, output, err := ctx.single()
	if err != nil {
		return GeneratedCode{}, err
	}
	if input.Shape != output.Shape {
		return GeneratedCode{}, fmt.Errorf("%w: input %s, output %s", ErrShapeMismatch, input.Shape, output.Shape)
	}

	alpha := ctx.Node.AttrFloat("alpha", 0)
	clip := ctx.Node.AttrFloat("clip", 0)
	if clip < 0 {
		return GeneratedCode{}, fmt.Errorf("%w: clip %v must not be negative", ErrUnsupportedAttr, clip)
	}

	var params []Variable
	expr := "max(value_0, vec4<f32>(0.0))"
	if alpha != 0 {
		params = append(params, FloatVar("alpha", alpha))
		expr += " + min(value_0, vec4<f32>(0.0)) * vec4<f32>($alpha$)"
	}
	if clip != 0 {
		params = append(params, FloatVar("clip", clip))
		expr = "min(" + expr + ", vec4<f32>($clip$))"
	}

	return GeneratedCode{
		Parameters: params,
		Workload:   NewUint3(output.Shape.W, output.Shape.H, output.Shape.Depth()),
		Source:     "\n    value_0 = " + expr + ";\n",
		Input:      Auto,
		Output:     Auto,
	}, nil
}

// Add sums two or more tensors of identical shape.
type Add struct{}

// GenerateCode implements NodeShader.
func (Add) GenerateCode(ctx GenerationContext) (GeneratedCode, error) {
	if err := ctx.valid(); err != nil {
		return GeneratedCode{}, err
	}
	inputs, outputs := ctx.Inputs(), ctx.Outputs()
	if len(inputs) < 2 || len(outputs) != 1 {
		return GeneratedCode{}, fmt.Errorf("%w: requires at least 2 inputs and 1 output, got %d and %d",
			ErrPrecondition, len(inputs), len(outputs))
	}
	output := outputs[0]
	for i, in := range inputs {
		if in.Shape != output.Shape {
			return GeneratedCode{}, fmt.Errorf("%w: input %d is %s, output is %s",
				ErrShapeMismatch, i, in.Shape, output.Shape)
		}
	}

	var b strings.Builder
	b.WriteString("\n")
	for i := 1; i < len(inputs); i++ {
		b.WriteString("    value_0 = value_0 + $input_data_")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("[gid.x, gid.y, gid.z]$;\n")
	}

	return GeneratedCode{
		Workload: NewUint3(output.Shape.W, output.Shape.H, output.Shape.Depth()),
		Source:   b.String(),
		Input:    Auto,
		Output:   Auto,
	}, nil
}
