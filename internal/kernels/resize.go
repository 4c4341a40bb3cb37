package kernels

import (
	"fmt"

	"github.com/born-ml/kernelgen/internal/logging"
)

// resizeNearestSource replicates one input element into its
// h_scale x w_scale x c_scale block of the output.
//
// Loop counters are reset by the for initializers, not by their
// declarations, so the inner loops restart on every outer iteration.
const resizeNearestSource = `
    var h_offset: u32;
    var w_offset: u32;
    var c_offset: u32;
    var val: vec4<f32>;
    var h: u32;
    var w: u32;
    var c: u32;
    h_offset = gid.x * $h_scale$;
    w_offset = gid.y * $w_scale$;
    c_offset = gid.z * $c_scale$;
    val = $input_data_0[gid.x, gid.y, gid.z]$;
    for (h = 0u; h < $h_scale$; h = h + 1u) {
        for (w = 0u; w < $w_scale$; w = w + 1u) {
            for (c = 0u; c < $c_scale$; c = c + 1u) {
                $output_data_0[h_offset + h, w_offset + w, c_offset + c] = val$;
            }
        }
    }
`

// ResizeNearestNeighbor upsamples by integer factors, one invocation per
// input element.
//
// Scale factors are output/input extents under integer division. Ratios
// that are not exact truncate unless Strict is set.
type ResizeNearestNeighbor struct {
	Strict bool
}

// GenerateCode implements NodeShader.
func (r ResizeNearestNeighbor) GenerateCode(ctx GenerationContext) (GeneratedCode, error) {
	input, output, err := ctx.single()
	if err != nil {
		return GeneratedCode{}, err
	}
	if mode := ctx.Node.AttrString("mode", "nearest"); mode != "nearest" {
		return GeneratedCode{}, fmt.Errorf("%w: mode %q", ErrUnsupportedAttr, mode)
	}

	in, out := input.Shape, output.Shape
	if in.H <= 0 || in.W <= 0 || in.C <= 0 {
		return GeneratedCode{}, fmt.Errorf("%w: input %s", ErrInvalidShape, in)
	}

	hScale := out.H / in.H
	wScale := out.W / in.W
	cScale := out.C / in.C
	if hScale < 1 || wScale < 1 || cScale < 1 {
		return GeneratedCode{}, fmt.Errorf("%w: output %s smaller than input %s", ErrInvalidShape, out, in)
	}

	if out.H%in.H != 0 || out.W%in.W != 0 || out.C%in.C != 0 {
		if r.Strict {
			return GeneratedCode{}, fmt.Errorf("%w: output %s is not a multiple of input %s",
				ErrShapeMismatch, out, in)
		}
		logging.Logger().Warn("resize: non-integer scale truncated",
			"node", ctx.Node.Name, "input", in.String(), "output", out.String(),
			"h_scale", hScale, "w_scale", wScale, "c_scale", cScale)
	}

	return GeneratedCode{
		Parameters: []Variable{
			UintVar("h_scale", uint32(hScale)),
			UintVar("w_scale", uint32(wScale)),
			UintVar("c_scale", uint32(cScale)),
		},
		Workload: NewUint3(in.W, in.H, in.Depth()),
		Source:   resizeNearestSource,
		Input:    OnlyDefinitions,
		Output:   OnlyDefinitions,
	}, nil
}
