package kernels

import (
	"github.com/born-ml/kernelgen/internal/graph"
	"github.com/born-ml/kernelgen/internal/logging"
)

// reduceMaxSource scans every channel slab at one spatial location and
// writes the maximum, broadcast to all four lanes, as the output slab.
//
// Only lane 0 of each slab is inspected and the accumulator starts at 0.0,
// so all-negative inputs reduce to 0.0.
const reduceMaxSource = `
    var max_value: f32 = 0.0;
    var val: f32;
    var d: u32;
    for (d = 0u; d < $src_depth$; d = d + 1u) {
        val = $input_data_0[gid.x, gid.y, d]$.x;
        if (val > max_value) {
            max_value = val;
        }
    }
    $output_data_0[gid.x, gid.y, 0u] = vec4<f32>(max_value)$;
`

// ReduceMax reduces the channel axis to its maximum.
//
// The node's axis attribute is not consulted: the reduction is always over
// channels.
type ReduceMax struct{}

// GenerateCode implements NodeShader.
func (ReduceMax) GenerateCode(ctx GenerationContext) (GeneratedCode, error) {
	input, output, err := ctx.single()
	if err != nil {
		return GeneratedCode{}, err
	}

	if ctx.Node.HasAttr("axis") || ctx.Node.HasAttr("axes") {
		logging.Logger().Debug("reduce-max: axis attribute ignored, reducing over channels",
			"node", ctx.Node.Name)
	}

	return GeneratedCode{
		Parameters: []Variable{
			UintVar("src_depth", uint32(graph.DivideRoundUp(input.Shape.C, 4))),
		},
		Workload: NewUint3(output.Shape.W, output.Shape.H, 1),
		Source:   reduceMaxSource,
		Input:    OnlyDefinitions,
		Output:   OnlyDefinitions,
	}, nil
}
