package kernels

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernelgen/internal/graph"
)

// buildNode creates a graph with a single node of the given op type.
func buildNode(t *testing.T, opType string, inputs, outputs []graph.Shape, attrs ...graph.Attribute) GenerationContext {
	t.Helper()
	g := graph.New()
	n := g.NewNode("n", opType, attrs...)
	for i, s := range inputs {
		v, err := g.NewValue(fmt.Sprintf("in%d", i), s)
		require.NoError(t, err)
		require.NoError(t, g.AddInput(n.ID, v.ID))
	}
	for i, s := range outputs {
		v, err := g.NewValue(fmt.Sprintf("out%d", i), s)
		require.NoError(t, err)
		require.NoError(t, g.AddOutput(n.ID, v.ID))
	}
	ctx, err := NewGenerationContext(g, n.ID)
	require.NoError(t, err)
	return ctx
}

func shapes(s ...graph.Shape) []graph.Shape { return s }

func TestReduceMax_SrcDepth(t *testing.T) {
	ctx := buildNode(t, OpReduceMax,
		shapes(graph.NewShape(1, 3, 5, 7)),
		shapes(graph.NewShape(1, 3, 5, 1)))

	code, err := ReduceMax{}.GenerateCode(ctx)
	require.NoError(t, err)

	p, ok := code.Parameter("src_depth")
	require.True(t, ok)
	assert.Equal(t, uint32(2), p.Value)
	assert.Equal(t, Uint3{X: 5, Y: 3, Z: 1}, code.Workload)
	assert.True(t, code.Workgroup.IsZero())
	assert.Equal(t, OnlyDefinitions, code.Input)
	assert.Equal(t, OnlyDefinitions, code.Output)
	assert.Empty(t, code.Objects)
	assert.Empty(t, code.SharedVariables)
	assert.Contains(t, code.Source, "$input_data_0[gid.x, gid.y, d]$")
	assert.Contains(t, code.Source, "$output_data_0[gid.x, gid.y, 0u] = vec4<f32>(max_value)$")
}

func TestReduceMax_SrcDepthIsCeilOfChannelsOverFour(t *testing.T) {
	for c := 1; c <= 64; c++ {
		ctx := buildNode(t, OpReduceMax,
			shapes(graph.NewShape(1, 2, 2, c)),
			shapes(graph.NewShape(1, 2, 2, 1)))
		code, err := ReduceMax{}.GenerateCode(ctx)
		require.NoError(t, err)
		p, _ := code.Parameter("src_depth")
		assert.Equal(t, uint32((c+3)/4), p.Value, "channels=%d", c)
	}
}

func TestReduceMax_IgnoresAxisAttribute(t *testing.T) {
	ctx := buildNode(t, OpReduceMax,
		shapes(graph.NewShape(1, 2, 2, 8)),
		shapes(graph.NewShape(1, 2, 2, 1)),
		graph.IntAttr("axis", 1))
	code, err := ReduceMax{}.GenerateCode(ctx)
	require.NoError(t, err)
	p, _ := code.Parameter("src_depth")
	assert.Equal(t, uint32(2), p.Value)
}

func TestResizeNearestNeighbor_Scales(t *testing.T) {
	ctx := buildNode(t, OpResizeNearestNeighbor,
		shapes(graph.NewShape(1, 4, 4, 8)),
		shapes(graph.NewShape(1, 8, 8, 16)))

	code, err := ResizeNearestNeighbor{}.GenerateCode(ctx)
	require.NoError(t, err)

	require.Len(t, code.Parameters, 3)
	assert.Equal(t, UintVar("h_scale", 2), code.Parameters[0])
	assert.Equal(t, UintVar("w_scale", 2), code.Parameters[1])
	assert.Equal(t, UintVar("c_scale", 2), code.Parameters[2])
	assert.Equal(t, Uint3{X: 4, Y: 4, Z: 2}, code.Workload)
	assert.True(t, code.Workgroup.IsZero())
	assert.Contains(t, code.Source, "$output_data_0[h_offset + h, w_offset + w, c_offset + c] = val$")
}

func TestResizeNearestNeighbor_ExactRatios(t *testing.T) {
	tests := []struct {
		in           graph.Shape
		hs, ws, cs   int
		wantX, wantY uint32
		wantZ        uint32
	}{
		{graph.NewShape(1, 1, 1, 1), 1, 1, 1, 1, 1, 1},
		{graph.NewShape(1, 2, 3, 4), 3, 2, 1, 3, 2, 1},
		{graph.NewShape(1, 5, 7, 3), 2, 4, 2, 7, 5, 1},
		{graph.NewShape(1, 3, 3, 12), 1, 5, 2, 3, 3, 3},
	}
	for _, tt := range tests {
		out := graph.NewShape(1, tt.in.H*tt.hs, tt.in.W*tt.ws, tt.in.C*tt.cs)
		t.Run(fmt.Sprintf("%s->%s", tt.in, out), func(t *testing.T) {
			ctx := buildNode(t, OpResizeNearestNeighbor, shapes(tt.in), shapes(out))
			code, err := ResizeNearestNeighbor{Strict: true}.GenerateCode(ctx)
			require.NoError(t, err)

			h, _ := code.Parameter("h_scale")
			w, _ := code.Parameter("w_scale")
			c, _ := code.Parameter("c_scale")
			assert.Equal(t, uint32(tt.hs), h.Value)
			assert.Equal(t, uint32(tt.ws), w.Value)
			assert.Equal(t, uint32(tt.cs), c.Value)
			assert.Equal(t, Uint3{X: tt.wantX, Y: tt.wantY, Z: tt.wantZ}, code.Workload)
		})
	}
}

func TestResizeNearestNeighbor_NonExactRatio(t *testing.T) {
	ctx := buildNode(t, OpResizeNearestNeighbor,
		shapes(graph.NewShape(1, 4, 4, 4)),
		shapes(graph.NewShape(1, 9, 8, 4)))

	code, err := ResizeNearestNeighbor{}.GenerateCode(ctx)
	require.NoError(t, err)
	h, _ := code.Parameter("h_scale")
	assert.Equal(t, uint32(2), h.Value, "non-strict resize truncates")

	_, err = ResizeNearestNeighbor{Strict: true}.GenerateCode(ctx)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestResizeNearestNeighbor_Errors(t *testing.T) {
	tests := []struct {
		name string
		ctx  func(t *testing.T) GenerationContext
		err  error
	}{
		{
			name: "downsample",
			ctx: func(t *testing.T) GenerationContext {
				return buildNode(t, OpResize, shapes(graph.NewShape(1, 8, 8, 4)), shapes(graph.NewShape(1, 4, 4, 4)))
			},
			err: ErrInvalidShape,
		},
		{
			name: "bilinear mode",
			ctx: func(t *testing.T) GenerationContext {
				return buildNode(t, OpResize, shapes(graph.NewShape(1, 4, 4, 4)), shapes(graph.NewShape(1, 8, 8, 4)),
					graph.StringAttr("mode", "linear"))
			},
			err: ErrUnsupportedAttr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResizeNearestNeighbor{}.GenerateCode(tt.ctx(t))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

// fixedReader serves shapes that a Graph would reject.
type fixedReader struct {
	node    *graph.Node
	inputs  []*graph.Value
	outputs []*graph.Value
}

func (r fixedReader) FindNode(graph.NodeID) *graph.Node       { return r.node }
func (r fixedReader) FindInputs(graph.NodeID) []*graph.Value  { return r.inputs }
func (r fixedReader) FindOutputs(graph.NodeID) []*graph.Value { return r.outputs }

func TestResizeNearestNeighbor_ZeroInputExtent(t *testing.T) {
	r := fixedReader{
		node:    &graph.Node{OpType: OpResize},
		inputs:  []*graph.Value{{Shape: graph.NewShape(1, 0, 4, 4)}},
		outputs: []*graph.Value{{Shape: graph.NewShape(1, 8, 8, 4)}},
	}
	_, err := ResizeNearestNeighbor{}.GenerateCode(GenerationContext{Graph: r, Node: r.node})
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestGenerators_Precondition(t *testing.T) {
	s := graph.NewShape(1, 2, 2, 4)
	cases := map[string]struct {
		inputs, outputs []graph.Shape
	}{
		"no inputs":   {nil, shapes(s)},
		"two inputs":  {shapes(s, s), shapes(s)},
		"no outputs":  {shapes(s), nil},
		"two outputs": {shapes(s), shapes(s, s)},
	}
	generators := map[string]NodeShader{
		OpReduceMax:             ReduceMax{},
		OpResizeNearestNeighbor: ResizeNearestNeighbor{},
		OpRelu:                  Relu{},
	}
	for opType, gen := range generators {
		for name, c := range cases {
			t.Run(opType+"/"+name, func(t *testing.T) {
				ctx := buildNode(t, opType, c.inputs, c.outputs)
				_, err := gen.GenerateCode(ctx)
				assert.ErrorIs(t, err, ErrPrecondition)
			})
		}
	}
}

func TestGenerators_Deterministic(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		op      string
		in, out []graph.Shape
		attrs   []graph.Attribute
	}{
		{OpReduceMax, shapes(graph.NewShape(1, 6, 5, 13)), shapes(graph.NewShape(1, 6, 5, 1)), nil},
		{OpResizeNearestNeighbor, shapes(graph.NewShape(1, 4, 4, 8)), shapes(graph.NewShape(1, 8, 8, 16)), nil},
		{OpRelu, shapes(graph.NewShape(1, 4, 4, 8)), shapes(graph.NewShape(1, 4, 4, 8)),
			[]graph.Attribute{graph.FloatAttr("alpha", 0.1), graph.FloatAttr("clip", 6)}},
		{OpAdd, shapes(graph.NewShape(1, 4, 4, 8), graph.NewShape(1, 4, 4, 8), graph.NewShape(1, 4, 4, 8)),
			shapes(graph.NewShape(1, 4, 4, 8)), nil},
	}
	for _, c := range cases {
		t.Run(c.op, func(t *testing.T) {
			first, err := r.Generate(buildNode(t, c.op, c.in, c.out, c.attrs...))
			require.NoError(t, err)

			// Same context twice, then a freshly built graph with equal shapes.
			ctx := buildNode(t, c.op, c.in, c.out, c.attrs...)
			second, err := r.Generate(ctx)
			require.NoError(t, err)
			third, err := r.Generate(ctx)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, second, third)
			assert.Equal(t, first.Source, third.Source)
		})
	}
}

func TestRelu(t *testing.T) {
	s := graph.NewShape(1, 3, 2, 5)

	code, err := Relu{}.GenerateCode(buildNode(t, OpRelu, shapes(s), shapes(s)))
	require.NoError(t, err)
	assert.Empty(t, code.Parameters)
	assert.Equal(t, Auto, code.Input)
	assert.Equal(t, Auto, code.Output)
	assert.Equal(t, Uint3{X: 2, Y: 3, Z: 2}, code.Workload)
	assert.Equal(t, "\n    value_0 = max(value_0, vec4<f32>(0.0));\n", code.Source)

	code, err = Relu{}.GenerateCode(buildNode(t, OpRelu, shapes(s), shapes(s),
		graph.FloatAttr("alpha", 0.5), graph.FloatAttr("clip", 6)))
	require.NoError(t, err)
	require.Len(t, code.Parameters, 2)
	assert.Equal(t, FloatVar("alpha", 0.5), code.Parameters[0])
	assert.Equal(t, FloatVar("clip", 6), code.Parameters[1])
	assert.Contains(t, code.Source, "$alpha$")
	assert.Contains(t, code.Source, "$clip$")

	_, err = Relu{}.GenerateCode(buildNode(t, OpRelu, shapes(s), shapes(s), graph.FloatAttr("clip", -1)))
	assert.ErrorIs(t, err, ErrUnsupportedAttr)

	_, err = Relu{}.GenerateCode(buildNode(t, OpRelu, shapes(s), shapes(graph.NewShape(1, 3, 2, 6))))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestAdd(t *testing.T) {
	s := graph.NewShape(1, 2, 2, 4)

	code, err := Add{}.GenerateCode(buildNode(t, OpAdd, shapes(s, s, s), shapes(s)))
	require.NoError(t, err)
	assert.Equal(t, "\n"+
		"    value_0 = value_0 + $input_data_1[gid.x, gid.y, gid.z]$;\n"+
		"    value_0 = value_0 + $input_data_2[gid.x, gid.y, gid.z]$;\n", code.Source)
	assert.Equal(t, Uint3{X: 2, Y: 2, Z: 1}, code.Workload)

	_, err = Add{}.GenerateCode(buildNode(t, OpAdd, shapes(s), shapes(s)))
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = Add{}.GenerateCode(buildNode(t, OpAdd, shapes(s, graph.NewShape(1, 2, 2, 8)), shapes(s)))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{
		OpAdd, OpReduceMax, OpReduceMaximum, OpRelu, OpResize, OpResizeNearestNeighbor,
	}, r.SupportedOps())

	_, ok := r.Get("UnknownOp")
	assert.False(t, ok)

	s := graph.NewShape(1, 2, 2, 4)
	_, err := r.Generate(buildNode(t, "UnknownOp", shapes(s), shapes(s)))
	assert.ErrorIs(t, err, ErrUnsupportedOp)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "n", genErr.Node)
	assert.Equal(t, "UnknownOp", genErr.OpType)
	assert.Contains(t, err.Error(), "node n (UnknownOp)")
}

func TestRegistry_WrapsGeneratorFailures(t *testing.T) {
	r := NewRegistry()
	s := graph.NewShape(1, 2, 2, 4)

	_, err := r.Generate(buildNode(t, OpReduceMax, shapes(s, s), shapes(s)))
	assert.ErrorIs(t, err, ErrPrecondition)
	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
}

func TestRegistry_StrictResize(t *testing.T) {
	ctx := buildNode(t, OpResize, shapes(graph.NewShape(1, 4, 4, 4)), shapes(graph.NewShape(1, 9, 8, 4)))

	_, err := NewRegistry().Generate(ctx)
	assert.NoError(t, err)

	_, err = NewRegistryWithOptions(Options{StrictResize: true}).Generate(ctx)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRegistry_Custom(t *testing.T) {
	r := NewRegistry()
	r.Register("Identity", NodeShaderFunc(func(ctx GenerationContext) (GeneratedCode, error) {
		out := ctx.Outputs()[0].Shape
		return GeneratedCode{
			Workload: NewUint3(out.W, out.H, out.Depth()),
			Input:    Auto,
			Output:   Auto,
		}, nil
	}))

	s := graph.NewShape(1, 2, 3, 4)
	code, err := r.Generate(buildNode(t, "Identity", shapes(s), shapes(s)))
	require.NoError(t, err)
	assert.Equal(t, Uint3{X: 3, Y: 2, Z: 1}, code.Workload)
}

func TestRegistry_EmptyContext(t *testing.T) {
	r := NewRegistry()
	_, err := r.Generate(GenerationContext{})
	assert.ErrorIs(t, err, ErrNoGraphInContext)

	_, err = r.Generate(GenerationContext{Graph: graph.New()})
	assert.ErrorIs(t, err, ErrNoNodeInContext)

	_, err = NewGenerationContext(graph.New(), 3)
	assert.ErrorIs(t, err, graph.ErrUnknownNode)
}

func TestGenerators_EmptyContext(t *testing.T) {
	g := graph.New()

	generators := map[string]NodeShader{
		OpReduceMax:             ReduceMax{},
		OpResizeNearestNeighbor: ResizeNearestNeighbor{},
		OpRelu:                  Relu{},
		OpAdd:                   Add{},
	}
	for opType, gen := range generators {
		t.Run(opType, func(t *testing.T) {
			var (
				code GeneratedCode
				err  error
			)
			require.NotPanics(t, func() { code, err = gen.GenerateCode(GenerationContext{}) })
			assert.ErrorIs(t, err, ErrNoGraphInContext)
			assert.Empty(t, code.Source)

			require.NotPanics(t, func() { _, err = gen.GenerateCode(GenerationContext{Graph: g}) })
			assert.ErrorIs(t, err, ErrNoNodeInContext)

			n := &graph.Node{OpType: opType}
			require.NotPanics(t, func() { _, err = gen.GenerateCode(GenerationContext{Node: n}) })
			assert.ErrorIs(t, err, ErrNoGraphInContext)
		})
	}
}

func TestGenerationContext_NodeIsACopy(t *testing.T) {
	s := graph.NewShape(1, 2, 2, 8)
	ctx := buildNode(t, OpRelu, shapes(s), shapes(s), graph.FloatAttr("alpha", 0.5))

	ctx.Node.OpType = OpReduceMax
	ctx.Node.Attributes[0].F = 0.25

	fresh, err := NewGenerationContext(ctx.Graph, ctx.Node.ID)
	require.NoError(t, err)
	assert.Equal(t, OpRelu, fresh.Node.OpType)
	assert.InDelta(t, 0.5, fresh.Node.AttrFloat("alpha", 0), 1e-6)

	code, err := NewRegistry().Generate(fresh)
	require.NoError(t, err)
	assert.Equal(t, []Variable{FloatVar("alpha", 0.5)}, code.Parameters)
}

func TestIOStructure_String(t *testing.T) {
	assert.Equal(t, "only_definitions", OnlyDefinitions.String())
	assert.Equal(t, "auto", Auto.String())
	assert.Equal(t, "unknown", IOStructure(9).String())
}
