package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernelgen/internal/graph"
)

const testGraph = `
values:
  - {name: x, shape: [1, 4, 4, 8]}
  - {name: up, shape: [1, 8, 8, 16]}
  - {name: y, shape: [1, 8, 8, 1]}
nodes:
  - {name: resize, op: ResizeNearestNeighbor, inputs: [x], outputs: [up]}
  - {name: max/0, op: ReduceMax, inputs: [up], outputs: [y]}
`

func writeGraph(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out, &out))
	assert.Equal(t, "kernelgen "+version+"\n", out.String())
}

func TestRun_WGSLToStdout(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run([]string{writeGraph(t, testGraph)}, &out, &errOut)
	require.NoError(t, err, errOut.String())

	s := out.String()
	assert.Contains(t, s, "// resize (ResizeNearestNeighbor)")
	assert.Contains(t, s, "// max_0 (ReduceMax)")
	assert.Contains(t, s, "@compute @workgroup_size(8, 8, 1)")
}

func TestRun_SPIRVToDir(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer
	err := run([]string{"-format", "spirv", "-o", dir, "-workers", "1", writeGraph(t, testGraph)}, &out, &errOut)
	require.NoError(t, err, errOut.String())

	for _, name := range []string{"resize.spv", "max_0.spv"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Greater(t, len(data), 20)
		assert.Equal(t, uint32(0x07230203), binary.LittleEndian.Uint32(data), name)
	}
}

func TestRun_GLSLToDir(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer
	err := run([]string{"-format", "glsl", "-o", dir, "-workers", "2", writeGraph(t, testGraph)}, &out, &errOut)
	require.NoError(t, err, errOut.String())

	for _, name := range []string{"resize.comp", "max_0.comp"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), "#version 310 es", name)
	}
}

func TestRun_SkipValidation(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run([]string{"-validate=false", "-format", "json", writeGraph(t, testGraph)}, &out, &errOut)
	require.NoError(t, err, errOut.String())
	assert.Contains(t, out.String(), `"node": "max_0"`)
}

func TestRun_JSONManifest(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run([]string{"-format", "json", writeGraph(t, testGraph)}, &out, &errOut)
	require.NoError(t, err, errOut.String())

	var entries []manifestEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "resize", entries[0].Node)
	assert.Equal(t, [3]uint32{4, 4, 2}, entries[0].Workload)
	assert.Equal(t, [3]uint32{1, 1, 2}, entries[0].NumWorkgroups)
	assert.InDelta(t, 2, entries[0].Parameters["h_scale"], 0)
	assert.InDelta(t, 4, entries[1].Parameters["src_depth"], 0)
}

func TestRun_Strict(t *testing.T) {
	src := `
values:
  - {name: x, shape: [1, 3, 3, 4]}
  - {name: y, shape: [1, 7, 7, 4]}
nodes:
  - {name: up, op: ResizeNearestNeighbor, inputs: [x], outputs: [y]}
`
	path := writeGraph(t, src)
	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"-format", "json", path}, &out, &errOut))

	out.Reset()
	err := run([]string{"-strict", "-format", "json", path}, &out, &errOut)
	assert.Error(t, err)
}

func TestRun_Errors(t *testing.T) {
	path := writeGraph(t, testGraph)
	tests := []struct {
		name string
		args []string
	}{
		{"no input", nil},
		{"too many inputs", []string{path, path}},
		{"unknown format", []string{"-format", "metal", path}},
		{"spirv without dir", []string{"-format", "spirv", path}},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.yaml")}},
		{"bad flag", []string{"-bogus", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			assert.Error(t, run(tt.args, &out, &errOut))
		})
	}
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "a_b-c.d", fileStem(&graph.Node{Name: "a/b-c.d"}))
	assert.Equal(t, "node_7", fileStem(&graph.Node{ID: 7}))
}
