// Command kernelgen generates compute kernels for every node of a tensor graph.
//
// Usage:
//
//	kernelgen [options] <graph.yaml>
//	kernelgen version
//
// Examples:
//
//	kernelgen model.yaml                     # Print WGSL for every node
//	kernelgen -format spirv -o out model.yaml # Write one .spv per node
//	kernelgen -format json model.yaml        # Print a dispatch manifest
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/kernelgen/internal/compiler"
	"github.com/born-ml/kernelgen/internal/delegate"
	"github.com/born-ml/kernelgen/internal/graph"
	"github.com/born-ml/kernelgen/internal/kernels"
	"github.com/born-ml/kernelgen/internal/logging"
	"github.com/born-ml/kernelgen/internal/parallel"
)

const version = "v0.1.0-dev"

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type config struct {
	format   string
	outDir   string
	strict   bool
	workers  int
	verbose  bool
	validate bool
	debug    bool
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "version" {
		fmt.Fprintf(stdout, "kernelgen %s\n", version)
		return nil
	}

	var cfg config
	fs := flag.NewFlagSet("kernelgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.format, "format", "wgsl", "output format: wgsl, spirv, glsl or json")
	fs.StringVar(&cfg.outDir, "o", "", "output directory (default: stdout)")
	fs.BoolVar(&cfg.strict, "strict", false, "reject resize ratios that are not exact multiples")
	fs.IntVar(&cfg.workers, "workers", parallel.DefaultConfig().NumWorkers, "number of nodes generated concurrently")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	fs.BoolVar(&cfg.validate, "validate", true, "validate naga IR")
	fs.BoolVar(&cfg.debug, "debug", false, "include debug info in SPIR-V")
	fs.Usage = func() { usage(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: expected exactly one graph file")
		usage(fs, stderr)
		return errUsage
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	defer logging.SetLogger(nil)

	switch cfg.format {
	case "wgsl", "spirv", "glsl", "json":
	default:
		return fmt.Errorf("unknown format %q", cfg.format)
	}
	if cfg.format == "spirv" && cfg.outDir == "" {
		return errors.New("-format spirv requires -o")
	}

	g, err := graph.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	copts := compiler.DefaultOptions()
	copts.Validate = cfg.validate
	copts.Debug = cfg.debug
	comp := compiler.New(copts)

	plan, err := delegate.Build(g, delegate.Options{
		Registry: kernels.NewRegistryWithOptions(kernels.Options{StrictResize: cfg.strict}),
		Compiler: comp,
		Parallel: parallel.Config{Enabled: cfg.workers > 1, NumWorkers: cfg.workers},
		SPIRV:    cfg.format == "spirv",
	})
	if err != nil {
		return err
	}

	if cfg.outDir != "" {
		if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
			return err
		}
	}

	switch cfg.format {
	case "json":
		return writeManifest(plan, cfg.outDir, stdout)
	case "glsl":
		for _, k := range plan.Kernels {
			src, err := comp.CompileGLSL(k.WGSL)
			if err != nil {
				return fmt.Errorf("node %s: %w", fileStem(k.Node), err)
			}
			if err := emit(cfg.outDir, k.Node, ".comp", []byte(src), stdout); err != nil {
				return err
			}
		}
	case "spirv":
		for _, k := range plan.Kernels {
			if err := emit(cfg.outDir, k.Node, ".spv", k.SPIRV, stdout); err != nil {
				return err
			}
		}
	default:
		for _, k := range plan.Kernels {
			if err := emit(cfg.outDir, k.Node, ".wgsl", []byte(k.WGSL), stdout); err != nil {
				return err
			}
		}
	}
	return nil
}

// emit writes one kernel to dir, or to stdout under a header comment.
func emit(dir string, n *graph.Node, ext string, data []byte, stdout io.Writer) error {
	if dir == "" {
		fmt.Fprintf(stdout, "// %s (%s)\n", fileStem(n), n.OpType)
		_, err := stdout.Write(data)
		return err
	}
	path := filepath.Join(dir, fileStem(n)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logging.Logger().Info("kernelgen: wrote kernel", "path", path, "bytes", len(data))
	return nil
}

type manifestEntry struct {
	Node          string         `json:"node"`
	Op            string         `json:"op"`
	Workload      [3]uint32      `json:"workload"`
	NumWorkgroups [3]uint32      `json:"num_workgroups"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	WGSL          string         `json:"wgsl"`
}

func writeManifest(plan *delegate.Plan, dir string, stdout io.Writer) error {
	entries := make([]manifestEntry, len(plan.Kernels))
	for i, k := range plan.Kernels {
		e := manifestEntry{
			Node:          fileStem(k.Node),
			Op:            k.Node.OpType,
			Workload:      [3]uint32{k.Code.Workload.X, k.Code.Workload.Y, k.Code.Workload.Z},
			NumWorkgroups: [3]uint32{k.NumWorkgroups.X, k.NumWorkgroups.Y, k.NumWorkgroups.Z},
			WGSL:          k.WGSL,
		}
		if len(k.Code.Parameters) > 0 {
			e.Parameters = make(map[string]any, len(k.Code.Parameters))
			for _, p := range k.Code.Parameters {
				e.Parameters[p.Name] = p.Value
			}
		}
		entries[i] = e
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if dir == "" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644)
}

// fileStem returns a file-safe name for a node.
func fileStem(n *graph.Node) string {
	if n.Name == "" {
		return fmt.Sprintf("node_%d", n.ID)
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, n.Name)
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "Usage: kernelgen [options] <graph.yaml>\n")
	fmt.Fprintf(w, "       kernelgen version\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nSupported operations: %s\n", strings.Join(kernels.NewRegistry().SupportedOps(), ", "))
}
