// meshsimp is a CLI utility for simplifying triangle meshes stored as OBJ.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsimp/internal/batch"
	"github.com/Faultbox/meshsimp/internal/config"
	"github.com/Faultbox/meshsimp/internal/logger"
	"github.com/Faultbox/meshsimp/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "collapse", "ec":
		cmdSimplify(config.MethodCollapse, args)
	case "cluster", "vc":
		cmdSimplify(config.MethodCluster, args)
	case "info":
		cmdInfo(args)
	case "batch":
		cmdBatch(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshsimp - triangle mesh simplification

Usage:
  meshsimp <command> [options]

Commands:
  collapse [flags] <file.obj>     Edge collapse to a fraction of the faces
  cluster [flags] <file.obj>      Vertex clustering on a uniform grid
  info <file.obj>                 Show mesh statistics
  batch [flags] <file.obj>...     Simplify many files concurrently
  config [-save path]             Print or save the effective config

Common flags:
  -ratio R        reduction ratio in (0, 1] (collapse)
  -cell L         grid cell length (cluster)
  -relative       treat -cell as a fraction of the largest bounding box side
  -i              prompt for the ratio or cell length on stdin
  -o FILE         output file (default <name>_ec.obj / <name>_vc.obj)
  -out DIR        output directory
  -workers N      worker goroutines
  -config FILE    config file (default ./meshsimp.yaml)
  -debug          debug logging

Examples:
  meshsimp collapse -ratio 0.25 bunny.obj
  meshsimp cluster -cell 0.02 -relative bunny.obj
  meshsimp batch -method cluster -cell 0.05 -out simplified models/*.obj`)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", a...)
	logger.Sync()
	os.Exit(1)
}

// loadConfig loads the config and starts the logger.
func loadConfig(flags *config.Flags) *config.Config {
	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("%v", err)
	}
	initLogger(cfg)
	return cfg
}

func initLogger(cfg *config.Config) {
	opts := logger.Options{Level: cfg.Logging.Level, Console: os.Stderr}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.FileConfig{
			Path:       cfg.Logging.LogFile,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	}
	if err := logger.InitWithOptions(opts); err != nil {
		fatalf("initializing logger: %v", err)
	}
}

func cmdSimplify(method string, args []string) {
	fs := flag.NewFlagSet(method, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	interactive := fs.Bool("i", false, "Prompt for the simplification parameter")
	output := fs.String("o", "", "Output file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: meshsimp %s [flags] <file.obj>\n", method)
		os.Exit(1)
	}
	input := fs.Arg(0)

	*flags.Method = method
	cfg := loadConfig(flags)
	defer logger.Sync()

	if *interactive {
		if err := promptParameter(cfg, os.Stdin, os.Stdout); err != nil {
			fatalf("%v", err)
		}
	}

	m, err := formats.ParseOBJFile(input)
	if err != nil {
		fatalf("%v", err)
	}
	logger.Debug("mesh loaded",
		zap.String("file", input),
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("faces", len(m.Faces)),
		zap.Bool("normals", m.HasNormals()),
	)

	start := time.Now()
	out, summary, err := batch.Simplify(cfg, m)
	if err != nil {
		fatalf("%v", err)
	}
	logger.Info("simplified",
		zap.String("method", summary.Method),
		zap.Int("faces_out", summary.OutputFaces),
		zap.Duration("took", time.Since(start)),
	)
	if summary.Exhausted {
		logger.Warn("edge queue exhausted before target face count",
			zap.Int("faces_out", summary.OutputFaces))
	}

	outPath := *output
	if outPath == "" {
		outPath = batch.OutputPath(cfg, input)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		fatalf("creating directory: %v", err)
	}
	if err := formats.WriteOBJFile(outPath, out); err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Original mesh: %d vertices, %d faces\n", summary.InputVertices, summary.InputFaces)
	fmt.Printf("Simplified mesh: %d vertices, %d faces\n", summary.OutputVertices, summary.OutputFaces)
	fmt.Printf("Written: %s\n", outPath)
}

// promptParameter asks for the method's parameter and validates the result.
func promptParameter(cfg *config.Config, in io.Reader, out io.Writer) error {
	label := "Enter the reduction ratio: "
	target := &cfg.Simplify.ReductionRatio
	if cfg.Simplify.Method == config.MethodCluster {
		label = "Enter percentage of the scene for the grid cell length: "
		target = &cfg.Simplify.CellLength
	}

	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading parameter: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return fmt.Errorf("parsing parameter: %w", err)
	}
	*target = v
	return cfg.Validate()
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshsimp info <file.obj>")
		os.Exit(1)
	}

	m, err := formats.ParseOBJFile(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	lo, hi := m.Bounds()
	fmt.Printf("Mesh:     %s\n", args[0])
	fmt.Printf("Vertices: %d\n", len(m.Vertices))
	fmt.Printf("Normals:  %d", len(m.Normals))
	if !m.HasNormals() {
		fmt.Print(" (derived per face when simplifying)")
	}
	fmt.Println()
	fmt.Printf("Faces:    %d\n", len(m.Faces))
	fmt.Printf("Bounds:   (%g, %g, %g) - (%g, %g, %g)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	fmt.Printf("Extent:   %g\n", m.Extent())
}

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshsimp batch [flags] <file.obj>...")
		os.Exit(1)
	}

	cfg := loadConfig(flags)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results := batch.Run(ctx, cfg, fs.Args())

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", r.Input, r.Err)
			continue
		}
		fmt.Printf("%-40s %7d -> %7d faces  %s\n",
			r.Input, r.Summary.InputFaces, r.Summary.OutputFaces, r.Output)
	}

	logger.Info("batch finished",
		zap.Int("files", len(results)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
	fmt.Fprintf(os.Stderr, "\n(%d files, %d failed)\n", len(results), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	save := fs.String("save", "", "Write the effective config to this path")
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("%v", err)
	}

	if *save != "" {
		if err := cfg.SaveTo(*save); err != nil {
			fatalf("saving config: %v", err)
		}
		fmt.Printf("Saved: %s\n", *save)
		return
	}

	data, err := cfg.Marshal()
	if err != nil {
		fatalf("%v", err)
	}
	os.Stdout.Write(data)
}
