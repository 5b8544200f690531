// xktconv converts glTF and STL models into tiled, quantized XKT containers.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/xktconv/internal/config"
	"github.com/Faultbox/xktconv/internal/logger"
	"github.com/Faultbox/xktconv/internal/validate"
	"github.com/Faultbox/xktconv/pkg/xkt"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	command := args[0]
	rest := args[1:]

	switch command {
	case "convert", "c":
		err = cmdConvert(cfg, rest)
	case "validate", "check":
		err = cmdValidate(cfg, rest)
	case "info":
		err = cmdInfo(rest)
	case "init-config":
		err = cmdInitConfig(cfg, rest)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`xktconv - glTF/STL to XKT converter

Usage:
  xktconv [flags] <command> [arguments]

Commands:
  convert <in.gltf|in.glb|in.stl> <out.xkt>  Convert a model
  validate <in.gltf|in.glb|in.stl>           Convert in memory and check the decoded result
  info <file.xkt>                            Show container contents
  init-config [path]                         Write the current settings as YAML

Flags:
  -config <path>          Config file
  -debug                  Debug logging
  -log <path>             Also log to a rotating file
  -strict                 Fail on unresolved references
  -max-depth <n>          KD-tree depth limit
  -min-tile-size <size>   Smallest tile diagonal still split (0 disables)
  -edge-threshold <deg>   Edge angle threshold
  -level <n>              zlib level (-1 default, 0-9)
  -validate               Check the output after writing
  -meta                   Write a metadata .json next to the output

Examples:
  xktconv convert building.glb building.xkt
  xktconv -validate -meta -max-depth 8 convert site.gltf site.xkt
  xktconv info building.xkt`)
}

func cmdConvert(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: xktconv convert <in> <out.xkt>")
		os.Exit(1)
	}

	stats, err := convert(cfg, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s\n", args[0], args[1])
	printStats(stats.Geometries, stats.ReusedGeometries, stats.Meshes, stats.Entities, stats.Tiles)
	fmt.Printf("  Triangles:  %d\n", stats.Triangles)
	fmt.Printf("  Lines:      %d\n", stats.Lines)
	fmt.Printf("  Points:     %d\n", stats.Points)
	fmt.Printf("  Edges:      %d\n", stats.EdgeSegments)
	if !stats.Bounds.IsEmpty() {
		fmt.Printf("  Bounds:     min %v  max %v\n", stats.Bounds.Min.Array(), stats.Bounds.Max.Array())
	}
	return nil
}

func cmdValidate(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: xktconv validate <in>")
		os.Exit(1)
	}

	m, err := loadModel(cfg, args[0])
	if err != nil {
		return err
	}
	buf, err := m.Encode(cfg.Output.CompressionLevel)
	if err != nil {
		return err
	}
	if err := validate.Validate(m, buf); err != nil {
		return err
	}

	fmt.Printf("%s: OK (%d bytes)\n", args[0], len(buf))
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: xktconv info <file.xkt>")
		os.Exit(1)
	}

	buf, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	d, err := xkt.Decode(buf)
	if err != nil {
		return err
	}

	uses := d.GeometryUseCounts()
	reused := 0
	for _, n := range uses {
		if n > 1 {
			reused++
		}
	}

	fmt.Printf("File:    %s\n", args[0])
	fmt.Printf("Version: %d\n", xkt.Version)
	fmt.Printf("Size:    %.2f KB\n", float64(len(buf))/1024)
	printStats(d.NumGeometries(), reused, d.NumMeshes(), d.NumEntities(), d.NumTiles())

	primitives := make(map[xkt.PrimitiveType]int)
	for _, p := range d.EachGeometryPrimitiveType {
		primitives[p]++
	}
	fmt.Println()
	fmt.Println("Geometries by primitive:")
	for p := xkt.PrimitiveSolid; p <= xkt.PrimitivePoints; p++ {
		if primitives[p] > 0 {
			fmt.Printf("  %-10s %d\n", p, primitives[p])
		}
	}

	fmt.Println()
	fmt.Println("Tiles:")
	for i := 0; i < d.NumTiles(); i++ {
		start, end := d.TileEntities(i)
		box := d.TileAABB(i)
		fmt.Printf("  %3d  %5d entities  min %v  max %v\n", i, end-start, box.Min.Array(), box.Max.Array())
	}
	return nil
}

func cmdInitConfig(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	}

	path, err := cfg.Save()
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func printStats(geometries, reused, meshes, entities, tiles int) {
	fmt.Printf("  Geometries: %d (%d reused)\n", geometries, reused)
	fmt.Printf("  Meshes:     %d\n", meshes)
	fmt.Printf("  Entities:   %d\n", entities)
	fmt.Printf("  Tiles:      %d\n", tiles)
}
