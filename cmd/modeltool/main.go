// modeltool is a CLI utility for inspecting and checking 3D model files.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/modelcheck/internal/config"
	"github.com/Faultbox/modelcheck/internal/logger"
	"github.com/Faultbox/modelcheck/pkg/formats"
	"github.com/Faultbox/modelcheck/pkg/importer"
	"github.com/Faultbox/modelcheck/pkg/math"
	"github.com/Faultbox/modelcheck/pkg/model"
	"github.com/Faultbox/modelcheck/pkg/texture"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "meshes", "ls":
		cmdMeshes(args)
	case "bounds":
		cmdBounds(args)
	case "degen":
		cmdDegen(args)
	case "textures", "tex":
		cmdTextures(args)
	case "init-config":
		cmdInitConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`modeltool - 3D model inspection utility

Usage:
  modeltool <command> [flags] <model file>

Commands:
  info <model>           Show format, scene statistics and flattened counts
  meshes <model>         List flattened meshes with materials
  bounds <model>         Show per-mesh and merged bounding boxes
  degen <model>          Report zero-area triangles
  textures <model>       Check that referenced textures exist and decode
  init-config [path]     Write the default config file

Flags (after the command):
  -config <file>         Config file (default ./modelcheck.yaml)
  -debug                 Debug logging
  -merge / -no-merge     Merge meshes before checking
  -no-pretransform       Do not bake node transforms into vertices
  -keep-primitives       Keep point and line primitives
  -log-file <file>       Also log to a rotated file

Examples:
  modeltool info house.obj
  modeltool degen -no-merge data/model/tree.rsm
  modeltool textures scene.glb`)
}

// setup parses flags, loads config and starts logging. It returns the
// config and the model path.
func setup(command string, args []string) (*config.Config, string) {
	if err := config.ParseArgs(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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

	rest := config.Args()
	if len(rest) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: modeltool %s [flags] <model file>\n", command)
		os.Exit(1)
	}
	return cfg, rest[0]
}

func newImporter(cfg *config.Config) *importer.Importer {
	steps, remove, err := cfg.Import.Steps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	return importer.New(
		importer.WithLogger(logger.Log),
		importer.WithPostProcess(steps),
		importer.WithRemovePrimitives(remove),
	)
}

func loadModel(cfg *config.Config, path string) model.Model {
	m, err := model.NewLoader(newImporter(cfg), model.WithLogger(logger.Log)).Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return m
}

func cmdInfo(args []string) {
	cfg, path := setup("info", args)
	defer logger.Sync()

	head := make([]byte, 512)
	if f, err := os.Open(path); err == nil {
		n, _ := f.Read(head)
		head = head[:n]
		f.Close()
	}

	imp := newImporter(cfg)
	sc, err := imp.Import(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File:        %s\n", path)
	fmt.Printf("Format:      %s\n", formats.DetectFormat(path, head))
	fmt.Printf("Steps:       %s\n", imp.PostProcess())
	fmt.Printf("Scene:       %s\n", sc.Stats())
	if sc.Incomplete() {
		fmt.Printf("Incomplete:  %s\n", sc.Diagnostic)
		os.Exit(1)
	}

	m := model.Flatten(sc, path)
	fmt.Printf("Meshes:      %d\n", len(m.Meshes))
	fmt.Printf("Vertices:    %d\n", m.VertexCount())
	fmt.Printf("Triangles:   %d\n", m.IndexCount()/3)
}

func cmdMeshes(args []string) {
	cfg, path := setup("meshes", args)
	defer logger.Sync()

	m := loadModel(cfg, path)
	for i, mesh := range m.Meshes {
		name := mesh.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%4d  %-24s %7d verts %7d tris\n", i, name, len(mesh.Vertices), len(mesh.Indices)/3)
		for _, ti := range mesh.Material.TextureInfos {
			if ti.Type == model.DiffuseColor {
				c := ti.DiffuseColor
				fmt.Printf("        %-12s (%.3g, %.3g, %.3g, %.3g)\n", ti.Type, c.X, c.Y, c.Z, c.W)
				continue
			}
			fmt.Printf("        %-12s %s\n", ti.Type, ti.FilePath)
		}
	}
}

func cmdBounds(args []string) {
	cfg, path := setup("bounds", args)
	defer logger.Sync()

	m := loadModel(cfg, path)
	for i, mesh := range m.Meshes {
		fmt.Printf("%4d  %s\n", i, formatAABB(mesh.AABB))
	}
	merged := model.MergeMeshes(m).Meshes[0]
	fmt.Printf("all   %s\n", formatAABB(merged.AABB))
	if !merged.AABB.IsEmpty() {
		fmt.Printf("      size %s center %s\n", merged.AABB.Size(), merged.AABB.Center())
	}
}

func formatAABB(b math.AABB) string {
	if b.IsEmpty() {
		return "empty"
	}
	return fmt.Sprintf("min %s max %s", b.Min, b.Max)
}

func cmdDegen(args []string) {
	cfg, path := setup("degen", args)
	defer logger.Sync()

	m := loadModel(cfg, path)
	if cfg.Check.Merge {
		m = model.MergeMeshes(m)
	}

	found := 0
	for mi, mesh := range m.Meshes {
		tris := model.CreateTrianglesFromMesh(mesh)
		for _, ti := range model.DegenerateTriangles(tris) {
			found++
			if cfg.Check.MaxReported == 0 || found <= cfg.Check.MaxReported {
				fmt.Printf("mesh %d triangle %d: %s\n", mi, ti, tris[ti])
			}
		}
	}
	fmt.Printf("%d degenerate triangles\n", found)
	if found > 0 && cfg.Check.FailOnDegenerate {
		os.Exit(1)
	}
}

func cmdTextures(args []string) {
	cfg, path := setup("textures", args)
	defer logger.Sync()

	m := loadModel(cfg, path)
	var paths []string
	for _, mesh := range m.Meshes {
		for _, ti := range mesh.Material.TextureInfos {
			if ti.Type != model.DiffuseColor {
				paths = append(paths, ti.FilePath)
			}
		}
	}
	sort.Strings(paths)

	failed := 0
	for _, r := range texture.ProbeAll(paths) {
		switch {
		case r.Err == nil:
			fmt.Printf("ok       %s\n", r.Info)
		case errors.Is(r.Err, texture.ErrEmbedded):
			fmt.Printf("embedded %s\n", r.Info.Path)
		default:
			failed++
			fmt.Printf("FAIL     %v\n", r.Err)
			logger.Warn("texture check failed", zap.String("path", r.Info.Path), zap.Error(r.Err))
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func cmdInitConfig(args []string) {
	cfg := config.Default()
	path := filepath.Join(config.ConfigDir(), "config.yaml")
	save := cfg.Save
	if len(args) > 0 {
		path = args[0]
		save = func() error { return cfg.SaveTo(path) }
	}
	if err := save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}
