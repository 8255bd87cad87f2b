// checkdegen loads a model, optionally merges its meshes, and fails if any
// triangle has zero area.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/modelcheck/internal/config"
	"github.com/Faultbox/modelcheck/internal/logger"
	"github.com/Faultbox/modelcheck/pkg/importer"
	"github.com/Faultbox/modelcheck/pkg/model"
)

func main() {
	config.ParseFlags()
	if config.Args() == nil {
		fmt.Fprintln(os.Stderr, "Usage: checkdegen [flags] <model file>")
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

	steps, remove, err := cfg.Import.Steps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	imp := importer.New(
		importer.WithLogger(logger.Log),
		importer.WithPostProcess(steps),
		importer.WithRemovePrimitives(remove),
	)

	path := config.Args()[0]
	m, err := model.NewLoader(imp, model.WithLogger(logger.Log)).Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Check.Merge {
		m = model.MergeMeshes(m)
	}

	found := 0
	for mi, mesh := range m.Meshes {
		tris := model.CreateTrianglesFromMesh(mesh)
		degen := model.DegenerateTriangles(tris)
		logger.Debug("checked mesh",
			zap.Int("mesh", mi),
			zap.String("name", mesh.Name),
			zap.Int("triangles", len(tris)),
			zap.Int("degenerate", len(degen)))

		for _, ti := range degen {
			found++
			if cfg.Check.MaxReported == 0 || found <= cfg.Check.MaxReported {
				fmt.Printf("mesh %d triangle %d: %s\n", mi, ti, tris[ti])
			}
		}
	}

	if found == 0 {
		fmt.Printf("%s: no degenerate triangles\n", path)
		return
	}
	fmt.Printf("%s: %d degenerate triangles\n", path, found)
	if cfg.Check.FailOnDegenerate {
		os.Exit(1)
	}
}
