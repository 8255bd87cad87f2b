// modelinfo loads a model and prints how many meshes it flattens to.
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
		fmt.Fprintln(os.Stderr, "Usage: modelinfo [flags] <model file>")
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
		logger.Error("load failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d meshes\n", path, len(m.Meshes))
}
