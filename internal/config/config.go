// Package config handles modelcheck configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/modelcheck/pkg/scene"
)

// Config holds all tool settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	Check   CheckConfig   `yaml:"check"`
	Logging LoggingConfig `yaml:"logging"`
}

// ImportConfig selects the post-processing applied by the importer.
type ImportConfig struct {
	PostProcess      []string `yaml:"post_process"`      // step names, "max_quality" for the preset
	RemovePrimitives []string `yaml:"remove_primitives"` // "point", "line", ...
}

// CheckConfig holds geometry check settings.
type CheckConfig struct {
	Merge            bool `yaml:"merge"`              // merge all meshes before checking
	FailOnDegenerate bool `yaml:"fail_on_degenerate"` // exit non-zero on a zero-area triangle
	MaxReported      int  `yaml:"max_reported"`       // 0 reports all
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			PostProcess:      []string{"max_quality", "pre_transform_vertices"},
			RemovePrimitives: []string{"point", "line"},
		},
		Check: CheckConfig{
			Merge:            true,
			FailOnDegenerate: true,
			MaxReported:      20,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Steps converts the import settings to scene flags.
func (c ImportConfig) Steps() (scene.PostProcess, scene.PrimitiveType, error) {
	flags, err := scene.ParsePostProcess(c.PostProcess)
	if err != nil {
		return 0, 0, fmt.Errorf("import.post_process: %w", err)
	}
	remove, err := scene.ParsePrimitiveTypes(c.RemovePrimitives)
	if err != nil {
		return 0, 0, fmt.Errorf("import.remove_primitives: %w", err)
	}
	return flags, remove, nil
}
