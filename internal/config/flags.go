package config

import (
	"flag"
	"strings"
)

var (
	flagConfig         = flag.String("config", "", "Path to config file")
	flagDebug          = flag.Bool("debug", false, "Enable debug logging")
	flagMerge          = flag.Bool("merge", false, "Merge all meshes before checking")
	flagNoMerge        = flag.Bool("no-merge", false, "Check each mesh separately")
	flagNoPretransform = flag.Bool("no-pretransform", false, "Keep node transforms out of vertex positions")
	flagKeepPrimitives = flag.Bool("keep-primitives", false, "Keep point and line primitives")
	flagLogFile        = flag.String("log-file", "", "Write logs to this file as well")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ParseArgs parses flags from args, for tools that consume a subcommand
// before the flags.
func ParseArgs(args []string) error {
	return flag.CommandLine.Parse(args)
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagMerge {
		cfg.Check.Merge = true
	}
	if *flagNoMerge {
		cfg.Check.Merge = false
	}
	if *flagNoPretransform {
		steps := cfg.Import.PostProcess[:0:0]
		for _, s := range cfg.Import.PostProcess {
			if strings.ToLower(strings.TrimSpace(s)) != "pre_transform_vertices" {
				steps = append(steps, s)
			}
		}
		cfg.Import.PostProcess = steps
	}
	if *flagKeepPrimitives {
		cfg.Import.RemovePrimitives = nil
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}

// Args returns the positional arguments left after flag parsing, or nil.
func Args() []string {
	if flag.NArg() == 0 {
		return nil
	}
	return flag.Args()
}
