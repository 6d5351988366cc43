package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagWidth    = flag.Int("width", 0, "Grid width in cells")
	flagHeight   = flag.Int("height", 0, "Grid height in cells")
	flagChunk    = flag.Int("chunk", -1, "Chunk edge in cells (0 = whole grid)")
	flagShape    = flag.String("shape", "", "Cell shape (rect or hex)")
	flagParallel = flag.Bool("parallel", false, "Rebuild fusers in parallel")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Viewer.ShowStats = true
	}
	if *flagWidth > 0 {
		cfg.Grid.Width = int32(*flagWidth)
	}
	if *flagHeight > 0 {
		cfg.Grid.Height = int32(*flagHeight)
	}
	if *flagChunk >= 0 {
		cfg.Grid.ChunkWidth = int32(*flagChunk)
		cfg.Grid.ChunkHeight = int32(*flagChunk)
	}
	if *flagShape != "" {
		cfg.Grid.Shape = *flagShape
	}
	if *flagParallel {
		cfg.Grid.Parallel = true
	}
}
