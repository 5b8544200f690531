package config

import "flag"

// unset marks a numeric flag that was not given on the command line.
const unset = -1000

var (
	flagConfig        = flag.String("config", "", "Path to config file")
	flagDebug         = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile       = flag.String("log", "", "Also write logs to this file")
	flagStrict        = flag.Bool("strict", false, "Fail on unknown geometry or mesh references")
	flagMaxDepth      = flag.Int("max-depth", 0, "Maximum KD-tree depth")
	flagMinTileSize   = flag.Float64("min-tile-size", unset, "Smallest tile diagonal that is still split (0 disables)")
	flagEdgeThreshold = flag.Float64("edge-threshold", unset, "Edge angle threshold in degrees")
	flagLevel         = flag.Int("level", unset, "zlib compression level (-1 default, 0-9)")
	flagValidate      = flag.Bool("validate", false, "Decode and compare the output after writing")
	flagMeta          = flag.Bool("meta", false, "Write a metadata .json sidecar next to the output")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag command-line arguments.
func Args() []string {
	return flag.Args()
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
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagStrict {
		cfg.Conversion.Strict = true
	}
	if *flagMaxDepth > 0 {
		cfg.Conversion.MaxKDTreeDepth = *flagMaxDepth
	}
	if *flagMinTileSize != unset {
		cfg.Conversion.MinTileSize = *flagMinTileSize
	}
	if *flagEdgeThreshold != unset {
		cfg.Conversion.EdgeThreshold = *flagEdgeThreshold
	}
	if *flagLevel != unset {
		cfg.Output.CompressionLevel = *flagLevel
	}
	if *flagValidate {
		cfg.Output.Validate = true
	}
	if *flagMeta {
		cfg.Output.MetaModel = true
	}
}
