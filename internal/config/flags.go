package config

import "flag"

// Flags holds the command-line overrides registered on a FlagSet.
type Flags struct {
	Config   *string
	Debug    *bool
	Method   *string
	Ratio    *float64
	Cell     *float64
	Relative *bool
	Workers  *int
	OutDir   *string
	LogFile  *string

	fs *flag.FlagSet
}

// RegisterFlags adds the shared flags to fs. Call fs.Parse before Load.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:   fs.String("config", "", "Path to config file"),
		Debug:    fs.Bool("debug", false, "Enable debug logging"),
		Method:   fs.String("method", "", "Simplification method (collapse or cluster)"),
		Ratio:    fs.Float64("ratio", 0, "Edge collapse reduction ratio in (0, 1]"),
		Cell:     fs.Float64("cell", 0, "Vertex clustering cell length"),
		Relative: fs.Bool("relative", false, "Treat -cell as a fraction of the largest bounding box side"),
		Workers:  fs.Int("workers", 0, "Worker goroutines"),
		OutDir:   fs.String("out", "", "Output directory"),
		LogFile:  fs.String("log-file", "", "Also write logs to this file"),
		fs:       fs,
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// set reports which flags were given on the command line.
func (f *Flags) set() map[string]bool {
	given := make(map[string]bool)
	if f.fs != nil {
		f.fs.Visit(func(fl *flag.Flag) { given[fl.Name] = true })
	}
	return given
}

// apply applies CLI flag overrides to the config. Numeric flags that were
// given override the config even when out of range, so Validate rejects them.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	given := f.set()
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.Method != "" {
		cfg.Simplify.Method = *f.Method
	}
	if given["ratio"] {
		cfg.Simplify.ReductionRatio = *f.Ratio
	}
	if given["cell"] {
		cfg.Simplify.CellLength = *f.Cell
	}
	if *f.Relative {
		cfg.Simplify.RelativeCellLength = true
	}
	if given["workers"] {
		cfg.Simplify.Workers = *f.Workers
		cfg.Batch.Workers = *f.Workers
	}
	if *f.OutDir != "" {
		cfg.Output.Dir = *f.OutDir
	}
	if *f.LogFile != "" {
		cfg.Logging.LogFile = *f.LogFile
	}
}
