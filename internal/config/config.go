// Package config handles meshsimp configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/meshsimp/pkg/simplify"
)

// Simplification methods.
const (
	MethodCollapse = "collapse"
	MethodCluster  = "cluster"
)

// Config holds all tool settings.
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Output   OutputConfig   `yaml:"output"`
	Batch    BatchConfig    `yaml:"batch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SimplifyConfig holds decimation parameters.
//
// ReductionRatio is the edge collapse face target in (0, 1]. CellLength is
// the clustering grid cell side, or a fraction of the mesh's largest bounding
// box side when RelativeCellLength is set. Workers applies to the clustering
// quadric pass.
type SimplifyConfig struct {
	Method             string  `yaml:"method"`
	ReductionRatio     float64 `yaml:"reduction_ratio"`
	CellLength         float64 `yaml:"cell_length"`
	RelativeCellLength bool    `yaml:"relative_cell_length"`
	Workers            int     `yaml:"workers"`
}

// OutputConfig controls where simplified meshes are written.
type OutputConfig struct {
	Dir            string `yaml:"dir"` // empty writes next to the input
	SuffixCollapse string `yaml:"suffix_collapse"`
	SuffixCluster  string `yaml:"suffix_cluster"`
}

// BatchConfig holds settings for multi-file runs.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			Method:         MethodCollapse,
			ReductionRatio: 0.5,
			CellLength:     0.05,
			Workers:        1,
		},
		Output: OutputConfig{
			SuffixCollapse: "_ec",
			SuffixCluster:  "_vc",
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate checks the settings that would otherwise fail inside a run.
func (c *Config) Validate() error {
	switch c.Simplify.Method {
	case MethodCollapse, MethodCluster:
	default:
		return fmt.Errorf("%w: unknown method %q", simplify.ErrConfig, c.Simplify.Method)
	}
	if err := simplify.ValidateRatio(c.Simplify.ReductionRatio); err != nil {
		return err
	}
	// Absolute lengths get their full range check once the mesh is known.
	if !(c.Simplify.CellLength >= simplify.MinCellLength) {
		return fmt.Errorf("%w: got %v", simplify.ErrInvalidCellLength, c.Simplify.CellLength)
	}
	if c.Simplify.Workers < 1 {
		return fmt.Errorf("%w: simplify workers must be at least 1, got %d", simplify.ErrConfig, c.Simplify.Workers)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("%w: batch workers must be at least 1, got %d", simplify.ErrConfig, c.Batch.Workers)
	}
	return nil
}

// Suffix returns the output file suffix for the configured method.
func (c *Config) Suffix() string {
	if c.Simplify.Method == MethodCluster {
		return c.Output.SuffixCluster
	}
	return c.Output.SuffixCollapse
}
