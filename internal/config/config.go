// Package config loads the YAML run configuration of the hicnorm command.
package config

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/hicnorm/balance"
	"github.com/arloliu/hicnorm/cutoff"
	"github.com/arloliu/hicnorm/format"
	"github.com/arloliu/hicnorm/spill"
)

// Config is the full run configuration.
// Every key must be listed here; unknown keys are rejected when loading.
type Config struct {
	Resolution int           `yaml:"resolution"`
	Bins       int           `yaml:"bins"` // 0 sizes the matrix from the data
	Balance    BalanceConfig `yaml:"balance"`
	Cutoff     CutoffConfig  `yaml:"cutoff"`
	Spill      SpillConfig   `yaml:"spill"`
}

// BalanceConfig holds the balancer parameters.
type BalanceConfig struct {
	Tolerance       float64 `yaml:"tolerance"`
	Percentile      float64 `yaml:"percentile"`
	MaxIterations   int     `yaml:"max_iterations"`
	TotalIterations int     `yaml:"total_iterations"`
	StallDelta      float64 `yaml:"stall_delta"`
	EscalationStep  float64 `yaml:"escalation_step"`
	Threads         int     `yaml:"threads"`
}

// CutoffConfig controls the degree cutoff table. Levels are lower-tail
// probabilities of the fitted degree distribution.
type CutoffConfig struct {
	Enabled    bool    `yaml:"enabled"`
	StartLevel float64 `yaml:"start_level"`
	DeltaLevel float64 `yaml:"delta_level"`
	MaxLevel   float64 `yaml:"max_level"`
}

// SpillConfig controls out-of-core aggregation. An empty Dir keeps everything in memory.
type SpillConfig struct {
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"`
	MemoryLimit int    `yaml:"memory_limit"`
	FileLimit   int    `yaml:"file_limit"`
	Keep        bool   `yaml:"keep"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Resolution: 1,
		Balance: BalanceConfig{
			Tolerance:       balance.DefaultTolerance,
			Percentile:      balance.DefaultPercentile,
			MaxIterations:   balance.DefaultMaxIterations,
			TotalIterations: balance.DefaultTotalIterations,
			StallDelta:      balance.DefaultStallDelta,
			EscalationStep:  balance.DefaultEscalationStep,
			Threads:         runtime.NumCPU(),
		},
		Cutoff: CutoffConfig{
			StartLevel: 0.01,
			DeltaLevel: 0.005,
			MaxLevel:   balance.PercentileCeiling,
		},
		Spill: SpillConfig{
			Compression: "none",
			MemoryLimit: 5_000_000,
			FileLimit:   1_000_000,
		},
	}
}

// Load reads path on top of Default. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the fields that are not validated by the components themselves.
func (c *Config) Validate() error {
	if c.Resolution < 1 {
		return fmt.Errorf("resolution must be positive, got %d", c.Resolution)
	}
	if c.Bins < 0 {
		return fmt.Errorf("bins must not be negative, got %d", c.Bins)
	}
	if _, err := format.ParseCompression(c.Spill.Compression); err != nil {
		return fmt.Errorf("spill: %w", err)
	}
	if c.Spill.Dir != "" && (c.Spill.MemoryLimit < 1 || c.Spill.FileLimit < 1) {
		return fmt.Errorf("spill: memory_limit and file_limit must be positive")
	}
	if _, err := balance.NewBalancer(c.BalancerOptions()...); err != nil {
		return fmt.Errorf("balance: %w", err)
	}

	return nil
}

// BalancerOptions converts the balance section into balancer options.
func (c *Config) BalancerOptions() []balance.Option {
	b := c.Balance

	return []balance.Option{
		balance.WithTolerance(b.Tolerance),
		balance.WithPercentile(b.Percentile),
		balance.WithMaxIterations(b.MaxIterations),
		balance.WithTotalIterations(b.TotalIterations),
		balance.WithStallDelta(b.StallDelta),
		balance.WithEscalationStep(b.EscalationStep),
		balance.WithThreads(b.Threads),
	}
}

// CutoffTable builds the degree cutoff table, or returns nil when disabled.
func (c *Config) CutoffTable(degrees []int) (cutoff.Table, error) {
	if !c.Cutoff.Enabled {
		return nil, nil
	}

	stats := cutoff.ComputeStatistics(slices.Values(degrees))

	return cutoff.BuildTable(stats, c.Cutoff.StartLevel, c.Cutoff.DeltaLevel, c.Cutoff.MaxLevel)
}

// SpillCompression returns the parsed spill compression.
func (c *Config) SpillCompression() format.CompressionType {
	compression, _ := format.ParseCompression(c.Spill.Compression)
	return compression
}

// SpillOptions returns the writer options of the spill section.
func (c *Config) SpillOptions() []spill.WriterOption {
	return []spill.WriterOption{
		spill.WithPrefix("hicnorm"),
		spill.WithCompression(c.SpillCompression()),
	}
}
