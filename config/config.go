// Package config provides the run configuration of the block optimizer.
//
// Settings come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and QUADOPT_* environment variables. Command-line flags
// are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/quadopt/dag"
)

// Environment variables that override the file.
const (
	EnvInput    = "QUADOPT_INPUT"
	EnvOutput   = "QUADOPT_OUTPUT"
	EnvDAG      = "QUADOPT_DAG"
	EnvVerify   = "QUADOPT_VERIFY"
	EnvTrials   = "QUADOPT_TRIALS"
	EnvLog      = "QUADOPT_LOG"
	EnvLogLevel = "QUADOPT_LOG_LEVEL"
)

// Config holds everything a run needs.
type Config struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	DAG    string `yaml:"dag"`

	// Verify checks every optimized block against its original on Trials
	// randomized inputs derived from Seed.
	Verify bool  `yaml:"verify"`
	Trials int   `yaml:"trials"`
	Seed   int64 `yaml:"seed"`

	// Log is the JSON log file; empty means stderr.
	Log      string `yaml:"log"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Input:    "quick_ext.json",
		Output:   "blkopt.json",
		DAG:      "DAG.txt",
		Trials:   32,
		Seed:     1,
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults and then applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return c, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()

		if err := c.Decode(f); err != nil {
			return c, err
		}
	}

	c.ApplyEnv()

	return c, c.Validate()
}

// Decode reads YAML settings into c. Unknown keys are an error.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides c with any QUADOPT_* variables that are set.
func (c *Config) ApplyEnv() {
	c.Input = env.Str(EnvInput, c.Input)
	c.Output = env.Str(EnvOutput, c.Output)
	c.DAG = env.Str(EnvDAG, c.DAG)
	if env.Has(EnvVerify) {
		c.Verify = env.Bool(EnvVerify)
	}
	c.Trials = env.Int(EnvTrials, c.Trials)
	c.Log = env.Str(EnvLog, c.Log)
	c.LogLevel = env.Str(EnvLogLevel, c.LogLevel)
}

// Validate rejects settings no run can use.
func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("config: input file not set")
	}
	if c.Verify && c.Trials <= 0 {
		return fmt.Errorf("config: verify needs a positive trial count, got %d", c.Trials)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level. "trace" selects the level
// used for per-block traces.
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "trace") {
		return dag.LevelTrace, nil
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: %w", err)
	}
	return l, nil
}
