// Package config loads the engine's run-time option surface from an
// optional gensynth.config.json and GENSYNTH_-prefixed environment
// variables, merged with viper. Command-line flags and .env files are
// applied by package cmd, not here.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the on-disk/CLI-merged engine option surface, before it is
// translated into engine.Options (which also carries run-derived fields
// like the seed actually used).
type Config struct {
	OutDir              string `json:"out_dir" mapstructure:"out_dir"`
	Strict              bool   `json:"strict" mapstructure:"strict"`
	MaxAttemptsCell     int    `json:"max_attempts_cell" mapstructure:"max_attempts_cell"`
	MaxAttemptsRow      int    `json:"max_attempts_row" mapstructure:"max_attempts_row"`
	MaxAttemptsTable    int    `json:"max_attempts_table" mapstructure:"max_attempts_table"`
	AutoGenerateParents bool   `json:"auto_generate_parents" mapstructure:"auto_generate_parents"`
	OutputFormat        string `json:"output_format" mapstructure:"output_format"`
	ConstraintPolicy    string `json:"constraint_policy" mapstructure:"constraint_policy"`
	DatabaseURLEnv      string `json:"database_url_env" mapstructure:"database_url_env"`
}

// Load reads gensynth.config.json (if present) merged with environment
// variables under the GENSYNTH_ prefix, and fills in the documented
// defaults.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName("gensynth.config")
	}
	viper.SetEnvPrefix("GENSYNTH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("config: reading %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if cfg.OutDir == "" {
		cfg.OutDir = "gensynth_out"
	}
	if cfg.MaxAttemptsCell == 0 {
		cfg.MaxAttemptsCell = 50
	}
	if cfg.MaxAttemptsRow == 0 {
		cfg.MaxAttemptsRow = 20
	}
	if cfg.MaxAttemptsTable == 0 {
		cfg.MaxAttemptsTable = 100000
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "csv"
	}
	if cfg.ConstraintPolicy == "" {
		cfg.ConstraintPolicy = "enforce"
	}
	if cfg.DatabaseURLEnv == "" {
		cfg.DatabaseURLEnv = "DATABASE_URL"
	}

	return &cfg, nil
}

// Validate rejects option combinations the engine cannot act on.
func (c *Config) Validate() error {
	if c.OutputFormat != "csv" {
		return fmt.Errorf("config: unsupported output_format %q, only \"csv\" is implemented", c.OutputFormat)
	}
	switch c.ConstraintPolicy {
	case "enforce", "warn", "ignore":
	default:
		return fmt.Errorf("config: unsupported constraint_policy %q", c.ConstraintPolicy)
	}
	if c.OutDir == "" {
		return fmt.Errorf("config: out_dir cannot be empty")
	}
	return nil
}

// DatabaseURL reads the connection string named by DatabaseURLEnv.
func (c *Config) DatabaseURL() (string, error) {
	url := os.Getenv(c.DatabaseURLEnv)
	if url == "" {
		return "", fmt.Errorf("config: database URL not found in environment variable %s", c.DatabaseURLEnv)
	}
	return url, nil
}
