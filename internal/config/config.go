package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "B3SUM"

// Environments select the logger configuration.
const (
	EnvironmentProd = "prod"
	EnvironmentDev  = "dev"
	EnvironmentTest = "test"
)

var (
	ErrConflictingModes = errors.New("--keyed and --derive-key are mutually exclusive")
	ErrNegativeLength   = errors.New("--length cannot be negative")
	ErrNumThreads       = errors.New("--num-threads must be at least 1")
)

// Config holds the b3sum settings, merged from flags and B3SUM_* environment
// variables.
type Config struct {
	Length      int    `mapstructure:"length"`
	NumThreads  int    `mapstructure:"num_threads"`
	Keyed       bool   `mapstructure:"keyed"`
	DeriveKey   string `mapstructure:"derive_key"`
	NoNames     bool   `mapstructure:"no_names"`
	Raw         bool   `mapstructure:"raw"`
	Check       bool   `mapstructure:"check"`
	Progress    bool   `mapstructure:"progress"`
	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"environment"`
}

// NewViper returns a viper instance that reads B3SUM_* environment variables
// and the given flags. Flag names have their hyphens replaced with underscores
// to form keys, so --num-threads may also be set with B3SUM_NUM_THREADS.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(
		`-`, `_`, // convert hyphens to underscores
		`.`, `_`, // convert dots to underscores
	))
	v.AutomaticEnv()

	v.SetDefault("environment", EnvironmentProd)
	v.SetDefault("log_level", "warn")

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		}
	})
	return v, err
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot be combined or are out of range.
func (c *Config) Validate() error {
	switch {
	case c.Keyed && c.DeriveKey != "":
		return ErrConflictingModes
	case c.Length < 0:
		return ErrNegativeLength
	case c.NumThreads < 1:
		return ErrNumThreads
	}
	switch c.Environment {
	case EnvironmentProd, EnvironmentDev, EnvironmentTest:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	return nil
}
