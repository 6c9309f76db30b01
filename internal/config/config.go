package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jward/usemerge/internal/merge"
)

// Config holds the complete application configuration.
type Config struct {
	Merge    MergeConfig `mapstructure:"merge"`
	DB       string      `mapstructure:"db"`       // index database path, empty for <repo>/.usemerge/index.db
	Parallel bool        `mapstructure:"parallel"` // parse files on a worker pool
	Workers  int         `mapstructure:"workers"`  // pool size, 0 for GOMAXPROCS
	Scripts  string      `mapstructure:"scripts"`  // directory searched by `script` imports
	Log      LogConfig   `mapstructure:"log"`
}

// MergeConfig holds merge engine settings.
type MergeConfig struct {
	Policy string `mapstructure:"policy"` // one, crate or module
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix is prepended to environment overrides, e.g. USEMERGE_MERGE_POLICY.
const EnvPrefix = "USEMERGE"

// FileName is the config file searched for in the repository root.
const FileName = ".usemerge"

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("merge.policy", string(merge.Crate))
	v.SetDefault("db", "")
	v.SetDefault("parallel", true)
	v.SetDefault("workers", 0)
	v.SetDefault("scripts", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

// NewViper returns a viper instance with defaults, environment binding and,
// when found, the config file loaded. cfgFile takes precedence over searching
// dirs for FileName.yaml. A missing config file is not an error.
func NewViper(cfgFile string, dirs ...string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile == "" && len(dirs) == 0 {
		return v, nil
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := merge.ParsePolicy(c.Merge.Policy); err != nil {
		return fmt.Errorf("config: merge.policy: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "text":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// Policy returns the validated merge policy.
func (c *Config) Policy() merge.Policy {
	p, _ := merge.ParsePolicy(c.Merge.Policy)
	return p
}
