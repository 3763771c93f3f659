package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for the patch engine and its CLI.
type Config struct {
	// Security limits enforced by the container reader before any text
	// from the document is processed.
	MaxEntryBytes int64 `mapstructure:"max_entry_bytes"`
	MaxTotalBytes int64 `mapstructure:"max_total_bytes"`

	// MaxReplaceIterations is a safety net for the replace-all loop. The
	// loop terminates on its own by advancing past inserted text; the cap
	// only guards against pathological documents.
	MaxReplaceIterations int `mapstructure:"max_replace_iterations"`

	// ContextWindow is the number of bytes searched on either side of a
	// matched context string when resolving a contextual value replace.
	ContextWindow int `mapstructure:"context_window"`

	// MaxLogSnippet bounds the length of target snippets quoted in
	// per-operation outcome log lines.
	MaxLogSnippet int `mapstructure:"max_log_snippet"`

	Planner PlannerConfig `mapstructure:"planner"`

	Debug bool `mapstructure:"debug"`
}

// PlannerConfig configures the OpenAI-compatible endpoint used by the
// plan command to turn an instruction into change operations.
type PlannerConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load reads configuration from the given path, or from the default
// search locations (~/.docpatch.yaml, ./.docpatch.yaml) when path is empty.
// A missing config file is not an error; defaults are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".docpatch")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DOCPATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return Default(), nil
		}
		if path != "" {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to path (default ~/.docpatch.yaml).
func Save(cfg *Config, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".docpatch.yaml")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("max_entry_bytes", cfg.MaxEntryBytes)
	v.Set("max_total_bytes", cfg.MaxTotalBytes)
	v.Set("max_replace_iterations", cfg.MaxReplaceIterations)
	v.Set("context_window", cfg.ContextWindow)
	v.Set("max_log_snippet", cfg.MaxLogSnippet)
	v.Set("planner", cfg.Planner)
	v.Set("debug", cfg.Debug)

	return v.WriteConfigAs(path)
}

func setDefaults(cfg *Config) {
	if cfg.MaxEntryBytes <= 0 {
		cfg.MaxEntryBytes = 10 * 1024 * 1024
	}
	if cfg.MaxTotalBytes <= 0 {
		cfg.MaxTotalBytes = 50 * 1024 * 1024
	}
	if cfg.MaxReplaceIterations <= 0 {
		cfg.MaxReplaceIterations = 1000
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 200
	}
	if cfg.MaxLogSnippet <= 0 {
		cfg.MaxLogSnippet = 60
	}
	if cfg.Planner.Model == "" {
		cfg.Planner.Model = "gpt-4o-mini"
	}
	if cfg.Planner.Temperature == 0 {
		cfg.Planner.Temperature = 0.1
	}
	if cfg.Planner.MaxTokens == 0 {
		cfg.Planner.MaxTokens = 4096
	}
	if cfg.Planner.APIKey == "" {
		cfg.Planner.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func validate(cfg *Config) error {
	if cfg.MaxEntryBytes > cfg.MaxTotalBytes {
		return fmt.Errorf("max_entry_bytes (%d) must not exceed max_total_bytes (%d)",
			cfg.MaxEntryBytes, cfg.MaxTotalBytes)
	}
	return nil
}
