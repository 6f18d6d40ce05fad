// Package config handles configuration loading and validation for
// CodeGrapher.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".codegrapher"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
)

// Config holds all configuration for CodeGrapher.
type Config struct {
	// Project describes the Python tree to analyze.
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	// Analysis tunes call-graph traversal.
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	// Summaries configures the optional AI summarization pass.
	Summaries SummariesConfig `mapstructure:"summaries" yaml:"summaries"`
	// Server configures the HTTP boundary.
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// ProjectConfig describes the project to analyze.
type ProjectConfig struct {
	// Root is the project directory to index.
	Root string `mapstructure:"root" yaml:"root"`
	// EntryFile is the analysis entry point, relative to Root.
	EntryFile string `mapstructure:"entry_file" yaml:"entry_file"`
	// EntryFunc is the function to start from; empty means every
	// top-level definition of EntryFile.
	EntryFunc string `mapstructure:"entry_func" yaml:"entry_func"`
	// Exclude lists glob patterns skipped during indexing, on top of
	// .gitignore.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// AnalysisConfig tunes graph construction.
type AnalysisConfig struct {
	// MaxDepth caps traversal depth from the entry point.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// MaxNodes caps the number of graph nodes.
	MaxNodes int `mapstructure:"max_nodes" yaml:"max_nodes"`
}

// SummariesConfig configures AI summarization. Summaries are skipped
// entirely when no API key is available.
type SummariesConfig struct {
	// Provider is the LLM provider name (currently "gemini").
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Model is the model identifier.
	Model string `mapstructure:"model" yaml:"model"`
	// APIKey authenticates against the provider. Usually set via the
	// CODEGRAPHER_SUMMARIES_API_KEY environment variable.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Concurrency bounds parallel summary requests.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// CacheDir is the on-disk summary cache location; empty disables
	// the disk tier.
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	// Listen is the host:port the HTTP server binds to.
	Listen string `mapstructure:"listen" yaml:"listen"`
	// Watch re-triggers analysis caching when project files change.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// A specific config file may be set via CLI flag (stored in the
	// global viper).
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CODEGRAPHER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults and env cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for an analysis run.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("project root is required")
	}
	if c.Project.EntryFile == "" {
		return fmt.Errorf("entry file is required")
	}
	if c.Analysis.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.Analysis.MaxDepth)
	}
	if c.Analysis.MaxNodes < 0 {
		return fmt.Errorf("max_nodes must not be negative, got %d", c.Analysis.MaxNodes)
	}
	if c.Summaries.Provider != "" && c.Summaries.Provider != "gemini" {
		return fmt.Errorf("summaries provider must be 'gemini', got %q", c.Summaries.Provider)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.exclude", []string{
		"venv",
		".venv",
		"node_modules",
		"__pycache__",
		"dist",
		"build",
	})

	v.SetDefault("analysis.max_depth", 10)
	v.SetDefault("analysis.max_nodes", 500)

	v.SetDefault("summaries.provider", "gemini")
	v.SetDefault("summaries.model", "gemini-1.5-flash")
	v.SetDefault("summaries.concurrency", 4)

	v.SetDefault("server.listen", "127.0.0.1:5000")
	v.SetDefault("server.watch", false)
}
