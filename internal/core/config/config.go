// Package config loads and validates agent configuration from YAML files
// and BP_AGENT_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API      APIConfig      `yaml:"api"`
	Cache    CacheConfig    `yaml:"cache"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig holds Breaking Point API client settings.
type APIConfig struct {
	Host       string        `yaml:"host"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	Timeout    time.Duration `yaml:"timeout"`
	VerifySSL  bool          `yaml:"verify_ssl"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled     bool          `yaml:"enabled"`
	TTL         time.Duration `yaml:"ttl"`
	Dir         string        `yaml:"dir"`
	Compression bool          `yaml:"compression"`
}

// AnalyzerConfig holds report and chart generation settings.
type AnalyzerConfig struct {
	DefaultReportType   string `yaml:"default_report_type"`
	DefaultOutputFormat string `yaml:"default_output_format"`
	ReportsDir          string `yaml:"reports_dir"`
	ChartsDir           string `yaml:"charts_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration the agent runs with when no file or
// environment overrides are present. Load unmarshals on top of this, so
// absent keys keep their defaults.
func Default() AppConfig {
	return AppConfig{
		API: APIConfig{
			Host:       "localhost",
			Timeout:    60 * time.Second,
			Retries:    3,
			RetryDelay: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:     true,
			TTL:         1 * time.Hour,
			Dir:         "~/.bpagent/cache",
			Compression: false,
		},
		Analyzer: AnalyzerConfig{
			DefaultReportType:   "standard",
			DefaultOutputFormat: "html",
			ReportsDir:          "./reports",
			ChartsDir:           "./charts",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ExpandHome resolves a leading ~/ against the user home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
