package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/minhdang/bpagent/internal/core/errs"
)

// defaultSearchPaths are tried in order when no explicit path is given.
var defaultSearchPaths = []string{
	"./config.yaml",
	"./config.yml",
	"~/.bpagent/config.yaml",
	"/etc/bpagent/config.yaml",
}

// Load reads configuration, layering file values and then BP_AGENT_*
// environment variables over the defaults. An explicit path that cannot be
// read is an error; absent default-location files are not.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return nil, err
		}
	} else {
		for _, candidate := range defaultSearchPaths {
			expanded := ExpandHome(candidate)
			if _, err := os.Stat(expanded); err != nil {
				continue
			}
			if err := loadFile(&cfg, expanded); err != nil {
				return nil, err
			}
			break
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Config(fmt.Sprintf("failed to read config file %s: %v", path, err), "", "")
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return errs.Config(fmt.Sprintf("failed to parse config file %s: %v", path, err), "", "")
	}
	return nil
}

// applyEnv overlays BP_AGENT_* environment variables.
func applyEnv(cfg *AppConfig) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else if secs, err := strconv.Atoi(v); err == nil {
				// Bare integers are seconds.
				*dst = time.Duration(secs) * time.Second
			}
		}
	}

	setString("BP_AGENT_API_HOST", &cfg.API.Host)
	setString("BP_AGENT_API_USERNAME", &cfg.API.Username)
	setString("BP_AGENT_API_PASSWORD", &cfg.API.Password)
	setBool("BP_AGENT_API_VERIFY_SSL", &cfg.API.VerifySSL)
	setDuration("BP_AGENT_API_TIMEOUT", &cfg.API.Timeout)

	setBool("BP_AGENT_CACHE_ENABLED", &cfg.Cache.Enabled)
	setBool("BP_AGENT_CACHE_COMPRESSION", &cfg.Cache.Compression)
	setString("BP_AGENT_CACHE_DIR", &cfg.Cache.Dir)
	setDuration("BP_AGENT_CACHE_TTL", &cfg.Cache.TTL)

	setString("BP_AGENT_LOGGING_LEVEL", &cfg.Logging.Level)
}

// Validate checks invariants the rest of the agent relies on.
func (c *AppConfig) Validate() error {
	if c.API.Timeout <= 0 {
		return errs.Config("api timeout must be positive", "api", "timeout")
	}
	if c.API.Retries < 0 {
		return errs.Config("api retries must not be negative", "api", "retries")
	}
	if c.Cache.TTL < 0 {
		return errs.Config("cache ttl must not be negative", "cache", "ttl")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errs.Config(fmt.Sprintf("unknown logging level %q", c.Logging.Level), "logging", "level")
	}
	return nil
}
