package cli

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/dmlopt/pkg/errors"
)

// Config is the optional TOML config file. Command-line flags take
// precedence over every field.
type Config struct {
	Parallelism int          `toml:"parallelism"`
	Format      string       `toml:"format"`
	Cache       CacheConfig  `toml:"cache"`
	Rules       RulesConfig  `toml:"rules"`
	Server      ServerConfig `toml:"server"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	// Expiry is a Go duration string such as "24h".
	Expiry string `toml:"ttl"`
}

// RulesConfig removes rules from the default catalog.
type RulesConfig struct {
	Disabled []string `toml:"disabled"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// TTL parses the cache expiry. Zero means the pipeline default.
func (c *Config) TTL() (time.Duration, error) {
	if c.Cache.Expiry == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.Expiry)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "cache.ttl: invalid duration %q", c.Cache.Expiry)
	}
	return d, nil
}

// loadConfig reads the config file at path. With an empty path the XDG
// default is tried and a missing file yields an empty config.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return &Config{}, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read config %s", path)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if _, err := cfg.TTL(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
