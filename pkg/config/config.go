// Package config loads procflow settings from a TOML file.
//
// The default location is $XDG_CONFIG_HOME/procflow/config.toml, falling
// back to ~/.config/procflow/config.toml. A missing file at the default
// location yields [Default]; command-line flags override loaded values.
//
// Example file:
//
//	[layout]
//	direction = "LR"
//	smart = true
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "12h"
//	namespace = "team-a"
//
//	[server]
//	addr = ":8080"
package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/layout"
)

const appName = "procflow"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the full configuration file.
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// LayoutConfig holds layout defaults.
type LayoutConfig struct {
	Direction  string  `toml:"direction"`
	Smart      bool    `toml:"smart"`
	NodeWidth  float64 `toml:"node_width"`
	NodeHeight float64 `toml:"node_height"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`       // file backend; empty means the XDG cache dir
	TTL           string `toml:"ttl"`       // caps entry lifetime, e.g. "12h"
	Namespace     string `toml:"namespace"` // key prefix for a shared backend
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// ServerConfig configures `procflow serve`.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	SessionTTL string `toml:"session_ttl"` // idle canvas sessions expire after this
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			Direction: string(layout.TopBottom),
			Smart:     true,
		},
		Cache: CacheConfig{
			Backend:   BackendFile,
			RedisAddr: "localhost:6379",
		},
		Server: ServerConfig{
			Addr:       ":8080",
			SessionTTL: "1h",
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the config at path. An empty path means [Path]; a missing
// file there is not an error. An explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "open config")
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses TOML from r on top of [Default] and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, perrors.New(perrors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field and normalizes the direction.
func (c *Config) Validate() error {
	dir, err := layout.ParseDirection(c.Layout.Direction)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "layout.direction")
	}
	c.Layout.Direction = string(dir)
	if c.Layout.NodeWidth < 0 || c.Layout.NodeHeight < 0 {
		return perrors.New(perrors.ErrCodeInvalidConfig, "layout node size must not be negative")
	}

	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return perrors.New(perrors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return perrors.New(perrors.ErrCodeInvalidConfig, "cache.backend %q: must be file, redis or none", c.Cache.Backend)
	}
	if _, err := parseDuration("cache.ttl", c.Cache.TTL); err != nil {
		return err
	}
	if _, err := parseDuration("server.session_ttl", c.Server.SessionTTL); err != nil {
		return err
	}
	return nil
}

// Direction returns the configured layout direction.
func (c Config) Direction() layout.Direction {
	dir, err := layout.ParseDirection(c.Layout.Direction)
	if err != nil {
		return layout.TopBottom
	}
	return dir
}

// CacheTTL returns the cache lifetime cap, or zero for none.
func (c Config) CacheTTL() time.Duration {
	d, _ := parseDuration("cache.ttl", c.Cache.TTL)
	return d
}

// SessionTTL returns the idle canvas session lifetime, or zero for none.
func (c Config) SessionTTL() time.Duration {
	d, _ := parseDuration("server.session_ttl", c.Server.SessionTTL)
	return d
}

// CacheDir returns the file cache directory: cache.dir if set, otherwise
// $XDG_CACHE_HOME/procflow or ~/.cache/procflow.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, perrors.New(perrors.ErrCodeInvalidConfig, "%s: invalid duration %q", key, s)
	}
	return d, nil
}
