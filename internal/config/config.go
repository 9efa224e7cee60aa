// Package config loads the feedcache CLI configuration: built-in defaults,
// then a TOML or YAML file, then FEEDCACHE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const envPrefix = "FEEDCACHE_"

const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendBigcache  = "bigcache"
	BackendRistretto = "ristretto"
)

type RemoteConfig struct {
	URL       string        `toml:"url" yaml:"url" env:"URL"`
	Timeout   time.Duration `toml:"timeout" yaml:"timeout" env:"TIMEOUT"`
	UserAgent string        `toml:"user_agent" yaml:"user_agent" env:"USER_AGENT"`
}

type CacheConfig struct {
	MaxAgeDays int `toml:"max_age_days" yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	// Location names the time zone whose calendar days are counted; empty
	// counts in the process's local zone.
	Location string `toml:"location" yaml:"location" env:"LOCATION"`
}

type StoreConfig struct {
	Backend string `toml:"backend" yaml:"backend" env:"BACKEND"`
	// Path of the cache file or SQLite database. Empty => under CacheDir().
	Path  string `toml:"path" yaml:"path" env:"PATH"`
	Codec string `toml:"codec" yaml:"codec" env:"CODEC"`
	// MaxDecodeBytes bounds snapshot payloads read back; 0 = unlimited.
	MaxDecodeBytes int `toml:"max_decode_bytes" yaml:"max_decode_bytes" env:"MAX_DECODE_BYTES"`

	RedisURL  string        `toml:"redis_url" yaml:"redis_url" env:"REDIS_URL"`
	Namespace string        `toml:"namespace" yaml:"namespace" env:"NAMESPACE"`
	TTL       time.Duration `toml:"ttl" yaml:"ttl" env:"TTL"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level" env:"LEVEL"`
	Format string `toml:"format" yaml:"format" env:"FORMAT"`
}

type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" env:"ADDR"`
	// ValidateOnStart runs cache validation before serving.
	ValidateOnStart bool `toml:"validate_on_start" yaml:"validate_on_start" env:"VALIDATE_ON_START"`
}

type Config struct {
	Remote RemoteConfig `toml:"remote" yaml:"remote" envPrefix:"REMOTE_"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache" envPrefix:"CACHE_"`
	Store  StoreConfig  `toml:"store" yaml:"store" envPrefix:"STORE_"`
	Log    LogConfig    `toml:"log" yaml:"log" envPrefix:"LOG_"`
	Server ServerConfig `toml:"server" yaml:"server" envPrefix:"SERVER_"`
}

func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			Timeout:   30 * time.Second,
			UserAgent: "feedcache",
		},
		Cache: CacheConfig{
			MaxAgeDays: 7,
		},
		Store: StoreConfig{
			Backend:   BackendFile,
			Codec:     "json",
			Namespace: "default",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ValidateOnStart: true,
		},
	}
}

// Load builds the configuration. An empty path reads ConfigFile() (or its
// .yaml sibling) when present; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = defaultFile()
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath(cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv applies FEEDCACHE_* variables onto target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func defaultFile() string {
	p := ConfigFile()
	if _, err := os.Stat(p); err == nil {
		return p
	}
	y := strings.TrimSuffix(p, ".toml") + ".yaml"
	if _, err := os.Stat(y); err == nil {
		return y
	}
	return ""
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml", "":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return fmt.Errorf("parsing config %s: unknown keys %v", path, undec)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("parsing config %s: unsupported extension %q", path, ext)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendBigcache, BackendRistretto:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: want one of file, sqlite, redis, bigcache, ristretto", c.Store.Backend))
	}
	if c.Cache.MaxAgeDays <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_age_days must be positive, got %d", c.Cache.MaxAgeDays))
	}
	if c.Cache.Location != "" {
		if _, err := time.LoadLocation(c.Cache.Location); err != nil {
			errs = append(errs, fmt.Errorf("cache.location: %w", err))
		}
	}
	if c.Remote.Timeout < 0 {
		errs = append(errs, errors.New("remote.timeout must not be negative"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want console or json", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
