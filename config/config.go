// Package config loads the music service configuration and turns it into
// the ordered property sources of a profiles.Environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variable overrides.
const (
	EnvProfilesActive = "APP_PROFILES_ACTIVE"
	EnvPort           = "PORT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvDatasourceURL  = "DATASOURCE_URL"
	EnvRedisURL       = "REDIS_URL"
	EnvMongoDBURI     = "MONGODB_URI"
)

// Property source names, strongest first.
const (
	SourceCommandLine       = "commandLineArgs"
	SourceSystemEnvironment = "systemEnvironment"
	SourceApplicationConfig = "applicationConfig"
	SourceDefaults          = "defaults"
)

// Config holds the service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Profiles   ProfilesConfig   `yaml:"profiles"`
	Logging    LoggingConfig    `yaml:"logging"`
	Datasource DatasourceConfig `yaml:"datasource"`
	Redis      RedisConfig      `yaml:"redis"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Activity   ActivityConfig   `yaml:"activity"`
	// Properties are free-form keys exposed through the environment as-is.
	Properties map[string]any `yaml:"properties,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProfilesConfig lists profiles activated before bootstrap.
type ProfilesConfig struct {
	Active  []string `yaml:"active"`
	Default []string `yaml:"default"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DatasourceConfig overrides the relational connection.
type DatasourceConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig overrides the cache-store connection.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// MongoDBConfig overrides the document-store connection.
type MongoDBConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// CatalogConfig points the populator at a catalog file. Empty means the
// bundled catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// ActivityConfig controls bootstrap activity emission.
type ActivityConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		MongoDB: MongoDBConfig{
			Database: "music",
		},
		Activity: ActivityConfig{
			Enabled: true,
			Channel: "profiles",
		},
	}
}

// Load reads configuration from path and applies environment overrides from
// the process environment.
func Load(path string) (*Config, error) {
	return LoadWithLookup(path, os.LookupEnv)
}

// LoadWithLookup is Load with an explicit environment lookup.
func LoadWithLookup(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // path is supplied by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	get := func(key string) string {
		value, _ := lookup(key)
		return strings.TrimSpace(value)
	}

	if val := get(EnvProfilesActive); val != "" {
		cfg.Profiles.Active = strings.Split(val, ",")
	}
	if val := get(EnvPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not a number", EnvPort, val)
		}
		cfg.Server.Port = port
	}
	if val := get(EnvLogLevel); val != "" {
		cfg.Logging.Level = val
	}
	if val := get(EnvDatasourceURL); val != "" {
		cfg.Datasource.URL = val
	}
	if val := get(EnvRedisURL); val != "" {
		cfg.Redis.URL = val
	}
	if val := get(EnvMongoDBURI); val != "" {
		cfg.MongoDB.URI = val
	}
	return nil
}

// Validate checks the configuration and normalises profile lists.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server shutdown_timeout must not be negative")
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	c.Profiles.Active = trimAll(c.Profiles.Active)
	c.Profiles.Default = trimAll(c.Profiles.Default)
	return nil
}

func trimAll(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
