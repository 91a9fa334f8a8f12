package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-profiles"
	"github.com/goliatone/go-profiles/layering"
)

const sampleConfig = `
server:
  port: 9090
  shutdown_timeout: 3s
profiles:
  active: ["cloud"]
  default: ["mysql"]
logging:
  level: debug
datasource:
  url: "postgres://music@localhost/music?sslmode=disable"
catalog:
  path: /srv/albums.json
properties:
  feature:
    shuffle: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithLookup("", lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "music", cfg.MongoDB.Database)
	assert.True(t, cfg.Activity.Enabled)
	assert.Empty(t, cfg.Profiles.Active)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := LoadWithLookup(path, lookupFrom(map[string]string{
		EnvProfilesActive: " redis , cloud",
		EnvRedisURL:       "redis://cache:6379/0",
		EnvLogLevel:       "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"redis", "cloud"}, cfg.Profiles.Active)
	assert.Equal(t, []string{"mysql"}, cfg.Profiles.Default)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "postgres://music@localhost/music?sslmode=disable", cfg.Datasource.URL)
	assert.Equal(t, "/srv/albums.json", cfg.Catalog.Path)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadWithLookup(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = LoadWithLookup(writeConfig(t, "server: [unclosed"), nil)
	require.Error(t, err)

	_, err = LoadWithLookup("", lookupFrom(map[string]string{EnvPort: "http"}))
	require.Error(t, err)

	_, err = LoadWithLookup(writeConfig(t, "server:\n  port: 70000\n"), nil)
	require.ErrorContains(t, err, "out of range")

	_, err = LoadWithLookup(writeConfig(t, "logging:\n  level: loud\n"), nil)
	require.ErrorContains(t, err, "logging level")
}

func TestEnvironmentSourceOrder(t *testing.T) {
	cfg, err := LoadWithLookup(writeConfig(t, sampleConfig), nil)
	require.NoError(t, err)

	platform := profiles.NewPropertySource("vcapServices", layering.LevelPlatform, map[string]string{
		"server.port":                                 "7000",
		"vcap.services.my-redis.credentials.password": "secret",
	})
	env, err := cfg.Environment(Sources{
		CommandLine: map[string]string{"server.port": "6000"},
		Environ:     []string{"SERVER_PORT=5000", "REDIS_URL=redis://env", "MALFORMED"},
		Platform:    []profiles.PropertySource{platform},
	})
	require.NoError(t, err)

	var names []string
	for _, source := range env.PropertySources() {
		names = append(names, source.Name)
	}
	assert.Equal(t, []string{SourceCommandLine, SourceSystemEnvironment, "vcapServices", SourceApplicationConfig, SourceDefaults}, names)

	port, _ := env.Property("server.port")
	assert.Equal(t, "6000", port)
	redis, _ := env.Property("redis.url")
	assert.Equal(t, "redis://env", redis)
	level, _ := env.Property("logging.level")
	assert.Equal(t, "debug", level)
	shuffle, _ := env.Property("feature.shuffle")
	assert.Equal(t, "true", shuffle)
	password, _ := env.Property("vcap.services.my-redis.credentials.password")
	assert.Equal(t, "secret", password)

	assert.Equal(t, []string{"cloud"}, env.ActiveProfiles())
	assert.Equal(t, []string{"mysql"}, env.DefaultProfiles())
}

func TestEnvironmentWithoutCommandLine(t *testing.T) {
	env, err := Default().Environment(Sources{})
	require.NoError(t, err)

	trace := env.PropertyWithTrace("server.port")
	winner, ok := trace.Winner()
	require.True(t, ok)
	assert.Equal(t, SourceApplicationConfig, winner.Source)
	assert.Equal(t, "8080", winner.Value)
	assert.Len(t, trace.Sources, 3)
}

func TestEnvironPropertiesRelaxedNames(t *testing.T) {
	got := EnvironProperties([]string{"MONGODB_URI=mongodb://x", "REDIS_URL=redis://x", "redis.url=explicit", "EMPTY=", "=nokey"})
	assert.Equal(t, "mongodb://x", got["MONGODB_URI"])
	assert.Equal(t, "mongodb://x", got["mongodb.uri"])
	assert.Equal(t, "explicit", got["redis.url"], "exact names win over relaxed ones")
	assert.Equal(t, "", got["EMPTY"])
	assert.NotContains(t, got, "")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MUSIC_DOTENV_PROBE=loaded\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("MUSIC_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("MUSIC_DOTENV_PROBE"))
}
