package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-profiles"
	"github.com/goliatone/go-profiles/layering"
)

// Sources are the inputs beyond the configuration file that feed the
// environment.
type Sources struct {
	// CommandLine holds --set key=value overrides.
	CommandLine map[string]string
	// Environ is the process environment in KEY=VALUE form.
	Environ []string
	// Platform sources, such as the flattened VCAP_SERVICES document.
	Platform []profiles.PropertySource
}

// Environment assembles a profiles.Environment with sources ordered
// commandLineArgs, systemEnvironment, platform, applicationConfig, defaults.
func (c *Config) Environment(src Sources) (*profiles.Environment, error) {
	application, err := c.flatten()
	if err != nil {
		return nil, err
	}

	sources := []profiles.PropertySource{
		profiles.NewPropertySource(SourceDefaults, layering.LevelDefaults, Default().properties()),
		profiles.NewPropertySource(SourceApplicationConfig, layering.LevelApplicationConfig, application),
		profiles.NewPropertySource(SourceSystemEnvironment, layering.LevelSystemEnvironment, EnvironProperties(src.Environ)),
	}
	if len(src.CommandLine) > 0 {
		sources = append(sources, profiles.NewPropertySource(SourceCommandLine, layering.LevelCommandLine, src.CommandLine))
	}
	sources = append(sources, src.Platform...)

	env, err := profiles.NewEnvironment(
		profiles.WithActiveProfiles(c.Profiles.Active...),
		profiles.WithDefaultProfiles(c.Profiles.Default...),
		profiles.WithPropertySources(sources...),
	)
	if err != nil {
		return nil, fmt.Errorf("config: build environment: %w", err)
	}
	return env, nil
}

// flatten renders the configuration through its YAML form so property keys
// match the file layout (server.port, redis.url, ...). Properties are
// exposed at the root.
func (c *Config) flatten() (map[string]string, error) {
	shadow := *c
	shadow.Properties = nil
	raw, err := yaml.Marshal(&shadow)
	if err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	var document map[string]any
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return layering.Merge(
		layering.Flatten("", c.Properties),
		layering.Flatten("", document),
	), nil
}

func (c *Config) properties() map[string]string {
	return map[string]string{
		"server.port":      strconv.Itoa(c.Server.Port),
		"logging.level":    c.Logging.Level,
		"mongodb.database": c.MongoDB.Database,
	}
}

// EnvironProperties maps KEY=VALUE pairs to properties. Every variable is
// exposed under its own name and under a relaxed name, lower-cased with
// underscores turned into dots (REDIS_URL also answers redis.url).
func EnvironProperties(environ []string) map[string]string {
	out := make(map[string]string, len(environ)*2)
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
		relaxed := strings.ToLower(strings.ReplaceAll(key, "_", "."))
		if _, exists := out[relaxed]; !exists {
			out[relaxed] = value
		}
	}
	return out
}
