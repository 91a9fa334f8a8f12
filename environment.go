package profiles

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-profiles/layering"
)

// PropertySource is a named, flat key/value layer. Position in the
// Environment, not Level, decides precedence; Level only orders sources when
// an Environment is assembled.
type PropertySource struct {
	Name   string
	Level  layering.Level
	Values map[string]string
}

// NewPropertySource builds a source with a detached copy of values.
func NewPropertySource(name string, level layering.Level, values map[string]string) PropertySource {
	return PropertySource{
		Name:   name,
		Level:  level,
		Values: copyValues(values),
	}
}

// NewMapPropertySource flattens a nested document (decoded JSON or YAML) into
// a source using dotted keys.
func NewMapPropertySource(name string, level layering.Level, document map[string]any) PropertySource {
	return PropertySource{
		Name:   name,
		Level:  level,
		Values: layering.Flatten("", document),
	}
}

// Property returns the raw value for key.
func (s PropertySource) Property(key string) (string, bool) {
	value, ok := s.Values[key]
	return value, ok
}

func (s PropertySource) clone() PropertySource {
	return PropertySource{
		Name:   s.Name,
		Level:  s.Level,
		Values: copyValues(s.Values),
	}
}

var (
	// ErrSourceNameRequired indicates a property source without a name.
	ErrSourceNameRequired = errors.New("profiles: property source name must be provided")
	// ErrDuplicateSourceName indicates a property source name already in use.
	ErrDuplicateSourceName = errors.New("profiles: property source names must be unique")
	// ErrSealed indicates a mutation after bootstrap completed.
	ErrSealed = errors.New("profiles: environment is sealed")
)

// Environment holds the active profiles and the ordered property sources of
// one process, strongest source first. It is mutated only during bootstrap;
// after Seal it is read-only and safe for concurrent readers.
type Environment struct {
	mu       sync.RWMutex
	active   []string
	defaults []string
	sources  []PropertySource
	sealed   bool
}

// EnvironmentOption configures Environment construction.
type EnvironmentOption func(*environmentConfig)

type environmentConfig struct {
	active   []string
	defaults []string
	sources  []PropertySource
}

// WithActiveProfiles pre-activates profiles, typically from configuration or
// command-line flags. Blank and duplicate entries are dropped.
func WithActiveProfiles(profiles ...string) EnvironmentOption {
	return func(cfg *environmentConfig) {
		cfg.active = append(cfg.active, profiles...)
	}
}

// WithDefaultProfiles sets the profiles accepted when none are active.
func WithDefaultProfiles(profiles ...string) EnvironmentOption {
	return func(cfg *environmentConfig) {
		cfg.defaults = append(cfg.defaults, profiles...)
	}
}

// WithPropertySources adds sources; the environment orders them strongest
// level first, keeping the given order between peers.
func WithPropertySources(sources ...PropertySource) EnvironmentOption {
	return func(cfg *environmentConfig) {
		cfg.sources = append(cfg.sources, sources...)
	}
}

// NewEnvironment validates sources and returns a mutable environment.
func NewEnvironment(opts ...EnvironmentOption) (*Environment, error) {
	cfg := environmentConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	env := &Environment{
		active:   normalizeProfiles(cfg.active),
		defaults: normalizeProfiles(cfg.defaults),
	}

	ordered := layering.Order(cfg.sources, func(s PropertySource) layering.Level { return s.Level })
	if len(ordered) != len(cfg.sources) {
		return nil, fmt.Errorf("profiles: property sources must declare a level")
	}
	for _, source := range ordered {
		if err := env.insert(len(env.sources), source); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// ActiveProfiles returns a copy of the active profiles in activation order.
func (e *Environment) ActiveProfiles() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.active)
}

// DefaultProfiles returns a copy of the default profiles.
func (e *Environment) DefaultProfiles() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.defaults)
}

// AddActiveProfile activates profile. Activating an already active profile is
// a no-op.
func (e *Environment) AddActiveProfile(profile string) error {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return fmt.Errorf("profiles: profile name must be provided")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sealed {
		return ErrSealed
	}
	if !slices.Contains(e.active, profile) {
		e.active = append(e.active, profile)
	}
	return nil
}

// AcceptsProfile reports whether profile is active, or whether it is a
// default profile while nothing is active.
func (e *Environment) AcceptsProfile(profile string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.active) > 0 {
		return slices.Contains(e.active, profile)
	}
	return slices.Contains(e.defaults, profile)
}

// PropertySources returns copies of the sources, strongest first.
func (e *Environment) PropertySources() []PropertySource {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]PropertySource, len(e.sources))
	for i := range e.sources {
		out[i] = e.sources[i].clone()
	}
	return out
}

// AddFirst inserts source at position 0 so it wins over every other source.
func (e *Environment) AddFirst(source PropertySource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sealed {
		return ErrSealed
	}
	return e.insert(0, source)
}

// AddLast appends source as the weakest layer.
func (e *Environment) AddLast(source PropertySource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sealed {
		return ErrSealed
	}
	return e.insert(len(e.sources), source)
}

func (e *Environment) insert(index int, source PropertySource) error {
	if strings.TrimSpace(source.Name) == "" {
		return ErrSourceNameRequired
	}
	for i := range e.sources {
		if e.sources[i].Name == source.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateSourceName, source.Name)
		}
	}
	e.sources = slices.Insert(e.sources, index, source.clone())
	return nil
}

// Property returns the value for key from the strongest source defining it.
func (e *Environment) Property(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := range e.sources {
		if value, ok := e.sources[i].Values[key]; ok {
			return value, true
		}
	}
	return "", false
}

// PropertyOr returns the value for key or fallback when no source defines it.
func (e *Environment) PropertyOr(key, fallback string) string {
	if value, ok := e.Property(key); ok {
		return value
	}
	return fallback
}

// PropertyList splits a comma-delimited property into trimmed, non-empty
// entries.
func (e *Environment) PropertyList(key string) []string {
	value, ok := e.Property(key)
	if !ok {
		return nil
	}
	return splitList(value)
}

// PropertyWithTrace reports how every source contributed to key.
func (e *Environment) PropertyWithTrace(key string) Trace {
	e.mu.RLock()
	defer e.mu.RUnlock()
	trace := Trace{Key: key, Sources: make([]Provenance, 0, len(e.sources))}
	for i := range e.sources {
		value, ok := e.sources[i].Values[key]
		trace.Sources = append(trace.Sources, Provenance{
			Source: e.sources[i].Name,
			Level:  e.sources[i].Level.String(),
			Value:  value,
			Found:  ok,
		})
	}
	return trace
}

// Effective merges all sources into one flat map honouring precedence.
func (e *Environment) Effective() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	layers := make([]map[string]string, len(e.sources))
	for i := range e.sources {
		layers[i] = e.sources[i].Values
	}
	return layering.Merge(layers...)
}

// Seal freezes the environment. Subsequent mutations return ErrSealed.
func (e *Environment) Seal() {
	e.mu.Lock()
	e.sealed = true
	e.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (e *Environment) Sealed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sealed
}

func normalizeProfiles(profiles []string) []string {
	out := make([]string, 0, len(profiles))
	for _, profile := range profiles {
		for _, entry := range splitList(profile) {
			if !slices.Contains(out, entry) {
				out = append(out, entry)
			}
		}
	}
	return out
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func copyValues(origin map[string]string) map[string]string {
	out := make(map[string]string, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
