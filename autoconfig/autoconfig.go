// Package autoconfig builds the album repository of the resolved backing
// store. Each store family is an auto-wiring unit that stands down when
// its identifier is listed under the exclusion overlay.
package autoconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	profiles "github.com/goliatone/go-profiles"
	"github.com/goliatone/go-profiles/album"
)

// Connection properties consulted before binding credentials.
const (
	PropertyDatasourceURL = "datasource.url"
	PropertyRedisURL      = "redis.url"
	PropertyMongoURI      = "mongodb.uri"
	PropertyMongoDatabase = "mongodb.database"
)

var (
	// ErrNoRepository indicates every repository unit was excluded.
	ErrNoRepository = errors.New("autoconfig: no repository unit enabled")
	// ErrAmbiguousRepository indicates more than one repository unit survived
	// the exclusion overlay.
	ErrAmbiguousRepository = errors.New("autoconfig: more than one repository unit enabled")
	// ErrUnitIDRequired indicates a unit without an identifier.
	ErrUnitIDRequired = errors.New("autoconfig: unit id must be provided")
)

// PropertyResolver is the read side of a profiles.Environment.
type PropertyResolver interface {
	Property(key string) (string, bool)
	PropertyList(key string) []string
}

// Context carries what a unit needs to connect.
type Context struct {
	Properties PropertyResolver
	Result     profiles.Result
	Logger     zerolog.Logger
}

// Property returns the configured value for key, falling back to the named
// credential of the binding that selected the profile.
func (c Context) Property(key, credential string) string {
	if c.Properties != nil {
		if value, ok := c.Properties.Property(key); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	if c.Result.Source != nil && credential != "" {
		return c.Result.Source.Credential(credential)
	}
	return ""
}

// Store is a built repository together with its release function.
type Store struct {
	Unit       string
	Repository album.Repository
	close      func(context.Context) error
}

// Close releases the underlying connection.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Unit is one auto-wiring unit. DependsOn lists client units whose
// exclusion also disables this one.
type Unit struct {
	ID        string
	DependsOn []string
	Build     func(ctx context.Context, c Context) (*Store, error)
}

// Enabled reports whether neither the unit nor a dependency is excluded.
func (u Unit) Enabled(excluded map[string]struct{}) bool {
	if _, ok := excluded[u.ID]; ok {
		return false
	}
	for _, dep := range u.DependsOn {
		if _, ok := excluded[dep]; ok {
			return false
		}
	}
	return true
}

// Configurer selects and builds the repository unit left enabled by the
// exclusion overlay.
type Configurer struct {
	units  []Unit
	logger zerolog.Logger
}

// Option configures a Configurer.
type Option func(*Configurer) error

// WithUnits replaces the default units.
func WithUnits(units ...Unit) Option {
	return func(c *Configurer) error {
		for _, unit := range units {
			if strings.TrimSpace(unit.ID) == "" {
				return ErrUnitIDRequired
			}
			if unit.Build == nil {
				return fmt.Errorf("autoconfig: unit %s has no builder", unit.ID)
			}
		}
		c.units = append([]Unit(nil), units...)
		return nil
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Configurer) error {
		c.logger = logger
		return nil
	}
}

// New returns a Configurer over DefaultUnits unless WithUnits is given.
func New(opts ...Option) (*Configurer, error) {
	c := &Configurer{units: DefaultUnits(), logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Enabled returns the units not suppressed by props.
func (c *Configurer) Enabled(props PropertyResolver) []Unit {
	excluded := excludedSet(props)
	out := make([]Unit, 0, len(c.units))
	for _, unit := range c.units {
		if unit.Enabled(excluded) {
			out = append(out, unit)
			continue
		}
		c.logger.Debug().Str("unit", unit.ID).Msg("auto-configuration unit excluded")
	}
	return out
}

// Repository builds the single enabled repository unit.
func (c *Configurer) Repository(ctx context.Context, props PropertyResolver, result profiles.Result) (*Store, error) {
	enabled := c.Enabled(props)
	switch len(enabled) {
	case 0:
		return nil, ErrNoRepository
	case 1:
	default:
		ids := make([]string, len(enabled))
		for i, unit := range enabled {
			ids[i] = unit.ID
		}
		return nil, fmt.Errorf("%w: [%s]", ErrAmbiguousRepository, strings.Join(ids, ", "))
	}

	unit := enabled[0]
	store, err := unit.Build(ctx, Context{Properties: props, Result: result, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("autoconfig: build %s: %w", unit.ID, err)
	}
	if store.Unit == "" {
		store.Unit = unit.ID
	}
	c.logger.Info().
		Str("unit", store.Unit).
		Str("profile", result.Profile.String()).
		Msg("album repository configured")
	return store, nil
}

func excludedSet(props PropertyResolver) map[string]struct{} {
	out := map[string]struct{}{}
	if props == nil {
		return out
	}
	for _, unit := range props.PropertyList(profiles.ExcludeKey) {
		out[unit] = struct{}{}
	}
	return out
}
