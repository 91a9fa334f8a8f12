package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	profiles "github.com/goliatone/go-profiles"
	"github.com/goliatone/go-profiles/album"
	"github.com/goliatone/go-profiles/autoconfig"
	"github.com/goliatone/go-profiles/cfenv"
	"github.com/goliatone/go-profiles/config"
	"github.com/goliatone/go-profiles/internal/metrics"
	"github.com/goliatone/go-profiles/pkg/activity"
	"github.com/goliatone/go-profiles/pkg/activity/usersink"
	"github.com/goliatone/go-profiles/pkg/logging"
	"github.com/goliatone/go-profiles/web"
	usertypes "github.com/goliatone/go-users/pkg/types"
)

type options struct {
	configPath string
	logLevel   string
	profiles   []string
	overrides  []string
	envFiles   []string

	environ []string
	lookup  func(string) (string, bool)
	output  io.Writer
}

type application struct {
	cfg     *config.Config
	env     *profiles.Environment
	result  profiles.Result
	store   *autoconfig.Store
	metrics *metrics.Metrics
	router  http.Handler
	logger  zerolog.Logger
}

// bootstrap runs every startup step up to, but not including, serving HTTP.
func bootstrap(ctx context.Context, opts options) (*application, error) {
	lookup := opts.lookup
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	cfg, err := config.LoadWithLookup(opts.configPath, lookup)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	cfg.Profiles.Active = append(cfg.Profiles.Active, opts.profiles...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	logger := logging.Setup(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty, Output: opts.output})

	overrides, err := parseOverrides(opts.overrides)
	if err != nil {
		return nil, err
	}

	services, err := cfenv.FromEnv(lookup)
	if err != nil {
		return nil, err
	}

	env, err := cfg.Environment(config.Sources{
		CommandLine: overrides,
		Environ:     opts.environ,
		Platform:    []profiles.PropertySource{services.PropertySource()},
	})
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	hooks := []activity.ActivityHook{m.Hook()}
	if cfg.Activity.Enabled {
		hooks = append(hooks, usersink.Hook{Sink: auditSink{logger: logger}})
	}

	initializer := profiles.New(
		profiles.WithDiscoverer(services),
		profiles.WithLogger(logging.ProfilesLogger(logger)),
		profiles.WithActivityHooks(hooks...),
		profiles.WithActivityChannel(cfg.Activity.Channel),
	)
	result, err := initializer.Initialize(ctx, env)
	if err != nil {
		logger.Error().Err(err).Msg("profile resolution failed")
		return nil, err
	}
	env.Seal()

	configurer, err := autoconfig.New(autoconfig.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	store, err := configurer.Repository(ctx, env, result)
	if err != nil {
		return nil, err
	}

	populatorOpts := []album.PopulatorOption{album.WithLogger(logger)}
	if cfg.Catalog.Path != "" {
		populatorOpts = append(populatorOpts, album.WithCatalogFile(cfg.Catalog.Path))
	}
	populator, err := album.NewPopulator(store.Repository, populatorOpts...)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	seeded, err := populator.Populate(ctx)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	m.AlbumsSeeded(seeded)

	names := make([]string, len(result.Bindings))
	for i, binding := range result.Bindings {
		names[i] = binding.Name
	}

	router := web.NewRouter(web.Config{
		Properties: env,
		Albums:     store.Repository,
		Info:       web.AppInfo{Profiles: env.ActiveProfiles(), Services: names},
		Metrics:    m,
		Logger:     logger,
	})

	return &application{
		cfg:     cfg,
		env:     env,
		result:  result,
		store:   store,
		metrics: m,
		router:  router,
		logger:  logger,
	}, nil
}

// parseOverrides turns repeated key=value flags into a property map. Later
// flags win.
func parseOverrides(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", entry)
		}
		out[key] = value
	}
	return out, nil
}

// auditSink writes activity records to the service log.
type auditSink struct {
	logger zerolog.Logger
}

func (s auditSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.logger.Info().
		Str("component", "audit").
		Str("verb", record.Verb).
		Str("object_type", record.ObjectType).
		Str("object_id", record.ObjectID).
		Str("channel", record.Channel).
		Fields(record.Data).
		Msg("activity")
	return nil
}
