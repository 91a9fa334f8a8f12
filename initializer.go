package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-profiles/pkg/activity"
)

// ErrEnvironmentRequired indicates Initialize was called without an
// environment.
var ErrEnvironmentRequired = errors.New("profiles: environment must be provided")

// Result summarises one bootstrap.
type Result struct {
	// Profile is empty when neither bindings nor configuration selected one.
	Profile Tag
	// Bindings are the discovered bindings in discovery order.
	Bindings []Binding
	// Source is the binding that implied Profile, nil when Profile was not
	// inferred.
	Source *Binding
	// Exclusions is the value installed under ExcludeKey.
	Exclusions []string
}

// Initializer resolves the backing-store profile of a process and installs
// the auto-configuration exclusion overlay. It is meant to run once per
// process, before any store client is built.
type Initializer struct {
	rules      *RuleTable
	discoverer Discoverer
	logger     Logger
	emitter    *activity.Emitter
}

// Option configures an Initializer.
type Option func(*initializerConfig)

type initializerConfig struct {
	rules      *RuleTable
	discoverer Discoverer
	logger     Logger
	hooks      activity.Hooks
	channel    string
}

// WithRules replaces the default rule table.
func WithRules(rules *RuleTable) Option {
	return func(cfg *initializerConfig) {
		cfg.rules = rules
	}
}

// WithDiscoverer sets the service-binding source. Without one no bindings
// are discovered.
func WithDiscoverer(discoverer Discoverer) Option {
	return func(cfg *initializerConfig) {
		cfg.discoverer = discoverer
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(logger Logger) Option {
	return func(cfg *initializerConfig) {
		cfg.logger = logger
	}
}

// WithActivityHooks registers hooks notified of bootstrap outcomes.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	return func(cfg *initializerConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
	}
}

// WithActivityChannel overrides the channel stamped on bootstrap events.
func WithActivityChannel(channel string) Option {
	return func(cfg *initializerConfig) {
		cfg.channel = channel
	}
}

// New builds an Initializer.
func New(opts ...Option) *Initializer {
	cfg := initializerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.rules == nil {
		cfg.rules = DefaultRules()
	}
	if cfg.discoverer == nil {
		cfg.discoverer = StaticBindings(nil)
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	return &Initializer{
		rules:      cfg.rules,
		discoverer: cfg.discoverer,
		logger:     cfg.logger,
		emitter:    activity.NewEmitter(cfg.hooks, activity.Config{Enabled: true, Channel: cfg.channel}),
	}
}

// Rules returns the rule table in use.
func (i *Initializer) Rules() *RuleTable {
	return i.rules
}

// Initialize validates the active profiles, infers a profile from the
// discovered bindings, activates it and installs the exclusion overlay as
// the first property source. Conflicts return a *ConflictError and leave env
// untouched. The context is only passed to activity hooks.
func (i *Initializer) Initialize(ctx context.Context, env *Environment) (Result, error) {
	if env == nil {
		return Result{}, ErrEnvironmentRequired
	}
	if env.Sealed() {
		return Result{}, ErrSealed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := ValidateActiveProfiles(env.ActiveProfiles(), i.rules); err != nil {
		i.conflict(ctx, StageValidate, err, nil)
		return Result{}, err
	}

	bindings, err := i.discoverer.Bindings()
	if err != nil {
		err = fmt.Errorf("profiles: discover bindings: %w", err)
		i.logger.Log(LogEvent{Stage: StageDiscover, Message: "service binding discovery failed", Err: err})
		return Result{}, err
	}
	names := bindingNames(bindings)
	i.logger.Log(LogEvent{
		Stage:   StageDiscover,
		Message: "found bound services",
		Fields:  map[string]any{"bindings": names},
	})

	inference, err := InferProfile(bindings, i.rules)
	for _, predicateErr := range inference.PredicateErrors {
		i.logger.Log(LogEvent{Stage: StageInfer, Message: "rule predicate failed, treated as no match", Err: predicateErr})
	}
	if err != nil {
		i.conflict(ctx, StageInfer, err, names)
		return Result{}, err
	}

	result := Result{Bindings: bindings}
	if inference.Found() {
		if err := env.AddActiveProfile(inference.Profile.String()); err != nil {
			return Result{}, err
		}
		result.Profile = inference.Profile
		result.Source = inference.Source
		i.logger.Log(LogEvent{
			Stage:   StageInfer,
			Message: "activated profile from bound service",
			Fields:  map[string]any{"profile": inference.Profile.String(), "binding": inference.Source.Name},
		})
	} else {
		result.Profile = i.activeKnownProfile(env)
	}

	result.Exclusions = Exclusions(env)
	if err := env.AddFirst(OverlaySource(result.Exclusions)); err != nil {
		return Result{}, fmt.Errorf("profiles: install overlay: %w", err)
	}
	i.logger.Log(LogEvent{
		Stage:   StageExclude,
		Message: "excluding auto-configuration",
		Fields:  map[string]any{"exclude": result.Exclusions},
	})

	i.emit(ctx, activity.BuildProfileResolvedEvent(activity.BootstrapEventInput{
		Profile:  result.Profile.String(),
		Source:   sourceName(result.Source),
		Bindings: names,
	}))
	i.emit(ctx, activity.BuildOverlayInstalledEvent(activity.BootstrapEventInput{
		Profile:    result.Profile.String(),
		Overlay:    OverlaySourceName,
		Exclusions: result.Exclusions,
	}))
	return result, nil
}

// activeKnownProfile returns the single known profile set through
// configuration, if any. Validation already ruled out more than one.
func (i *Initializer) activeKnownProfile(env *Environment) Tag {
	for _, profile := range env.ActiveProfiles() {
		if i.rules.Has(profile) {
			return Tag(profile)
		}
	}
	return ""
}

func (i *Initializer) conflict(ctx context.Context, stage string, err error, bindings []string) {
	i.logger.Log(LogEvent{Stage: stage, Message: "conflicting profiles", Err: err})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		return
	}
	i.emit(ctx, activity.BuildConflictEvent(activity.BootstrapEventInput{
		Conflict:  conflict.Kind.String(),
		Offending: conflict.Offending,
		Bindings:  bindings,
	}))
}

func (i *Initializer) emit(ctx context.Context, event activity.Event) {
	if err := i.emitter.Emit(ctx, event); err != nil {
		i.logger.Log(LogEvent{
			Stage:   StageActivity,
			Message: "activity hook failed",
			Fields:  map[string]any{"verb": event.Verb},
			Err:     err,
		})
	}
}

func sourceName(source *Binding) string {
	if source == nil {
		return ""
	}
	return source.Name
}
