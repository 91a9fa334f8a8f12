package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/goliatone/go-profiles/layering"
	"github.com/goliatone/go-profiles/pkg/activity"
)

func TestInitializeFromFixture(t *testing.T) {
	fx := loadInitializeFixture(t, "initialize.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			env := mustEnvironment(t, WithActiveProfiles(tc.Active...))
			discovered := 0
			initializer := New(WithDiscoverer(DiscovererFunc(func() ([]Binding, error) {
				discovered++
				return tc.bindings(), nil
			})))

			result, err := initializer.Initialize(context.Background(), env)

			if tc.Expect.Error != "" {
				var conflict *ConflictError
				if !errors.As(err, &conflict) {
					t.Fatalf("expected conflict error, got %v", err)
				}
				if conflict.Kind.String() != tc.Expect.Error {
					t.Fatalf("expected %s conflict, got %s", tc.Expect.Error, conflict.Kind)
				}
				if !slices.Equal(conflict.Offending, tc.Expect.Offending) {
					t.Fatalf("offending mismatch\nwant: %v\n got: %v", tc.Expect.Offending, conflict.Offending)
				}
				if conflict.Kind == ConflictManual && discovered != 0 {
					t.Fatalf("expected discovery to be skipped on manual conflict")
				}
				if got := env.ActiveProfiles(); !slices.Equal(got, tc.Expect.Active) {
					t.Fatalf("expected active profiles untouched, got %v", got)
				}
				if len(env.PropertySources()) != 0 {
					t.Fatalf("expected no overlay on conflict")
				}
				return
			}
			if err != nil {
				t.Fatalf("initialize: %v", err)
			}
			if result.Profile.String() != tc.Expect.Profile {
				t.Fatalf("expected profile %q, got %q", tc.Expect.Profile, result.Profile)
			}
			if got := sourceName(result.Source); got != tc.Expect.Source {
				t.Fatalf("expected source %q, got %q", tc.Expect.Source, got)
			}
			if got := env.ActiveProfiles(); !slices.Equal(got, tc.Expect.Active) {
				t.Fatalf("active profiles mismatch\nwant: %v\n got: %v", tc.Expect.Active, got)
			}
			if !slices.Equal(result.Exclusions, tc.Expect.Exclusions) {
				t.Fatalf("exclusions mismatch\nwant: %v\n got: %v", tc.Expect.Exclusions, result.Exclusions)
			}
			sources := env.PropertySources()
			if len(sources) == 0 || sources[0].Name != OverlaySourceName {
				t.Fatalf("expected overlay as first property source, got %+v", sources)
			}
			value, _ := env.Property(ExcludeKey)
			if value != strings.Join(tc.Expect.Exclusions, ",") {
				t.Fatalf("unexpected overlay value %q", value)
			}
		})
	}
}

func TestInitializeOverlayWinsOverUserConfiguration(t *testing.T) {
	env := mustEnvironment(t, WithPropertySources(
		NewPropertySource("commandLineArgs", layering.LevelCommandLine, map[string]string{ExcludeKey: ""}),
		NewPropertySource("applicationConfig", layering.LevelApplicationConfig, map[string]string{ExcludeKey: UnitRedis}),
	))

	result, err := New().Initialize(context.Background(), env)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	trace := env.PropertyWithTrace(ExcludeKey)
	winner, ok := trace.Winner()
	if !ok || winner.Source != OverlaySourceName || winner.Level != layering.LevelOverlay.String() {
		t.Fatalf("expected overlay to win, got %+v", trace)
	}
	if len(trace.Sources) != 3 {
		t.Fatalf("expected three contributing sources, got %d", len(trace.Sources))
	}
	if !Excluded(env, UnitMongo) || Excluded(env, UnitDataSource) {
		t.Fatalf("unexpected exclusion state for %v", result.Exclusions)
	}
}

func TestInitializeLogsBindingNamesBeforeMatching(t *testing.T) {
	var events []LogEvent
	logger := LoggerFunc(func(event LogEvent) { events = append(events, event) })
	env := mustEnvironment(t)

	_, err := New(
		WithLogger(logger),
		WithDiscoverer(StaticBindings{{Name: "a", Tags: []string{"redis"}}, {Name: "b", Tags: []string{"mongodb"}}}),
	).Initialize(context.Background(), env)
	if !errors.Is(err, ErrConflictingInferredProfiles) {
		t.Fatalf("expected inferred conflict, got %v", err)
	}

	if len(events) < 2 {
		t.Fatalf("expected discovery and conflict log events, got %+v", events)
	}
	if events[0].Stage != StageDiscover {
		t.Fatalf("expected discovery to be logged first, got %+v", events[0])
	}
	names, _ := events[0].Fields["bindings"].([]string)
	if !slices.Equal(names, []string{"a", "b"}) {
		t.Fatalf("unexpected logged binding names %v", names)
	}
	if events[len(events)-1].Err == nil {
		t.Fatalf("expected conflict to be logged with its error")
	}
}

func TestInitializeEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	env := mustEnvironment(t)

	_, err := New(
		WithActivityHooks(capture),
		WithDiscoverer(StaticBindings{{Name: "music-db", Tags: []string{"mysql"}}}),
	).Initialize(context.Background(), env)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	want := []string{activity.VerbProfileResolved, activity.VerbOverlayInstalled}
	if got := capture.Verbs(); !slices.Equal(got, want) {
		t.Fatalf("unexpected verbs\nwant: %v\n got: %v", want, got)
	}
	resolved := capture.Events[0]
	if resolved.ObjectID != "mysql" || resolved.Metadata["source"] != "music-db" || resolved.Channel != activity.DefaultChannel {
		t.Fatalf("unexpected resolved event %+v", resolved)
	}
}

func TestInitializeEmitsConflictActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	env := mustEnvironment(t, WithActiveProfiles("mysql", "postgres"))

	_, err := New(WithActivityHooks(capture), WithActivityChannel("bootstrap")).Initialize(context.Background(), env)
	if !errors.Is(err, ErrConflictingManualProfiles) {
		t.Fatalf("expected manual conflict, got %v", err)
	}
	if len(capture.Events) != 1 || capture.Events[0].Verb != activity.VerbConflict {
		t.Fatalf("expected a single conflict event, got %+v", capture.Events)
	}
	if capture.Events[0].ObjectID != "manual" || capture.Events[0].Channel != "bootstrap" {
		t.Fatalf("unexpected conflict event %+v", capture.Events[0])
	}
}

func TestInitializeHookFailureIsLoggedNotReturned(t *testing.T) {
	hookErr := errors.New("sink offline")
	var logged []error
	env := mustEnvironment(t)

	_, err := New(
		WithActivityHooks(activity.HookFunc(func(context.Context, activity.Event) error { return hookErr })),
		WithLogger(LoggerFunc(func(event LogEvent) {
			if event.Stage == StageActivity {
				logged = append(logged, event.Err)
			}
		})),
	).Initialize(context.Background(), env)
	if err != nil {
		t.Fatalf("expected hook failure to be swallowed, got %v", err)
	}
	if len(logged) != 2 || !errors.Is(logged[0], hookErr) {
		t.Fatalf("expected both hook failures logged, got %v", logged)
	}
}

func TestInitializeDiscoveryError(t *testing.T) {
	boom := errors.New("malformed VCAP_SERVICES")
	env := mustEnvironment(t)

	_, err := New(WithDiscoverer(DiscovererFunc(func() ([]Binding, error) { return nil, boom }))).
		Initialize(context.Background(), env)
	if !errors.Is(err, boom) {
		t.Fatalf("expected discovery error to be wrapped, got %v", err)
	}
	if len(env.PropertySources()) != 0 {
		t.Fatalf("expected no overlay after discovery failure")
	}
}

func TestInitializeRejectsMissingOrSealedEnvironment(t *testing.T) {
	if _, err := New().Initialize(context.Background(), nil); !errors.Is(err, ErrEnvironmentRequired) {
		t.Fatalf("expected ErrEnvironmentRequired, got %v", err)
	}
	env := mustEnvironment(t)
	env.Seal()
	if _, err := New().Initialize(context.Background(), env); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed, got %v", err)
	}
}

func TestInitializeRunsOnce(t *testing.T) {
	env := mustEnvironment(t)
	initializer := New()
	if _, err := initializer.Initialize(context.Background(), env); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if _, err := initializer.Initialize(context.Background(), env); !errors.Is(err, ErrDuplicateSourceName) {
		t.Fatalf("expected duplicate overlay to be rejected, got %v", err)
	}
}

func TestInitializePredicateErrorCountsAsNoMatch(t *testing.T) {
	rules, err := NewRuleTable([]Rule{
		{Profile: TagRedis, Requires: []string{"redis"}, When: `credentials.port > 1000`},
		{Profile: TagMongoDB, Requires: []string{"mongodb"}},
	})
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	var predicateErrs int
	env := mustEnvironment(t)

	result, err := New(
		WithRules(rules),
		WithLogger(LoggerFunc(func(event LogEvent) {
			if event.Stage == StageInfer && event.Err != nil {
				predicateErrs++
			}
		})),
		WithDiscoverer(StaticBindings{
			{Name: "cache", Tags: []string{"redis"}, Credentials: map[string]any{"port": "not-a-number"}},
			{Name: "docs", Tags: []string{"mongodb"}},
		}),
	).Initialize(context.Background(), env)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if result.Profile != TagMongoDB {
		t.Fatalf("expected mongodb after predicate failure, got %q", result.Profile)
	}
	if predicateErrs != 1 {
		t.Fatalf("expected one predicate error logged, got %d", predicateErrs)
	}
}

type initializeFixture struct {
	Description string                  `json:"description"`
	Cases       []initializeFixtureCase `json:"cases"`
}

type initializeFixtureCase struct {
	Name     string           `json:"name"`
	Active   []string         `json:"active"`
	Bindings []fixtureBinding `json:"bindings"`
	Expect   struct {
		Profile    string   `json:"profile"`
		Source     string   `json:"source"`
		Active     []string `json:"active"`
		Exclusions []string `json:"exclusions"`
		Error      string   `json:"error"`
		Offending  []string `json:"offending"`
	} `json:"expect"`
}

type fixtureBinding struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

func (c initializeFixtureCase) bindings() []Binding {
	out := make([]Binding, len(c.Bindings))
	for i, b := range c.Bindings {
		out[i] = Binding{Name: b.Name, Tags: b.Tags}
	}
	return out
}

func loadInitializeFixture(t *testing.T, name string) initializeFixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read initialize fixture %q: %v", name, err)
	}
	var fx initializeFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal initialize fixture %q: %v", name, err)
	}
	return fx
}

func mustEnvironment(t *testing.T, opts ...EnvironmentOption) *Environment {
	t.Helper()
	env, err := NewEnvironment(opts...)
	if err != nil {
		t.Fatalf("environment: %v", err)
	}
	return env
}
