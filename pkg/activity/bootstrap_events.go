package activity

import (
	"strings"
	"time"
)

const (
	VerbProfileResolved  = "profiles.resolved"
	VerbOverlayInstalled = "profiles.overlay.installed"
	VerbConflict         = "profiles.conflict"

	ObjectProfile        = "profile"
	ObjectPropertySource = "property_source"
)

// BootstrapEventInput carries the outcome of one environment bootstrap.
type BootstrapEventInput struct {
	ActorID    string
	TenantID   string
	Channel    string
	Profile    string
	Source     string
	Bindings   []string
	Exclusions []string
	Overlay    string
	Conflict   string
	Offending  []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildProfileResolvedEvent describes the profile chosen at startup. An empty
// profile is reported with object id "none".
func BuildProfileResolvedEvent(input BootstrapEventInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	if input.Source != "" {
		metadata["source"] = input.Source
	}
	metadata["bindings"] = cloneStrings(input.Bindings)
	return buildEvent(VerbProfileResolved, ObjectProfile, fallback(input.Profile, "none"), input, metadata)
}

// BuildOverlayInstalledEvent describes the exclusion overlay pushed onto the
// environment.
func BuildOverlayInstalledEvent(input BootstrapEventInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["exclusions"] = cloneStrings(input.Exclusions)
	if input.Profile != "" {
		metadata["profile"] = input.Profile
	}
	return buildEvent(VerbOverlayInstalled, ObjectPropertySource, fallback(input.Overlay, ObjectPropertySource), input, metadata)
}

// BuildConflictEvent describes a fatal profile conflict.
func BuildConflictEvent(input BootstrapEventInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["offending"] = cloneStrings(input.Offending)
	if len(input.Bindings) > 0 {
		metadata["bindings"] = cloneStrings(input.Bindings)
	}
	return buildEvent(VerbConflict, ObjectProfile, fallback(input.Conflict, "conflict"), input, metadata)
}

func buildEvent(verb, objectType, objectID string, input BootstrapEventInput, metadata map[string]any) Event {
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func fallback(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
