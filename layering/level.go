package layering

import (
	"slices"
	"strings"
)

// Level identifies the precedence of a property source. Higher levels override
// lower levels when layering.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelDefaults represents the weakest layer (built-in defaults).
	LevelDefaults
	// LevelApplicationConfig represents values read from the YAML config file.
	LevelApplicationConfig
	// LevelPlatform represents values published by the hosting platform
	// (flattened VCAP_SERVICES).
	LevelPlatform
	// LevelSystemEnvironment represents process environment variables.
	LevelSystemEnvironment
	// LevelCommandLine represents explicit command-line overrides.
	LevelCommandLine
	// LevelOverlay represents programmatic overlays installed during bootstrap.
	LevelOverlay
)

func (l Level) String() string {
	switch l {
	case LevelDefaults:
		return "defaults"
	case LevelApplicationConfig:
		return "application-config"
	case LevelPlatform:
		return "platform"
	case LevelSystemEnvironment:
		return "system-environment"
	case LevelCommandLine:
		return "command-line"
	case LevelOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string representation into the corresponding Level.
// Returns LevelUnknown for unrecognised values.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "defaults":
		return LevelDefaults
	case "application-config":
		return LevelApplicationConfig
	case "platform":
		return LevelPlatform
	case "system-environment":
		return LevelSystemEnvironment
	case "command-line":
		return LevelCommandLine
	case "overlay":
		return LevelOverlay
	default:
		return LevelUnknown
	}
}

// Order returns a copy of items sorted from strongest to weakest level while
// keeping the relative order of peers. Items with LevelUnknown are dropped.
func Order[S any](items []S, level func(S) Level) []S {
	filtered := make([]S, 0, len(items))
	for _, item := range items {
		if level(item) == LevelUnknown {
			continue
		}
		filtered = append(filtered, item)
	}

	slices.SortStableFunc(filtered, func(a, b S) int {
		la, lb := level(a), level(b)
		if la == lb {
			return 0
		}
		if la > lb {
			return -1
		}
		return 1
	})
	return filtered
}
