package profiles

import (
	"github.com/goliatone/go-profiles/layering"
)

const (
	// ExcludeKey is the overlay property listing suppressed auto-wiring units.
	ExcludeKey = "autoconfigure.exclude"
	// OverlaySourceName names the property source carrying ExcludeKey.
	OverlaySourceName = "profilesAutoConfig"
)

// Auto-wiring unit identifiers.
const (
	UnitDataSource = "autoconfig.jdbc.DataSource"

	UnitMongo             = "autoconfig.mongo.Mongo"
	UnitMongoData         = "autoconfig.mongo.MongoData"
	UnitMongoRepositories = "autoconfig.mongo.MongoRepositories"

	UnitRedis             = "autoconfig.redis.Redis"
	UnitRedisRepositories = "autoconfig.redis.RedisRepositories"
)

var (
	relationalUnits = []string{UnitDataSource}
	documentUnits   = []string{UnitMongo, UnitMongoData, UnitMongoRepositories}
	cacheUnits      = []string{UnitRedis, UnitRedisRepositories}
)

// RelationalUnits returns the relational datasource unit group.
func RelationalUnits() []string { return append([]string(nil), relationalUnits...) }

// DocumentUnits returns the document-store unit group.
func DocumentUnits() []string { return append([]string(nil), documentUnits...) }

// CacheUnits returns the cache-store unit group.
func CacheUnits() []string { return append([]string(nil), cacheUnits...) }

// ExclusionsFor computes the units to suppress given a profile acceptance
// check. The cache-store profile is consulted before the document store.
func ExclusionsFor(accepts func(profile string) bool) []string {
	switch {
	case accepts != nil && accepts(TagRedis.String()):
		return concatUnique(relationalUnits, documentUnits)
	case accepts != nil && accepts(TagMongoDB.String()):
		return concatUnique(relationalUnits, cacheUnits)
	default:
		return concatUnique(documentUnits, cacheUnits)
	}
}

// Exclusions computes the units to suppress for the environment's active
// profiles.
func Exclusions(env *Environment) []string {
	if env == nil {
		return ExclusionsFor(nil)
	}
	return ExclusionsFor(env.AcceptsProfile)
}

// OverlaySource renders exclusions as the highest-precedence property source.
func OverlaySource(exclusions []string) PropertySource {
	return PropertySource{
		Name:   OverlaySourceName,
		Level:  layering.LevelOverlay,
		Values: map[string]string{ExcludeKey: commaJoin(exclusions)},
	}
}

// Excluded reports whether unit is listed under ExcludeKey in env.
func Excluded(env *Environment, unit string) bool {
	if env == nil {
		return false
	}
	for _, entry := range env.PropertyList(ExcludeKey) {
		if entry == unit {
			return true
		}
	}
	return false
}

func concatUnique(groups ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, group := range groups {
		for _, unit := range group {
			if _, ok := seen[unit]; ok {
				continue
			}
			seen[unit] = struct{}{}
			out = append(out, unit)
		}
	}
	return out
}
