package profiles

import (
	"slices"
	"strings"
)

// Tag identifies one backing-store family the application can be wired against.
type Tag string

const (
	TagMongoDB   Tag = "mongodb"
	TagPostgres  Tag = "postgres"
	TagMySQL     Tag = "mysql"
	TagRedis     Tag = "redis"
	TagOracle    Tag = "oracle"
	TagSQLServer Tag = "sqlserver"
)

func (t Tag) String() string {
	return string(t)
}

// Binding is one externally bound service instance as published by the
// hosting platform. Only Name and Tags take part in profile resolution; the
// remaining fields are exposed to rule predicates and connection wiring.
type Binding struct {
	Name        string
	Label       string
	Plan        string
	Tags        []string
	Credentials map[string]any
}

// HasTags reports whether every tag in required is present on the binding.
// Extra tags on the binding are ignored.
func (b Binding) HasTags(required []string) bool {
	for _, tag := range required {
		if !slices.Contains(b.Tags, tag) {
			return false
		}
	}
	return true
}

// Credential returns the top-level credential value stored under key as a
// string, or "" when missing.
func (b Binding) Credential(key string) string {
	value, ok := b.Credentials[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func (b Binding) clone() Binding {
	out := Binding{
		Name:  b.Name,
		Label: b.Label,
		Plan:  b.Plan,
	}
	if len(b.Tags) > 0 {
		out.Tags = append([]string(nil), b.Tags...)
	}
	if len(b.Credentials) > 0 {
		out.Credentials = make(map[string]any, len(b.Credentials))
		for key, value := range b.Credentials {
			out.Credentials[key] = value
		}
	}
	return out
}

// bindingNames returns the names of bindings in discovery order.
func bindingNames(bindings []Binding) []string {
	names := make([]string, len(bindings))
	for i := range bindings {
		names[i] = bindings[i].Name
	}
	return names
}

// commaJoin renders values the way multi-valued properties are encoded.
func commaJoin(values []string) string {
	return strings.Join(values, ",")
}

func tagStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i := range tags {
		out[i] = string(tags[i])
	}
	return out
}
