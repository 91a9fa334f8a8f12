// Package cfenv reads the service bindings a Cloud Foundry style platform
// publishes through VCAP_SERVICES.
package cfenv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-profiles"
	"github.com/goliatone/go-profiles/layering"
)

const (
	// EnvVCAPServices holds the JSON document describing bound services.
	EnvVCAPServices = "VCAP_SERVICES"
	// SourceName names the property source built from VCAP_SERVICES.
	SourceName = "vcapServices"
	// PropertyPrefix prefixes every flattened service property.
	PropertyPrefix = "vcap.services"
)

// ErrMalformed indicates VCAP_SERVICES is not a JSON object of service lists.
var ErrMalformed = errors.New("cfenv: malformed VCAP_SERVICES")

// Services is a parsed VCAP_SERVICES document.
type Services struct {
	bindings []profiles.Binding
}

// Parse decodes a VCAP_SERVICES payload. Bindings keep document order, first
// by service label and then by position in each label's list. An empty
// payload yields no bindings.
func Parse(payload string) (*Services, error) {
	if strings.TrimSpace(payload) == "" {
		return &Services{}, nil
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected an object keyed by service label", ErrMalformed)
	}

	services := &Services{}
	var err error
	root.ForEach(func(label, instances gjson.Result) bool {
		if !instances.IsArray() {
			err = fmt.Errorf("%w: service %q must map to a list", ErrMalformed, label.String())
			return false
		}
		for _, instance := range instances.Array() {
			binding, bindErr := parseBinding(label.String(), instance)
			if bindErr != nil {
				err = bindErr
				return false
			}
			services.bindings = append(services.bindings, binding)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return services, nil
}

// FromEnv parses VCAP_SERVICES using lookup, typically os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Services, error) {
	if lookup == nil {
		return &Services{}, nil
	}
	payload, _ := lookup(EnvVCAPServices)
	return Parse(payload)
}

func parseBinding(label string, instance gjson.Result) (profiles.Binding, error) {
	if !instance.IsObject() {
		return profiles.Binding{}, fmt.Errorf("%w: %s entries must be objects", ErrMalformed, label)
	}
	name := instance.Get("name").String()
	if name == "" {
		return profiles.Binding{}, fmt.Errorf("%w: %s entry without a name", ErrMalformed, label)
	}

	binding := profiles.Binding{
		Name:  name,
		Label: instance.Get("label").String(),
		Plan:  instance.Get("plan").String(),
	}
	if binding.Label == "" {
		binding.Label = label
	}
	for _, tag := range instance.Get("tags").Array() {
		binding.Tags = append(binding.Tags, tag.String())
	}
	if credentials, ok := instance.Get("credentials").Value().(map[string]any); ok {
		binding.Credentials = credentials
	}
	return binding, nil
}

// Bindings returns the parsed bindings. Services satisfies
// profiles.Discoverer.
func (s *Services) Bindings() ([]profiles.Binding, error) {
	if s == nil {
		return nil, nil
	}
	return profiles.StaticBindings(s.bindings).Bindings()
}

// Len returns the number of bound services.
func (s *Services) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bindings)
}

// ByName returns the binding called name.
func (s *Services) ByName(name string) (profiles.Binding, bool) {
	if s == nil {
		return profiles.Binding{}, false
	}
	for _, binding := range s.bindings {
		if binding.Name == name {
			out, _ := profiles.StaticBindings{binding}.Bindings()
			return out[0], true
		}
	}
	return profiles.Binding{}, false
}

// PropertySource exposes every binding under vcap.services.{name}, so
// vcap.services.{name}.credentials.{key} resolves through the environment.
func (s *Services) PropertySource() profiles.PropertySource {
	values := map[string]string{}
	if s != nil {
		for _, binding := range s.bindings {
			document := map[string]any{
				"name":  binding.Name,
				"label": binding.Label,
				"plan":  binding.Plan,
			}
			if len(binding.Tags) > 0 {
				document["tags"] = binding.Tags
			}
			if len(binding.Credentials) > 0 {
				document["credentials"] = binding.Credentials
			}
			for key, value := range layering.Flatten(PropertyPrefix+"."+binding.Name, document) {
				values[key] = value
			}
		}
	}
	return profiles.PropertySource{Name: SourceName, Level: layering.LevelPlatform, Values: values}
}

// CredentialKey returns the property key of one credential of a bound
// service instance.
func CredentialKey(instance, name string) string {
	return PropertyPrefix + "." + instance + ".credentials." + name
}
