package profiles

import (
	"encoding/json"
)

// Trace captures how each property source contributed to a key lookup,
// strongest source first.
type Trace struct {
	Key     string       `json:"key"`
	Sources []Provenance `json:"sources"`
}

// Provenance details one source's contribution to a traced key.
type Provenance struct {
	Source string `json:"source"`
	Level  string `json:"level"`
	Value  string `json:"value,omitempty"`
	Found  bool   `json:"found"`
}

// Winner returns the provenance that supplied the effective value.
func (t Trace) Winner() (Provenance, bool) {
	for _, p := range t.Sources {
		if p.Found {
			return p, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
