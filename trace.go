package userconfig

import (
	"encoding/json"
)

// Layer names one source a traced value can come from.
type Layer string

const (
	LayerDefaults Layer = "defaults"
	LayerFile     Layer = "file"
	LayerRuntime  Layer = "runtime"
)

// Trace captures where the value of one option comes from. Layers are
// ordered from lowest to highest precedence.
type Trace struct {
	Section string       `json:"section"`
	Option  string       `json:"option"`
	Layers  []Provenance `json:"layers"`
}

// Provenance details one layer's view of a traced option.
type Provenance struct {
	Layer      Layer  `json:"layer"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Raw        string `json:"raw,omitempty"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// Trace reports option as registered in the defaults, as last read from or
// written to the file, and as currently held in memory. The runtime layer
// only differs from the file after WithoutSave writes or an external edit.
func (s *Store) Trace(section, option string) (Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	section = s.sectionName(section)
	trace := Trace{Section: section, Option: option}

	defaults := Provenance{Layer: LayerDefaults}
	if def, ok := s.defaults.get(section, option); ok {
		defaults.Found = true
		defaults.Value = def.value
		defaults.Raw, _ = def.encode(def.value)
	}

	file := Provenance{Layer: LayerFile, SnapshotID: s.meta.SnapshotID}
	if s.file != nil {
		if raw, ok := s.file.get(section, option); ok {
			file.Found = true
			file.Raw = raw
			file.Value, _ = s.decodeLocked(section, option, raw)
		}
	}

	runtime := Provenance{Layer: LayerRuntime}
	if raw, ok := s.values.get(section, option); ok {
		runtime.Found = true
		runtime.Raw = raw
		runtime.Value, _ = s.decodeLocked(section, option, raw)
	}

	trace.Layers = []Provenance{defaults, file, runtime}
	if !defaults.Found && !file.Found && !runtime.Found {
		return trace, &UnknownOptionError{Section: section, Option: option}
	}
	return trace, nil
}

// Effective returns the highest precedence layer holding the option.
func (t Trace) Effective() (Provenance, bool) {
	for i := len(t.Layers) - 1; i >= 0; i-- {
		if t.Layers[i].Found {
			return t.Layers[i], true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
