package userconfig

import (
	"fmt"
	"strings"
)

// FieldDescriptor describes one option with a registered default.
type FieldDescriptor struct {
	// Path is "section.option".
	Path    string `json:"path"`
	Section string `json:"section"`
	Option  string `json:"option"`
	Kind    Kind   `json:"-"`
	Type    string `json:"type"`
	Default any    `json:"default,omitempty"`
}

// Schema lists every option with a default, in file order. Options known
// only from the file are not described.
func (s *Store) Schema() SchemaDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	descriptors := []FieldDescriptor{}
	s.defaults.each(func(section, option string, def defaultValue) {
		descriptors = append(descriptors, FieldDescriptor{
			Path:    joinPath(section, option),
			Section: section,
			Option:  option,
			Kind:    def.kind,
			Type:    typeName(def.value),
			Default: def.value,
		})
	})
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
