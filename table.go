package userconfig

import (
	"slices"

	"github.com/goliatone/go-userconfig/pkg/state"
)

// orderedMap keeps insertion order, which drives file layout.
type orderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func newOrderedMap[V any]() *orderedMap[V] {
	return &orderedMap[V]{values: map[string]V{}}
}

func (m *orderedMap[V]) get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *orderedMap[V]) has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m *orderedMap[V]) set(key string, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *orderedMap[V]) remove(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	if i := slices.Index(m.keys, key); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
	return true
}

func (m *orderedMap[V]) len() int {
	return len(m.keys)
}

func (m *orderedMap[V]) names() []string {
	return append([]string(nil), m.keys...)
}

func (m *orderedMap[V]) clone() *orderedMap[V] {
	out := &orderedMap[V]{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]V, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// table is an ordered section -> option -> V mapping.
type table[V any] struct {
	sections *orderedMap[*orderedMap[V]]
}

func newTable[V any]() *table[V] {
	return &table[V]{sections: newOrderedMap[*orderedMap[V]]()}
}

func (t *table[V]) section(name string) (*orderedMap[V], bool) {
	return t.sections.get(name)
}

func (t *table[V]) hasSection(name string) bool {
	return t.sections.has(name)
}

func (t *table[V]) ensure(name string) *orderedMap[V] {
	sec, ok := t.sections.get(name)
	if !ok {
		sec = newOrderedMap[V]()
		t.sections.set(name, sec)
	}
	return sec
}

func (t *table[V]) get(section, option string) (V, bool) {
	sec, ok := t.sections.get(section)
	if !ok {
		var zero V
		return zero, false
	}
	return sec.get(option)
}

func (t *table[V]) set(section, option string, value V) {
	t.ensure(section).set(option, value)
}

func (t *table[V]) removeOption(section, option string) bool {
	sec, ok := t.sections.get(section)
	if !ok {
		return false
	}
	return sec.remove(option)
}

func (t *table[V]) removeSection(name string) bool {
	return t.sections.remove(name)
}

func (t *table[V]) sectionNames() []string {
	return t.sections.names()
}

func (t *table[V]) clone() *table[V] {
	out := newTable[V]()
	for _, name := range t.sections.keys {
		sec, _ := t.sections.get(name)
		out.sections.set(name, sec.clone())
	}
	return out
}

// each visits every (section, option, value) in order.
func (t *table[V]) each(fn func(section, option string, value V)) {
	for _, name := range t.sections.keys {
		sec, _ := t.sections.get(name)
		for _, key := range sec.keys {
			fn(name, key, sec.values[key])
		}
	}
}

func tableToDocument(t *table[string]) state.Document {
	doc := state.Document{Sections: make([]state.Section, 0, t.sections.len())}
	for _, name := range t.sections.keys {
		sec, _ := t.sections.get(name)
		entries := make([]state.Entry, 0, sec.len())
		for _, key := range sec.keys {
			entries = append(entries, state.Entry{Key: key, Value: sec.values[key]})
		}
		doc.Sections = append(doc.Sections, state.Section{Name: name, Entries: entries})
	}
	return doc
}

func documentToTable(doc state.Document) *table[string] {
	t := newTable[string]()
	for _, section := range doc.Sections {
		sec := t.ensure(section.Name)
		for _, entry := range section.Entries {
			sec.set(entry.Key, entry.Value)
		}
	}
	return t
}
