package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var ErrInvalidRef = errors.New("state: invalid ref")

// Ref identifies the persisted document of one named settings store.
type Ref struct {
	Name string
}

// Meta is storage-owned metadata used for logging, activity events and
// change detection.
type Meta struct {
	SnapshotID string    `json:"snapshot_id,omitempty"`
	ETag       string    `json:"etag,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Entry is one `key = value` line. Values are always stored as text.
type Entry struct {
	Key   string
	Value string
}

// Section is a bracketed block of entries, in file order.
type Section struct {
	Name    string
	Entries []Entry
}

// Document is the decoded form of a settings file.
type Document struct {
	Sections []Section
	// Orphans holds entries that appeared outside any usable section header.
	Orphans []Entry
	// MissingHeaders is set when content precedes the first section header.
	MissingHeaders bool
}

// Store loads, saves and removes the document for a single Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (doc Document, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, doc Document, meta Meta) (Meta, error)
	Remove(ctx context.Context, ref Ref) error
}

// Locator is implemented by stores that persist to a filesystem path.
type Locator interface {
	Location(ref Ref) (string, error)
}

// Watcher is implemented by stores able to report external changes.
// onChange is invoked from a background goroutine.
type Watcher interface {
	Watch(ctx context.Context, ref Ref, onChange func()) (io.Closer, error)
}

// Identifier returns the base file name used for ref: ".{name}.ini".
func (r Ref) Identifier() (string, error) {
	name := r.Name
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidRef)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: name %q must not contain path elements", ErrInvalidRef, name)
	}
	return "." + name + ".ini", nil
}

// Lookup returns the named section.
func (d Document) Lookup(name string) (Section, bool) {
	for _, section := range d.Sections {
		if section.Name == name {
			return section, true
		}
	}
	return Section{}, false
}

// Value returns the raw value stored for (section, key).
func (d Document) Value(section, key string) (string, bool) {
	sec, ok := d.Lookup(section)
	if !ok {
		return "", false
	}
	for _, entry := range sec.Entries {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := Document{MissingHeaders: d.MissingHeaders}
	if len(d.Sections) > 0 {
		out.Sections = make([]Section, len(d.Sections))
		for i, section := range d.Sections {
			out.Sections[i] = Section{
				Name:    section.Name,
				Entries: append([]Entry(nil), section.Entries...),
			}
		}
	}
	if len(d.Orphans) > 0 {
		out.Orphans = append([]Entry(nil), d.Orphans...)
	}
	return out
}
