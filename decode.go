package userconfig

import (
	"github.com/goliatone/go-userconfig/internal/hydrate"
)

// DecodeOption configures Decode.
type DecodeOption func(*[]hydrate.Option)

// DecodeStrict fails when the section holds an option with no matching
// struct field.
func DecodeStrict() DecodeOption {
	return func(opts *[]hydrate.Option) {
		*opts = append(*opts, hydrate.WithDisallowUnknownFields())
	}
}

// DecodePreHook lets callers rewrite the section's values before decoding.
func DecodePreHook(fn func(section string, values map[string]any) (map[string]any, error)) DecodeOption {
	return func(opts *[]hydrate.Option) {
		if fn == nil {
			return
		}
		*opts = append(*opts, hydrate.WithPreHook(func(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
			return fn(ctx.Section, payload)
		}))
	}
}

// DecodeValidate runs fn against the filled destination.
func DecodeValidate(fn func(section string, dst any) error) DecodeOption {
	return func(opts *[]hydrate.Option) {
		if fn == nil {
			return
		}
		*opts = append(*opts, hydrate.WithPostHook(func(ctx hydrate.Context, dst any) error {
			return fn(ctx.Section, dst)
		}))
	}
}

// Decode fills the struct pointed to by dst from the coerced values of
// section. Options map to fields through `json` tags.
func (s *Store) Decode(section string, dst any, opts ...DecodeOption) error {
	s.mu.RLock()
	section = s.sectionName(section)
	if !s.values.hasSection(section) {
		s.mu.RUnlock()
		return &UnknownSectionError{Section: section}
	}
	payload := s.snapshotLocked()[section]
	s.mu.RUnlock()

	var hydrateOpts []hydrate.Option
	for _, opt := range opts {
		if opt != nil {
			opt(&hydrateOpts)
		}
	}
	return hydrate.NewDecoder(hydrateOpts...).Decode(hydrate.Context{Store: s.name, Section: section}, payload, dst)
}

// DecodeSection is the generic form of Store.Decode.
func DecodeSection[T any](s *Store, section string, opts ...DecodeOption) (T, error) {
	var out T
	err := s.Decode(section, &out, opts...)
	return out, err
}
