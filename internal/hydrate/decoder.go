package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidTarget reports a destination that is not a non-nil pointer.
var ErrInvalidTarget = errors.New("hydrate: destination must be a non-nil pointer")

// Context identifies the section being decoded.
type Context struct {
	Store   string
	Section string
}

func (c Context) String() string {
	if c.Store == "" {
		return c.Section
	}
	return c.Store + "/" + c.Section
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the destination after decoding.
// dst is the pointer passed to Decode.
type PostHook func(Context, any) error

// Option configures a Decoder.
type Option func(*Decoder)

// Decoder converts a section's coerced values into a typed struct through a
// JSON round trip, so `json` struct tags select option names.
type Decoder struct {
	preHooks     []PreHook
	postHooks    []PostHook
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook prior to decoding.
func WithPreHook(hook PreHook) Option {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook(hook PostHook) Option {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields rejects options that have no matching field.
func WithDisallowUnknownFields() Option {
	return func(d *Decoder) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithUseNumber decodes numbers into interface fields as json.Number.
func WithUseNumber() Option {
	return func(d *Decoder) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode fills dst from payload. The payload map is never mutated.
func (d *Decoder) Decode(ctx Context, payload map[string]any, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidTarget
	}
	if payload == nil {
		return fmt.Errorf("hydrate: payload is nil for %q", ctx)
	}

	current, err := clonePayload(payload)
	if err != nil {
		return fmt.Errorf("hydrate: clone payload for %q: %w", ctx, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx, err)
		}
		if next != nil {
			current = next
		}
	}

	buffer, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("hydrate: marshal payload for %q: %w", ctx, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("hydrate: decode %q: %w", ctx, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, dst); err != nil {
			return fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx, err)
		}
	}
	return nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
