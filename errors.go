package userconfig

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName     = errors.New("userconfig: invalid store name")
	ErrInvalidVersion  = errors.New("userconfig: invalid version")
	ErrUnknownSection  = errors.New("userconfig: unknown section")
	ErrUnknownOption   = errors.New("userconfig: unknown option")
	ErrInvalidArgument = errors.New("userconfig: invalid argument")
	ErrCoercion        = errors.New("userconfig: value cannot be coerced")
	ErrClosed          = errors.New("userconfig: store closed")
)

// InvalidVersionError reports a version that is not in MAJOR.MINOR.PATCH form.
type InvalidVersionError struct {
	Version string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("userconfig: version number %q is incorrect - must be in X.Y.Z format", e.Version)
}

func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// UnknownSectionError is returned by Get for a section that does not exist.
type UnknownSectionError struct {
	Section string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("userconfig: unknown section %q", e.Section)
}

func (e *UnknownSectionError) Unwrap() error { return ErrUnknownSection }

// UnknownOptionError is returned by Get for an option missing from an
// existing section.
type UnknownOptionError struct {
	Section string
	Option  string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("userconfig: unknown option %q in section %q", e.Option, e.Section)
}

func (e *UnknownOptionError) Unwrap() error { return ErrUnknownOption }

// InvalidArgumentError reports a section or option name that cannot be
// written to the settings file.
type InvalidArgumentError struct {
	Argument string
	Value    string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("userconfig: argument %q %s (got %q)", e.Argument, e.Reason, e.Value)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// CoercionError reports a value that does not fit the kind registered for
// (Section, Option). Raw holds the stored text on reads.
type CoercionError struct {
	Section string
	Option  string
	Kind    Kind
	Value   any
	Raw     string
	Err     error
}

func (e *CoercionError) Error() string {
	subject := fmt.Sprintf("%v", e.Value)
	if e.Value == nil {
		subject = e.Raw
	}
	msg := fmt.Sprintf("userconfig: %s[%s]: cannot use %q as %s", e.Section, e.Option, subject, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCoercion}
	}
	return []error{ErrCoercion, e.Err}
}
