package userconfig

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "window.width > missing", "demo", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "window.width > missing" || evalErr.Store != "demo" {
		t.Fatalf("unexpected metadata: %+v", evalErr)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.Contains(err.Error(), `expr="window.width > missing"`) {
		t.Fatalf("expected expression in message, got %q", err.Error())
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", "demo", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Store != "demo" {
		t.Fatalf("missing metadata should be filled, got %+v", existing)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	prefixed := errors.New("userconfig: already described")
	if got := wrapEvaluatorError("expr", prefixed); got != prefixed {
		t.Fatalf("expected prefixed error untouched, got %v", got)
	}
	plain := errors.New("plain")
	got := wrapEvaluatorError("cel", plain)
	if !errors.Is(got, plain) || !strings.HasPrefix(got.Error(), "userconfig: cel evaluator:") {
		t.Fatalf("expected wrapped error, got %v", got)
	}
}

func TestStoreErrorsUnwrapToSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&InvalidVersionError{Version: "1.0"}, ErrInvalidVersion},
		{&UnknownSectionError{Section: "s"}, ErrUnknownSection},
		{&UnknownOptionError{Section: "s", Option: "o"}, ErrUnknownOption},
		{&InvalidArgumentError{Argument: "section", Reason: "must not be empty"}, ErrInvalidArgument},
		{&CoercionError{Section: "s", Option: "o", Kind: KindInt, Raw: "abc"}, ErrCoercion},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Fatalf("%T should unwrap to %v", tc.err, tc.want)
		}
	}

	inner := errOutOfRange
	coercion := &CoercionError{Section: "s", Option: "o", Kind: KindInt, Value: 1 << 40, Err: inner}
	if !errors.Is(coercion, inner) {
		t.Fatalf("expected coercion error to expose its cause")
	}
}
