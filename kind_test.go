package userconfig

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/goliatone/go-userconfig/internal/literal"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		value any
		want  Kind
	}{
		{true, KindBool},
		{3, KindInt},
		{uint16(3), KindInt},
		{2.5, KindFloat},
		{float32(2.5), KindFloat},
		{"s", KindString},
		{nil, KindStructured},
		{[]any{1}, KindStructured},
		{literal.Tuple{1}, KindStructured},
	}
	for _, tc := range cases {
		if got := KindOf(tc.value); got != tc.want {
			t.Fatalf("KindOf(%#v): want %s got %s", tc.value, tc.want, got)
		}
	}
}

func TestEncodeCastsToDefaultKind(t *testing.T) {
	cases := []struct {
		name  string
		def   any
		value any
		want  string
	}{
		{"bool from bool", true, false, "False"},
		{"bool from int", false, 2, "True"},
		{"bool from word", false, "true", "True"},
		{"bool from text", false, "yes please", "True"},
		{"bool from empty", true, "", "False"},
		{"int from float", 0, 12.7, "12"},
		{"int from negative float", 0, -12.7, "-12"},
		{"int from string", 0, " 42 ", "42"},
		{"int from bool", 0, true, "1"},
		{"uint from int", uint(0), 9, "9"},
		{"float from int", 0.0, 3, "3.0"},
		{"float keeps repr", 0.0, 0.1, "0.1"},
		{"float32 shortest", float32(0), float32(0.1), "0.1"},
		{"string verbatim", "", "text text", "text text"},
		{"string escaped empty", "x", "", "''"},
		{"string escaped padding", "x", " pad", "' pad'"},
		{"string escaped quotes", "x", "'q'", `"'q'"`},
		{"string escaped newline", "x", "a\nb", `'a\nb'`},
		{"string from int", "x", 5, "5"},
		{"structured list", []any{}, []any{1, "a"}, "[1, 'a']"},
		{"structured tuple", literal.Tuple{}, literal.Tuple{1}, "(1,)"},
		{"structured none", nil, nil, "None"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := newDefault(tc.def).encode(tc.value)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want %q got %q", tc.want, got)
			}
		})
	}
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		def   any
		value any
	}{
		{"int8 overflow", int8(0), 300},
		{"uint negative", uint(0), -1},
		{"int NaN", 0, math.NaN()},
		{"int from map", 0, map[string]int{}},
		{"structured map", []any{}, map[string]int{"a": 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newDefault(tc.def).encode(tc.value); err == nil {
				t.Fatalf("expected error encoding %#v", tc.value)
			}
		})
	}
}

func TestDecodeByKind(t *testing.T) {
	cases := []struct {
		name string
		def  any
		raw  string
		want any
	}{
		{"bool literal", false, "True", true},
		{"bool strconv", true, "0", false},
		{"int", 0, "42", 42},
		{"int truncates float text", 0, "12.7", 12},
		{"int64", int64(0), "-5", int64(-5)},
		{"uint8", uint8(0), "255", uint8(255)},
		{"float", 0.0, "1e-05", 0.00001},
		{"float32", float32(0), "0.5", float32(0.5)},
		{"string verbatim", "", "a # b", "a # b"},
		{"string quoted", "", "'  padded'", "  padded"},
		{"string half quoted", "", "'open", "'open"},
		{"list", []any{}, "[1, 'a']", []any{1, "a"}},
		{"typed list", []string{}, "['a', 'b']", []string{"a", "b"}},
		{"tuple", literal.Tuple{}, "(1, 2)", literal.Tuple{1, 2}},
		{"structured fallback", []any{}, "not a literal", "not a literal"},
		{"structured mismatch keeps parsed", []int{}, "['x']", []any{"x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := newDefault(tc.def).decode(tc.raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("want %#v got %#v", tc.want, got)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		def  any
		raw  string
	}{
		{"bool", true, "maybe"},
		{"int", 0, "ten"},
		{"float", 0.0, "1,5"},
		{"int8 overflow", int8(0), "1000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newDefault(tc.def).decode(tc.raw); err == nil {
				t.Fatalf("expected error decoding %q", tc.raw)
			}
		})
	}
}

func TestCoercionErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &CoercionError{Section: "s", Option: "o", Kind: KindInt, Raw: "x", Err: cause}
	if !errors.Is(err, ErrCoercion) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinel and cause in chain: %v", err)
	}
}

func TestVersionValidation(t *testing.T) {
	for _, v := range []string{"0.0.0", "1.0.1", "10.20.30"} {
		if !ValidVersion(v) {
			t.Fatalf("expected %q to be valid", v)
		}
	}
	for _, v := range []string{"1.0", "1.0.0.0", "v1.0.0", "1.a.0", " 1.0.0"} {
		if ValidVersion(v) {
			t.Fatalf("expected %q to be invalid", v)
		}
	}
	if effectiveVersion("") != "0.0.0" {
		t.Fatalf("expected absent version to compare as 0.0.0")
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.10", "1.0.9", 1},
		{"", "0.0.1", -1},
	}
	for _, tc := range cases {
		got, err := compareVersions(tc.a, tc.b)
		if err != nil {
			t.Fatalf("compare %q %q: %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("compare %q %q: want %d got %d", tc.a, tc.b, tc.want, got)
		}
	}
}
