package userconfig

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-userconfig/internal/literal"
)

// Kind is the coercion class fixed by an option's registered default.
type Kind uint8

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
	// KindStructured covers nil, lists, tuples and anything else stored in
	// literal form.
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// KindOf reports the kind a default value of v registers.
func KindOf(v any) Kind {
	if v == nil {
		return KindStructured
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	default:
		return KindStructured
	}
}

var (
	errOutOfRange  = errors.New("value out of range")
	errNotANumber  = errors.New("not a finite number")
	errUnsupported = errors.New("unsupported value type")
)

// defaultValue is a registered default together with the kind and Go type
// every read of the option is coerced to.
type defaultValue struct {
	value any
	kind  Kind
	typ   reflect.Type
}

func newDefault(v any) defaultValue {
	d := defaultValue{value: v, kind: KindOf(v)}
	if v != nil {
		d.typ = reflect.TypeOf(v)
	}
	return d
}

func (d defaultValue) unsigned() bool {
	if d.typ == nil {
		return false
	}
	switch d.typ.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func (d defaultValue) floatBits() int {
	if d.typ != nil && d.typ.Kind() == reflect.Float32 {
		return 32
	}
	return 64
}

// encode casts value to d's kind and renders the text stored in the file.
func (d defaultValue) encode(value any) (string, error) {
	switch d.kind {
	case KindBool:
		b, err := castBool(value)
		if err != nil {
			return "", err
		}
		return formatBool(b), nil
	case KindInt:
		if d.unsigned() {
			u, err := castUint(value)
			if err != nil {
				return "", err
			}
			if _, ok := conform(u, d.typ); !ok {
				return "", errOutOfRange
			}
			return strconv.FormatUint(u, 10), nil
		}
		i, err := castInt(value)
		if err != nil {
			return "", err
		}
		if _, ok := conform(i, d.typ); !ok {
			return "", errOutOfRange
		}
		return strconv.FormatInt(i, 10), nil
	case KindFloat:
		f, err := castFloat(value)
		if err != nil {
			return "", err
		}
		if _, ok := conform(f, d.typ); !ok {
			return "", errOutOfRange
		}
		return literal.FormatFloat(f, d.floatBits()), nil
	case KindString:
		if s, ok := stringOf(value); ok {
			return escapeString(s), nil
		}
		return literal.Format(value)
	default:
		return literal.Format(value)
	}
}

// decode parses stored text back into a value of d's Go type. Structured
// text that does not parse is returned verbatim.
func (d defaultValue) decode(raw string) (any, error) {
	text := strings.TrimSpace(raw)
	switch d.kind {
	case KindBool:
		b, err := parseBool(text)
		if err != nil {
			return nil, err
		}
		return conformed(b, d.typ)
	case KindInt:
		if d.unsigned() {
			u, err := parseUint(text)
			if err != nil {
				return nil, err
			}
			return conformed(u, d.typ)
		}
		i, err := parseInt(text)
		if err != nil {
			return nil, err
		}
		return conformed(i, d.typ)
	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, err
		}
		return conformed(f, d.typ)
	case KindString:
		return conformed(decodeString(raw), d.typ)
	default:
		v, err := literal.Parse(raw)
		if err != nil {
			return raw, nil
		}
		if out, ok := conform(v, d.typ); ok {
			return out, nil
		}
		return v, nil
	}
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func parseInt(s string) (int64, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return i, nil
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return 0, err
	}
	return truncInt(f)
}

func parseUint(s string) (uint64, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err == nil {
		return u, nil
	}
	i, ierr := parseInt(s)
	if ierr != nil {
		return 0, err
	}
	if i < 0 {
		return 0, errOutOfRange
	}
	return uint64(i), nil
}

func truncInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotANumber
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, errOutOfRange
	}
	return int64(t), nil
}

func castBool(v any) (bool, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false, nil
	}
	switch {
	case rv.Kind() == reflect.Bool:
		return rv.Bool(), nil
	case rv.CanInt():
		return rv.Int() != 0, nil
	case rv.CanUint():
		return rv.Uint() != 0, nil
	case rv.CanFloat():
		return rv.Float() != 0, nil
	case rv.Kind() == reflect.String:
		if b, err := parseBool(strings.TrimSpace(rv.String())); err == nil {
			return b, nil
		}
		return rv.Len() > 0, nil
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0, nil
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil(), nil
	}
	return false, fmt.Errorf("%w %T", errUnsupported, v)
}

func castInt(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch {
	case !rv.IsValid():
		return 0, fmt.Errorf("%w <nil>", errUnsupported)
	case rv.Kind() == reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		if rv.Uint() > math.MaxInt64 {
			return 0, errOutOfRange
		}
		return int64(rv.Uint()), nil
	case rv.CanFloat():
		return truncInt(rv.Float())
	case rv.Kind() == reflect.String:
		return parseInt(strings.TrimSpace(rv.String()))
	}
	return 0, fmt.Errorf("%w %T", errUnsupported, v)
}

func castUint(v any) (uint64, error) {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.CanUint() {
		return rv.Uint(), nil
	}
	if rv.IsValid() && rv.Kind() == reflect.String {
		return parseUint(strings.TrimSpace(rv.String()))
	}
	i, err := castInt(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, errOutOfRange
	}
	return uint64(i), nil
}

func castFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch {
	case !rv.IsValid():
		return 0, fmt.Errorf("%w <nil>", errUnsupported)
	case rv.Kind() == reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.Kind() == reflect.String:
		return strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
	}
	return 0, fmt.Errorf("%w %T", errUnsupported, v)
}

func stringOf(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

// escapeString returns s unchanged unless the INI codec would not read it
// back verbatim, in which case it is stored as a quoted literal.
func escapeString(s string) string {
	if needsQuoting(s) {
		return literal.Quote(s)
	}
	return s
}

func needsQuoting(s string) bool {
	if s == "" || strings.TrimSpace(s) != s || !utf8.ValidString(s) {
		return true
	}
	switch s[0] {
	case '\'', '"', '`':
		return true
	}
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

func decodeString(raw string) string {
	if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0] {
		if v, err := literal.Parse(raw); err == nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return raw
}

func conformed(v any, typ reflect.Type) (any, error) {
	out, ok := conform(v, typ)
	if !ok {
		return nil, errOutOfRange
	}
	return out, nil
}

// conform converts v to typ when the conversion keeps the value's meaning:
// numeric conversions without overflow, named types, and element-wise
// conversion of lists and tuples.
func conform(v any, typ reflect.Type) (any, bool) {
	if typ == nil || typ.Kind() == reflect.Interface {
		return v, true
	}
	if v == nil {
		switch typ.Kind() {
		case reflect.Slice, reflect.Map, reflect.Pointer:
			return reflect.Zero(typ).Interface(), true
		}
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == typ {
		return v, true
	}
	out, ok := convertValue(rv, typ)
	if !ok {
		return nil, false
	}
	return out.Interface(), true
}

func convertValue(rv reflect.Value, typ reflect.Type) (reflect.Value, bool) {
	zero := reflect.Zero(typ)
	switch typ.Kind() {
	case reflect.Bool:
		if rv.Kind() == reflect.Bool {
			return rv.Convert(typ), true
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch {
		case rv.CanInt() && !zero.OverflowInt(rv.Int()):
			return rv.Convert(typ), true
		case rv.CanUint() && rv.Uint() <= math.MaxInt64 && !zero.OverflowInt(int64(rv.Uint())):
			return rv.Convert(typ), true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		switch {
		case rv.CanUint() && !zero.OverflowUint(rv.Uint()):
			return rv.Convert(typ), true
		case rv.CanInt() && rv.Int() >= 0 && !zero.OverflowUint(uint64(rv.Int())):
			return rv.Convert(typ), true
		}
	case reflect.Float32, reflect.Float64:
		if rv.CanInt() || rv.CanUint() || rv.CanFloat() {
			f := rv.Convert(reflect.TypeOf(float64(0))).Float()
			if typ.Kind() == reflect.Float32 && !math.IsInf(f, 0) && !math.IsNaN(f) && zero.OverflowFloat(f) {
				return reflect.Value{}, false
			}
			return reflect.ValueOf(f).Convert(typ), true
		}
	case reflect.String:
		if rv.Kind() == reflect.String {
			return rv.Convert(typ), true
		}
	case reflect.Slice, reflect.Array:
		return convertSequence(rv, typ)
	}
	return reflect.Value{}, false
}

func convertSequence(rv reflect.Value, typ reflect.Type) (reflect.Value, bool) {
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, false
	}
	n := rv.Len()
	var out reflect.Value
	if typ.Kind() == reflect.Slice {
		out = reflect.MakeSlice(typ, n, n)
	} else {
		if typ.Len() != n {
			return reflect.Value{}, false
		}
		out = reflect.New(typ).Elem()
	}
	et := typ.Elem()
	for i := 0; i < n; i++ {
		elem := rv.Index(i)
		if elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		if !elem.IsValid() {
			switch et.Kind() {
			case reflect.Interface, reflect.Slice, reflect.Map, reflect.Pointer:
				continue
			}
			return reflect.Value{}, false
		}
		if elem.Type() == et || (et.Kind() == reflect.Interface && elem.Type().AssignableTo(et)) {
			out.Index(i).Set(elem)
			continue
		}
		if et.Kind() == reflect.Interface {
			return reflect.Value{}, false
		}
		converted, ok := convertValue(elem, et)
		if !ok {
			return reflect.Value{}, false
		}
		out.Index(i).Set(converted)
	}
	return out, true
}
