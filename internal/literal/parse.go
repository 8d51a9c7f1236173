// Package literal implements the small literal grammar used to persist
// structured setting values as text: None, True, False, integers, floats,
// quoted strings, lists and tuples. It never evaluates identifiers or calls.
package literal

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxDepth bounds list/tuple nesting so hostile files cannot exhaust the stack.
const maxDepth = 64

// ErrSyntax reports text outside the literal grammar.
var ErrSyntax = errors.New("literal: invalid syntax")

// Tuple is a fixed-size sequence, formatted with parentheses.
type Tuple []any

// SyntaxError pinpoints where parsing stopped.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("literal: %s at offset %d in %q", e.Msg, e.Offset, e.Input)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// Parse reads a single literal from src. Integers decode as int, floats as
// float64, strings as string, lists as []any and tuples as Tuple.
func Parse(src string) (any, error) {
	p := &parser{src: src}
	p.skipSpace()
	value, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return value, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Input: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value(depth int) (any, error) {
	if depth > maxDepth {
		return nil, p.errorf("nesting deeper than %d", maxDepth)
	}
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}
	c := p.peek()
	switch {
	case c == '[':
		return p.list(depth)
	case c == '(':
		return p.tuple(depth)
	case c == '\'' || c == '"':
		return p.str(false)
	case isDigit(c) || c == '-' || c == '+' || c == '.':
		return p.number()
	case isIdentStart(c):
		return p.word()
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

func (p *parser) list(depth int) (any, error) {
	p.pos++ // [
	items := []any{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return items, nil
		}
		item, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return items, nil
		default:
			return nil, p.errorf("expected ',' or ']'")
		}
	}
}

func (p *parser) tuple(depth int) (any, error) {
	p.pos++ // (
	items := Tuple{}
	sawComma := false
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			break
		}
		item, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			sawComma = true
			continue
		case ')':
			p.pos++
		default:
			return nil, p.errorf("expected ',' or ')'")
		}
		break
	}
	// (x) is a parenthesised value, not a tuple.
	if len(items) == 1 && !sawComma {
		return items[0], nil
	}
	return items, nil
}

func (p *parser) word() (any, error) {
	start := p.pos
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	word := p.src[start:p.pos]
	// String prefixes: u'..', b'..', r'..' and combinations.
	if q := p.peek(); (q == '\'' || q == '"') && isStringPrefix(word) {
		return p.str(strings.ContainsAny(word, "rR"))
	}
	switch word {
	case "None":
		return nil, nil
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "inf":
		return math.Inf(1), nil
	case "nan":
		return math.NaN(), nil
	}
	p.pos = start
	return nil, p.errorf("unknown name %q", word)
}

func isStringPrefix(word string) bool {
	switch strings.ToLower(word) {
	case "u", "b", "r", "ur", "br", "rb":
		return true
	}
	return false
}

func (p *parser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	if strings.HasPrefix(p.src[p.pos:], "inf") {
		p.pos += len("inf")
		if p.src[start] == '-' {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	}
	isFloat := false
scan:
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '.':
			isFloat = true
			p.pos++
		case (c == 'e' || c == 'E') && !hasRadixPrefix(p.src[start:p.pos]):
			isFloat = true
			p.pos++
			if n := p.peek(); n == '-' || n == '+' {
				p.pos++
			}
		case isNumberPart(c):
			p.pos++
		default:
			break scan
		}
	}
	text := p.src[start:p.pos]
	// Trailing L marks a long integer in older reprs.
	if c := p.peek(); !isFloat && (c == 'L' || c == 'l') {
		p.pos++
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.pos = start
			return nil, p.errorf("invalid float %q", text)
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid integer %q", text)
	}
	return int(n), nil
}

func hasRadixPrefix(text string) bool {
	text = strings.TrimLeft(text, "+-")
	if len(text) < 2 || text[0] != '0' {
		return false
	}
	switch text[1] {
	case 'x', 'X', 'o', 'O', 'b', 'B':
		return true
	}
	return false
}

func (p *parser) str(raw bool) (any, error) {
	quote := p.peek()
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return nil, p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\n':
			return nil, p.errorf("newline in string")
		case c == '\\' && raw:
			// Raw strings keep the backslash but still cannot end on an escaped quote.
			b.WriteByte(c)
			p.pos++
			if !p.eof() {
				b.WriteByte(p.src[p.pos])
				p.pos++
			}
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return nil, err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *parser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.eof() {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '\n':
		// line continuation
	case 'x':
		return p.hexEscape(b, 2)
	case 'u':
		return p.hexEscape(b, 4)
	case 'U':
		return p.hexEscape(b, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := int(c - '0')
		for i := 0; i < 2 && !p.eof() && p.peek() >= '0' && p.peek() <= '7'; i++ {
			n = n*8 + int(p.peek()-'0')
			p.pos++
		}
		b.WriteRune(rune(n))
	default:
		// Unknown escapes are kept verbatim.
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) hexEscape(b *strings.Builder, width int) error {
	if p.pos+width > len(p.src) {
		return p.errorf("truncated escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+width], 16, 32)
	if err != nil {
		return p.errorf("invalid escape %q", p.src[p.pos:p.pos+width])
	}
	p.pos += width
	if n > utf8.MaxRune {
		return p.errorf("escape out of range")
	}
	b.WriteRune(rune(n))
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNumberPart(c byte) bool {
	return isDigit(c) || c == '_' || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') ||
		c == 'x' || c == 'X' || c == 'o' || c == 'O'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
