// Package partialjson decodes JSON fragments that may be truncated at an
// arbitrary byte boundary, as happens when tool-call arguments stream in
// token by token. Parsing is best-effort: an unterminated trailing string
// yields the characters captured so far, while an incomplete trailing
// number, literal, or key is discarded.
package partialjson

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// partialUnicodePattern matches an incomplete \uXXXX escape at the end of
// the input. Left in place it would either fail to parse or silently
// decode garbage, so the tail is truncated at the escape instead.
var partialUnicodePattern = regexp.MustCompile(`\\u[0-9a-fA-F]{0,3}$`)

// errTruncated is returned internally when a value is cut off before
// enough bytes arrived to keep any of it.
var errTruncated = errors.New("truncated value")

// Parse decodes a possibly incomplete JSON document.
//
// Empty or whitespace-only input returns the empty-string sentinel (not
// nil), so callers can distinguish "no data yet" from a parsed null. A
// string that is a prefix of a valid document never produces an error;
// genuinely malformed input does, and callers are expected to treat that
// as "not yet parseable" and skip the current tick.
func Parse(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}

	// A fragment ending in a bare closing quote is ambiguous: the string
	// may have just closed, or the next byte simply has not arrived. The
	// same goes for a dangling escape backslash. Dropping the trailing
	// character makes both read as still-open strings.
	if (strings.HasSuffix(s, `"`) && !strings.HasSuffix(s, `\"`) && !strings.HasSuffix(s, `:"`)) ||
		(strings.HasSuffix(s, `\`) && !strings.HasSuffix(s, `\\`)) {
		s = s[:len(s)-1]
	} else if m := partialUnicodePattern.FindString(s); m != "" {
		s = s[:len(s)-len(m)]
	}

	if strings.TrimSpace(s) == "" {
		return "", nil
	}

	d := &decoder{input: s, keys: make(map[string]string)}
	v, err := d.value()
	if err != nil {
		if errors.Is(err, errTruncated) {
			return "", nil
		}
		return nil, err
	}
	d.skipSpace()
	if !d.eof() {
		return nil, fmt.Errorf("unexpected trailing data at offset %d", d.pos)
	}
	return v, nil
}

// decoder is a single-pass recursive-descent parser over the fragment.
// Repeated object keys are interned so deeply nested streams of uniform
// objects do not allocate one string per occurrence.
type decoder struct {
	input string
	pos   int
	keys  map[string]string
}

func (d *decoder) eof() bool {
	return d.pos >= len(d.input)
}

func (d *decoder) peek() byte {
	return d.input[d.pos]
}

func (d *decoder) skipSpace() {
	for !d.eof() {
		switch d.input[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *decoder) value() (any, error) {
	d.skipSpace()
	if d.eof() {
		return nil, errTruncated
	}
	switch c := d.peek(); {
	case c == '{':
		return d.object()
	case c == '[':
		return d.array()
	case c == '"':
		return d.str()
	case c == 't':
		return d.literal("true", true)
	case c == 'f':
		return d.literal("false", false)
	case c == 'n':
		return d.literal("null", nil)
	case c == '-' || (c >= '0' && c <= '9'):
		return d.number()
	default:
		return nil, fmt.Errorf("unexpected character %q at offset %d", c, d.pos)
	}
}

// str parses a JSON string. Hitting end of input before the closing quote
// is not an error: the characters captured so far are the value. That is
// the "trailing-strings" behavior streaming callers rely on to surface a
// growing argument value before it is complete.
func (d *decoder) str() (string, error) {
	d.pos++ // opening quote
	var b strings.Builder
	for !d.eof() {
		c := d.input[d.pos]
		switch {
		case c == '"':
			d.pos++
			return b.String(), nil
		case c == '\\':
			d.pos++
			if d.eof() {
				// Dangling escape at the tail; keep what we have.
				return b.String(), nil
			}
			esc := d.input[d.pos]
			d.pos++
			switch esc {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				if len(d.input)-d.pos < 4 {
					// Incomplete \uXXXX at the tail; drop the escape.
					d.pos = len(d.input)
					return b.String(), nil
				}
				hex := d.input[d.pos : d.pos+4]
				code, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return "", fmt.Errorf("invalid unicode escape \\u%s at offset %d", hex, d.pos)
				}
				d.pos += 4
				b.WriteRune(rune(code))
			default:
				return "", fmt.Errorf("invalid escape character %q at offset %d", esc, d.pos)
			}
		default:
			b.WriteByte(c)
			d.pos++
		}
	}
	return b.String(), nil
}

func (d *decoder) literal(want string, v any) (any, error) {
	rest := d.input[d.pos:]
	if strings.HasPrefix(rest, want) {
		d.pos += len(want)
		return v, nil
	}
	if strings.HasPrefix(want, rest) {
		// "tru" may still become "true"; nothing usable yet.
		d.pos = len(d.input)
		return nil, errTruncated
	}
	return nil, fmt.Errorf("invalid literal at offset %d", d.pos)
}

func (d *decoder) number() (any, error) {
	start := d.pos
	for !d.eof() {
		c := d.peek()
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			d.pos++
			continue
		}
		break
	}
	tok := d.input[start:d.pos]
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		if d.eof() {
			// "-" or "1e" may still grow into a valid number.
			return nil, errTruncated
		}
		return nil, fmt.Errorf("invalid number %q at offset %d", tok, start)
	}
	return f, nil
}

func (d *decoder) array() (any, error) {
	d.pos++ // opening bracket
	elems := []any{}
	for {
		d.skipSpace()
		if d.eof() {
			return elems, nil
		}
		if d.peek() == ']' {
			d.pos++
			return elems, nil
		}
		v, err := d.value()
		if err != nil {
			if errors.Is(err, errTruncated) {
				return elems, nil
			}
			return nil, err
		}
		elems = append(elems, v)

		d.skipSpace()
		if d.eof() {
			return elems, nil
		}
		switch d.peek() {
		case ',':
			d.pos++
		case ']':
			d.pos++
			return elems, nil
		default:
			return nil, fmt.Errorf("expected ',' or ']' at offset %d", d.pos)
		}
	}
}

func (d *decoder) object() (any, error) {
	d.pos++ // opening brace
	obj := map[string]any{}
	for {
		d.skipSpace()
		if d.eof() {
			return obj, nil
		}
		if d.peek() == '}' {
			d.pos++
			return obj, nil
		}
		if d.peek() != '"' {
			return nil, fmt.Errorf("expected object key at offset %d", d.pos)
		}
		key, err := d.str()
		if err != nil {
			return nil, err
		}
		key = d.intern(key)

		d.skipSpace()
		if d.eof() {
			// Key with no value yet: drop the dangling pair.
			return obj, nil
		}
		if d.peek() != ':' {
			return nil, fmt.Errorf("expected ':' at offset %d", d.pos)
		}
		d.pos++

		v, err := d.value()
		if err != nil {
			if errors.Is(err, errTruncated) {
				return obj, nil
			}
			return nil, err
		}
		obj[key] = v

		d.skipSpace()
		if d.eof() {
			return obj, nil
		}
		switch d.peek() {
		case ',':
			d.pos++
		case '}':
			d.pos++
			return obj, nil
		default:
			return nil, fmt.Errorf("expected ',' or '}' at offset %d", d.pos)
		}
	}
}

func (d *decoder) intern(key string) string {
	if cached, ok := d.keys[key]; ok {
		return cached
	}
	d.keys[key] = key
	return key
}
