package encoding

import (
	"errors"
	"fmt"
	"strings"
)

// fieldPunctuation is the punctuation allowed in identifier fields in
// addition to ASCII letters and digits.
const fieldPunctuation = "!$%*+-_.:,@`[]{}~^\\|"

// valueDenylist is the set of characters the broker rejects inside
// free-text values.
const valueDenylist = `<>"'=;()`

// ErrInvalidMarker indicates the requested escape marker is not itself a
// member of the field alphabet and therefore cannot appear in encoded output.
var ErrInvalidMarker = errors.New("escape marker outside field alphabet")

// fieldAllowed marks every byte that may appear unescaped in a field.
// Bytes above 0x7F are handled separately (always passed through).
var fieldAllowed [128]bool

// valueForbidden marks every byte that must be escaped in a value.
var valueForbidden [128]bool

func init() {
	for b := byte('0'); b <= '9'; b++ {
		fieldAllowed[b] = true
	}
	for b := byte('A'); b <= 'Z'; b++ {
		fieldAllowed[b] = true
	}
	for b := byte('a'); b <= 'z'; b++ {
		fieldAllowed[b] = true
	}
	for i := 0; i < len(fieldPunctuation); i++ {
		fieldAllowed[fieldPunctuation[i]] = true
	}
	for i := 0; i < len(valueDenylist); i++ {
		valueForbidden[valueDenylist[i]] = true
	}
}

// Codec escapes and unescapes broker-forbidden characters using a fixed
// one-byte escape marker. The zero value is not usable; use NewCodec or one
// of the package-level codecs.
//
// A Codec is stateless and safe for concurrent use.
type Codec struct {
	marker byte
}

// Percent is the default codec, escaping with '%'.
var Percent = &Codec{marker: '%'}

// Tilde escapes with '~'. Identical semantics to Percent; only the marker
// differs. Useful when payloads already carry percent-encoded content.
var Tilde = &Codec{marker: '~'}

// NewCodec creates a codec with a custom escape marker. The marker must be a
// member of the field alphabet so that encoded fields stay valid on the wire.
func NewCodec(marker byte) (*Codec, error) {
	if marker >= 0x80 || !fieldAllowed[marker] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMarker, marker)
	}
	return &Codec{marker: marker}, nil
}

// Marker returns the codec's escape marker byte.
func (c *Codec) Marker() byte { return c.marker }

// EncodeField escapes every character that may not appear in an identifier
// field. Bytes above 0x7F pass through unescaped.
func (c *Codec) EncodeField(s string) string {
	return c.encode(s, c.fieldNeedsEscape)
}

// EncodeValue escapes the broker's value denylist. All other characters,
// including non-ASCII, pass through.
func (c *Codec) EncodeValue(s string) string {
	return c.encode(s, c.valueNeedsEscape)
}

// DecodeField decodes every well-formed escape triple in an identifier
// field, regardless of whether the character needed escaping.
func (c *Codec) DecodeField(s string) string {
	return c.decode(s, nil)
}

// DecodeFieldStrict decodes only those triples whose character is actually
// forbidden in fields. Look-alike triples produced by the broker stay
// literal.
func (c *Codec) DecodeFieldStrict(s string) string {
	return c.decode(s, c.fieldNeedsEscape)
}

// DecodeValue decodes every well-formed escape triple in a value.
func (c *Codec) DecodeValue(s string) string {
	return c.decode(s, nil)
}

// DecodeValueStrict decodes only those triples whose character is a member
// of the value denylist.
func (c *Codec) DecodeValueStrict(s string) string {
	return c.decode(s, c.valueNeedsEscape)
}

// fieldNeedsEscape reports whether b must be escaped in an identifier field.
// The marker is always escaped to keep the encoding injective.
func (c *Codec) fieldNeedsEscape(b byte) bool {
	if b == c.marker {
		return true
	}
	return b < 0x80 && !fieldAllowed[b]
}

// valueNeedsEscape reports whether b must be escaped in a value.
func (c *Codec) valueNeedsEscape(b byte) bool {
	if b == c.marker {
		return true
	}
	return b < 0x80 && valueForbidden[b]
}

const hexUpper = "0123456789ABCDEF"

func (c *Codec) encode(s string, needsEscape func(byte) bool) string {
	// Fast path: nothing to escape.
	i := 0
	for ; i < len(s); i++ {
		if needsEscape(s[i]) {
			break
		}
	}
	if i == len(s) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteString(s[:i])
	for ; i < len(s); i++ {
		b := s[i]
		if needsEscape(b) {
			sb.WriteByte(c.marker)
			sb.WriteByte(hexUpper[b>>4])
			sb.WriteByte(hexUpper[b&0x0F])
		} else {
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

// decode scans for <marker><hex><hex> triples. With a nil filter every
// well-formed triple is decoded (lenient); otherwise only triples whose
// decoded byte satisfies the filter are decoded (strict). Malformed
// sequences after the marker are always left literal.
func (c *Codec) decode(s string, filter func(byte) bool) string {
	idx := strings.IndexByte(s, c.marker)
	if idx < 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	sb.WriteString(s[:idx])
	for i := idx; i < len(s); i++ {
		b := s[i]
		if b != c.marker || i+2 >= len(s) {
			sb.WriteByte(b)
			continue
		}
		hi, okHi := hexVal(s[i+1])
		lo, okLo := hexVal(s[i+2])
		if !okHi || !okLo {
			sb.WriteByte(b)
			continue
		}
		decoded := hi<<4 | lo
		if filter != nil && !filter(decoded) {
			sb.WriteByte(b)
			continue
		}
		sb.WriteByte(decoded)
		i += 2
	}
	return sb.String()
}

// hexVal returns the value of a single hex digit. Both cases are accepted on
// decode even though encoding always emits uppercase.
func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	default:
		return 0, false
	}
}
