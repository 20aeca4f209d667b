// Package syntax holds the lexical primitives shared by the text readers.
package syntax

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrSyntax marks malformed input. Readers skip the offending record.
var ErrSyntax = errors.New("syntax error")

// Stats counts what a reader saw.
type Stats struct {
	Lines      int64
	Statements int64
	Skipped    int64
}

func (s *Stats) Add(o Stats) {
	s.Lines += o.Lines
	s.Statements += o.Statements
	s.Skipped += o.Skipped
}

// Cursor scans a string.
type Cursor struct {
	Input string
	Pos   int
}

func NewCursor(input string) *Cursor {
	return &Cursor{Input: input}
}

func (c *Cursor) EOF() bool { return c.Pos >= len(c.Input) }

// Peek returns the current byte, or 0 at end of input.
func (c *Cursor) Peek() byte {
	if c.Pos >= len(c.Input) {
		return 0
	}
	return c.Input[c.Pos]
}

// PeekAt returns the byte n positions ahead, or 0.
func (c *Cursor) PeekAt(n int) byte {
	if c.Pos+n >= len(c.Input) {
		return 0
	}
	return c.Input[c.Pos+n]
}

func (c *Cursor) HasPrefix(s string) bool {
	return strings.HasPrefix(c.Input[c.Pos:], s)
}

// Line returns the 1-based line of the current position.
func (c *Cursor) Line() int {
	return strings.Count(c.Input[:min(c.Pos, len(c.Input))], "\n") + 1
}

// Errorf returns an ErrSyntax error annotated with the current line.
func (c *Cursor) Errorf(format string, args ...any) error {
	return fmt.Errorf("%w at line %d: %s", ErrSyntax, c.Line(), fmt.Sprintf(format, args...))
}

// SkipSpace skips white space and '#' comments, passing each comment text
// to fn when fn is not nil.
func (c *Cursor) SkipSpace(fn func(comment string)) {
	for c.Pos < len(c.Input) {
		switch c.Input[c.Pos] {
		case ' ', '\t', '\n', '\r':
			c.Pos++
		case '#':
			start := c.Pos + 1
			for c.Pos < len(c.Input) && c.Input[c.Pos] != '\n' && c.Input[c.Pos] != '\r' {
				c.Pos++
			}
			if fn != nil {
				fn(strings.TrimSpace(c.Input[start:c.Pos]))
			}
		default:
			return
		}
	}
}

// MatchKeyword consumes kw when it appears case-insensitively and is not
// followed by a name character or ':'.
func (c *Cursor) MatchKeyword(kw string) bool {
	end := c.Pos + len(kw)
	if end > len(c.Input) || !strings.EqualFold(c.Input[c.Pos:end], kw) {
		return false
	}
	if end < len(c.Input) && (IsNameChar(rune(c.Input[end])) || c.Input[end] == ':') {
		return false
	}
	c.Pos = end
	return true
}

// IRIRef parses <...> and returns the unescaped, unresolved reference.
func (c *Cursor) IRIRef() (string, error) {
	if c.Peek() != '<' {
		return "", c.Errorf("expected '<'")
	}
	c.Pos++

	var result strings.Builder
	for c.Pos < len(c.Input) && c.Input[c.Pos] != '>' {
		ch := c.Input[c.Pos]
		if ch == '\\' {
			if next := c.PeekAt(1); next == 'u' || next == 'U' {
				r, err := c.unicodeEscape()
				if err != nil {
					return "", err
				}
				result.WriteRune(r)
				continue
			}
			return "", c.Errorf("invalid escape in IRI")
		}
		if ch <= 0x20 || ch == '<' || ch == '"' || ch == '{' || ch == '}' || ch == '|' || ch == '^' || ch == '`' {
			return "", c.Errorf("invalid character %q in IRI", ch)
		}
		result.WriteByte(ch)
		c.Pos++
	}
	if c.Pos >= len(c.Input) {
		return "", c.Errorf("unclosed IRI")
	}
	c.Pos++
	return result.String(), nil
}

// BlankLabel parses _:label and returns the label.
func (c *Cursor) BlankLabel() (string, error) {
	if !c.HasPrefix("_:") {
		return "", c.Errorf("expected '_:'")
	}
	c.Pos += 2
	start := c.Pos
	for c.Pos < len(c.Input) {
		r, size := utf8.DecodeRuneInString(c.Input[c.Pos:])
		if !IsNameChar(r) && r != '.' {
			break
		}
		c.Pos += size
	}
	// a label never ends with '.'
	for c.Pos > start && c.Input[c.Pos-1] == '.' {
		c.Pos--
	}
	if c.Pos == start {
		return "", c.Errorf("empty blank node label")
	}
	return c.Input[start:c.Pos], nil
}

// String parses a quoted string in any of the four Turtle forms and
// returns the unescaped value. N-Triples only ever uses "...".
func (c *Cursor) String() (string, error) {
	q := c.Peek()
	if q != '"' && q != '\'' {
		return "", c.Errorf("expected string")
	}
	long := strings.Repeat(string(q), 3)
	if c.HasPrefix(long) {
		c.Pos += 3
		return c.stringBody(q, long)
	}
	c.Pos++
	return c.stringBody(q, "")
}

func (c *Cursor) stringBody(q byte, long string) (string, error) {
	var value strings.Builder
	for c.Pos < len(c.Input) {
		ch := c.Input[c.Pos]
		switch {
		case long != "" && c.HasPrefix(long):
			c.Pos += 3
			// quotes directly before the terminator belong to the value
			for c.Peek() == q {
				value.WriteByte(q)
				c.Pos++
			}
			return value.String(), nil
		case long == "" && ch == q:
			c.Pos++
			return value.String(), nil
		case long == "" && (ch == '\n' || ch == '\r'):
			return "", c.Errorf("newline in string")
		case ch == '\\':
			if err := c.escape(&value); err != nil {
				return "", err
			}
		default:
			value.WriteByte(ch)
			c.Pos++
		}
	}
	return "", c.Errorf("unclosed string")
}

func (c *Cursor) escape(value *strings.Builder) error {
	next := c.PeekAt(1)
	switch next {
	case 'u', 'U':
		r, err := c.unicodeEscape()
		if err != nil {
			return err
		}
		value.WriteRune(r)
		return nil
	case 'n':
		value.WriteByte('\n')
	case 't':
		value.WriteByte('\t')
	case 'r':
		value.WriteByte('\r')
	case 'b':
		value.WriteByte('\b')
	case 'f':
		value.WriteByte('\f')
	case '"', '\'', '\\':
		value.WriteByte(next)
	default:
		return c.Errorf("invalid escape sequence \\%c", next)
	}
	c.Pos += 2
	return nil
}

// unicodeEscape parses \uXXXX or \UXXXXXXXX at the cursor.
func (c *Cursor) unicodeEscape() (rune, error) {
	digits := 4
	if c.PeekAt(1) == 'U' {
		digits = 8
	}
	start := c.Pos + 2
	if start+digits > len(c.Input) {
		return 0, c.Errorf("incomplete unicode escape")
	}
	code, err := strconv.ParseUint(c.Input[start:start+digits], 16, 32)
	if err != nil {
		return 0, c.Errorf("invalid unicode escape %q", c.Input[start:start+digits])
	}
	if code > utf8.MaxRune || (code >= 0xD800 && code <= 0xDFFF) {
		return 0, c.Errorf("invalid code point U+%X", code)
	}
	c.Pos = start + digits
	return rune(code), nil
}

// LangTag parses @tag and returns tag.
func (c *Cursor) LangTag() (string, error) {
	if c.Peek() != '@' {
		return "", c.Errorf("expected '@'")
	}
	c.Pos++
	start := c.Pos
	for c.Pos < len(c.Input) {
		ch := c.Input[c.Pos]
		if !isAlpha(ch) && !(ch >= '0' && ch <= '9' && c.Pos > start) && !(ch == '-' && c.Pos > start) {
			break
		}
		c.Pos++
	}
	tag := c.Input[start:c.Pos]
	if tag == "" || !isAlpha(tag[0]) || strings.HasSuffix(tag, "-") {
		return "", c.Errorf("invalid language tag %q", tag)
	}
	return tag, nil
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// IsNameChar reports whether r may appear inside a prefixed name or blank
// node label (PN_CHARS plus '_').
func IsNameChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	case r == 0xB7:
		return true
	case r >= 0xC0 && r != 0xD7 && r != 0xF7 && r <= 0x1FFF:
		return true
	case r == 0x200C || r == 0x200D || r == 0x203F || r == 0x2040:
		return true
	case r >= 0x2070 && r <= 0x218F, r >= 0x2C00 && r <= 0x2FEF, r >= 0x3001 && r <= 0xD7FF:
		return true
	case r >= 0xF900 && r <= 0xFDCF, r >= 0xFDF0 && r <= 0xFFFD, r >= 0x10000 && r <= 0xEFFFF:
		return true
	}
	return false
}
