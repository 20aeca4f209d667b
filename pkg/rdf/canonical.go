package rdf

import (
	"fmt"
	"strings"
)

// escapeString escapes a literal lexical form for N-Triples, N-Quads and
// Turtle short strings.
func escapeString(s string) string {
	if !needsEscape(s) {
		return s
	}
	var builder strings.Builder
	builder.Grow(len(s) + 8)

	for _, r := range s {
		switch r {
		case '\t':
			builder.WriteString(`\t`)
		case '\b':
			builder.WriteString(`\b`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\f':
			builder.WriteString(`\f`)
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		default:
			if r < 0x20 || r == 0x7F || (r >= 0xFFFE && r <= 0xFFFF) {
				fmt.Fprintf(&builder, `\u%04X`, r)
			} else {
				builder.WriteRune(r)
			}
		}
	}

	return builder.String()
}

func needsEscape(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == '"' || c == '\\' || c == 0x7F || c == 0xEF {
			return true
		}
	}
	return false
}

// escapeIRI escapes the characters N-Triples forbids inside <...>.
func escapeIRI(iri string) string {
	if !strings.ContainsAny(iri, "<>\"{}|^`\\ \t\n\r") {
		return iri
	}
	var builder strings.Builder
	for _, r := range iri {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			fmt.Fprintf(&builder, `\u%04X`, r)
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// EscapeString is the exported form of the N-Triples literal escaper.
func EscapeString(s string) string { return escapeString(s) }

// EscapeIRI is the exported form of the N-Triples IRI escaper.
func EscapeIRI(iri string) string { return escapeIRI(iri) }
