package syntax

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCursor_String(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		rest     string
	}{
		{"double", `"a\tb" x`, "a\tb", " x"},
		{"single", `'it''s'`, "it", "'s'"},
		{"long double", "\"\"\"line\nbreak\"\"\".", "line\nbreak", "."},
		{"long single with quotes", `'''a 'b' c''''`, "a 'b' c'", ""},
		{"unicode", `"é\U0001F600"`, "é😀", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor(tt.input)
			got, err := c.String()
			if err != nil {
				t.Fatalf("String: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if rest := c.Input[c.Pos:]; rest != tt.rest {
				t.Errorf("Expected rest %q, got %q", tt.rest, rest)
			}
		})
	}
}

func TestCursor_Errors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(c *Cursor) error
		in   string
	}{
		{"unclosed string", func(c *Cursor) error { _, err := c.String(); return err }, `"abc`},
		{"newline in short string", func(c *Cursor) error { _, err := c.String(); return err }, "\"a\nb\""},
		{"bad escape", func(c *Cursor) error { _, err := c.String(); return err }, `"\q"`},
		{"surrogate", func(c *Cursor) error { _, err := c.String(); return err }, `"\uD800"`},
		{"space in iri", func(c *Cursor) error { _, err := c.IRIRef(); return err }, `<http://a b>`},
		{"unclosed iri", func(c *Cursor) error { _, err := c.IRIRef(); return err }, `<http://a`},
		{"empty label", func(c *Cursor) error { _, err := c.BlankLabel(); return err }, `_: `},
		{"bad lang", func(c *Cursor) error { _, err := c.LangTag(); return err }, `@1x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(NewCursor(tt.in))
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("Expected ErrSyntax, got %v", err)
			}
		})
	}
}

func TestCursor_Tokens(t *testing.T) {
	c := NewCursor(`<http://ex/A> _:b1. @en-GB # note
GRAPH:x graph {`)

	iri, err := c.IRIRef()
	if err != nil || iri != "http://ex/A" {
		t.Fatalf("IRIRef = %q, %v", iri, err)
	}
	c.SkipSpace(nil)
	label, err := c.BlankLabel()
	if err != nil || label != "b1" {
		t.Fatalf("BlankLabel = %q, %v", label, err)
	}
	if c.Peek() != '.' {
		t.Fatalf("Expected the label to stop before '.', at %q", c.Peek())
	}
	c.Pos++
	c.SkipSpace(nil)
	tag, err := c.LangTag()
	if err != nil || tag != "en-GB" {
		t.Fatalf("LangTag = %q, %v", tag, err)
	}

	var comments []string
	c.SkipSpace(func(text string) { comments = append(comments, text) })
	if diff := cmp.Diff([]string{"note"}, comments); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
	if c.Line() != 2 {
		t.Errorf("Expected line 2, got %d", c.Line())
	}
	if c.MatchKeyword("GRAPH") {
		t.Error("Expected GRAPH: to be a prefixed name, not a keyword")
	}
	c.Pos += len("GRAPH:x ")
	if !c.MatchKeyword("GRAPH") {
		t.Error("Expected keyword match to ignore case")
	}
}

func TestStats_Add(t *testing.T) {
	s := Stats{Lines: 1, Statements: 2, Skipped: 3}
	s.Add(Stats{Lines: 10, Statements: 20, Skipped: 30})
	if diff := cmp.Diff(Stats{Lines: 11, Statements: 22, Skipped: 33}, s); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}
