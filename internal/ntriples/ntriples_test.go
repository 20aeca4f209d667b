package ntriples

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"iris", `<http://ex/s> <http://ex/p> <http://ex/o> .`, `<http://ex/s> <http://ex/p> <http://ex/o> .`},
		{"blank", `_:b1 <http://ex/p> _:b2.`, `_:b1 <http://ex/p> _:b2 .`},
		{"lang", `<http://ex/s> <http://ex/p> "chat"@fr .`, `<http://ex/s> <http://ex/p> "chat"@fr .`},
		{"typed", `<http://ex/s> <http://ex/p> "1"^^<http://www.w3.org/2001/XMLSchema#integer> .`, `<http://ex/s> <http://ex/p> "1"^^<http://www.w3.org/2001/XMLSchema#integer> .`},
		{"escapes", `<http://ex/s> <http://ex/p> "a\tbé\"" .`, "<http://ex/s> <http://ex/p> \"a\\tbé\\\"\" ."},
		{"graph", `<http://ex/s> <http://ex/p> "o" <http://ex/g> .`, `<http://ex/s> <http://ex/p> "o" <http://ex/g> .`},
		{"trailing comment", `<http://ex/s> <http://ex/p> "o" . # note`, `<http://ex/s> <http://ex/p> "o" .`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseLine(tt.line)
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}
			if q.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, q.String())
			}
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	lines := []string{
		`<http://ex/s> <http://ex/p> <http://ex/o>`,
		`<s> <http://ex/p> <http://ex/o> .`,
		`"lit" <http://ex/p> <http://ex/o> .`,
		`<http://ex/s> _:p <http://ex/o> .`,
		`<http://ex/s> <http://ex/p> "open .`,
		`<http://ex/s> <http://ex/p> "x" "g" .`,
		`<http://ex/s> <http://ex/p> "x" . extra`,
		`<http://ex/s> <http://ex/p> "bad\q" .`,
	}
	for _, line := range lines {
		if q, err := ParseLine(line); err == nil {
			t.Errorf("ParseLine(%q): expected error, got %v", line, q)
		}
	}
	if q, err := ParseLine("   # only a comment"); q != nil || err != nil {
		t.Errorf("expected comment line to yield nothing, got %v %v", q, err)
	}
}

func TestParse_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"# header",
		`<http://ex/a> <http://ex/p> "1" .`,
		`this is not a statement`,
		``,
		`<http://ex/b> <http://ex/p> "2" .`,
	}, "\n")

	graph := rdf.NewNamedNode("http://ex/source")
	c := &rdf.Collector{}
	stats, err := Parse(context.Background(), strings.NewReader(input), c, Options{Graph: graph, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Quads) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(c.Quads))
	}
	if !c.Quads[0].Graph.Equals(graph) {
		t.Errorf("Expected supplied graph, got %s", c.Quads[0].Graph)
	}
	if stats.Skipped != 1 || stats.Statements != 2 || stats.Lines != 5 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(c.Comments) != 1 || c.Comments[0] != "header" {
		t.Errorf("Expected forwarded comment, got %v", c.Comments)
	}
}

func TestParse_TriplesRejectGraphTerm(t *testing.T) {
	input := `<http://ex/s> <http://ex/p> "o" <http://ex/g> .`
	c := &rdf.Collector{}
	stats, err := Parse(context.Background(), strings.NewReader(input), c, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Quads) != 0 || stats.Skipped != 1 {
		t.Errorf("Expected line to be skipped, got %d statements", len(c.Quads))
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, strings.NewReader(`<http://ex/s> <http://ex/p> "o" .`), rdf.Discard, Options{})
	if err == nil {
		t.Error("Expected context error")
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	quads := []*rdf.Quad{
		rdf.NewQuad(rdf.NewNamedNode("http://ex/s"), rdf.NewNamedNode("http://ex/p"), rdf.NewLiteral("line\nbreak \"q\""), nil),
		rdf.NewQuad(rdf.NewBlankNode("b"), rdf.NewNamedNode("http://ex/p"), rdf.NewLiteralWithLanguage("x", "en"), rdf.NewNamedNode("http://ex/g")),
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	if err := w.WriteComment("generated"); err != nil {
		t.Fatalf("WriteComment: %v", err)
	}
	for _, q := range quads {
		if err := w.WriteStatement(q); err != nil {
			t.Fatalf("WriteStatement: %v", err)
		}
	}
	if err := w.EndDocument(); err != nil {
		t.Fatalf("EndDocument: %v", err)
	}

	c := &rdf.Collector{}
	if _, err := Parse(context.Background(), &buf, c, Options{Quads: true}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Quads) != len(quads) {
		t.Fatalf("Expected %d statements, got %d", len(quads), len(c.Quads))
	}
	for i := range quads {
		if !quads[i].Equals(c.Quads[i]) {
			t.Errorf("statement %d: expected %s, got %s", i, quads[i], c.Quads[i])
		}
	}
}

func TestWriter_TriplesDropGraph(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	q := rdf.NewQuad(rdf.NewNamedNode("http://ex/s"), rdf.NewNamedNode("http://ex/p"), rdf.NewLiteral("o"), rdf.NewNamedNode("http://ex/g"))
	if err := w.WriteStatement(q); err != nil {
		t.Fatalf("WriteStatement: %v", err)
	}
	if err := w.EndDocument(); err != nil {
		t.Fatalf("EndDocument: %v", err)
	}
	expected := "<http://ex/s> <http://ex/p> \"o\" .\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}
