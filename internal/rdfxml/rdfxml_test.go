package rdfxml

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aleksaelezovic/rdfio/internal/grouping"
	"github.com/aleksaelezovic/rdfio/internal/ntriples"
	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func parse(t *testing.T, input string) *rdf.Collector {
	t.Helper()
	c := &rdf.Collector{}
	if _, err := Parse(context.Background(), strings.NewReader(input), c, Options{Logger: quietLogger()}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}

func nquads(t *testing.T, lines ...string) []*rdf.Quad {
	t.Helper()
	var quads []*rdf.Quad
	for _, line := range lines {
		q, err := ntriples.ParseLine(line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
		quads = append(quads, q)
	}
	return quads
}

func dump(quads []*rdf.Quad) string {
	var sb strings.Builder
	for _, q := range quads {
		sb.WriteString(q.String() + "\n")
	}
	return sb.String()
}

func TestParse(t *testing.T) {
	input := `<?xml version="1.0"?>
<!-- note -->
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:ex="http://ex/" xml:base="http://base/">
  <ex:Thing rdf:about="s" ex:title="T">
    <ex:p rdf:resource="http://ex/o"/>
    <ex:n rdf:datatype="http://www.w3.org/2001/XMLSchema#integer">5</ex:n>
    <ex:b rdf:nodeID="x"/>
    <ex:nested>
      <rdf:Description rdf:about="http://ex/inner">
        <ex:q>v</ex:q>
      </rdf:Description>
    </ex:nested>
    <ex:r rdf:parseType="Resource">
      <ex:q>w</ex:q>
    </ex:r>
    <ex:xml rdf:parseType="Literal"><b>bold</b></ex:xml>
    <ex:list rdf:parseType="Collection">
      <rdf:Description rdf:about="http://ex/one"/>
    </ex:list>
    <ex:label xml:lang="fr">chat</ex:label>
  </ex:Thing>
  <rdf:Description rdf:ID="frag">
    <rdf:li>first</rdf:li>
    <rdf:li>second</rdf:li>
  </rdf:Description>
</rdf:RDF>
`
	c := parse(t, input)

	r := "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	expected := nquads(t,
		`<http://base/s> <`+r+`type> <http://ex/Thing> .`,
		`<http://base/s> <http://ex/title> "T" .`,
		`<http://base/s> <http://ex/p> <http://ex/o> .`,
		`<http://base/s> <http://ex/n> "5"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
		`<http://base/s> <http://ex/b> _:x .`,
		`<http://base/s> <http://ex/nested> <http://ex/inner> .`,
		`<http://ex/inner> <http://ex/q> "v" .`,
		`<http://base/s> <http://ex/r> _:r .`,
		`_:r <http://ex/q> "w" .`,
		`<http://base/s> <http://ex/xml> "<b>bold</b>"^^<`+r+`XMLLiteral> .`,
		`_:l <`+r+`first> <http://ex/one> .`,
		`_:l <`+r+`rest> <`+r+`nil> .`,
		`<http://base/s> <http://ex/list> _:l .`,
		`<http://base/s> <http://ex/label> "chat"@fr .`,
		`<http://base/#frag> <`+r+`_1> "first" .`,
		`<http://base/#frag> <`+r+`_2> "second" .`,
	)
	if !rdf.Isomorphic(expected, c.Quads) {
		t.Errorf("unexpected statements:\n%s", dump(c.Quads))
	}
	if diff := cmp.Diff([]string{"rdf", "ex"}, c.Namespaces.Prefixes()); diff != "" {
		t.Errorf("prefixes mismatch (-want +got):\n%s", diff)
	}
	if c.Base != "http://base/" {
		t.Errorf("Expected base http://base/, got %q", c.Base)
	}
	if diff := cmp.Diff([]string{"note"}, c.Comments); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_NoRootElement(t *testing.T) {
	c := parse(t, `<ex:T xmlns:ex="http://ex/" xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" rdf:about="http://ex/s"/>`)
	expected := nquads(t, `<http://ex/s> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex/T> .`)
	if !rdf.Isomorphic(expected, c.Quads) {
		t.Errorf("unexpected statements:\n%s", dump(c.Quads))
	}
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description>`,
		`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"></rdf:Description>`,
		`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">text</rdf:RDF>`,
	}
	for _, input := range inputs {
		_, err := Parse(context.Background(), strings.NewReader(input), rdf.Discard, Options{Logger: quietLogger()})
		if !errors.Is(err, syntax.ErrSyntax) {
			t.Errorf("Parse(%q): expected ErrSyntax, got %v", input, err)
		}
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteNamespace("ex", "http://ex/")
	w.WriteNamespace("", "http://base/")
	if err := w.StartDocument(); err != nil {
		t.Fatal(err)
	}
	s := rdf.NewNamedNode("http://ex/s")
	for _, q := range []*rdf.Quad{
		rdf.NewQuad(s, rdf.NewNamedNode("http://ex/p"), rdf.NewNamedNode("http://ex/o"), nil),
		rdf.NewQuad(s, rdf.NewNamedNode("http://ex/q"), rdf.NewLiteralWithLanguage("x", "en"), nil),
		rdf.NewQuad(rdf.NewBlankNode("b"), rdf.NewNamedNode("http://ex/r"), rdf.NewLiteralWithDatatype("1", rdf.XSDInteger), nil),
		rdf.NewQuad(rdf.NewNamedNode("http://ex/s2"), rdf.NewNamedNode("http://other.org/v#name"), rdf.NewLiteral("y"), nil),
	} {
		if err := w.WriteStatement(q); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.EndDocument(); err != nil {
		t.Fatal(err)
	}

	expected := `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
    xmlns:ex="http://ex/"
    xml:base="http://base/">
  <rdf:Description rdf:about="http://ex/s">
    <ex:p rdf:resource="http://ex/o"/>
    <ex:q xml:lang="en">x</ex:q>
  </rdf:Description>
  <rdf:Description rdf:nodeID="b">
    <ex:r rdf:datatype="http://www.w3.org/2001/XMLSchema#integer">1</ex:r>
  </rdf:Description>
  <rdf:Description rdf:about="http://ex/s2">
    <ns1:name xmlns:ns1="http://other.org/v#">y</ns1:name>
  </rdf:Description>
</rdf:RDF>
`
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	quads := nquads(t,
		`<http://ex/s> <http://ex/p> "a <b> & \"c\"\nline" .`,
		`<http://ex/s> <http://ex/p> _:1x .`,
		`_:1x <http://ex/v#q> "2"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
		`<http://ex/s> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex/T> .`,
	)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, q := range quads {
		if err := w.WriteStatement(q); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.EndDocument(); err != nil {
		t.Fatal(err)
	}
	c := parse(t, buf.String())
	if !rdf.Isomorphic(quads, c.Quads) {
		t.Errorf("round trip changed the graph:\n%s", buf.String())
	}
}

func TestWriter_UnwritablePredicate(t *testing.T) {
	w := NewWriter(io.Discard)
	q := rdf.NewQuad(rdf.NewNamedNode("http://ex/s"), rdf.NewNamedNode("http://ex/123"), rdf.NewLiteral("x"), nil)
	if err := w.WriteStatement(q); !errors.Is(err, ErrPredicate) {
		t.Errorf("Expected ErrPredicate, got %v", err)
	}
}

func TestPrettyWriter(t *testing.T) {
	blank := rdf.NewBlankNode("b")
	s := rdf.NewNamedNode("http://ex/s")
	quads := []*rdf.Quad{
		rdf.NewQuad(s, rdf.NewNamedNode("http://ex/p"), blank, nil),
		rdf.NewQuad(blank, rdf.NewNamedNode("http://ex/q"), rdf.NewLiteral("x"), nil),
		rdf.NewQuad(s, rdf.NewNamedNode("http://ex/r"), rdf.NewNamedNode("http://ex/o"), nil),
	}
	e, err := grouping.New(grouping.Nested,
		grouping.WithInline(func(t rdf.Term) bool { return t.Type() == rdf.TermTypeBlankNode }),
		grouping.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	for _, q := range quads {
		if err := e.Ingest(q); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	w := NewPrettyWriter(&buf)
	w.WriteNamespace("ex", "http://ex/")
	if err := w.StartDocument(); err != nil {
		t.Fatal(err)
	}
	if err := e.Walk(w); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if err := w.EndDocument(); err != nil {
		t.Fatal(err)
	}

	expected := `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
    xmlns:ex="http://ex/">
  <rdf:Description rdf:about="http://ex/s">
    <ex:p rdf:parseType="Resource">
      <ex:q>x</ex:q>
    </ex:p>
    <ex:r rdf:resource="http://ex/o"/>
  </rdf:Description>
</rdf:RDF>
`
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	c := parse(t, buf.String())
	if !rdf.Isomorphic(quads, c.Quads) {
		t.Errorf("pretty output does not parse back to the input:\n%s", buf.String())
	}
}
