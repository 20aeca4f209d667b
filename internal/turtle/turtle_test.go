package turtle

import (
	"bytes"
	"context"
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

func parse(t *testing.T, input string, opts Options) (*rdf.Collector, syntax.Stats) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	c := &rdf.Collector{}
	stats, err := Parse(context.Background(), strings.NewReader(input), c, opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c, stats
}

func strs(quads []*rdf.Quad) []string {
	out := make([]string, len(quads))
	for i, q := range quads {
		out[i] = q.String()
	}
	return out
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

func TestParse_Turtle(t *testing.T) {
	input := `@prefix ex: <http://ex/> .
@base <http://base/> .
# hello
ex:s a ex:T ;
    ex:p "chat"@fr, "1"^^ex:dt ;
    ex:n 42, -1.5, 1e3, true ;
    ex:rel <rel> .
PREFIX ex2: <http://ex2/>
ex2:x ex:p """long
"quoted" text""" .
`
	c, stats := parse(t, input, Options{})

	xsd := "http://www.w3.org/2001/XMLSchema#"
	expected := []string{
		`<http://ex/s> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex/T> .`,
		`<http://ex/s> <http://ex/p> "chat"@fr .`,
		`<http://ex/s> <http://ex/p> "1"^^<http://ex/dt> .`,
		`<http://ex/s> <http://ex/n> "42"^^<` + xsd + `integer> .`,
		`<http://ex/s> <http://ex/n> "-1.5"^^<` + xsd + `decimal> .`,
		`<http://ex/s> <http://ex/n> "1e3"^^<` + xsd + `double> .`,
		`<http://ex/s> <http://ex/n> "true"^^<` + xsd + `boolean> .`,
		`<http://ex/s> <http://ex/rel> <http://base/rel> .`,
		`<http://ex2/x> <http://ex/p> "long\n\"quoted\" text" .`,
	}
	if diff := cmp.Diff(expected, strs(c.Quads)); diff != "" {
		t.Errorf("quads mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ex", "ex2"}, c.Namespaces.Prefixes()); diff != "" {
		t.Errorf("prefixes mismatch (-want +got):\n%s", diff)
	}
	if c.Base != "http://base/" {
		t.Errorf("Expected base http://base/, got %q", c.Base)
	}
	if diff := cmp.Diff([]string{"hello"}, c.Comments); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
	if stats.Statements != 9 || stats.Skipped != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestParse_LocalNameDots(t *testing.T) {
	c, _ := parse(t, "@prefix ex: <http://ex/> .\nex:s ex:p ex:o.b, ex:o.\n", Options{})
	expected := []string{
		`<http://ex/s> <http://ex/p> <http://ex/o.b> .`,
		`<http://ex/s> <http://ex/p> <http://ex/o> .`,
	}
	if diff := cmp.Diff(expected, strs(c.Quads)); diff != "" {
		t.Errorf("quads mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_CollectionsAndBlankNodes(t *testing.T) {
	input := `<http://ex/s> <http://ex/list> ( 1 2 ) ;
    <http://ex/b> [ <http://ex/q> "x" ] .
[ <http://ex/q> "y" ] .
<http://ex/s> <http://ex/empty> () .
`
	c, _ := parse(t, input, Options{})

	rdfNS := "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	integer := `^^<http://www.w3.org/2001/XMLSchema#integer>`
	expected := nquads(t,
		`_:l1 <`+rdfNS+`first> "1"`+integer+` .`,
		`_:l1 <`+rdfNS+`rest> _:l2 .`,
		`_:l2 <`+rdfNS+`first> "2"`+integer+` .`,
		`_:l2 <`+rdfNS+`rest> <`+rdfNS+`nil> .`,
		`<http://ex/s> <http://ex/list> _:l1 .`,
		`_:b <http://ex/q> "x" .`,
		`<http://ex/s> <http://ex/b> _:b .`,
		`_:c <http://ex/q> "y" .`,
		`<http://ex/s> <http://ex/empty> <`+rdfNS+`nil> .`,
	)
	if !rdf.Isomorphic(expected, c.Quads) {
		t.Errorf("graphs are not isomorphic:\n%s", strings.Join(strs(c.Quads), "\n"))
	}
}

func TestParse_TriG(t *testing.T) {
	input := `@prefix ex: <http://ex/> .
{ ex:a ex:p ex:b . }
ex:g1 { ex:a ex:p ex:c }
GRAPH <http://ex/g2> { ex:a ex:p "d" . ex:a ex:q "e" }
_:g3 { ex:a ex:p ex:e . }
`
	c, _ := parse(t, input, Options{TriG: true})
	expected := []string{
		`<http://ex/a> <http://ex/p> <http://ex/b> .`,
		`<http://ex/a> <http://ex/p> <http://ex/c> <http://ex/g1> .`,
		`<http://ex/a> <http://ex/p> "d" <http://ex/g2> .`,
		`<http://ex/a> <http://ex/q> "e" <http://ex/g2> .`,
		`<http://ex/a> <http://ex/p> <http://ex/e> _:g3 .`,
	}
	if diff := cmp.Diff(expected, strs(c.Quads)); diff != "" {
		t.Errorf("quads mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_TurtleGraphOption(t *testing.T) {
	g := rdf.NewNamedNode("http://ex/source")
	c, _ := parse(t, `<http://ex/a> <http://ex/p> "1" .`, Options{Graph: g})
	if len(c.Quads) != 1 || !c.Quads[0].Graph.Equals(g) {
		t.Errorf("Expected one quad in %s, got %v", g, strs(c.Quads))
	}
}

func TestParse_SkipsMalformedStatements(t *testing.T) {
	input := `<http://ex/a> <http://ex/p> "1" .
<http://ex/b> <http://ex/p> undefined:x .
<http://ex/b> <http://ex/p> "a. b"@ .
<http://ex/c> <http://ex/p> "3" .
`
	c, stats := parse(t, input, Options{})
	expected := []string{
		`<http://ex/a> <http://ex/p> "1" .`,
		`<http://ex/c> <http://ex/p> "3" .`,
	}
	if diff := cmp.Diff(expected, strs(c.Quads)); diff != "" {
		t.Errorf("quads mismatch (-want +got):\n%s", diff)
	}
	if stats.Skipped != 2 {
		t.Errorf("Expected 2 skipped statements, got %d", stats.Skipped)
	}
}

func TestParse_TriGRecoversInsideBlock(t *testing.T) {
	input := `GRAPH <http://ex/g> { <http://ex/a> <http://ex/p> bad . <http://ex/b> <http://ex/p> "ok" }
<http://ex/c> <http://ex/p> "top" .
`
	c, stats := parse(t, input, Options{TriG: true})
	expected := []string{
		`<http://ex/b> <http://ex/p> "ok" <http://ex/g> .`,
		`<http://ex/c> <http://ex/p> "top" .`,
	}
	if diff := cmp.Diff(expected, strs(c.Quads)); diff != "" {
		t.Errorf("quads mismatch (-want +got):\n%s", diff)
	}
	if stats.Skipped != 1 {
		t.Errorf("Expected 1 skipped statement, got %d", stats.Skipped)
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, strings.NewReader(`<http://ex/a> <http://ex/p> "1" .`), rdf.Discard, Options{Logger: quietLogger()})
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

var (
	exS  = rdf.NewNamedNode("http://ex/s")
	exT  = rdf.NewNamedNode("http://ex/t")
	exP  = rdf.NewNamedNode("http://ex/p")
	exQ  = rdf.NewNamedNode("http://ex/q")
	exR  = rdf.NewNamedNode("http://ex/r")
	exO  = rdf.NewNamedNode("http://ex/o")
	exO1 = rdf.NewNamedNode("http://ex/o1")
	exO2 = rdf.NewNamedNode("http://ex/o2")
	exG  = rdf.NewNamedNode("http://ex/g")
)

func write(t *testing.T, w rdf.StatementWriter, quads []*rdf.Quad) {
	t.Helper()
	if err := w.StartDocument(); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	for _, q := range quads {
		if err := w.WriteStatement(q); err != nil {
			t.Fatalf("WriteStatement: %v", err)
		}
	}
	if err := w.EndDocument(); err != nil {
		t.Fatalf("EndDocument: %v", err)
	}
}

func TestWriter_Turtle(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	if err := w.WriteNamespace("ex", "http://ex/"); err != nil {
		t.Fatal(err)
	}
	write(t, w, []*rdf.Quad{
		rdf.NewQuad(exS, exP, exO1, nil),
		rdf.NewQuad(exS, exP, exO2, nil),
		rdf.NewQuad(exS, exQ, rdf.NewLiteral("x"), exG),
		rdf.NewQuad(exT, rdf.RDFType, rdf.NewNamedNode("http://ex/T"), nil),
	})

	expected := `@prefix ex: <http://ex/> .

ex:s ex:p ex:o1 ,
        ex:o2 ;
    ex:q "x" .
ex:t a ex:T .
`
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_TriG(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	if err := w.WriteNamespace("ex", "http://ex/"); err != nil {
		t.Fatal(err)
	}
	if err := w.StartDocument(); err != nil {
		t.Fatal(err)
	}
	for _, q := range []*rdf.Quad{
		rdf.NewQuad(rdf.NewNamedNode("http://ex/a"), exP, rdf.NewNamedNode("http://ex/b"), nil),
		rdf.NewQuad(rdf.NewNamedNode("http://ex/a"), exP, rdf.NewNamedNode("http://ex/c"), exG),
		rdf.NewQuad(rdf.NewNamedNode("http://ex/a"), exQ, rdf.NewNamedNode("http://ex/d"), exG),
	} {
		if err := w.WriteStatement(q); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.WriteNamespace("ex2", "http://ex2/"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStatement(rdf.NewQuad(rdf.NewNamedNode("http://ex2/x"), exP, rdf.NewNamedNode("http://ex/y"), exG)); err != nil {
		t.Fatal(err)
	}
	if err := w.EndDocument(); err != nil {
		t.Fatal(err)
	}

	expected := `@prefix ex: <http://ex/> .

{
  ex:a ex:p ex:b .
}
ex:g {
  ex:a ex:p ex:c ;
      ex:q ex:d .
}
@prefix ex2: <http://ex2/> .
ex:g {
  ex2:x ex:p ex:y .
}
`
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	quads := []*rdf.Quad{
		rdf.NewQuad(exS, exP, rdf.NewLiteral("line\nbreak \"q\""), nil),
		rdf.NewQuad(exS, exP, rdf.NewLiteralWithLanguage("hi", "en-GB"), nil),
		rdf.NewQuad(exS, exQ, rdf.NewLiteralWithDatatype("007", rdf.XSDInteger), exG),
		rdf.NewQuad(exS, exQ, rdf.NewLiteralWithDatatype("1.0", rdf.XSDDecimal), exG),
		rdf.NewQuad(rdf.NewBlankNode("b0"), exR, rdf.NewNamedNode("http://ex/with space"), exG),
		rdf.NewQuad(exS, exR, rdf.NewNamedNode("http://ex/-dash"), nil),
	}

	for _, trig := range []bool{false, true} {
		var buf bytes.Buffer
		w := NewWriter(&buf, trig)
		if err := w.WriteNamespace("ex", "http://ex/"); err != nil {
			t.Fatal(err)
		}
		write(t, w, quads)

		c, stats := parse(t, buf.String(), Options{TriG: trig})
		if stats.Skipped != 0 {
			t.Fatalf("trig=%v: reparse skipped %d statements:\n%s", trig, stats.Skipped, buf.String())
		}
		want := quads
		if !trig {
			want = make([]*rdf.Quad, len(quads))
			for i, q := range quads {
				want[i] = q.Triple().InGraph(nil)
			}
		}
		if !rdf.Isomorphic(want, c.Quads) {
			t.Errorf("trig=%v: round trip changed the graph:\n%s", trig, buf.String())
		}
	}
}

func TestPrettyWriter(t *testing.T) {
	blank := rdf.NewBlankNode("b")
	quads := []*rdf.Quad{
		rdf.NewQuad(exS, exP, blank, nil),
		rdf.NewQuad(blank, exQ, rdf.NewLiteral("x"), nil),
		rdf.NewQuad(exS, exR, exO, nil),
	}

	e, err := grouping.New(grouping.Nested,
		grouping.WithDedupe(),
		grouping.WithInline(func(t rdf.Term) bool { return t.Type() == rdf.TermTypeBlankNode }),
		grouping.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("grouping.New: %v", err)
	}
	defer e.Close()
	for _, q := range quads {
		if err := e.Ingest(q); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	var buf bytes.Buffer
	w := NewPrettyWriter(&buf, false)
	if err := w.WriteNamespace("ex", "http://ex/"); err != nil {
		t.Fatal(err)
	}
	if err := w.StartDocument(); err != nil {
		t.Fatal(err)
	}
	if err := e.Walk(w); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if err := w.EndDocument(); err != nil {
		t.Fatal(err)
	}

	expected := `@prefix ex: <http://ex/> .

ex:s ex:p [
        ex:q "x"
    ] ;
    ex:r ex:o .
`
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	c, _ := parse(t, buf.String(), Options{})
	if !rdf.Isomorphic(quads, c.Quads) {
		t.Errorf("pretty output does not parse back to the input:\n%s", buf.String())
	}
}
