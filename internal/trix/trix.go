// Package trix reads and writes TriX, the XML syntax for named graphs.
package trix

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

const Namespace = "http://www.w3.org/2004/03/trix/trix-1/"

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Options configures Parse.
type Options struct {
	// Graph replaces the default graph for unnamed <graph> elements.
	Graph  rdf.Term
	Logger *log.Logger
}

type reader struct {
	h      rdf.Handler
	opts   Options
	logger *log.Logger
	stats  syntax.Stats

	graph   rdf.Term
	inGraph bool
	named   bool
	inTrip  bool
	terms   []rdf.Term
	inTerm  string
	attr    string
	text    strings.Builder
}

// Parse reads a TriX document. A <triple> without exactly three terms is
// logged and skipped; malformed XML aborts the parse.
func Parse(ctx context.Context, r io.Reader, h rdf.Handler, opts Options) (syntax.Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	p := &reader{h: h, opts: opts, logger: logger}
	d := xml.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return p.stats, err
		}
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return p.stats, nil
		}
		line, _ := d.InputPos()
		p.stats.Lines = int64(line)
		if err != nil {
			return p.stats, fmt.Errorf("%w at line %d: %v", syntax.ErrSyntax, line, err)
		}
		if err := p.token(tok); err != nil {
			return p.stats, fmt.Errorf("%w at line %d: %v", syntax.ErrSyntax, line, err)
		}
	}
}

func (p *reader) defaultGraph() rdf.Term {
	if p.opts.Graph != nil {
		return p.opts.Graph
	}
	return rdf.NewDefaultGraph()
}

func (p *reader) token(tok xml.Token) error {
	switch t := tok.(type) {
	case xml.StartElement:
		if p.inTerm != "" {
			return fmt.Errorf("unexpected element <%s> inside <%s>", t.Name.Local, p.inTerm)
		}
		switch name := t.Name.Local; name {
		case "TriX":
		case "graph":
			p.inGraph, p.named, p.graph = true, false, p.defaultGraph()
		case "triple":
			if !p.inGraph {
				return errors.New("<triple> outside <graph>")
			}
			p.inTrip, p.terms = true, p.terms[:0]
		case "uri", "id", "plainLiteral", "typedLiteral":
			p.inTerm = name
			p.text.Reset()
			p.attr = ""
			for _, a := range t.Attr {
				switch {
				case name == "plainLiteral" && a.Name.Space == xmlNamespace && a.Name.Local == "lang":
					p.attr = a.Value
				case name == "typedLiteral" && a.Name.Local == "datatype":
					p.attr = a.Value
				}
			}
		default:
			p.logger.Debug("ignoring element", "name", name)
		}

	case xml.EndElement:
		switch t.Name.Local {
		case "graph":
			p.inGraph = false
		case "triple":
			p.inTrip = false
			p.endTriple()
		case "uri", "id", "plainLiteral", "typedLiteral":
			p.endTerm()
		}

	case xml.CharData:
		if p.inTerm != "" {
			p.text.Write(t)
		}

	case xml.Comment:
		p.h.Comment(strings.TrimSpace(string(t)))
	}
	return nil
}

func (p *reader) endTerm() {
	value := p.text.String()
	var term rdf.Term
	switch p.inTerm {
	case "uri":
		term = rdf.NewNamedNode(strings.TrimSpace(value))
	case "id":
		term = rdf.NewBlankNode(strings.TrimSpace(value))
	case "plainLiteral":
		term = rdf.NewLiteralWithLanguage(value, p.attr)
	case "typedLiteral":
		term = rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(p.attr))
	}
	p.inTerm = ""

	switch {
	case p.inTrip:
		p.terms = append(p.terms, term)
	case p.inGraph && !p.named:
		if _, lit := term.(*rdf.Literal); lit {
			p.logger.Warn("ignoring literal graph name", "value", value)
			return
		}
		p.graph, p.named = term, true
	}
}

func (p *reader) endTriple() {
	if len(p.terms) != 3 {
		p.stats.Skipped++
		p.logger.Warn("skipping triple", "terms", len(p.terms), "line", p.stats.Lines)
		return
	}
	q := &rdf.Quad{Subject: p.terms[0], Predicate: p.terms[1], Object: p.terms[2], Graph: p.graph}
	if err := q.Validate(); err != nil {
		p.stats.Skipped++
		p.logger.Warn("skipping triple", "err", err)
		return
	}
	p.stats.Statements++
	p.h.VisitQuad(q)
}

// Writer renders one <graph> element per run of statements sharing a
// graph. It implements rdf.StatementWriter; namespaces and bases have no
// representation and are dropped.
type Writer struct {
	w       *bufio.Writer
	started bool
	graph   rdf.Term
	open    bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

func (w *Writer) WriteNamespace(prefix, iri string) error { return nil }

func (w *Writer) WriteBase(iri string) error { return nil }

func (w *Writer) WriteComment(text string) error {
	if err := w.StartDocument(); err != nil {
		return err
	}
	_, err := w.w.WriteString("<!-- " + strings.ReplaceAll(text, "--", "- -") + " -->\n")
	return err
}

func (w *Writer) StartDocument() error {
	if w.started {
		return nil
	}
	w.started = true
	_, err := w.w.WriteString(xml.Header + `<TriX xmlns="` + Namespace + "\">\n")
	return err
}

func (w *Writer) WriteStatement(q *rdf.Quad) error {
	if err := w.StartDocument(); err != nil {
		return err
	}
	g := q.Graph
	if g == nil {
		g = rdf.NewDefaultGraph()
	}
	if !w.open || !w.graph.Equals(g) {
		w.closeGraph()
		w.w.WriteString("  <graph>\n")
		if !rdf.IsDefaultGraph(g) {
			w.w.WriteString("    " + element(g) + "\n")
		}
		w.graph, w.open = g, true
	}
	_, err := w.w.WriteString("    <triple>\n      " + element(q.Subject) + "\n      " + element(q.Predicate) + "\n      " + element(q.Object) + "\n    </triple>\n")
	return err
}

func (w *Writer) closeGraph() {
	if w.open {
		w.w.WriteString("  </graph>\n")
		w.open = false
	}
}

func (w *Writer) EndDocument() error {
	if err := w.StartDocument(); err != nil {
		return err
	}
	w.closeGraph()
	w.w.WriteString("</TriX>\n")
	return w.w.Flush()
}

func element(t rdf.Term) string {
	switch v := t.(type) {
	case *rdf.NamedNode:
		return "<uri>" + escape(v.IRI) + "</uri>"
	case *rdf.BlankNode:
		return "<id>" + escape(v.ID) + "</id>"
	case *rdf.Literal:
		switch {
		case v.Language != "":
			return `<plainLiteral xml:lang="` + escape(v.Language) + `">` + escape(v.Value) + "</plainLiteral>"
		case v.Datatype != nil && v.Datatype.IRI != rdf.XSDString.IRI:
			return `<typedLiteral datatype="` + escape(v.Datatype.IRI) + `">` + escape(v.Value) + "</typedLiteral>"
		}
		return "<plainLiteral>" + escape(v.Value) + "</plainLiteral>"
	}
	return ""
}

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
