package turtle

import (
	"bufio"
	"io"
	"strings"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
)

// Writer renders statements as they arrive, merging runs that share a
// subject (and predicate) into ';' and ',' lists. In TriG mode runs that
// share a graph become one graph block. It implements rdf.StatementWriter.
//
// In Turtle mode graph names are dropped.
type Writer struct {
	w    *bufio.Writer
	f    formatter
	trig bool

	graph     rdf.Term
	inGraph   bool
	subject   rdf.Term
	predicate rdf.Term
	header    bool
}

// NewWriter returns a Turtle writer, or a TriG writer when trig is set.
func NewWriter(w io.Writer, trig bool) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024), trig: trig}
}

// WriteNamespace declares a prefix. Declarations arriving after statements
// close the open statement and graph block first.
func (w *Writer) WriteNamespace(prefix, iri string) error {
	w.closeGraph()
	w.f.ns.Set(prefix, iri)
	w.header = true
	_, err := w.w.WriteString("@prefix " + prefix + ": <" + rdf.EscapeIRI(iri) + "> .\n")
	return err
}

func (w *Writer) WriteBase(iri string) error {
	w.closeGraph()
	w.header = true
	_, err := w.w.WriteString("@base <" + rdf.EscapeIRI(iri) + "> .\n")
	return err
}

func (w *Writer) WriteComment(text string) error {
	w.closeStatement()
	indent := ""
	if w.inGraph {
		indent = "  "
	}
	for _, line := range strings.Split(text, "\n") {
		if _, err := w.w.WriteString(indent + "# " + strings.TrimRight(line, "\r") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) StartDocument() error {
	if !w.header {
		return nil
	}
	w.header = false
	return w.w.WriteByte('\n')
}

func (w *Writer) WriteStatement(q *rdf.Quad) error {
	indent := ""
	if w.trig {
		g := q.Graph
		if g == nil {
			g = rdf.NewDefaultGraph()
		}
		if !w.inGraph || !w.graph.Equals(g) {
			w.closeGraph()
			if !rdf.IsDefaultGraph(g) {
				w.w.WriteString(w.f.term(g) + " ")
			}
			w.w.WriteString("{\n")
			w.graph, w.inGraph = g, true
		}
		indent = "  "
	}

	switch {
	case w.subject != nil && w.subject.Equals(q.Subject) && w.predicate.Equals(q.Predicate):
		w.w.WriteString(" ,\n" + indent + "        ")
	case w.subject != nil && w.subject.Equals(q.Subject):
		w.w.WriteString(" ;\n" + indent + "    " + w.f.predicate(q.Predicate) + " ")
	default:
		w.closeStatement()
		w.w.WriteString(indent + w.f.term(q.Subject) + " " + w.f.predicate(q.Predicate) + " ")
	}
	w.subject, w.predicate = q.Subject, q.Predicate
	_, err := w.w.WriteString(w.f.term(q.Object))
	return err
}

func (w *Writer) EndDocument() error {
	w.closeGraph()
	return w.w.Flush()
}

func (w *Writer) closeStatement() {
	if w.subject == nil {
		return
	}
	w.w.WriteString(" .\n")
	w.subject, w.predicate = nil, nil
}

func (w *Writer) closeGraph() {
	w.closeStatement()
	if !w.inGraph {
		return
	}
	w.w.WriteString("}\n")
	w.graph, w.inGraph = nil, false
}
