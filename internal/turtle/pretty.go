package turtle

import (
	"bufio"
	"io"
	"strings"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
)

// PrettyWriter renders the tree reported by a nested grouping walk, writing
// inlined blank nodes as [ ... ] property lists. The directive methods make
// it an rdf.StatementWriter for the prolog; statements themselves arrive
// through the grouping.Visitor methods.
type PrettyWriter struct {
	w      *bufio.Writer
	f      formatter
	trig   bool
	header bool
	indent string
	levels []level
}

type level struct {
	predicate rdf.Term
}

// NewPrettyWriter returns a pretty Turtle writer, or a pretty TriG writer
// when trig is set.
func NewPrettyWriter(w io.Writer, trig bool) *PrettyWriter {
	return &PrettyWriter{w: bufio.NewWriterSize(w, 64*1024), trig: trig}
}

func (w *PrettyWriter) WriteNamespace(prefix, iri string) error {
	w.f.ns.Set(prefix, iri)
	w.header = true
	_, err := w.w.WriteString("@prefix " + prefix + ": <" + rdf.EscapeIRI(iri) + "> .\n")
	return err
}

func (w *PrettyWriter) WriteBase(iri string) error {
	w.header = true
	_, err := w.w.WriteString("@base <" + rdf.EscapeIRI(iri) + "> .\n")
	return err
}

func (w *PrettyWriter) WriteComment(text string) error {
	for _, line := range strings.Split(text, "\n") {
		if _, err := w.w.WriteString("# " + strings.TrimRight(line, "\r") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (w *PrettyWriter) StartDocument() error {
	if !w.header {
		return nil
	}
	return w.w.WriteByte('\n')
}

// WriteStatement renders a lone statement. The walk methods are the
// normal path.
func (w *PrettyWriter) WriteStatement(q *rdf.Quad) error {
	_, err := w.w.WriteString(w.indent + w.f.term(q.Subject) + " " + w.f.predicate(q.Predicate) + " " + w.f.term(q.Object) + " .\n")
	return err
}

func (w *PrettyWriter) EndDocument() error {
	return w.w.Flush()
}

func (w *PrettyWriter) StartGraph(g rdf.Term) error {
	if !w.trig {
		return nil
	}
	if !rdf.IsDefaultGraph(g) {
		w.w.WriteString(w.f.term(g) + " ")
	}
	w.indent = "  "
	_, err := w.w.WriteString("{\n")
	return err
}

func (w *PrettyWriter) EndGraph() error {
	if !w.trig {
		return nil
	}
	w.indent = ""
	_, err := w.w.WriteString("}\n")
	return err
}

func (w *PrettyWriter) StartSubject(s rdf.Term) error {
	w.levels = append(w.levels[:0], level{})
	_, err := w.w.WriteString(w.indent + w.f.term(s))
	return err
}

func (w *PrettyWriter) EndSubject() error {
	w.levels = w.levels[:0]
	_, err := w.w.WriteString(" .\n")
	return err
}

func (w *PrettyWriter) Property(p, o rdf.Term) error {
	w.separate(p)
	_, err := w.w.WriteString(w.f.term(o))
	return err
}

func (w *PrettyWriter) StartNested(p, o rdf.Term) error {
	w.separate(p)
	w.levels = append(w.levels, level{})
	_, err := w.w.WriteString("[")
	return err
}

func (w *PrettyWriter) EndNested() error {
	w.levels = w.levels[:len(w.levels)-1]
	_, err := w.w.WriteString("\n" + w.pad(len(w.levels)) + "]")
	return err
}

// separate writes what goes between the previous object at the current
// depth and the next one, then the predicate if it changed.
func (w *PrettyWriter) separate(p rdf.Term) {
	depth := len(w.levels)
	top := &w.levels[depth-1]
	switch {
	case top.predicate == nil && depth == 1:
		w.w.WriteString(" " + w.f.predicate(p) + " ")
	case top.predicate == nil:
		w.w.WriteString("\n" + w.pad(depth) + w.f.predicate(p) + " ")
	case top.predicate.Equals(p):
		w.w.WriteString(" ,\n" + w.pad(depth) + "    ")
	default:
		w.w.WriteString(" ;\n" + w.pad(depth) + w.f.predicate(p) + " ")
	}
	top.predicate = p
}

func (w *PrettyWriter) pad(depth int) string {
	return w.indent + strings.Repeat("    ", depth)
}
