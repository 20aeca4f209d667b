package ntriples

import (
	"bufio"
	"io"
	"strings"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
)

// Writer renders statements one per line. It implements rdf.StatementWriter.
// Namespaces and bases have no representation and are dropped.
type Writer struct {
	w     *bufio.Writer
	quads bool
}

// NewWriter returns an N-Triples writer, or an N-Quads writer when quads is set.
func NewWriter(w io.Writer, quads bool) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024), quads: quads}
}

func (w *Writer) WriteNamespace(prefix, iri string) error { return nil }

func (w *Writer) WriteBase(iri string) error { return nil }

func (w *Writer) WriteComment(text string) error {
	for _, line := range strings.Split(text, "\n") {
		if _, err := w.w.WriteString("# " + strings.TrimRight(line, "\r") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) StartDocument() error { return nil }

func (w *Writer) WriteStatement(q *rdf.Quad) error {
	w.w.WriteString(q.Subject.String())
	w.w.WriteByte(' ')
	w.w.WriteString(q.Predicate.String())
	w.w.WriteByte(' ')
	w.w.WriteString(q.Object.String())
	if w.quads && !rdf.IsDefaultGraph(q.Graph) {
		w.w.WriteByte(' ')
		w.w.WriteString(q.Graph.String())
	}
	_, err := w.w.WriteString(" .\n")
	return err
}

func (w *Writer) EndDocument() error {
	return w.w.Flush()
}
