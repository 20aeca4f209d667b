package rdfxml

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
)

// ErrPredicate is returned for a predicate IRI that has no XML name form.
var ErrPredicate = errors.New("rdfxml: predicate cannot be written as an element name")

// encoder holds the document state shared by both writers.
type encoder struct {
	w       *bufio.Writer
	ns      rdf.NamespaceMap
	base    string
	auto    map[string]string
	decl    bool
	started bool
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: bufio.NewWriterSize(w, 64*1024), auto: make(map[string]string)}
}

// namespace binds a prefix for the root element. The empty prefix becomes
// xml:base; reserved and malformed prefixes are ignored.
func (e *encoder) namespace(prefix, iri string) {
	if e.started {
		return
	}
	switch {
	case prefix == "":
		e.base = iri
	case prefix == "rdf", strings.HasPrefix(strings.ToLower(prefix), "xml"), !isNCName(prefix):
	default:
		e.ns.Set(prefix, iri)
	}
}

func (e *encoder) header() {
	if e.decl {
		return
	}
	e.decl = true
	e.w.WriteString(xml.Header)
}

func (e *encoder) comment(text string) error {
	e.header()
	text = strings.ReplaceAll(text, "--", "- -")
	_, err := e.w.WriteString("<!-- " + text + " -->\n")
	return err
}

func (e *encoder) open() error {
	if e.started {
		return nil
	}
	e.header()
	e.started = true
	e.w.WriteString(`<rdf:RDF xmlns:rdf="` + rdf.RDFNamespace + `"`)
	e.ns.Each(func(prefix, iri string) {
		e.w.WriteString("\n    xmlns:" + prefix + `="` + escape(iri) + `"`)
	})
	if e.base != "" {
		e.w.WriteString("\n    xml:base=\"" + escape(e.base) + `"`)
	}
	_, err := e.w.WriteString(">\n")
	return err
}

func (e *encoder) close() error {
	if err := e.open(); err != nil {
		return err
	}
	e.w.WriteString("</rdf:RDF>\n")
	return e.w.Flush()
}

// name returns the qualified element name for iri and any namespace
// declaration the element must carry.
func (e *encoder) name(iri string) (qname, decl string, err error) {
	if local, ok := strings.CutPrefix(iri, rdf.RDFNamespace); ok && isNCName(local) {
		return "rdf:" + local, "", nil
	}
	if prefix, local, ok := e.ns.Shrink(iri); ok && prefix != "" && isNCName(local) {
		return prefix + ":" + local, "", nil
	}
	i := len(iri)
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(iri[:i])
		if !isNameRune(r) {
			break
		}
		i -= size
	}
	for i < len(iri) {
		r, size := utf8.DecodeRuneInString(iri[i:])
		if isNameStart(r) {
			break
		}
		i += size
	}
	if i == 0 || i == len(iri) {
		return "", "", fmt.Errorf("%w: %s", ErrPredicate, iri)
	}
	ns, local := iri[:i], iri[i:]
	prefix, ok := e.auto[ns]
	if !ok {
		prefix = fmt.Sprintf("ns%d", len(e.auto)+1)
		e.auto[ns] = prefix
	}
	return prefix + ":" + local, ` xmlns:` + prefix + `="` + escape(ns) + `"`, nil
}

func (e *encoder) startDescription(indent string, s rdf.Term) error {
	e.w.WriteString(indent + "<rdf:Description")
	switch v := s.(type) {
	case *rdf.NamedNode:
		e.w.WriteString(` rdf:about="` + escape(v.IRI) + `"`)
	case *rdf.BlankNode:
		e.w.WriteString(` rdf:nodeID="` + nodeID(v) + `"`)
	}
	_, err := e.w.WriteString(">\n")
	return err
}

func (e *encoder) endDescription(indent string) error {
	_, err := e.w.WriteString(indent + "</rdf:Description>\n")
	return err
}

// property writes one complete property element.
func (e *encoder) property(indent string, p, o rdf.Term) error {
	qname, decl, err := e.name(iriOf(p))
	if err != nil {
		return err
	}
	e.w.WriteString(indent + "<" + qname + decl)
	switch v := o.(type) {
	case *rdf.NamedNode:
		_, err = e.w.WriteString(` rdf:resource="` + escape(v.IRI) + "\"/>\n")
	case *rdf.BlankNode:
		_, err = e.w.WriteString(` rdf:nodeID="` + nodeID(v) + "\"/>\n")
	case *rdf.Literal:
		switch {
		case v.Language != "":
			e.w.WriteString(` xml:lang="` + escape(v.Language) + `"`)
		case v.Datatype != nil && v.Datatype.IRI != rdf.XSDString.IRI:
			e.w.WriteString(` rdf:datatype="` + escape(v.Datatype.IRI) + `"`)
		}
		_, err = e.w.WriteString(">" + escape(v.Value) + "</" + qname + ">\n")
	default:
		err = fmt.Errorf("rdfxml: unsupported object %s", o)
	}
	return err
}

func iriOf(t rdf.Term) string {
	if n, ok := t.(*rdf.NamedNode); ok {
		return n.IRI
	}
	return t.String()
}

// nodeID turns a blank node label into an XML name.
func nodeID(b *rdf.BlankNode) string {
	if isNCName(b.ID) {
		return b.ID
	}
	var sb strings.Builder
	sb.WriteString("b")
	for _, r := range b.ID {
		if isNameRune(r) {
			sb.WriteRune(r)
		} else {
			fmt.Fprintf(&sb, "_%X_", r)
		}
	}
	return sb.String()
}

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameRune(r rune) bool {
	return isNameStart(r) || r == '-' || r == '.' || unicode.IsDigit(r) || r == 0xB7
}

func isNCName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isNameStart(r) || !isNameRune(r) {
			return false
		}
	}
	return true
}

// Writer renders statements as they arrive, one rdf:Description per run of
// statements sharing a subject. Graph names are dropped. It implements
// rdf.StatementWriter.
type Writer struct {
	e       *encoder
	subject rdf.Term
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{e: newEncoder(w)}
}

// WriteNamespace binds a prefix on the root element. Bindings arriving
// after the first statement are ignored.
func (w *Writer) WriteNamespace(prefix, iri string) error {
	w.e.namespace(prefix, iri)
	return nil
}

func (w *Writer) WriteBase(iri string) error {
	if !w.e.started {
		w.e.base = iri
	}
	return nil
}

func (w *Writer) WriteComment(text string) error {
	if err := w.flushSubject(); err != nil {
		return err
	}
	return w.e.comment(text)
}

func (w *Writer) StartDocument() error { return w.e.open() }

func (w *Writer) WriteStatement(q *rdf.Quad) error {
	if err := w.e.open(); err != nil {
		return err
	}
	if w.subject == nil || !w.subject.Equals(q.Subject) {
		if err := w.flushSubject(); err != nil {
			return err
		}
		if err := w.e.startDescription("  ", q.Subject); err != nil {
			return err
		}
		w.subject = q.Subject
	}
	return w.e.property("    ", q.Predicate, q.Object)
}

func (w *Writer) flushSubject() error {
	if w.subject == nil {
		return nil
	}
	w.subject = nil
	return w.e.endDescription("  ")
}

func (w *Writer) EndDocument() error {
	if err := w.flushSubject(); err != nil {
		return err
	}
	return w.e.close()
}

// PrettyWriter renders the tree reported by a nested grouping walk. Inlined
// blank nodes become rdf:parseType="Resource" property elements. Graph
// boundaries are ignored.
type PrettyWriter struct {
	e     *encoder
	names []string
}

func NewPrettyWriter(w io.Writer) *PrettyWriter {
	return &PrettyWriter{e: newEncoder(w)}
}

func (w *PrettyWriter) WriteNamespace(prefix, iri string) error {
	w.e.namespace(prefix, iri)
	return nil
}

func (w *PrettyWriter) WriteBase(iri string) error {
	if !w.e.started {
		w.e.base = iri
	}
	return nil
}

func (w *PrettyWriter) WriteComment(text string) error { return w.e.comment(text) }

func (w *PrettyWriter) StartDocument() error { return w.e.open() }

// WriteStatement renders a lone statement.
func (w *PrettyWriter) WriteStatement(q *rdf.Quad) error {
	if err := w.e.startDescription("  ", q.Subject); err != nil {
		return err
	}
	if err := w.e.property("    ", q.Predicate, q.Object); err != nil {
		return err
	}
	return w.e.endDescription("  ")
}

func (w *PrettyWriter) EndDocument() error { return w.e.close() }

func (w *PrettyWriter) StartGraph(rdf.Term) error { return nil }

func (w *PrettyWriter) EndGraph() error { return nil }

func (w *PrettyWriter) StartSubject(s rdf.Term) error {
	w.names = w.names[:0]
	return w.e.startDescription("  ", s)
}

func (w *PrettyWriter) EndSubject() error {
	return w.e.endDescription("  ")
}

func (w *PrettyWriter) Property(p, o rdf.Term) error {
	return w.e.property(w.indent(), p, o)
}

func (w *PrettyWriter) StartNested(p, o rdf.Term) error {
	qname, decl, err := w.e.name(iriOf(p))
	if err != nil {
		return err
	}
	_, err = w.e.w.WriteString(w.indent() + "<" + qname + decl + " rdf:parseType=\"Resource\">\n")
	w.names = append(w.names, qname)
	return err
}

func (w *PrettyWriter) EndNested() error {
	qname := w.names[len(w.names)-1]
	w.names = w.names[:len(w.names)-1]
	_, err := w.e.w.WriteString(w.indent() + "</" + qname + ">\n")
	return err
}

func (w *PrettyWriter) indent() string {
	return "    " + strings.Repeat("  ", len(w.names))
}
