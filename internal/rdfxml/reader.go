// Package rdfxml reads and writes RDF/XML.
package rdfxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/rdfio/internal/iri"
	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Options configures Parse.
type Options struct {
	// Base resolves relative IRIs until xml:base says otherwise.
	Base string
	// Graph receives every statement. Nil means the default graph.
	Graph  rdf.Term
	Logger *log.Logger
}

type kind int

const (
	kindRoot       kind = iota // rdf:RDF
	kindNode                   // children are property elements
	kindProperty               // children are one node element or text
	kindResource               // parseType="Resource"
	kindCollection             // parseType="Collection"
	kindLiteral                // parseType="Literal"
	kindEmpty                  // object given by attributes
)

type frame struct {
	kind      kind
	subject   rdf.Term
	predicate *rdf.NamedNode
	lang      string
	base      string
	datatype  *rdf.NamedNode
	text      strings.Builder
	object    bool
	items     []rdf.Term
	li        int
	depth     int
	buf       *bytes.Buffer
	enc       *xml.Encoder
}

type parser struct {
	h      rdf.Handler
	graph  rdf.Term
	stack  []*frame
	bnodes int
	stats  syntax.Stats
	logger *log.Logger
	base   string
}

// Parse reads an RDF/XML document. XML that is not well formed aborts the
// parse; unsupported RDF constructs are logged and skipped.
func Parse(ctx context.Context, r io.Reader, h rdf.Handler, opts Options) (syntax.Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	graph := opts.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	p := &parser{h: h, graph: graph, logger: logger, base: opts.Base}
	d := xml.NewDecoder(r)

	for {
		if err := ctx.Err(); err != nil {
			return p.stats, err
		}
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
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
	if len(p.stack) > 0 {
		return p.stats, fmt.Errorf("%w: unexpected end of document", syntax.ErrSyntax)
	}
	return p.stats, nil
}

func (p *parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) emit(s, pr, o rdf.Term) {
	p.stats.Statements++
	p.h.VisitQuad(&rdf.Quad{Subject: s, Predicate: pr, Object: o, Graph: p.graph})
}

func (p *parser) newBlank() *rdf.BlankNode {
	p.bnodes++
	return rdf.NewBlankNode("genid" + strconv.Itoa(p.bnodes))
}

func (p *parser) token(tok xml.Token) error {
	top := p.top()
	if top != nil && top.kind == kindLiteral {
		return p.literalToken(top, tok)
	}

	switch t := tok.(type) {
	case xml.StartElement:
		p.declare(t)
		switch {
		case top == nil && isRDF(t.Name, "RDF"):
			p.push(&frame{kind: kindRoot}, t)
			return nil
		case top == nil, top.kind == kindRoot, top.kind == kindProperty, top.kind == kindCollection:
			return p.nodeElement(top, t)
		case top.kind == kindNode, top.kind == kindResource:
			return p.propertyElement(top, t)
		}
		return fmt.Errorf("unexpected element <%s>", t.Name.Local)

	case xml.EndElement:
		p.stack = p.stack[:len(p.stack)-1]
		return p.end(top)

	case xml.CharData:
		if top == nil {
			return nil
		}
		if top.kind == kindProperty {
			top.text.Write(t)
		} else if len(bytes.TrimSpace(t)) > 0 {
			return fmt.Errorf("unexpected text %q", bytes.TrimSpace(t))
		}

	case xml.Comment:
		p.h.Comment(strings.TrimSpace(string(t)))
	}
	return nil
}

// declare forwards xmlns declarations as namespaces.
func (p *parser) declare(t xml.StartElement) {
	for _, a := range t.Attr {
		switch {
		case a.Name.Space == "xmlns":
			p.h.DeclareNamespace(a.Name.Local, a.Value)
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			p.h.DeclareNamespace("", a.Value)
		}
	}
}

// push inherits xml:lang and xml:base from the enclosing frame.
func (p *parser) push(f *frame, t xml.StartElement) {
	if parent := p.top(); parent != nil {
		f.lang, f.base = parent.lang, parent.base
	} else {
		f.base = p.base
	}
	for _, a := range t.Attr {
		if a.Name.Space != xmlNamespace {
			continue
		}
		switch a.Name.Local {
		case "lang":
			f.lang = a.Value
		case "base":
			f.base = p.resolve(f.base, a.Value)
			if len(p.stack) == 0 {
				p.h.DeclareBaseIRI(f.base)
			}
		}
	}
	p.stack = append(p.stack, f)
}

func (p *parser) resolve(base, ref string) string {
	if base == "" || iri.IsAbsolute(ref) {
		return ref
	}
	return iri.Resolve(base, ref)
}

func isRDF(n xml.Name, local string) bool {
	return n.Space == rdf.RDFNamespace && n.Local == local
}

func elementIRI(n xml.Name) *rdf.NamedNode {
	return rdf.NewNamedNode(n.Space + n.Local)
}

// syntaxAttr reports attributes that never become property attributes.
func syntaxAttr(a xml.Attr) bool {
	switch {
	case a.Name.Space == "xmlns", a.Name.Space == "" && a.Name.Local == "xmlns":
		return true
	case a.Name.Space == xmlNamespace:
		return true
	case a.Name.Space == "":
		// unqualified attributes are not RDF
		return true
	case a.Name.Space == rdf.RDFNamespace:
		switch a.Name.Local {
		case "about", "ID", "nodeID", "resource", "datatype", "parseType", "bagID", "aboutEach", "aboutEachPrefix":
			return true
		}
	}
	return false
}

func attr(t xml.StartElement, local string) (string, bool) {
	for _, a := range t.Attr {
		if a.Name.Space == rdf.RDFNamespace && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func (p *parser) nodeElement(parent *frame, t xml.StartElement) error {
	f := &frame{kind: kindNode}
	p.push(f, t)

	switch {
	case hasAttr(t, "about"):
		about, _ := attr(t, "about")
		f.subject = rdf.NewNamedNode(p.resolve(f.base, about))
	case hasAttr(t, "ID"):
		id, _ := attr(t, "ID")
		f.subject = rdf.NewNamedNode(p.resolve(f.base, "#"+id))
	case hasAttr(t, "nodeID"):
		id, _ := attr(t, "nodeID")
		f.subject = rdf.NewBlankNode(id)
	default:
		f.subject = p.newBlank()
	}

	if parent != nil {
		switch parent.kind {
		case kindProperty:
			if parent.object {
				return fmt.Errorf("property <%s> has more than one object", parent.predicate.IRI)
			}
			parent.object = true
			p.emit(parent.subject, parent.predicate, f.subject)
		case kindCollection:
			parent.items = append(parent.items, f.subject)
		}
	}

	if !isRDF(t.Name, "Description") {
		p.emit(f.subject, rdf.RDFType, elementIRI(t.Name))
	}
	p.propertyAttrs(f.subject, f.lang, t)
	return nil
}

func hasAttr(t xml.StartElement, local string) bool {
	_, ok := attr(t, local)
	return ok
}

// propertyAttrs emits one statement per property attribute.
func (p *parser) propertyAttrs(subject rdf.Term, lang string, t xml.StartElement) {
	for _, a := range t.Attr {
		if syntaxAttr(a) {
			continue
		}
		if a.Name.Space == rdf.RDFNamespace && a.Name.Local == "type" {
			p.emit(subject, rdf.RDFType, rdf.NewNamedNode(a.Value))
			continue
		}
		p.emit(subject, elementIRI(a.Name), literal(a.Value, lang, nil))
	}
}

func literal(value, lang string, datatype *rdf.NamedNode) *rdf.Literal {
	switch {
	case datatype != nil:
		return rdf.NewLiteralWithDatatype(value, datatype)
	case lang != "":
		return rdf.NewLiteralWithLanguage(value, lang)
	}
	return rdf.NewLiteral(value)
}

func (p *parser) propertyElement(parent *frame, t xml.StartElement) error {
	predicate := elementIRI(t.Name)
	if isRDF(t.Name, "li") {
		parent.li++
		predicate = rdf.NewNamedNode(rdf.RDFNamespace + "_" + strconv.Itoa(parent.li))
	}
	if _, ok := attr(t, "ID"); ok {
		p.logger.Debug("ignoring reification id", "property", predicate.IRI)
	}

	f := &frame{kind: kindProperty, subject: parent.subject, predicate: predicate}
	p.push(f, t)

	parseType, _ := attr(t, "parseType")
	switch parseType {
	case "":
	case "Resource":
		node := p.newBlank()
		p.emit(parent.subject, predicate, node)
		f.kind, f.subject = kindResource, node
		return nil
	case "Collection":
		f.kind = kindCollection
		return nil
	default:
		// Literal and any unknown value
		f.kind = kindLiteral
		f.buf = &bytes.Buffer{}
		f.enc = xml.NewEncoder(f.buf)
		return nil
	}

	if dt, ok := attr(t, "datatype"); ok {
		f.datatype = rdf.NewNamedNode(p.resolve(f.base, dt))
	}

	var object rdf.Term
	if res, ok := attr(t, "resource"); ok {
		object = rdf.NewNamedNode(p.resolve(f.base, res))
	} else if id, ok := attr(t, "nodeID"); ok {
		object = rdf.NewBlankNode(id)
	}
	hasPropAttrs := false
	for _, a := range t.Attr {
		if !syntaxAttr(a) {
			hasPropAttrs = true
			break
		}
	}
	if object == nil && hasPropAttrs {
		object = p.newBlank()
	}
	if object != nil {
		f.kind = kindEmpty
		p.emit(parent.subject, predicate, object)
		p.propertyAttrs(object, f.lang, t)
	}
	return nil
}

func (p *parser) end(f *frame) error {
	switch f.kind {
	case kindProperty:
		if !f.object {
			p.emit(f.subject, f.predicate, literal(f.text.String(), f.lang, f.datatype))
		}
	case kindCollection:
		var head rdf.Term = rdf.RDFNil
		if len(f.items) > 0 {
			cells := make([]rdf.Term, len(f.items))
			for i := range cells {
				cells[i] = p.newBlank()
			}
			head = cells[0]
			for i, item := range f.items {
				p.emit(cells[i], rdf.RDFFirst, item)
				next := rdf.Term(rdf.RDFNil)
				if i+1 < len(cells) {
					next = cells[i+1]
				}
				p.emit(cells[i], rdf.RDFRest, next)
			}
		}
		p.emit(f.subject, f.predicate, head)
	case kindLiteral:
		if err := f.enc.Flush(); err != nil {
			return err
		}
		p.emit(f.subject, f.predicate, rdf.NewLiteralWithDatatype(f.buf.String(), rdf.RDFXMLLiteral))
	}
	return nil
}

// literalToken copies the content of a parseType="Literal" property.
func (p *parser) literalToken(f *frame, tok xml.Token) error {
	switch t := tok.(type) {
	case xml.StartElement:
		f.depth++
		attrs := t.Attr[:0:0]
		for _, a := range t.Attr {
			if a.Name.Space != "xmlns" && !(a.Name.Space == "" && a.Name.Local == "xmlns") {
				attrs = append(attrs, a)
			}
		}
		t.Attr = attrs
		return f.enc.EncodeToken(t)
	case xml.EndElement:
		if f.depth == 0 {
			p.stack = p.stack[:len(p.stack)-1]
			return p.end(f)
		}
		f.depth--
		return f.enc.EncodeToken(t)
	case xml.CharData, xml.Comment:
		return f.enc.EncodeToken(t)
	}
	return nil
}
