package rdf

import (
	"errors"
	"fmt"
)

// TermType represents the type of an RDF term
type TermType byte

const (
	TermTypeNamedNode TermType = iota + 1
	TermTypeBlankNode
	TermTypeLiteral
	TermTypeDefaultGraph
)

func (t TermType) String() string {
	switch t {
	case TermTypeNamedNode:
		return "iri"
	case TermTypeBlankNode:
		return "blank"
	case TermTypeLiteral:
		return "literal"
	case TermTypeDefaultGraph:
		return "default-graph"
	default:
		return fmt.Sprintf("TermType(%d)", byte(t))
	}
}

// Term represents an RDF term (IRI, blank node, literal or the default graph).
// The set of implementations is closed.
type Term interface {
	Type() TermType
	String() string
	Equals(other Term) bool
	term()
}

// NamedNode represents an IRI
type NamedNode struct {
	IRI string
}

func NewNamedNode(iri string) *NamedNode {
	return &NamedNode{IRI: iri}
}

func (n *NamedNode) Type() TermType { return TermTypeNamedNode }

func (n *NamedNode) String() string {
	return "<" + escapeIRI(n.IRI) + ">"
}

func (n *NamedNode) Equals(other Term) bool {
	if on, ok := other.(*NamedNode); ok {
		return n.IRI == on.IRI
	}
	return false
}

func (*NamedNode) term() {}

// BlankNode represents a blank node. ID is the label without the "_:" prefix.
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

func (b *BlankNode) Type() TermType { return TermTypeBlankNode }

func (b *BlankNode) String() string {
	return "_:" + b.ID
}

func (b *BlankNode) Equals(other Term) bool {
	if ob, ok := other.(*BlankNode); ok {
		return b.ID == ob.ID
	}
	return false
}

func (*BlankNode) term() {}

// Literal represents an RDF literal. At most one of Language and Datatype is set.
type Literal struct {
	Value    string
	Language string     // for language-tagged strings
	Datatype *NamedNode // for typed literals
}

func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

func NewLiteralWithLanguage(value, language string) *Literal {
	return &Literal{Value: value, Language: language}
}

func NewLiteralWithDatatype(value string, datatype *NamedNode) *Literal {
	return &Literal{Value: value, Datatype: datatype}
}

func (l *Literal) Type() TermType { return TermTypeLiteral }

func (l *Literal) String() string {
	result := `"` + escapeString(l.Value) + `"`
	if l.Language != "" {
		result += "@" + l.Language
	} else if l.Datatype != nil && l.Datatype.IRI != XSDString.IRI {
		result += "^^" + l.Datatype.String()
	}
	return result
}

// Equals compares literals structurally. A plain literal and an xsd:string
// literal with the same lexical form are equal.
func (l *Literal) Equals(other Term) bool {
	ol, ok := other.(*Literal)
	if !ok {
		return false
	}
	if l.Value != ol.Value || l.Language != ol.Language {
		return false
	}
	return l.DatatypeIRI() == ol.DatatypeIRI()
}

// DatatypeIRI returns the effective datatype, treating plain literals as
// xsd:string and tagged literals as rdf:langString.
func (l *Literal) DatatypeIRI() string {
	switch {
	case l.Language != "":
		return RDFLangString.IRI
	case l.Datatype != nil:
		return l.Datatype.IRI
	default:
		return XSDString.IRI
	}
}

func (*Literal) term() {}

// DefaultGraph is the sentinel graph for statements without an explicit graph.
type DefaultGraph struct{}

func NewDefaultGraph() *DefaultGraph {
	return &DefaultGraph{}
}

func (d *DefaultGraph) Type() TermType { return TermTypeDefaultGraph }

func (d *DefaultGraph) String() string {
	return "DEFAULT"
}

func (d *DefaultGraph) Equals(other Term) bool {
	_, ok := other.(*DefaultGraph)
	return ok
}

func (*DefaultGraph) term() {}

// IsDefaultGraph reports whether g denotes the default graph. A nil graph counts.
func IsDefaultGraph(g Term) bool {
	if g == nil {
		return true
	}
	_, ok := g.(*DefaultGraph)
	return ok
}

// Triple represents an RDF triple (subject, predicate, object)
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) *Triple {
	return &Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// InGraph attaches t to graph g.
func (t *Triple) InGraph(g Term) *Quad {
	if g == nil {
		g = NewDefaultGraph()
	}
	return &Quad{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object, Graph: g}
}

// Quad represents an RDF quad (subject, predicate, object, graph)
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func NewQuad(subject, predicate, object, graph Term) *Quad {
	if graph == nil {
		graph = NewDefaultGraph()
	}
	return &Quad{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Graph:     graph,
	}
}

func (q *Quad) String() string {
	if IsDefaultGraph(q.Graph) {
		return fmt.Sprintf("%s %s %s .", q.Subject, q.Predicate, q.Object)
	}
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

// Triple drops the graph.
func (q *Quad) Triple() *Triple {
	return &Triple{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}
}

// Equals compares all four positions, treating a nil graph as the default graph.
func (q *Quad) Equals(o *Quad) bool {
	if !q.Subject.Equals(o.Subject) || !q.Predicate.Equals(o.Predicate) || !q.Object.Equals(o.Object) {
		return false
	}
	if IsDefaultGraph(q.Graph) || IsDefaultGraph(o.Graph) {
		return IsDefaultGraph(q.Graph) && IsDefaultGraph(o.Graph)
	}
	return q.Graph.Equals(o.Graph)
}

var ErrInvalidQuad = errors.New("invalid quad")

// Validate checks the positional constraints of a statement.
func (q *Quad) Validate() error {
	if q.Subject == nil || q.Predicate == nil || q.Object == nil {
		return fmt.Errorf("%w: missing term", ErrInvalidQuad)
	}
	switch q.Subject.(type) {
	case *NamedNode, *BlankNode:
	default:
		return fmt.Errorf("%w: subject %s is a %s", ErrInvalidQuad, q.Subject, q.Subject.Type())
	}
	if _, ok := q.Predicate.(*NamedNode); !ok {
		return fmt.Errorf("%w: predicate %s is a %s", ErrInvalidQuad, q.Predicate, q.Predicate.Type())
	}
	if _, ok := q.Object.(*DefaultGraph); ok {
		return fmt.Errorf("%w: default graph in object position", ErrInvalidQuad)
	}
	if _, ok := q.Graph.(*Literal); ok {
		return fmt.Errorf("%w: graph %s is a literal", ErrInvalidQuad, q.Graph)
	}
	return nil
}

const (
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
)

var (
	RDFType       = NewNamedNode(RDFNamespace + "type")
	RDFFirst      = NewNamedNode(RDFNamespace + "first")
	RDFRest       = NewNamedNode(RDFNamespace + "rest")
	RDFNil        = NewNamedNode(RDFNamespace + "nil")
	RDFLangString = NewNamedNode(RDFNamespace + "langString")
	RDFXMLLiteral = NewNamedNode(RDFNamespace + "XMLLiteral")

	XSDString  = NewNamedNode(XSDNamespace + "string")
	XSDInteger = NewNamedNode(XSDNamespace + "integer")
	XSDDecimal = NewNamedNode(XSDNamespace + "decimal")
	XSDDouble  = NewNamedNode(XSDNamespace + "double")
	XSDBoolean = NewNamedNode(XSDNamespace + "boolean")
)
