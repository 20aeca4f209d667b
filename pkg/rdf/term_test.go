package rdf

import (
	"errors"
	"testing"
)

// ===== NamedNode Tests =====

func TestNamedNode_String(t *testing.T) {
	node := NewNamedNode("http://example.org/resource")
	expected := "<http://example.org/resource>"
	if node.String() != expected {
		t.Errorf("Expected %s, got %s", expected, node.String())
	}

	odd := NewNamedNode("http://example.org/a b")
	if odd.String() != `<http://example.org/a\u0020b>` {
		t.Errorf("Expected escaped space, got %s", odd.String())
	}
}

func TestNamedNode_Equals(t *testing.T) {
	node1 := NewNamedNode("http://example.org/resource")
	node2 := NewNamedNode("http://example.org/resource")
	node3 := NewNamedNode("http://example.org/different")

	if !node1.Equals(node2) {
		t.Error("Expected equal NamedNodes to be equal")
	}
	if node1.Equals(node3) {
		t.Error("Expected different NamedNodes to not be equal")
	}
	if node1.Equals(NewLiteral("http://example.org/resource")) {
		t.Error("NamedNode should not equal Literal")
	}
}

// ===== BlankNode Tests =====

func TestBlankNode_String(t *testing.T) {
	node := NewBlankNode("b1")
	if node.String() != "_:b1" {
		t.Errorf("Expected _:b1, got %s", node.String())
	}
	if node.Type() != TermTypeBlankNode {
		t.Errorf("Expected TermTypeBlankNode, got %v", node.Type())
	}
}

func TestBlankNode_Equals(t *testing.T) {
	if !NewBlankNode("b1").Equals(NewBlankNode("b1")) {
		t.Error("Expected equal BlankNodes to be equal")
	}
	if NewBlankNode("b1").Equals(NewNamedNode("b1")) {
		t.Error("BlankNode should not equal NamedNode")
	}
}

// ===== Literal Tests =====

func TestLiteral_String(t *testing.T) {
	tests := []struct {
		name     string
		literal  *Literal
		expected string
	}{
		{"plain", NewLiteral("hello"), `"hello"`},
		{"language", NewLiteralWithLanguage("hello", "en"), `"hello"@en`},
		{"typed", NewLiteralWithDatatype("42", XSDInteger), `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"xsd string", NewLiteralWithDatatype("x", XSDString), `"x"`},
		{"escapes", NewLiteral("a \"b\"\n\\"), `"a \"b\"\n\\"`},
		{"control", NewLiteral("\x01"), `"\u0001"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.literal.String(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestLiteral_Equals(t *testing.T) {
	plain := NewLiteral("42")
	typed := NewLiteralWithDatatype("42", XSDInteger)
	str := NewLiteralWithDatatype("42", XSDString)
	lang := NewLiteralWithLanguage("42", "en")

	if plain.Equals(typed) {
		t.Error("plain literal should not equal integer literal")
	}
	if !plain.Equals(str) {
		t.Error("plain literal should equal xsd:string literal")
	}
	if plain.Equals(lang) {
		t.Error("plain literal should not equal tagged literal")
	}
	if !typed.Equals(NewLiteralWithDatatype("42", NewNamedNode(XSDNamespace+"integer"))) {
		t.Error("typed literals with equal datatypes should be equal")
	}
}

// ===== Quad Tests =====

func TestQuad_DefaultGraph(t *testing.T) {
	q := NewQuad(NewNamedNode("http://ex/s"), NewNamedNode("http://ex/p"), NewLiteral("o"), nil)
	if !IsDefaultGraph(q.Graph) {
		t.Fatalf("Expected default graph, got %v", q.Graph)
	}
	expected := `<http://ex/s> <http://ex/p> "o" .`
	if q.String() != expected {
		t.Errorf("Expected %s, got %s", expected, q.String())
	}

	named := NewQuad(q.Subject, q.Predicate, q.Object, NewNamedNode("http://ex/g"))
	if q.Equals(named) {
		t.Error("quads in different graphs should differ")
	}
	if !q.Equals(&Quad{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}) {
		t.Error("nil graph should equal the default graph")
	}
}

func TestQuad_Validate(t *testing.T) {
	s := NewNamedNode("http://ex/s")
	p := NewNamedNode("http://ex/p")
	o := NewLiteral("o")

	tests := []struct {
		name  string
		quad  *Quad
		valid bool
	}{
		{"valid", NewQuad(s, p, o, nil), true},
		{"blank subject", NewQuad(NewBlankNode("b"), p, o, nil), true},
		{"literal subject", NewQuad(o, p, o, nil), false},
		{"blank predicate", NewQuad(s, NewBlankNode("p"), o, nil), false},
		{"literal predicate", NewQuad(s, o, o, nil), false},
		{"literal graph", NewQuad(s, p, o, o), false},
		{"missing object", &Quad{Subject: s, Predicate: p}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quad.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid quad, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidQuad) {
				t.Errorf("Expected ErrInvalidQuad, got %v", err)
			}
		})
	}
}
