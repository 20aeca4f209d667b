package turtle

import (
	"strings"
	"unicode/utf8"

	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
)

// formatter renders terms, abbreviating IRIs with the declared prefixes.
type formatter struct {
	ns rdf.NamespaceMap
}

func (f *formatter) term(t rdf.Term) string {
	switch v := t.(type) {
	case *rdf.NamedNode:
		return f.iri(v.IRI)
	case *rdf.BlankNode:
		return "_:" + v.ID
	case *rdf.Literal:
		return f.literal(v)
	}
	return t.String()
}

func (f *formatter) predicate(t rdf.Term) string {
	if t.Equals(rdf.RDFType) {
		return "a"
	}
	return f.term(t)
}

func (f *formatter) iri(iri string) string {
	if prefix, local, ok := f.ns.Shrink(iri); ok && validLocal(local) {
		return prefix + ":" + local
	}
	return "<" + rdf.EscapeIRI(iri) + ">"
}

func (f *formatter) literal(l *rdf.Literal) string {
	switch {
	case l.Language != "":
		return quote(l.Value) + "@" + l.Language
	case l.Datatype == nil || l.Datatype.IRI == rdf.XSDString.IRI:
		return quote(l.Value)
	case l.Datatype.IRI == rdf.XSDInteger.IRI && isInteger(l.Value):
		return l.Value
	case l.Datatype.IRI == rdf.XSDBoolean.IRI && (l.Value == "true" || l.Value == "false"):
		return l.Value
	}
	return quote(l.Value) + "^^" + f.iri(l.Datatype.IRI)
}

func quote(s string) string {
	return `"` + rdf.EscapeString(s) + `"`
}

func isInteger(s string) bool {
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validLocal reports whether local can be written unescaped after a prefix.
func validLocal(local string) bool {
	if local == "" {
		return true
	}
	if local[0] == '-' || local[0] == '.' || local[len(local)-1] == '.' {
		return false
	}
	for _, r := range local {
		if r == utf8.RuneError || (!syntax.IsNameChar(r) && r != '.' && r != ':') {
			return false
		}
	}
	return true
}
