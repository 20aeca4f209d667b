// Package intern assigns compact integer identities to RDF terms for the
// lifetime of one write session.
package intern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/zeebo/xxh3"
)

// ID identifies an interned term. Zero is never assigned.
type ID uint64

// None is the reserved zero id.
const None ID = 0

var ErrUnknownID = errors.New("intern: unknown term id")

// Table is a bidirectional term <-> ID mapping. IDs are dense, start at 1 and
// follow first-seen order. Entries are never evicted. A Table is not safe for
// concurrent use.
type Table struct {
	// byHash buckets ids by the xxh3 hash of the term key; a bucket holds
	// more than one id only on hash collision.
	byHash map[uint64][]ID
	terms  []rdf.Term
}

func New() *Table {
	return &Table{
		byHash: make(map[uint64][]ID),
		terms:  []rdf.Term{nil},
	}
}

// ID returns the id of term, assigning the next one if term is new.
func (t *Table) ID(term rdf.Term) ID {
	if term == nil {
		term = rdf.NewDefaultGraph()
	}
	h := Hash(term)
	for _, id := range t.byHash[h] {
		if t.terms[id].Equals(term) {
			return id
		}
	}
	id := ID(len(t.terms))
	t.terms = append(t.terms, term)
	t.byHash[h] = append(t.byHash[h], id)
	return id
}

// Term returns the term for id.
func (t *Table) Term(id ID) (rdf.Term, error) {
	if id == None || uint64(id) >= uint64(len(t.terms)) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return t.terms[id], nil
}

// Len returns the number of interned terms.
func (t *Table) Len() int { return len(t.terms) - 1 }

// Hash returns the xxh3 hash of the structural key of term. Equal terms
// hash equally; plain and xsd:string literals share a key.
func Hash(term rdf.Term) uint64 {
	return xxh3.HashString(key(term))
}

func key(term rdf.Term) string {
	var b strings.Builder
	b.WriteByte(byte(term.Type()))
	switch v := term.(type) {
	case *rdf.NamedNode:
		b.WriteString(v.IRI)
	case *rdf.BlankNode:
		b.WriteString(v.ID)
	case *rdf.Literal:
		b.WriteString(v.Value)
		b.WriteByte(0)
		b.WriteString(v.Language)
		b.WriteByte(0)
		b.WriteString(v.DatatypeIRI())
	}
	return b.String()
}
