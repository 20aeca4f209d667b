package rdf

import "strings"

// NamespaceMap is an ordered prefix to IRI mapping. Keys are unique, the
// last write wins and iteration follows first declaration order. The zero
// value is ready to use.
type NamespaceMap struct {
	keys []string
	iris map[string]string
}

func NewNamespaceMap() *NamespaceMap {
	return &NamespaceMap{}
}

// Set binds prefix to iri.
func (m *NamespaceMap) Set(prefix, iri string) {
	if m.iris == nil {
		m.iris = make(map[string]string)
	}
	if _, ok := m.iris[prefix]; !ok {
		m.keys = append(m.keys, prefix)
	}
	m.iris[prefix] = iri
}

func (m *NamespaceMap) Get(prefix string) (string, bool) {
	iri, ok := m.iris[prefix]
	return iri, ok
}

func (m *NamespaceMap) Len() int { return len(m.keys) }

// Prefixes returns the prefixes in declaration order.
func (m *NamespaceMap) Prefixes() []string {
	return append([]string(nil), m.keys...)
}

// Each calls fn for every binding in declaration order.
func (m *NamespaceMap) Each(fn func(prefix, iri string)) {
	for _, k := range m.keys {
		fn(k, m.iris[k])
	}
}

// Clone returns an independent copy.
func (m *NamespaceMap) Clone() *NamespaceMap {
	c := &NamespaceMap{}
	m.Each(c.Set)
	return c
}

// Shrink finds the binding with the longest namespace that prefixes iri and
// returns the prefix and the local part.
func (m *NamespaceMap) Shrink(iri string) (prefix, local string, ok bool) {
	best := -1
	for _, k := range m.keys {
		ns := m.iris[k]
		if ns != "" && strings.HasPrefix(iri, ns) && len(ns) > best {
			best = len(ns)
			prefix, local = k, iri[len(ns):]
			ok = true
		}
	}
	return prefix, local, ok
}
