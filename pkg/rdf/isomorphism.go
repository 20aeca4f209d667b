package rdf

import (
	"sort"
	"strings"
)

// Isomorphic reports whether two statement sets are equal up to a renaming
// of blank nodes, including blank nodes used as graph names. Duplicate
// statements are ignored.
func Isomorphic(expected, actual []*Quad) bool {
	expected = dedupeQuads(expected)
	actual = dedupeQuads(actual)
	if len(expected) != len(actual) {
		return false
	}

	expectedBlanks := blankLabels(expected)
	actualBlanks := blankLabels(actual)
	if len(expectedBlanks) != len(actualBlanks) {
		return false
	}

	actualSet := make(map[string]bool, len(actual))
	for _, q := range actual {
		actualSet[quadKey(q, nil)] = true
	}

	if len(expectedBlanks) == 0 {
		for _, q := range expected {
			if !actualSet[quadKey(q, nil)] {
				return false
			}
		}
		return true
	}

	expectedBlanks = sortByDegree(expectedBlanks, expected)
	actualBlanks = sortByDegree(actualBlanks, actual)

	m := &matcher{
		expected:    expected,
		actualSet:   actualSet,
		mapping:     make(map[string]string),
		usedTargets: make(map[string]bool),
	}
	return m.search(expectedBlanks, actualBlanks)
}

type matcher struct {
	expected    []*Quad
	actualSet   map[string]bool
	mapping     map[string]string
	usedTargets map[string]bool
}

type searchFrame struct {
	index     int // position in expectedBlanks
	candidate int // next candidate in actualBlanks to try
}

// search runs the backtracking search with an explicit stack.
func (m *matcher) search(expectedBlanks, actualBlanks []string) bool {
	stack := []searchFrame{{index: 0, candidate: 0}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.index == len(expectedBlanks) {
			return true
		}
		current := expectedBlanks[top.index]
		if prev, ok := m.mapping[current]; ok {
			delete(m.mapping, current)
			delete(m.usedTargets, prev)
		}

		advanced := false
		for top.candidate < len(actualBlanks) {
			candidate := actualBlanks[top.candidate]
			top.candidate++
			if m.usedTargets[candidate] {
				continue
			}
			m.mapping[current] = candidate
			m.usedTargets[candidate] = true
			if m.consistent() {
				stack = append(stack, searchFrame{index: top.index + 1})
				advanced = true
				break
			}
			delete(m.mapping, current)
			delete(m.usedTargets, candidate)
		}
		if !advanced {
			stack = stack[:len(stack)-1]
		}
	}
	return false
}

// consistent checks every fully mapped expected statement against the actual set.
func (m *matcher) consistent() bool {
	for _, q := range m.expected {
		if !mapped(q.Subject, m.mapping) || !mapped(q.Object, m.mapping) || !mapped(q.Graph, m.mapping) {
			continue
		}
		if !m.actualSet[quadKey(q, m.mapping)] {
			return false
		}
	}
	return true
}

func mapped(t Term, mapping map[string]string) bool {
	if b, ok := t.(*BlankNode); ok {
		_, ok := mapping[b.ID]
		return ok
	}
	return true
}

func dedupeQuads(quads []*Quad) []*Quad {
	seen := make(map[string]bool, len(quads))
	out := make([]*Quad, 0, len(quads))
	for _, q := range quads {
		k := quadKey(q, nil)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, q)
	}
	return out
}

func blankLabels(quads []*Quad) []string {
	blanks := make(map[string]bool)
	for _, q := range quads {
		for _, t := range []Term{q.Subject, q.Object, q.Graph} {
			if b, ok := t.(*BlankNode); ok {
				blanks[b.ID] = true
			}
		}
	}
	result := make([]string, 0, len(blanks))
	for label := range blanks {
		result = append(result, label)
	}
	sort.Strings(result)
	return result
}

func sortByDegree(blanks []string, quads []*Quad) []string {
	degrees := make(map[string]int, len(blanks))
	for _, q := range quads {
		for _, t := range []Term{q.Subject, q.Object, q.Graph} {
			if b, ok := t.(*BlankNode); ok {
				degrees[b.ID]++
			}
		}
	}
	sort.SliceStable(blanks, func(i, j int) bool {
		return degrees[blanks[i]] > degrees[blanks[j]]
	})
	return blanks
}

func quadKey(q *Quad, mapping map[string]string) string {
	var b strings.Builder
	for i, t := range []Term{q.Subject, q.Predicate, q.Object, q.Graph} {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(termKey(t, mapping))
	}
	return b.String()
}

func termKey(t Term, mapping map[string]string) string {
	switch v := t.(type) {
	case nil:
		return "DEFAULT"
	case *BlankNode:
		if mapping != nil {
			if target, ok := mapping[v.ID]; ok {
				return "_:" + target
			}
		}
		return "_:" + v.ID
	case *Literal:
		return `"` + escapeString(v.Value) + `"@` + v.Language + "^^" + v.DatatypeIRI()
	default:
		return t.String()
	}
}
