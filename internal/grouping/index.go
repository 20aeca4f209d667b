package grouping

import "github.com/aleksaelezovic/rdfio/internal/intern"

// Index stores fixed-width rows of term ids in buckets keyed by graph and
// subject. Graphs are listed in first-occurrence order, subjects in
// first-occurrence order within their graph, and rows in append order.
type Index interface {
	Append(g, s intern.ID, row []intern.ID) error
	Graphs() []intern.ID
	Subjects(g intern.ID) []intern.ID
	Has(g, s intern.ID) bool
	// Rows calls fn for each row of the bucket. The row slice is only valid
	// for the duration of the call.
	Rows(g, s intern.ID, fn func(row []intern.ID) error) error
	Len() int
	Close() error
}

type memGraph struct {
	subjects []intern.ID
	rows     map[intern.ID][]intern.ID
}

// memIndex keeps rows as flat id slices.
type memIndex struct {
	width   int
	graphs  []intern.ID
	byGraph map[intern.ID]*memGraph
	n       int
}

func newMemIndex(width int) *memIndex {
	return &memIndex{width: width, byGraph: make(map[intern.ID]*memGraph)}
}

func (m *memIndex) Append(g, s intern.ID, row []intern.ID) error {
	mg, ok := m.byGraph[g]
	if !ok {
		mg = &memGraph{rows: make(map[intern.ID][]intern.ID)}
		m.byGraph[g] = mg
		m.graphs = append(m.graphs, g)
	}
	rows, ok := mg.rows[s]
	if !ok {
		mg.subjects = append(mg.subjects, s)
	}
	mg.rows[s] = append(rows, row[:m.width]...)
	m.n++
	return nil
}

func (m *memIndex) Graphs() []intern.ID { return m.graphs }

func (m *memIndex) Subjects(g intern.ID) []intern.ID {
	if mg, ok := m.byGraph[g]; ok {
		return mg.subjects
	}
	return nil
}

func (m *memIndex) Has(g, s intern.ID) bool {
	mg, ok := m.byGraph[g]
	if !ok {
		return false
	}
	_, ok = mg.rows[s]
	return ok
}

func (m *memIndex) Rows(g, s intern.ID, fn func(row []intern.ID) error) error {
	mg, ok := m.byGraph[g]
	if !ok {
		return nil
	}
	rows := mg.rows[s]
	for i := 0; i+m.width <= len(rows); i += m.width {
		if err := fn(rows[i : i+m.width]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memIndex) Len() int { return m.n }

func (m *memIndex) Close() error {
	m.graphs = nil
	m.byGraph = nil
	return nil
}
