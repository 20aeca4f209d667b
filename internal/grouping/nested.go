package grouping

import (
	"github.com/aleksaelezovic/rdfio/internal/intern"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
)

// Visitor receives the nested structure of a Nested session. Inside a
// subject, StartNested announces a property whose object description
// follows; its properties arrive until the matching EndNested.
type Visitor interface {
	StartGraph(g rdf.Term) error
	StartSubject(s rdf.Term) error
	Property(p, o rdf.Term) error
	StartNested(p, o rdf.Term) error
	EndNested() error
	EndSubject() error
	EndGraph() error
}

// nesting holds the per-graph traversal state shared by both walks.
type nesting struct {
	e       *Engine
	g       intern.ID
	visited map[intern.ID]bool
}

// root reports whether s starts a traversal: anything except an inlinable
// subject referenced exactly once in the graph.
func (n *nesting) root(s intern.ID) bool {
	if n.e.refs[[2]intern.ID{n.g, s}] != 1 {
		return true
	}
	t, err := n.e.terms.Term(s)
	return err != nil || !n.e.inline(t)
}

// child reports whether object o of subject s is described in place.
func (n *nesting) child(s, o intern.ID) bool {
	if o == s || n.visited[o] || n.root(o) {
		return false
	}
	return n.e.index.Has(n.g, o)
}

// order calls fn for the roots of the graph in first-occurrence order, then
// for every subject not reached from a root (cycles of single references).
func (n *nesting) order(fn func(s intern.ID) error) error {
	subjects := n.e.index.Subjects(n.g)
	for _, s := range subjects {
		if n.visited[s] || !n.root(s) {
			continue
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	for _, s := range subjects {
		if n.visited[s] {
			continue
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

// walkFlat emits each subject's statements contiguously, visiting
// nested subjects depth-first right after their parent.
func (e *Engine) walkFlat(w rdf.StatementWriter) error {
	for _, g := range e.index.Graphs() {
		graph, err := e.terms.Term(g)
		if err != nil {
			return err
		}
		n := &nesting{e: e, g: g, visited: make(map[intern.ID]bool)}
		err = n.order(func(root intern.ID) error {
			n.visited[root] = true
			stack := []intern.ID{root}
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				var children []intern.ID
				err := e.index.Rows(g, cur, func(row []intern.ID) error {
					o := row[1]
					if n.child(cur, o) {
						n.visited[o] = true
						children = append(children, o)
					}
					return e.emit(w, cur, row[0], o, graph)
				})
				if err != nil {
					return err
				}
				for i := len(children) - 1; i >= 0; i-- {
					stack = append(stack, children[i])
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type frame struct {
	rows   []intern.ID
	next   int
	s      intern.ID
	nested bool
}

// Walk finishes a Nested session by reporting its tree structure to v
// instead of flat statements. Like Finish it releases the session; unlike
// Finish it leaves the document open.
func (e *Engine) Walk(v Visitor) error {
	if e.mode != Nested {
		return errNotNested
	}
	if err := e.beginFinish(); err != nil {
		return err
	}
	defer e.release()

	for _, g := range e.index.Graphs() {
		graph, err := e.terms.Term(g)
		if err != nil {
			return err
		}
		if err := v.StartGraph(graph); err != nil {
			return err
		}
		n := &nesting{e: e, g: g, visited: make(map[intern.ID]bool)}
		err = n.order(func(root intern.ID) error {
			return e.walkTree(n, v, root)
		})
		if err != nil {
			return err
		}
		if err := v.EndGraph(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) walkTree(n *nesting, v Visitor, root intern.ID) error {
	subject, err := e.terms.Term(root)
	if err != nil {
		return err
	}
	if err := v.StartSubject(subject); err != nil {
		return err
	}
	n.visited[root] = true
	rows, err := e.loadRows(n.g, root)
	if err != nil {
		return err
	}
	stack := []*frame{{rows: rows, s: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.rows) {
			stack = stack[:len(stack)-1]
			if top.nested {
				err = v.EndNested()
			} else {
				err = v.EndSubject()
			}
			if err != nil {
				return err
			}
			continue
		}

		p, o := top.rows[top.next], top.rows[top.next+1]
		top.next += 2
		predicate, err := e.terms.Term(p)
		if err != nil {
			return err
		}
		object, err := e.terms.Term(o)
		if err != nil {
			return err
		}

		if !n.child(top.s, o) {
			if err := v.Property(predicate, object); err != nil {
				return err
			}
			continue
		}
		n.visited[o] = true
		if err := v.StartNested(predicate, object); err != nil {
			return err
		}
		rows, err := e.loadRows(n.g, o)
		if err != nil {
			return err
		}
		stack = append(stack, &frame{rows: rows, s: o, nested: true})
	}
	return nil
}

func (e *Engine) loadRows(g, s intern.ID) ([]intern.ID, error) {
	var rows []intern.ID
	err := e.index.Rows(g, s, func(row []intern.ID) error {
		rows = append(rows, row...)
		return nil
	})
	return rows, err
}
