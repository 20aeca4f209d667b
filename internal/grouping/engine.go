// Package grouping buffers a quad stream as interned ids and replays it in
// the block order required by graph- and subject-structured syntaxes.
package grouping

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/rdfio/internal/intern"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

// Mode selects the replay order.
type Mode int

const (
	// ByGraph replays each graph contiguously in first-occurrence order,
	// keeping input order inside a graph.
	ByGraph Mode = iota + 1
	// ByGraphSubject additionally groups each graph by subject.
	ByGraphSubject
	// Nested groups like ByGraphSubject and then orders subjects depth-first
	// from root subjects, so a subject referenced exactly once follows the
	// subject that references it.
	Nested
)

func (m Mode) String() string {
	switch m {
	case ByGraph:
		return "by-graph"
	case ByGraphSubject:
		return "by-graph-subject"
	case Nested:
		return "nested"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

var (
	ErrFinished = errors.New("grouping: session already finished")
	ErrClosed   = errors.New("grouping: session closed")

	errNotNested = errors.New("grouping: Walk requires the nested mode")
)

type state int

const (
	stateOpen state = iota
	stateFinished
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "OPEN"
	case stateFinished:
		return "FINISHED"
	default:
		return "CLOSED"
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSpill keeps the grouping index in a temporary badger database under dir
// instead of memory. An empty dir means the system temp dir.
func WithSpill(dir string) Option {
	return func(e *Engine) {
		e.spill = true
		e.spillDir = dir
	}
}

// WithDedupe drops statements already ingested in this session.
func WithDedupe() Option {
	return func(e *Engine) { e.seen = make(map[[4]intern.ID]struct{}) }
}

// WithInline restricts which objects the Nested mode may place under their
// referencing subject. The default allows IRIs and blank nodes.
func WithInline(fn func(rdf.Term) bool) Option {
	return func(e *Engine) { e.inline = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is one grouped write session. It owns its interner and index and
// is not safe for concurrent use.
type Engine struct {
	mode     Mode
	state    state
	terms    *intern.Table
	index    Index
	seen     map[[4]intern.ID]struct{}
	refs     map[[2]intern.ID]uint32
	inline   func(rdf.Term) bool
	spill    bool
	spillDir string
	logger   *log.Logger
	dropped  int
}

// New opens a session.
func New(mode Mode, opts ...Option) (*Engine, error) {
	e := &Engine{
		mode:   mode,
		terms:  intern.New(),
		inline: defaultInline,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	width := 2
	switch mode {
	case ByGraph:
		width = 3
	case ByGraphSubject:
	case Nested:
		e.refs = make(map[[2]intern.ID]uint32)
	default:
		return nil, fmt.Errorf("grouping: unknown mode %d", int(mode))
	}

	if e.spill {
		idx, err := newSpillIndex(width, e.spillDir, e.logger)
		if err != nil {
			return nil, fmt.Errorf("grouping: open spill index: %w", err)
		}
		e.index = idx
	} else {
		e.index = newMemIndex(width)
	}
	return e, nil
}

func defaultInline(t rdf.Term) bool {
	switch t.(type) {
	case *rdf.NamedNode, *rdf.BlankNode:
		return true
	}
	return false
}

func (e *Engine) Mode() Mode { return e.mode }

// Len returns the number of buffered statements.
func (e *Engine) Len() int {
	if e.index == nil {
		return 0
	}
	return e.index.Len()
}

// Terms returns the number of distinct interned terms.
func (e *Engine) Terms() int {
	if e.terms == nil {
		return 0
	}
	return e.terms.Len()
}

// Ingest buffers one statement.
func (e *Engine) Ingest(q *rdf.Quad) error {
	switch e.state {
	case stateFinished:
		return ErrFinished
	case stateClosed:
		return ErrClosed
	}

	s := e.terms.ID(q.Subject)
	p := e.terms.ID(q.Predicate)
	o := e.terms.ID(q.Object)
	g := e.terms.ID(q.Graph)

	if e.seen != nil {
		k := [4]intern.ID{g, s, p, o}
		if _, dup := e.seen[k]; dup {
			e.dropped++
			return nil
		}
		e.seen[k] = struct{}{}
	}

	if e.refs != nil {
		if _, lit := q.Object.(*rdf.Literal); !lit {
			e.refs[[2]intern.ID{g, o}]++
		}
	}

	if e.mode == ByGraph {
		return e.index.Append(g, intern.None, []intern.ID{s, p, o})
	}
	return e.index.Append(g, s, []intern.ID{p, o})
}

// Finish replays every buffered statement to w in group order, ends the
// document and releases the index and interner. It does not call
// StartDocument; the caller owns the prolog.
func (e *Engine) Finish(w rdf.StatementWriter) error {
	if err := e.beginFinish(); err != nil {
		return err
	}
	defer e.release()

	var err error
	switch e.mode {
	case ByGraph:
		err = e.replayGraphs(w)
	case ByGraphSubject:
		err = e.replaySubjects(w)
	case Nested:
		err = e.walkFlat(w)
	}
	if err != nil {
		return err
	}
	if e.dropped > 0 {
		e.logger.Debug("dropped duplicate statements", "count", e.dropped)
	}
	return w.EndDocument()
}

func (e *Engine) beginFinish() error {
	switch e.state {
	case stateFinished:
		return ErrFinished
	case stateClosed:
		return ErrClosed
	}
	e.state = stateFinished
	return nil
}

func (e *Engine) replayGraphs(w rdf.StatementWriter) error {
	for _, g := range e.index.Graphs() {
		graph, err := e.terms.Term(g)
		if err != nil {
			return err
		}
		err = e.index.Rows(g, intern.None, func(row []intern.ID) error {
			return e.emit(w, row[0], row[1], row[2], graph)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) replaySubjects(w rdf.StatementWriter) error {
	for _, g := range e.index.Graphs() {
		graph, err := e.terms.Term(g)
		if err != nil {
			return err
		}
		for _, s := range e.index.Subjects(g) {
			err := e.index.Rows(g, s, func(row []intern.ID) error {
				return e.emit(w, s, row[0], row[1], graph)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) emit(w rdf.StatementWriter, s, p, o intern.ID, graph rdf.Term) error {
	subject, err := e.terms.Term(s)
	if err != nil {
		return err
	}
	predicate, err := e.terms.Term(p)
	if err != nil {
		return err
	}
	object, err := e.terms.Term(o)
	if err != nil {
		return err
	}
	return w.WriteStatement(&rdf.Quad{Subject: subject, Predicate: predicate, Object: object, Graph: graph})
}

func (e *Engine) release() {
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			e.logger.Warn("failed to release grouping index", "err", err)
		}
	}
	e.index = nil
	e.terms = nil
	e.seen = nil
	e.refs = nil
}

// Close releases the session. Closing an unfinished session discards its
// statements. Close is idempotent.
func (e *Engine) Close() error {
	if e.state == stateClosed {
		return nil
	}
	var err error
	if e.index != nil {
		err = e.index.Close()
	}
	e.index = nil
	e.terms = nil
	e.seen = nil
	e.refs = nil
	e.state = stateClosed
	return err
}
