package rdfio

import (
	"io"

	"github.com/aleksaelezovic/rdfio/internal/grouping"
	"github.com/aleksaelezovic/rdfio/internal/ntriples"
	"github.com/aleksaelezovic/rdfio/internal/rdfxml"
	"github.com/aleksaelezovic/rdfio/internal/trix"
	"github.com/aleksaelezovic/rdfio/internal/turtle"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

// WriteOptions configures NewWriter.
type WriteOptions struct {
	Pretty bool
	// Nest orders Turtle and RDF/XML output depth-first from root subjects
	// without switching to the pretty writers.
	Nest bool
	// Spill keeps grouping buffers in a temporary badger database under
	// SpillDir (empty means the system temp dir).
	Spill    bool
	SpillDir string
	// Namespaces are declared before anything read from the input.
	Namespaces *rdf.NamespaceMap
	Logger     *log.Logger
}

func (o WriteOptions) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// prettyWriter is a statement writer for the prolog that renders the body
// from a nested grouping walk.
type prettyWriter interface {
	rdf.StatementWriter
	grouping.Visitor
}

// NewWriter returns a sink rendering format f to w. The sink does not close
// w.
func NewWriter(w io.Writer, f Format, opts WriteOptions) (rdf.Sink, error) {
	info, err := Lookup(f)
	if err != nil {
		return nil, err
	}
	strategy, err := Dispatch(f, opts.Pretty)
	if err != nil {
		return nil, err
	}
	logger := opts.logger().With("format", string(f), "strategy", strategy.String())

	var sink rdf.Sink
	switch strategy {
	case StrategyPretty:
		var pw prettyWriter
		if f == RDFXML {
			pw = rdfxml.NewPrettyWriter(w)
		} else {
			pw = turtle.NewPrettyWriter(w, false)
		}
		e, err := grouping.New(grouping.Nested, engineOptions(opts, logger,
			grouping.WithDedupe(),
			grouping.WithInline(isBlank),
		)...)
		if err != nil {
			return nil, err
		}
		sink = &prettySink{w: pw, engine: e, logger: logger}

	case StrategyGroupGraph, StrategyGroupGraphSubject:
		mode := grouping.ByGraph
		if strategy == StrategyGroupGraphSubject {
			mode = grouping.ByGraphSubject
		}
		e, err := grouping.New(mode, engineOptions(opts, logger)...)
		if err != nil {
			return nil, err
		}
		sink = &groupedSink{w: statementWriter(w, f), engine: e, logger: logger}

	default:
		if opts.Nest && (f == Turtle || f == N3 || f == RDFXML) {
			e, err := grouping.New(grouping.Nested, engineOptions(opts, logger)...)
			if err != nil {
				return nil, err
			}
			sink = &groupedSink{w: statementWriter(w, f), engine: e, logger: logger}
			break
		}
		sink = &streamSink{w: statementWriter(w, f)}
	}

	if !info.Graphs {
		sink = &graphDropper{Sink: sink, logger: logger}
	}
	if opts.Namespaces != nil {
		opts.Namespaces.Each(sink.DeclareNamespace)
	}
	logger.Debug("writer ready")
	return sink, nil
}

func engineOptions(opts WriteOptions, logger *log.Logger, extra ...grouping.Option) []grouping.Option {
	out := []grouping.Option{grouping.WithLogger(logger)}
	if opts.Spill {
		out = append(out, grouping.WithSpill(opts.SpillDir))
	}
	return append(out, extra...)
}

func logReplay(logger *log.Logger, e *grouping.Engine) {
	logger.Debug("replaying grouped statements", "mode", e.Mode(), "statements", e.Len(), "terms", e.Terms())
}

func isBlank(t rdf.Term) bool {
	_, ok := t.(*rdf.BlankNode)
	return ok
}

func statementWriter(w io.Writer, f Format) rdf.StatementWriter {
	switch f {
	case NTriples:
		return ntriples.NewWriter(w, false)
	case NQuads:
		return ntriples.NewWriter(w, true)
	case TriG:
		return turtle.NewWriter(w, true)
	case RDFXML:
		return rdfxml.NewWriter(w)
	case TriX:
		return trix.NewWriter(w)
	}
	return turtle.NewWriter(w, false)
}

// sticky keeps the first error.
type sticky struct {
	err error
}

func (s *sticky) set(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

func (s *sticky) Err() error { return s.err }

// streamSink forwards every event to its writer as it arrives.
type streamSink struct {
	sticky
	w       rdf.StatementWriter
	started bool
	closed  bool
}

func (s *streamSink) VisitQuad(q *rdf.Quad) {
	if s.err != nil {
		return
	}
	s.EndProlog()
	s.set(s.w.WriteStatement(q))
}

func (s *streamSink) DeclareNamespace(prefix, iri string) {
	if s.err == nil {
		s.set(s.w.WriteNamespace(prefix, iri))
	}
}

func (s *streamSink) DeclareBaseIRI(iri string) {
	if s.err == nil {
		s.set(s.w.WriteBase(iri))
	}
}

func (s *streamSink) Comment(text string) {
	if s.err == nil {
		s.set(s.w.WriteComment(text))
	}
}

func (s *streamSink) EndProlog() {
	if s.started || s.err != nil {
		return
	}
	s.started = true
	s.set(s.w.StartDocument())
}

func (s *streamSink) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true
	s.EndProlog()
	if s.err == nil {
		s.set(s.w.EndDocument())
	}
	return s.err
}

// groupedSink buffers statements in a grouping engine and replays them at
// Close. Declarations go straight to the writer, so the header carries
// every prefix seen in the input.
type groupedSink struct {
	sticky
	w      rdf.StatementWriter
	engine *grouping.Engine
	logger *log.Logger
	closed bool
}

func (s *groupedSink) VisitQuad(q *rdf.Quad) {
	if s.err == nil {
		s.set(s.engine.Ingest(q))
	}
}

func (s *groupedSink) DeclareNamespace(prefix, iri string) {
	if s.err == nil {
		s.set(s.w.WriteNamespace(prefix, iri))
	}
}

func (s *groupedSink) DeclareBaseIRI(iri string) {
	if s.err == nil {
		s.set(s.w.WriteBase(iri))
	}
}

func (s *groupedSink) Comment(text string) {
	if s.err == nil {
		s.set(s.w.WriteComment(text))
	}
}

func (s *groupedSink) EndProlog() {}

func (s *groupedSink) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true
	if s.err == nil {
		s.set(s.w.StartDocument())
	}
	if s.err == nil {
		logReplay(s.logger, s.engine)
		s.set(s.engine.Finish(s.w))
	}
	s.set(s.engine.Close())
	return s.err
}

// prettySink buffers the whole document and renders it through a pretty
// writer at Close.
type prettySink struct {
	sticky
	w      prettyWriter
	engine *grouping.Engine
	logger *log.Logger
	closed bool
}

func (s *prettySink) VisitQuad(q *rdf.Quad) {
	if s.err == nil {
		s.set(s.engine.Ingest(q))
	}
}

func (s *prettySink) DeclareNamespace(prefix, iri string) {
	if s.err == nil {
		s.set(s.w.WriteNamespace(prefix, iri))
	}
}

func (s *prettySink) DeclareBaseIRI(iri string) {
	if s.err == nil {
		s.set(s.w.WriteBase(iri))
	}
}

func (s *prettySink) Comment(text string) {
	if s.err == nil {
		s.set(s.w.WriteComment(text))
	}
}

func (s *prettySink) EndProlog() {}

func (s *prettySink) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true
	if s.err == nil {
		s.set(s.w.StartDocument())
	}
	if s.err == nil {
		logReplay(s.logger, s.engine)
		s.set(s.engine.Walk(s.w))
	}
	if s.err == nil {
		s.set(s.w.EndDocument())
	}
	s.set(s.engine.Close())
	return s.err
}

// graphDropper moves every statement into the default graph for syntaxes
// without graph names, so grouping does not split subjects by graph.
type graphDropper struct {
	rdf.Sink
	logger  *log.Logger
	dropped bool
}

func (g *graphDropper) VisitQuad(q *rdf.Quad) {
	if !rdf.IsDefaultGraph(q.Graph) {
		if !g.dropped {
			g.dropped = true
			g.logger.Debug("dropping graph names", "graph", q.Graph.String())
		}
		q = q.Triple().InGraph(nil)
	}
	g.Sink.VisitQuad(q)
}
