package rdf

// Handler receives the event stream produced by a parser. Calls come from a
// single goroutine and never overlap.
type Handler interface {
	// VisitQuad announces one statement.
	VisitQuad(q *Quad)
	// DeclareNamespace announces a prefix binding seen in the source.
	DeclareNamespace(prefix, iri string)
	// DeclareBaseIRI announces a base IRI. Later calls overwrite earlier ones.
	DeclareBaseIRI(iri string)
	// Comment is advisory and may be dropped.
	Comment(text string)
}

// Sink is a Handler that renders a document. Declarations that should reach
// the document header must arrive before EndProlog. Write errors are sticky:
// the first one is kept and returned by Err and Close.
type Sink interface {
	Handler
	EndProlog()
	Err() error
	Close() error
}

// StatementWriter is the rendering primitive driven by both the streaming
// and the grouped write paths.
type StatementWriter interface {
	WriteNamespace(prefix, iri string) error
	WriteBase(iri string) error
	WriteComment(text string) error
	StartDocument() error
	WriteStatement(q *Quad) error
	EndDocument() error
}

// HandlerFuncs adapts optional functions to a Handler. Nil fields ignore the
// corresponding event.
type HandlerFuncs struct {
	Quad      func(q *Quad)
	Namespace func(prefix, iri string)
	Base      func(iri string)
	Text      func(text string)
}

func (h HandlerFuncs) VisitQuad(q *Quad) {
	if h.Quad != nil {
		h.Quad(q)
	}
}

func (h HandlerFuncs) DeclareNamespace(prefix, iri string) {
	if h.Namespace != nil {
		h.Namespace(prefix, iri)
	}
}

func (h HandlerFuncs) DeclareBaseIRI(iri string) {
	if h.Base != nil {
		h.Base(iri)
	}
}

func (h HandlerFuncs) Comment(text string) {
	if h.Text != nil {
		h.Text(text)
	}
}

// Discard drops every event.
var Discard Handler = HandlerFuncs{}

// Collector records every event in memory.
type Collector struct {
	Quads      []*Quad
	Namespaces NamespaceMap
	Base       string
	Comments   []string
}

func (c *Collector) VisitQuad(q *Quad) { c.Quads = append(c.Quads, q) }

func (c *Collector) DeclareNamespace(prefix, iri string) { c.Namespaces.Set(prefix, iri) }

func (c *Collector) DeclareBaseIRI(iri string) { c.Base = iri }

func (c *Collector) Comment(text string) { c.Comments = append(c.Comments, text) }

// Replay sends the recorded events to h: base, namespaces, comments, then quads.
func (c *Collector) Replay(h Handler) {
	if c.Base != "" {
		h.DeclareBaseIRI(c.Base)
	}
	c.Namespaces.Each(h.DeclareNamespace)
	for _, text := range c.Comments {
		h.Comment(text)
	}
	for _, q := range c.Quads {
		h.VisitQuad(q)
	}
}

// Counter counts statements passing through to Next.
type Counter struct {
	Next  Handler
	Count int64
}

func (c *Counter) VisitQuad(q *Quad) {
	c.Count++
	c.Next.VisitQuad(q)
}

func (c *Counter) DeclareNamespace(prefix, iri string) { c.Next.DeclareNamespace(prefix, iri) }

func (c *Counter) DeclareBaseIRI(iri string) { c.Next.DeclareBaseIRI(iri) }

func (c *Counter) Comment(text string) { c.Next.Comment(text) }

// DeferProlog wraps a sink so that EndProlog is called lazily, right before
// the first statement. Declarations read from a source header thereby land
// in the output header.
func DeferProlog(s Sink) Sink {
	return &deferredSink{Sink: s}
}

type deferredSink struct {
	Sink
	ended bool
}

func (d *deferredSink) VisitQuad(q *Quad) {
	d.EndProlog()
	d.Sink.VisitQuad(q)
}

func (d *deferredSink) EndProlog() {
	if d.ended {
		return
	}
	d.ended = true
	d.Sink.EndProlog()
}

func (d *deferredSink) Close() error {
	d.EndProlog()
	return d.Sink.Close()
}
