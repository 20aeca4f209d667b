// Package turtle reads and writes Turtle and TriG.
package turtle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/aleksaelezovic/rdfio/internal/iri"
	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

// Options configures Parse.
type Options struct {
	// TriG enables graph blocks.
	TriG bool
	// Base resolves relative IRIs until the document declares its own.
	Base string
	// Graph is the graph of statements outside any graph block. Nil means
	// the default graph.
	Graph  rdf.Term
	Logger *log.Logger
}

// Parse reads a Turtle (or TriG) document and reports its directives and
// statements to h as they are recognized. A statement that fails to parse
// is logged and skipped up to the next '.'.
func Parse(ctx context.Context, r io.Reader, h rdf.Handler, opts Options) (syntax.Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return syntax.Stats{}, fmt.Errorf("turtle: read: %w", err)
	}
	p := newParser(string(data), h, opts)
	err = p.parse(ctx)
	p.stats.Lines = int64(p.c.Line())
	return p.stats, err
}

type parser struct {
	c            *syntax.Cursor
	h            rdf.Handler
	trig         bool
	base         string
	prefixes     map[string]string
	defaultGraph rdf.Term
	graph        rdf.Term
	inBlock      bool
	bnodes       int
	stats        syntax.Stats
	logger       *log.Logger
}

func newParser(input string, h rdf.Handler, opts Options) *parser {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	g := opts.Graph
	if g == nil {
		g = rdf.NewDefaultGraph()
	}
	return &parser{
		c:            syntax.NewCursor(input),
		h:            h,
		trig:         opts.TriG,
		base:         opts.Base,
		prefixes:     make(map[string]string),
		defaultGraph: g,
		graph:        g,
		logger:       logger,
	}
}

func (p *parser) skip() {
	p.c.SkipSpace(p.h.Comment)
}

func (p *parser) parse(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.skip()
		if p.c.EOF() {
			if p.inBlock {
				p.logger.Warn("unterminated graph block", "line", p.c.Line())
			}
			return nil
		}
		if err := p.statement(); err != nil {
			if !errors.Is(err, syntax.ErrSyntax) {
				return err
			}
			p.stats.Skipped++
			p.logger.Warn("skipping malformed statement", "err", err)
			p.recover()
		}
	}
}

// recover moves past the next statement terminator. Inside a graph block
// a closing brace also ends the damage.
func (p *parser) recover() {
	c := p.c
	for !c.EOF() {
		switch ch := c.Peek(); ch {
		case '<':
			if end := strings.IndexByte(c.Input[c.Pos:], '>'); end > 0 && !strings.ContainsAny(c.Input[c.Pos:c.Pos+end], " \n") {
				c.Pos += end + 1
				continue
			}
			c.Pos++
		case '"', '\'':
			c.Pos++
			for !c.EOF() && c.Peek() != ch && c.Peek() != '\n' {
				if c.Peek() == '\\' {
					c.Pos++
				}
				c.Pos++
			}
			c.Pos++
		case '#':
			c.SkipSpace(nil)
		case '.':
			c.Pos++
			if next := c.Peek(); c.EOF() || next == ' ' || next == '\t' || next == '\n' || next == '\r' || next == '#' {
				return
			}
		case '}':
			if p.inBlock {
				c.Pos++
				p.endBlock()
				return
			}
			c.Pos++
		default:
			c.Pos++
		}
	}
}

func (p *parser) statement() error {
	c := p.c
	switch {
	case p.inBlock && c.Peek() == '}':
		c.Pos++
		p.endBlock()
		return nil
	case c.HasPrefix("@prefix"):
		c.Pos += len("@prefix")
		return p.prefixDirective(true)
	case c.HasPrefix("@base"):
		c.Pos += len("@base")
		return p.baseDirective(true)
	case c.MatchKeyword("PREFIX"):
		return p.prefixDirective(false)
	case c.MatchKeyword("BASE"):
		return p.baseDirective(false)
	case p.trig && !p.inBlock && c.MatchKeyword("GRAPH"):
		p.skip()
		g, err := p.graphLabel()
		if err != nil {
			return err
		}
		p.skip()
		if c.Peek() != '{' {
			return c.Errorf("expected '{' after GRAPH name")
		}
		c.Pos++
		p.startBlock(g)
		return nil
	case p.trig && !p.inBlock && c.Peek() == '{':
		c.Pos++
		p.startBlock(p.defaultGraph)
		return nil
	}
	return p.triples()
}

func (p *parser) startBlock(g rdf.Term) {
	p.graph = g
	p.inBlock = true
}

func (p *parser) endBlock() {
	p.graph = p.defaultGraph
	p.inBlock = false
}

func (p *parser) prefixDirective(dotted bool) error {
	c := p.c
	p.skip()
	start := c.Pos
	for !c.EOF() && c.Peek() != ':' {
		r, size := utf8.DecodeRuneInString(c.Input[c.Pos:])
		if !syntax.IsNameChar(r) && r != '.' {
			return c.Errorf("invalid prefix name")
		}
		c.Pos += size
	}
	if c.Peek() != ':' {
		return c.Errorf("expected ':' in prefix declaration")
	}
	prefix := c.Input[start:c.Pos]
	c.Pos++
	p.skip()
	ref, err := c.IRIRef()
	if err != nil {
		return err
	}
	ns := p.resolve(ref)
	if dotted {
		if err := p.expectDot(); err != nil {
			return err
		}
	}
	p.prefixes[prefix] = ns
	p.h.DeclareNamespace(prefix, ns)
	return nil
}

func (p *parser) baseDirective(dotted bool) error {
	p.skip()
	ref, err := p.c.IRIRef()
	if err != nil {
		return err
	}
	if dotted {
		if err := p.expectDot(); err != nil {
			return err
		}
	}
	p.base = p.resolve(ref)
	p.h.DeclareBaseIRI(p.base)
	return nil
}

func (p *parser) expectDot() error {
	p.skip()
	if p.c.Peek() != '.' {
		return p.c.Errorf("expected '.'")
	}
	p.c.Pos++
	return nil
}

func (p *parser) resolve(ref string) string {
	if p.base == "" || iri.IsAbsolute(ref) {
		return ref
	}
	return iri.Resolve(p.base, ref)
}

// triples parses one triples block, or a TriG graph block whose label was
// read in subject position.
func (p *parser) triples() error {
	c := p.c
	var subject rdf.Term
	var err error
	bracketed := false

	switch c.Peek() {
	case '[':
		subject, err = p.blankNodePropertyList()
		bracketed = true
	case '(':
		subject, err = p.collection()
	default:
		subject, err = p.resource()
	}
	if err != nil {
		return err
	}

	p.skip()
	if p.trig && !p.inBlock && c.Peek() == '{' {
		if _, lit := subject.(*rdf.Literal); lit {
			return c.Errorf("literal graph name")
		}
		c.Pos++
		p.startBlock(subject)
		return nil
	}

	if !(bracketed && (c.Peek() == '.' || c.Peek() == '}')) {
		if err := p.predicateObjectList(subject); err != nil {
			return err
		}
		p.skip()
	}

	switch {
	case c.Peek() == '.':
		c.Pos++
		return nil
	case p.inBlock && c.Peek() == '}':
		return nil
	}
	return c.Errorf("expected '.'")
}

func (p *parser) graphLabel() (rdf.Term, error) {
	if p.c.Peek() == '[' {
		p.c.Pos++
		p.skip()
		if p.c.Peek() != ']' {
			return nil, p.c.Errorf("expected ']'")
		}
		p.c.Pos++
		return p.newBlank(), nil
	}
	return p.resource()
}

func (p *parser) predicateObjectList(subject rdf.Term) error {
	c := p.c
	for {
		p.skip()
		predicate, err := p.verb()
		if err != nil {
			return err
		}
		if err := p.objectList(subject, predicate); err != nil {
			return err
		}
		p.skip()
		if c.Peek() != ';' {
			return nil
		}
		for c.Peek() == ';' {
			c.Pos++
			p.skip()
		}
		switch c.Peek() {
		case '.', ']', '}', 0:
			return nil
		}
	}
}

func (p *parser) verb() (rdf.Term, error) {
	c := p.c
	if c.Peek() == 'a' {
		next, _ := utf8.DecodeRuneInString(c.Input[c.Pos+1:])
		if !syntax.IsNameChar(next) && next != ':' && next != '.' {
			c.Pos++
			return rdf.RDFType, nil
		}
	}
	t, err := p.resource()
	if err != nil {
		return nil, err
	}
	if _, ok := t.(*rdf.NamedNode); !ok {
		return nil, c.Errorf("predicate must be an IRI")
	}
	return t, nil
}

func (p *parser) objectList(subject, predicate rdf.Term) error {
	for {
		p.skip()
		object, err := p.object()
		if err != nil {
			return err
		}
		p.emit(subject, predicate, object)
		p.skip()
		if p.c.Peek() != ',' {
			return nil
		}
		p.c.Pos++
	}
}

func (p *parser) emit(s, pr, o rdf.Term) {
	p.stats.Statements++
	p.h.VisitQuad(&rdf.Quad{Subject: s, Predicate: pr, Object: o, Graph: p.graph})
}

func (p *parser) object() (rdf.Term, error) {
	c := p.c
	switch ch := c.Peek(); {
	case ch == '[':
		return p.blankNodePropertyList()
	case ch == '(':
		return p.collection()
	case ch == '"' || ch == '\'':
		return p.literal()
	case ch == '+' || ch == '-' || ch == '.' || (ch >= '0' && ch <= '9'):
		return p.number()
	case p.keyword("true"):
		return rdf.NewLiteralWithDatatype("true", rdf.XSDBoolean), nil
	case p.keyword("false"):
		return rdf.NewLiteralWithDatatype("false", rdf.XSDBoolean), nil
	}
	return p.resource()
}

func (p *parser) keyword(kw string) bool {
	c := p.c
	if !c.HasPrefix(kw) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(c.Input[c.Pos+len(kw):])
	if syntax.IsNameChar(next) || next == ':' {
		return false
	}
	c.Pos += len(kw)
	return true
}

// resource parses an IRI reference, a prefixed name or a blank node label.
func (p *parser) resource() (rdf.Term, error) {
	c := p.c
	switch {
	case c.Peek() == '<':
		ref, err := c.IRIRef()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(p.resolve(ref)), nil
	case c.HasPrefix("_:"):
		label, err := c.BlankLabel()
		if err != nil {
			return nil, err
		}
		return rdf.NewBlankNode(label), nil
	case c.Peek() == '[':
		return p.graphLabel()
	}
	return p.prefixedName()
}

func (p *parser) prefixedName() (rdf.Term, error) {
	c := p.c
	start := c.Pos
	for !c.EOF() && c.Peek() != ':' {
		r, size := utf8.DecodeRuneInString(c.Input[c.Pos:])
		if !syntax.IsNameChar(r) && r != '.' {
			break
		}
		c.Pos += size
	}
	if c.Peek() != ':' {
		c.Pos = start
		if c.EOF() {
			return nil, c.Errorf("unexpected end of input")
		}
		return nil, c.Errorf("unexpected character %q", c.Peek())
	}
	prefix := c.Input[start:c.Pos]
	c.Pos++
	ns, ok := p.prefixes[prefix]
	if !ok {
		return nil, c.Errorf("undefined prefix %q", prefix)
	}
	local, err := p.localName()
	if err != nil {
		return nil, err
	}
	return rdf.NewNamedNode(ns + local), nil
}

// localName parses PN_LOCAL, unescaping \-escapes and keeping %HH as is.
func (p *parser) localName() (string, error) {
	c := p.c
	var b strings.Builder
	for !c.EOF() {
		ch := c.Peek()
		switch {
		case ch == '\\':
			next := c.PeekAt(1)
			if next == 0 || !strings.ContainsRune("_~.-!$&'()*+,;=/?#@%", rune(next)) {
				return "", c.Errorf("invalid local name escape")
			}
			b.WriteByte(next)
			c.Pos += 2
		case ch == '%':
			if !isHex(c.PeekAt(1)) || !isHex(c.PeekAt(2)) {
				return "", c.Errorf("invalid percent escape")
			}
			b.WriteString(c.Input[c.Pos : c.Pos+3])
			c.Pos += 3
		case ch == ':':
			b.WriteByte(ch)
			c.Pos++
		case ch == '.':
			// a local name never ends with '.'
			if !continuesName(c.Input[c.Pos:]) {
				return b.String(), nil
			}
			b.WriteByte(ch)
			c.Pos++
		default:
			r, size := utf8.DecodeRuneInString(c.Input[c.Pos:])
			if !syntax.IsNameChar(r) {
				return b.String(), nil
			}
			b.WriteRune(r)
			c.Pos += size
		}
	}
	return b.String(), nil
}

func continuesName(rest string) bool {
	rest = strings.TrimLeft(rest, ".")
	if rest == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return syntax.IsNameChar(r) || r == ':' || r == '%' || r == '\\'
}

func isHex(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (p *parser) literal() (rdf.Term, error) {
	c := p.c
	value, err := c.String()
	if err != nil {
		return nil, err
	}
	switch {
	case c.Peek() == '@':
		tag, err := c.LangTag()
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteralWithLanguage(value, tag), nil
	case c.HasPrefix("^^"):
		c.Pos += 2
		dt, err := p.resource()
		if err != nil {
			return nil, err
		}
		nn, ok := dt.(*rdf.NamedNode)
		if !ok {
			return nil, c.Errorf("datatype must be an IRI")
		}
		return rdf.NewLiteralWithDatatype(value, nn), nil
	}
	return rdf.NewLiteral(value), nil
}

// number parses INTEGER, DECIMAL and DOUBLE, keeping the lexical form.
func (p *parser) number() (rdf.Term, error) {
	c := p.c
	start := c.Pos
	if ch := c.Peek(); ch == '+' || ch == '-' {
		c.Pos++
	}
	digits := func() int {
		n := 0
		for ch := c.Peek(); ch >= '0' && ch <= '9'; ch = c.Peek() {
			c.Pos++
			n++
		}
		return n
	}
	intDigits := digits()
	fracDigits := 0
	datatype := rdf.XSDInteger
	if c.Peek() == '.' && c.PeekAt(1) >= '0' && c.PeekAt(1) <= '9' {
		c.Pos++
		fracDigits = digits()
		datatype = rdf.XSDDecimal
	}
	if intDigits == 0 && fracDigits == 0 {
		c.Pos = start
		return nil, c.Errorf("invalid number")
	}
	if ch := c.Peek(); ch == 'e' || ch == 'E' {
		save := c.Pos
		c.Pos++
		if ch := c.Peek(); ch == '+' || ch == '-' {
			c.Pos++
		}
		if digits() == 0 {
			c.Pos = save
			return nil, c.Errorf("invalid exponent")
		}
		datatype = rdf.XSDDouble
	}
	return rdf.NewLiteralWithDatatype(c.Input[start:c.Pos], datatype), nil
}

func (p *parser) newBlank() *rdf.BlankNode {
	p.bnodes++
	return rdf.NewBlankNode(fmt.Sprintf("genid%d", p.bnodes))
}

func (p *parser) blankNodePropertyList() (rdf.Term, error) {
	c := p.c
	c.Pos++ // '['
	node := p.newBlank()
	p.skip()
	if c.Peek() == ']' {
		c.Pos++
		return node, nil
	}
	if err := p.predicateObjectList(node); err != nil {
		return nil, err
	}
	p.skip()
	if c.Peek() != ']' {
		return nil, c.Errorf("expected ']'")
	}
	c.Pos++
	return node, nil
}

// collection parses ( ... ) into an rdf:first/rdf:rest list and returns
// its head.
func (p *parser) collection() (rdf.Term, error) {
	c := p.c
	c.Pos++ // '('
	var head, tail rdf.Term = rdf.RDFNil, nil
	for {
		p.skip()
		if c.Peek() == ')' {
			c.Pos++
			if tail != nil {
				p.emit(tail, rdf.RDFRest, rdf.RDFNil)
			}
			return head, nil
		}
		if c.EOF() {
			return nil, c.Errorf("unterminated collection")
		}
		item, err := p.object()
		if err != nil {
			return nil, err
		}
		cell := p.newBlank()
		if tail == nil {
			head = cell
		} else {
			p.emit(tail, rdf.RDFRest, cell)
		}
		p.emit(cell, rdf.RDFFirst, item)
		tail = cell
	}
}
