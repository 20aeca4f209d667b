// Package ntriples reads and writes the line-oriented N-Triples and N-Quads
// syntaxes.
package ntriples

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aleksaelezovic/rdfio/internal/iri"
	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

// Options configures a Reader.
type Options struct {
	// Quads accepts a fourth (graph) term on each line.
	Quads bool
	// Graph is attached to statements that carry no graph term. Nil means
	// the default graph.
	Graph rdf.Term
	// Logger receives one warning per skipped line.
	Logger *log.Logger
}

// Reader parses one statement per line. Lines that fail to parse are
// skipped and logged; only I/O errors stop the reader.
type Reader struct {
	r      *bufio.Reader
	opts   Options
	stats  syntax.Stats
	logger *log.Logger
	// comment receives '#' lines when set.
	comment func(text string)
}

func NewReader(r io.Reader, opts Options) *Reader {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Graph == nil {
		opts.Graph = rdf.NewDefaultGraph()
	}
	return &Reader{r: bufio.NewReaderSize(r, 64*1024), opts: opts, logger: logger}
}

// Stats returns the counts so far.
func (r *Reader) Stats() syntax.Stats { return r.stats }

// Next returns the next statement, or io.EOF after the last one.
func (r *Reader) Next() (*rdf.Quad, error) {
	for {
		line, err := r.r.ReadString('\n')
		if len(line) == 0 && err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read line %d: %w", r.stats.Lines+1, err)
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read line %d: %w", r.stats.Lines+1, err)
		}
		r.stats.Lines++

		q, perr := parseLine(line, r.opts.Quads)
		if perr != nil {
			r.stats.Skipped++
			r.logger.Warn("skipping malformed statement", "line", r.stats.Lines, "err", perr)
			continue
		}
		if q == nil {
			if r.comment != nil {
				if text, ok := commentText(line); ok {
					r.comment(text)
				}
			}
			continue
		}
		if q.Graph == nil {
			q.Graph = r.opts.Graph
		}
		r.stats.Statements++
		return q, nil
	}
}

func commentText(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	return strings.TrimSpace(line[1:]), true
}

// Parse reads every statement from r into h. Comment lines are forwarded.
func Parse(ctx context.Context, r io.Reader, h rdf.Handler, opts Options) (syntax.Stats, error) {
	reader := NewReader(r, opts)
	reader.comment = h.Comment
	for {
		if err := ctx.Err(); err != nil {
			return reader.stats, err
		}
		q, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return reader.stats, nil
		}
		if err != nil {
			return reader.stats, err
		}
		h.VisitQuad(q)
	}
}

// ParseLine parses a single N-Quads line. It returns nil for blank and
// comment lines.
func ParseLine(line string) (*rdf.Quad, error) {
	return parseLine(line, true)
}

func parseLine(line string, quads bool) (*rdf.Quad, error) {
	c := syntax.NewCursor(line)
	c.SkipSpace(nil)
	if c.EOF() {
		return nil, nil
	}

	subject, err := parseTerm(c)
	if err != nil {
		return nil, err
	}
	c.SkipSpace(nil)
	predicate, err := parseTerm(c)
	if err != nil {
		return nil, err
	}
	c.SkipSpace(nil)
	object, err := parseTerm(c)
	if err != nil {
		return nil, err
	}
	c.SkipSpace(nil)

	q := &rdf.Quad{Subject: subject, Predicate: predicate, Object: object}
	if c.Peek() != '.' {
		if !quads {
			return nil, c.Errorf("expected '.'")
		}
		if q.Graph, err = parseTerm(c); err != nil {
			return nil, err
		}
		if _, lit := q.Graph.(*rdf.Literal); lit {
			return nil, c.Errorf("literal graph name")
		}
		c.SkipSpace(nil)
	}
	if c.Peek() != '.' {
		return nil, c.Errorf("expected '.'")
	}
	c.Pos++
	c.SkipSpace(nil)
	if !c.EOF() {
		return nil, c.Errorf("trailing content %q", strings.TrimSpace(line[c.Pos:]))
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func parseTerm(c *syntax.Cursor) (rdf.Term, error) {
	switch c.Peek() {
	case '<':
		ref, err := c.IRIRef()
		if err != nil {
			return nil, err
		}
		if !iri.IsAbsolute(ref) {
			return nil, c.Errorf("relative IRI <%s>", ref)
		}
		return rdf.NewNamedNode(ref), nil
	case '_':
		label, err := c.BlankLabel()
		if err != nil {
			return nil, err
		}
		return rdf.NewBlankNode(label), nil
	case '"':
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
			dt, err := c.IRIRef()
			if err != nil {
				return nil, err
			}
			return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(dt)), nil
		}
		return rdf.NewLiteral(value), nil
	case 0:
		return nil, c.Errorf("unexpected end of line")
	default:
		return nil, c.Errorf("unexpected character %q", c.Peek())
	}
}
