// Package freebase parses the tab-delimited Freebase quad dump.
//
// Each line holds three or four tab-separated fields. Fields 0 and 1 are
// ids such as /m/0p_47 and /film/actor/film. With three fields the third is
// an id too; with four, fields 2 and 3 are a type and a value that together
// describe a literal.
package freebase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// Namespace is the default namespace prepended to converted ids.
const Namespace = "http://rdf.freebase.com/ns/"

const (
	badISBN    = "soft.isbn."
	isbn       = "soft.isbn"
	langMarker = "/lang/"
)

// key predicates carry typed key values instead of language strings
var keyPredicates = map[string]bool{
	"type.key.namespace": true,
	"type.object.key":    true,
}

// ErrMalformed marks a line that was skipped.
var ErrMalformed = errors.New("malformed freebase line")

// Options configures Parse.
type Options struct {
	// Namespace overrides the Namespace constant.
	Namespace string
	// Graph is attached to every statement. Nil means the default graph.
	Graph  rdf.Term
	Logger *log.Logger
}

// Parser converts dump lines into triples.
type Parser struct {
	ns string
}

func NewParser(namespace string) *Parser {
	if namespace == "" {
		namespace = Namespace
	}
	return &Parser{ns: namespace}
}

// ConvertID strips the one-character marker from a field and turns the
// remaining path into a dotted name.
func ConvertID(field string) (string, error) {
	if len(field) < 2 {
		return "", fmt.Errorf("%w: id %q too short", ErrMalformed, field)
	}
	return strings.ReplaceAll(field[1:], "/", "."), nil
}

// ParseLine converts one line. Malformed lines return an error wrapping
// ErrMalformed.
func (p *Parser) ParseLine(line string) (*rdf.Triple, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 || len(fields) > 4 {
		return nil, fmt.Errorf("%w: %d fields", ErrMalformed, len(fields))
	}

	subjectID, err := ConvertID(fields[0])
	if err != nil {
		return nil, err
	}
	predicate, err := ConvertID(fields[1])
	if err != nil {
		return nil, err
	}
	s := rdf.NewNamedNode(p.ns + subjectID)
	pr := rdf.NewNamedNode(p.ns + predicate)

	if len(fields) == 3 {
		objectID, err := ConvertID(fields[2])
		if err != nil {
			return nil, err
		}
		return rdf.NewTriple(s, pr, rdf.NewNamedNode(p.ns+objectID)), nil
	}

	typ, value := fields[2], fields[3]
	switch {
	case typ == "":
		return rdf.NewTriple(s, pr, rdf.NewLiteral(value)), nil

	case keyPredicates[predicate]:
		to, err := ConvertID(typ)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(to, badISBN) {
			to = isbn
		}
		return rdf.NewTriple(s, pr, rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(p.ns+to))), nil

	case strings.Contains(typ, langMarker):
		tag, err := ParseLanguage(strings.ReplaceAll(typ, langMarker, ""))
		if err != nil {
			return nil, err
		}
		return rdf.NewTriple(s, pr, rdf.NewLiteralWithLanguage(value, tag)), nil
	}

	return nil, fmt.Errorf("%w: unrecognized type %q", ErrMalformed, typ)
}

// ParseLanguage parses a locale string such as en, pt_BR or zh-hant and
// returns it as a BCP 47 tag. Subtags are kept as written; only separators
// and case are normalized, so deprecated codes like iw survive.
func ParseLanguage(locale string) (string, error) {
	tag, err := language.Raw.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: language %q: %v", ErrMalformed, locale, err)
	}
	return tag.String(), nil
}

// Parse reads a dump from r and sends one statement per accepted line to h.
// Malformed lines are logged at debug level and skipped. A read error ends
// the parse and is returned.
func Parse(ctx context.Context, r io.Reader, h rdf.Handler, opts Options) (syntax.Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	graph := opts.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	p := NewParser(opts.Namespace)

	var stats syntax.Stats
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line, err := br.ReadString('\n')
		if len(line) == 0 && err != nil {
			if err == io.EOF {
				return stats, nil
			}
			return stats, fmt.Errorf("freebase: read line %d: %w", stats.Lines+1, err)
		}
		if err != nil && err != io.EOF {
			return stats, fmt.Errorf("freebase: read line %d: %w", stats.Lines+1, err)
		}
		stats.Lines++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		t, perr := p.ParseLine(line)
		if perr != nil {
			stats.Skipped++
			logger.Debug("skipping freebase line", "line", stats.Lines, "err", perr)
			continue
		}
		stats.Statements++
		h.VisitQuad(t.InGraph(graph))
	}
}
