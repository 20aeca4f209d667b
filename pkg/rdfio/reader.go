package rdfio

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aleksaelezovic/rdfio/internal/freebase"
	"github.com/aleksaelezovic/rdfio/internal/ntriples"
	"github.com/aleksaelezovic/rdfio/internal/rdfxml"
	"github.com/aleksaelezovic/rdfio/internal/sindice"
	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/internal/trix"
	"github.com/aleksaelezovic/rdfio/internal/turtle"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

// Stats counts what a parse saw.
type Stats = syntax.Stats

// ReadOptions configures Parse.
type ReadOptions struct {
	// Graph is attached to statements that carry no graph of their own.
	// Nil means the default graph.
	Graph rdf.Term
	// Base resolves relative IRIs in syntaxes that allow them.
	Base string
	// FreebaseNamespace overrides the namespace of Freebase identifiers.
	FreebaseNamespace string
	Logger            *log.Logger
}

func (o ReadOptions) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Parse reads r as format f and sends its events to h.
func Parse(ctx context.Context, r io.Reader, f Format, h rdf.Handler, opts ReadOptions) (Stats, error) {
	logger := opts.logger()
	switch f {
	case NTriples, NQuads:
		return ntriples.Parse(ctx, r, h, ntriples.Options{Quads: f == NQuads, Graph: opts.Graph, Logger: logger})
	case Turtle, N3, TriG:
		return turtle.Parse(ctx, r, h, turtle.Options{TriG: f == TriG, Base: opts.Base, Graph: opts.Graph, Logger: logger})
	case RDFXML:
		return rdfxml.Parse(ctx, r, h, rdfxml.Options{Base: opts.Base, Graph: opts.Graph, Logger: logger})
	case TriX:
		return trix.Parse(ctx, r, h, trix.Options{Graph: opts.Graph, Logger: logger})
	case Freebase:
		return freebase.Parse(ctx, r, h, freebase.Options{Namespace: opts.FreebaseNamespace, Graph: opts.Graph, Logger: logger})
	case Sindice:
		return sindice.Parse(ctx, r, h, sindice.Options{Logger: logger})
	}
	return Stats{}, fmt.Errorf("%w: %q cannot be read", ErrUnsupportedFormat, string(f))
}

// ReadFile opens name with Open and parses it. An empty format is guessed
// from the name, and an empty base defaults to the name's IRI.
func ReadFile(ctx context.Context, name string, f Format, h rdf.Handler, opts ReadOptions) (Stats, error) {
	if f == "" {
		var err error
		if f, err = FormatForName(name); err != nil {
			return Stats{}, err
		}
	}
	if opts.Base == "" && name != "-" {
		opts.Base = SourceIRI(name)
	}
	r, err := Open(ctx, name)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()
	return Parse(ctx, r, f, h, opts)
}

// SourceIRI names an input as an IRI: URLs are returned unchanged and
// files become file: IRIs of their absolute path.
func SourceIRI(name string) string {
	if isURL(name) || strings.HasPrefix(name, "file:") {
		return name
	}
	if name == "-" {
		return "file:///dev/stdin"
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		abs = name
	}
	return "file://" + filepath.ToSlash(abs)
}
