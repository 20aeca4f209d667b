// Package sindice parses Sindice DE tar archives. Each record is a run of
// three entries: *metadata (graph IRI and subject on the first two lines),
// *outgoing-triples.nt and *incoming-triples.nt.
package sindice

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aleksaelezovic/rdfio/internal/iri"
	"github.com/aleksaelezovic/rdfio/internal/ntriples"
	"github.com/aleksaelezovic/rdfio/internal/syntax"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/charmbracelet/log"
)

// ErrCorruptArchive reports an entry sequence that does not follow the
// record layout. It aborts the whole archive.
var ErrCorruptArchive = errors.New("corrupt archive")

// errMalformedRecord marks a record whose metadata cannot be turned into
// terms. The record is skipped and the archive continues.
var errMalformedRecord = errors.New("malformed record")

const (
	suffixMetadata = "metadata"
	suffixOutgoing = "outgoing-triples.nt"
	suffixIncoming = "incoming-triples.nt"
)

type Options struct {
	Logger *log.Logger
}

type record struct {
	graph   rdf.Term
	subject rdf.Term
	quads   []*rdf.Quad
}

// Parse reads an archive from r and sends its statements to h. The
// statements of a record are sent only once all three of its entries have
// been read and validated.
func Parse(ctx context.Context, r io.Reader, h rdf.Handler, opts Options) (syntax.Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	p := &parser{tr: tar.NewReader(r), logger: logger}

	for {
		if err := ctx.Err(); err != nil {
			return p.stats, err
		}
		rec, err := p.next()
		if err == io.EOF {
			return p.stats, nil
		}
		if errors.Is(err, errMalformedRecord) {
			p.logger.Warn("skipping record", "err", err)
			p.stats.Skipped++
			continue
		}
		if err != nil {
			return p.stats, err
		}
		for _, q := range rec.quads {
			h.VisitQuad(q)
		}
		p.stats.Statements += int64(len(rec.quads))
	}
}

type parser struct {
	tr      *tar.Reader
	logger  *log.Logger
	stats   syntax.Stats
	records int
}

// entry advances to the next entry and checks its name. A missing entry
// in the middle of a record is corruption; io.EOF is returned only at a
// record boundary.
func (p *parser) entry(suffix string, first bool) (*tar.Header, error) {
	hdr, err := p.tr.Next()
	if err == io.EOF {
		if first {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: record %d ends before its %s entry", ErrCorruptArchive, p.records+1, suffix)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	if !strings.HasSuffix(hdr.Name, suffix) {
		return nil, fmt.Errorf("%w: %s is not %s", ErrCorruptArchive, hdr.Name, suffix)
	}
	return hdr, nil
}

func (p *parser) next() (*record, error) {
	hdr, err := p.entry(suffixMetadata, true)
	if err != nil {
		return nil, err
	}
	rec, malformed := p.metadata(hdr)
	if malformed != nil && !errors.Is(malformed, errMalformedRecord) {
		return nil, malformed
	}

	// A malformed record still has to follow the entry layout; its bodies
	// are passed over by the next call to tr.Next.
	hdr, err = p.entry(suffixOutgoing, false)
	if err != nil {
		return nil, err
	}
	if malformed == nil && hdr.Size > 0 {
		err = p.triples(hdr, func(t *rdf.Quad) {
			rec.quads = append(rec.quads, rdf.NewQuad(rec.subject, t.Predicate, t.Object, rec.graph))
		})
		if err != nil {
			return nil, err
		}
	}

	hdr, err = p.entry(suffixIncoming, false)
	if err != nil {
		return nil, err
	}
	p.records++
	if malformed != nil {
		return nil, malformed
	}
	if hdr.Size > 0 {
		err = p.triples(hdr, func(t *rdf.Quad) {
			rec.quads = append(rec.quads, rdf.NewQuad(t.Subject, t.Predicate, rec.subject, rec.graph))
		})
		if err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (p *parser) metadata(hdr *tar.Header) (*record, error) {
	sc := bufio.NewScanner(p.tr)
	var lines []string
	for len(lines) < 2 && sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sindice: read %s: %w", hdr.Name, err)
	}
	if len(lines) < 2 || lines[0] == "" || lines[1] == "" {
		return nil, fmt.Errorf("%w: %s lacks graph and subject lines", errMalformedRecord, hdr.Name)
	}
	if !iri.IsAbsolute(lines[0]) {
		return nil, fmt.Errorf("%w: %s: graph %q is not an absolute IRI", errMalformedRecord, hdr.Name, lines[0])
	}

	rec := &record{graph: rdf.NewNamedNode(lines[0])}
	if label, ok := strings.CutPrefix(lines[1], "_:"); ok {
		rec.subject = rdf.NewBlankNode(label)
	} else {
		rec.subject = rdf.NewNamedNode(lines[1])
	}
	return rec, nil
}

// triples tokenizes an .nt entry. Bad lines are skipped by the reader.
func (p *parser) triples(hdr *tar.Header, fn func(*rdf.Quad)) error {
	r := ntriples.NewReader(p.tr, ntriples.Options{Logger: p.logger.With("entry", hdr.Name)})
	for {
		q, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("sindice: read %s: %w", hdr.Name, err)
		}
		fn(q)
	}
	stats := r.Stats()
	p.stats.Lines += stats.Lines
	p.stats.Skipped += stats.Skipped
	return nil
}
