package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aleksaelezovic/rdfio/internal/intern"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/aleksaelezovic/rdfio/pkg/rdfio"
)

// datasetStats summarises one input.
type datasetStats struct {
	input      string
	size       int64
	parse      rdfio.Stats
	statements int64
	graphs     int
	subjects   int
	predicates int
	terms      int
}

// statsHandler interns every term it sees and tracks the distinct named
// graphs, subjects and predicates by id.
type statsHandler struct {
	terms      *intern.Table
	graphs     map[intern.ID]struct{}
	subjects   map[intern.ID]struct{}
	predicates map[intern.ID]struct{}
	statements int64
	namespaces rdf.NamespaceMap
}

func newStatsHandler() *statsHandler {
	return &statsHandler{
		terms:      intern.New(),
		graphs:     make(map[intern.ID]struct{}),
		subjects:   make(map[intern.ID]struct{}),
		predicates: make(map[intern.ID]struct{}),
	}
}

func (h *statsHandler) VisitQuad(q *rdf.Quad) {
	h.statements++
	if !rdf.IsDefaultGraph(q.Graph) {
		h.graphs[h.terms.ID(q.Graph)] = struct{}{}
	}
	h.subjects[h.terms.ID(q.Subject)] = struct{}{}
	h.predicates[h.terms.ID(q.Predicate)] = struct{}{}
	h.terms.ID(q.Object)
}

func (h *statsHandler) DeclareNamespace(prefix, iri string) { h.namespaces.Set(prefix, iri) }

func (h *statsHandler) DeclareBaseIRI(string) {}

func (h *statsHandler) Comment(string) {}

func newStatsCmd() *cobra.Command {
	var from rdfio.Format

	cmd := &cobra.Command{
		Use:   "stats INPUT...",
		Short: "Count statements, graphs, subjects and terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := collectStats(cmd.Context(), args, from)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "STATEMENTS\tGRAPHS\tSUBJECTS\tPREDICATES\tTERMS\tSKIPPED\tSIZE\tINPUT\t")
			for _, s := range results {
				size := "-"
				if s.size >= 0 {
					size = humanize.Bytes(uint64(s.size))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
					humanize.Comma(s.statements),
					humanize.Comma(int64(s.graphs)),
					humanize.Comma(int64(s.subjects)),
					humanize.Comma(int64(s.predicates)),
					humanize.Comma(int64(s.terms)),
					humanize.Comma(s.parse.Skipped),
					size,
					s.input,
				)
			}
			return w.Flush()
		},
	}
	formatVarP(cmd.Flags(), &from, "from", "f", "input format (default: from each input name)")
	return cmd
}

// collectStats reads every input in parallel and returns the results in
// input order.
func collectStats(ctx context.Context, inputs []string, from rdfio.Format) ([]datasetStats, error) {
	logger := loggerFromContext(ctx)
	results := make([]datasetStats, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	for i, input := range inputs {
		g.Go(func() error {
			l := logger.With("session", uuid.NewString(), "input", input)
			prog := newProgress(l)
			h := newStatsHandler()
			parse, err := rdfio.ReadFile(ctx, input, from, h, rdfio.ReadOptions{Logger: l})
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			results[i] = datasetStats{
				input:      input,
				size:       fileSize(input),
				parse:      parse,
				statements: h.statements,
				graphs:     len(h.graphs),
				subjects:   len(h.subjects),
				predicates: len(h.predicates),
				terms:      h.terms.Len(),
			}
			prog.done("counted input", "statements", h.statements, "namespaces", h.namespaces.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fileSize is the on-disk size of a local input, or -1.
func fileSize(name string) int64 {
	if name == "-" {
		return -1
	}
	fi, err := os.Stat(name)
	if err != nil {
		return -1
	}
	return fi.Size()
}
