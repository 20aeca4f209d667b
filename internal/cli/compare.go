package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/aleksaelezovic/rdfio/pkg/rdfio"
)

var errNotIsomorphic = errors.New("datasets differ")

func newCompareCmd() *cobra.Command {
	var from rdfio.Format

	cmd := &cobra.Command{
		Use:   "compare A B",
		Short: "Check two documents for equality up to blank node labels",
		Long: `Compare reads both inputs completely and reports whether they hold the same
dataset, treating blank node labels as interchangeable. Duplicate statements
are ignored. The command fails when the datasets differ.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			prog := newProgress(logger)

			var docs [2]rdf.Collector
			g, gctx := errgroup.WithContext(ctx)
			for i, input := range args {
				g.Go(func() error {
					opts := rdfio.ReadOptions{Logger: logger.With("input", input)}
					if _, err := rdfio.ReadFile(gctx, input, from, &docs[i], opts); err != nil {
						return fmt.Errorf("%s: %w", input, err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			a, b := docs[0].Quads, docs[1].Quads
			if !rdf.Isomorphic(a, b) {
				return fmt.Errorf("%w: %s has %d statements, %s has %d", errNotIsomorphic, args[0], len(a), args[1], len(b))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "isomorphic: %d statements\n", len(a))
			prog.done("compared inputs")
			return nil
		},
	}
	formatVarP(cmd.Flags(), &from, "from", "f", "input format for both inputs (default: from each name)")
	return cmd
}
