package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/rdfio/pkg/rdfio"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported formats and how they are written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FORMAT\tEXTENSIONS\tREAD\tWRITE\tGRAPHS\tSTREAM\tPRETTY")
			for _, info := range rdfio.Formats() {
				stream, pretty := "-", "-"
				if info.Writable {
					stream, pretty = info.Stream.String(), info.Pretty.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					info.Name,
					strings.Join(info.Extensions, " "),
					yesNo(info.Readable),
					yesNo(info.Writable),
					yesNo(info.Graphs),
					stream,
					pretty,
				)
			}
			return w.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
