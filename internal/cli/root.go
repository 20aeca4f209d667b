package cli

import (
	"context"
	"fmt"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/rdfio/internal/config"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version. The main
// package calls it with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the rdfio CLI. Cancelling ctx aborts running conversions.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "rdfio",
		Short:        "rdfio converts RDF between syntaxes",
		Long:         `rdfio reads RDF documents and dataset dumps (N-Triples, N-Quads, Turtle, TriG, RDF/XML, TriX, Freebase tab dumps, Sindice DE archives) and writes them back out in another syntax, optionally compressed.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(cmd.ErrOrStderr(), level)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			for _, key := range cfg.Undecoded {
				logger.Warn("unknown configuration key", "key", key, "file", configPath)
			}

			ctx := withLogger(cmd.Context(), logger)
			cmd.SetContext(withConfig(ctx, cfg))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("rdfio %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "configuration file")

	root.AddCommand(newConvertCmd())
	root.AddCommand(newFormatsCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newCompareCmd())

	return root
}
