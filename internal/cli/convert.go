package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aleksaelezovic/rdfio/internal/config"
	"github.com/aleksaelezovic/rdfio/internal/iri"
	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/aleksaelezovic/rdfio/pkg/rdfio"
)

var errUsage = errors.New("usage")

// graphFromSource is the --graph value that names each input's statements
// after the input itself.
const graphFromSource = "source"

type convertOptions struct {
	output   string
	outDir   string
	to       rdfio.Format
	from     rdfio.Format
	compress string

	graph    string
	base     string
	freebase string
	pretty   bool
	nest     bool
	spill    bool
	spillDir string
	level    int
	jobs     int
}

func newConvertCmd() *cobra.Command {
	opts := convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert INPUT...",
		Short: "Convert RDF documents to another syntax",
		Long: `Convert reads every INPUT (a file, an http(s) URL, or - for standard input)
and writes it in the target syntax. Compressed inputs (.gz, .bz2, .xz, .zst,
.lz4) are decompressed on the fly.

With -o all inputs are merged into one output. With --out-dir each input is
converted on its own, in parallel, into DIR.`,
		Example: `  rdfio convert data.nt.gz -o data.ttl --pretty
  rdfio convert dump.tsv.bz2 -o dump.nq.zst --graph source
  rdfio convert *.rdf --out-dir out --to trig`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.merge(cmd, configFromContext(cmd.Context()))
			return runConvert(cmd.Context(), args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file, - for standard output")
	f.StringVar(&opts.outDir, "out-dir", "", "convert each input into this directory")
	formatVarP(f, &opts.to, "to", "t", "output format (default: from the output name)")
	formatVarP(f, &opts.from, "from", "f", "input format (default: from each input name)")
	f.StringVar(&opts.compress, "compress", "", "compression suffix for --out-dir outputs (gz, bz2, xz, zst, lz4)")
	f.StringVar(&opts.graph, "graph", "", `graph IRI for triple inputs, or "source" for the input's IRI`)
	f.StringVar(&opts.base, "base", "", "base IRI (default: the input's IRI)")
	f.StringVar(&opts.freebase, "freebase-namespace", "", "namespace for Freebase identifiers")
	f.BoolVar(&opts.pretty, "pretty", false, "nest blank nodes and merge statements (buffers the whole document)")
	f.BoolVar(&opts.nest, "nest", false, "order turtle and rdfxml output depth-first from root subjects")
	f.StringVar(&opts.spillDir, "spill", "", "buffer grouped output in a temporary database under DIR")
	f.IntVarP(&opts.level, "level", "l", 0, "compression level, 0 for the codec default")
	f.IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "parallel conversions with --out-dir")
	cmd.MarkFlagsMutuallyExclusive("output", "out-dir")

	return cmd
}

// merge fills options the command line left unset from the configuration.
func (o *convertOptions) merge(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("pretty") {
		o.pretty = cfg.Write.Pretty
	}
	if !flags.Changed("nest") {
		o.nest = cfg.Write.Nest
	}
	if !flags.Changed("level") {
		o.level = cfg.Write.CompressionLevel
	}
	if flags.Changed("spill") {
		o.spill = true
	} else {
		o.spill = cfg.Write.Spill
		o.spillDir = cfg.Write.SpillDir
	}
	if !flags.Changed("graph") {
		o.graph = cfg.Read.Graph
	}
	if !flags.Changed("base") {
		o.base = cfg.Read.Base
	}
	if !flags.Changed("freebase-namespace") {
		o.freebase = cfg.Read.FreebaseNamespace
	}
}

func runConvert(ctx context.Context, inputs []string, opts convertOptions) error {
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)

	wopts := rdfio.WriteOptions{
		Pretty:     opts.pretty,
		Nest:       opts.nest,
		Spill:      opts.spill,
		SpillDir:   opts.spillDir,
		Namespaces: cfg.NamespaceMap(),
		Logger:     logger,
	}

	if opts.outDir != "" {
		if opts.to == "" {
			return fmt.Errorf("%w: --out-dir requires --to", errUsage)
		}
		return convertEach(ctx, inputs, opts.from, opts.to, opts, wopts)
	}

	output := opts.output
	if output == "" {
		output = "-"
	}
	to := opts.to
	if to == "" {
		var err error
		if to, err = outputFormat(output); err != nil {
			return err
		}
	}
	return convertMerged(ctx, inputs, opts.from, output, to, opts, wopts)
}

// outputFormat guesses the target format from the output name. Standard
// output defaults to N-Quads, which keeps graph names.
func outputFormat(output string) (rdfio.Format, error) {
	if output == "-" {
		return rdfio.NQuads, nil
	}
	return rdfio.FormatForName(output)
}

// convertMerged writes every input into one output document. Prolog
// declarations of the first input land in the output header.
func convertMerged(ctx context.Context, inputs []string, from rdfio.Format, output string, to rdfio.Format, opts convertOptions, wopts rdfio.WriteOptions) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	w, err := rdfio.Create(output, opts.level)
	if err != nil {
		return err
	}
	sink, err := rdfio.NewWriter(w, to, wopts)
	if err != nil {
		abandon(logger, w, output)
		return err
	}
	sink = rdf.DeferProlog(sink)

	var total rdfio.Stats
	for _, input := range inputs {
		stats, err := convertInput(ctx, logger, input, from, sink, opts)
		total.Add(stats)
		if err != nil {
			sink.Close()
			abandon(logger, w, output)
			return err
		}
	}
	if err := sink.Close(); err != nil {
		abandon(logger, w, output)
		return fmt.Errorf("%s: %w", output, err)
	}
	if err := w.Close(); err != nil {
		removeOutput(logger, output)
		return fmt.Errorf("%s: %w", output, err)
	}
	prog.done("wrote "+output, "inputs", len(inputs), "statements", total.Statements, "skipped", total.Skipped)
	return nil
}

// convertEach converts every input into its own file under opts.outDir,
// running up to opts.jobs sessions at once.
func convertEach(ctx context.Context, inputs []string, from, to rdfio.Format, opts convertOptions, wopts rdfio.WriteOptions) error {
	logger := loggerFromContext(ctx)
	info, err := rdfio.Lookup(to)
	if err != nil {
		return err
	}
	suffix := ""
	if opts.compress != "" {
		suffix = "." + strings.TrimPrefix(opts.compress, ".")
		if _, c := rdfio.CompressionForName(suffix); c == rdfio.CompressionNone {
			return fmt.Errorf("%w: unknown compression %q", errUsage, opts.compress)
		}
	}

	outputs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, input := range inputs {
		name := outputName(input, info.Extensions[0]) + suffix
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s and %s both convert to %s", errUsage, prev, input, name)
		}
		seen[name] = input
		outputs[i] = filepath.Join(opts.outDir, name)
	}
	if err := os.MkdirAll(opts.outDir, 0o750); err != nil {
		return err
	}

	prog := newProgress(logger)
	g, ctx := errgroup.WithContext(ctx)
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}
	for i, input := range inputs {
		output := outputs[i]
		g.Go(func() error {
			return convertFile(ctx, logger, input, from, output, to, opts, wopts)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	prog.done("converted inputs", "count", len(inputs), "dir", opts.outDir)
	return nil
}

func convertFile(ctx context.Context, logger *log.Logger, input string, from rdfio.Format, output string, to rdfio.Format, opts convertOptions, wopts rdfio.WriteOptions) error {
	w, err := rdfio.Create(output, opts.level)
	if err != nil {
		return err
	}
	sink, err := rdfio.NewWriter(w, to, wopts)
	if err != nil {
		abandon(logger, w, output)
		return err
	}
	sink = rdf.DeferProlog(sink)
	if _, err := convertInput(ctx, logger, input, from, sink, opts); err != nil {
		sink.Close()
		abandon(logger, w, output)
		return err
	}
	if err := sink.Close(); err != nil {
		abandon(logger, w, output)
		return fmt.Errorf("%s: %w", output, err)
	}
	if err := w.Close(); err != nil {
		removeOutput(logger, output)
		return fmt.Errorf("%s: %w", output, err)
	}
	return nil
}

// abandon closes a failed output and removes it, so no partial document is
// left behind.
func abandon(logger *log.Logger, w io.Closer, output string) {
	w.Close()
	removeOutput(logger, output)
}

func removeOutput(logger *log.Logger, output string) {
	if output == "-" {
		return
	}
	if err := os.Remove(output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove partial output", "output", output, "err", err)
	}
}

// convertInput runs one session: input is parsed into sink under a fresh
// session id.
func convertInput(ctx context.Context, logger *log.Logger, input string, from rdfio.Format, sink rdf.Sink, opts convertOptions) (rdfio.Stats, error) {
	l := logger.With("session", uuid.NewString(), "input", input)
	ropts, err := readOptions(input, opts, l)
	if err != nil {
		return rdfio.Stats{}, err
	}

	prog := newProgress(l)
	l.Debug("session started")
	stats, err := rdfio.TranscodeFile(ctx, input, from, sink, ropts)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", input, err)
	}
	prog.done("read input", "statements", stats.Statements, "skipped", stats.Skipped)
	return stats, nil
}

func readOptions(input string, opts convertOptions, logger *log.Logger) (rdfio.ReadOptions, error) {
	ropts := rdfio.ReadOptions{
		Base:              opts.base,
		FreebaseNamespace: opts.freebase,
		Logger:            logger,
	}
	switch opts.graph {
	case "":
	case graphFromSource:
		ropts.Graph = rdf.NewNamedNode(rdfio.SourceIRI(input))
	default:
		if !iri.IsAbsolute(opts.graph) {
			return ropts, fmt.Errorf("%w: --graph %q is not an absolute IRI", errUsage, opts.graph)
		}
		ropts.Graph = rdf.NewNamedNode(opts.graph)
	}
	return ropts, nil
}

// outputName derives an output file name from an input name: the directory,
// the compression suffix and the extension are replaced by ext.
func outputName(input, ext string) string {
	if input == "-" {
		return "stdin" + ext
	}
	if i := strings.IndexAny(input, "?#"); i >= 0 {
		input = input[:i]
	}
	base := path.Base(filepath.ToSlash(input))
	base, _ = rdfio.CompressionForName(base)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "output"
	}
	return base + ext
}
