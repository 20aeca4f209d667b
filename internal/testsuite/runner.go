package testsuite

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
	"github.com/aleksaelezovic/rdfio/pkg/rdfio"
)

// Runner runs manifest entries and keeps a tally across manifests.
type Runner struct {
	out    io.Writer
	logger *log.Logger
	stats  *Stats
}

// Stats tracks test execution statistics.
type Stats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Errors  []Failure
}

// Failure describes a test that did not pass.
type Failure struct {
	TestName string
	Type     TestType
	Error    string
}

// Result is the outcome of one test.
type Result int

const (
	ResultPass Result = iota
	ResultFail
	ResultSkip
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultPass:
		return "PASS"
	case ResultFail:
		return "FAIL"
	case ResultSkip:
		return "SKIP"
	default:
		return "ERROR"
	}
}

// kind says what a test type expects from the reader.
type kind int

const (
	kindPositive kind = iota
	kindNegative
	kindEval
)

var testTypes = map[TestType]struct {
	format rdfio.Format
	kind   kind
}{
	TestTypeTurtleEval:             {rdfio.Turtle, kindEval},
	TestTypeTurtlePositiveSyntax:   {rdfio.Turtle, kindPositive},
	TestTypeTurtleNegativeSyntax:   {rdfio.Turtle, kindNegative},
	TestTypeTurtleNegativeEval:     {rdfio.Turtle, kindNegative},
	TestTypeNTriplesPositiveSyntax: {rdfio.NTriples, kindPositive},
	TestTypeNTriplesNegativeSyntax: {rdfio.NTriples, kindNegative},
	TestTypeNQuadsPositiveSyntax:   {rdfio.NQuads, kindPositive},
	TestTypeNQuadsNegativeSyntax:   {rdfio.NQuads, kindNegative},
	TestTypeTrigEval:               {rdfio.TriG, kindEval},
	TestTypeTrigPositiveSyntax:     {rdfio.TriG, kindPositive},
	TestTypeTrigNegativeSyntax:     {rdfio.TriG, kindNegative},
	TestTypeTrigNegativeEval:       {rdfio.TriG, kindNegative},
	TestTypeXMLEval:                {rdfio.RDFXML, kindEval},
	TestTypeXMLNegativeSyntax:      {rdfio.RDFXML, kindNegative},
}

// NewRunner returns a runner reporting to out.
func NewRunner(out io.Writer, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{out: out, logger: logger, stats: &Stats{}}
}

// RunManifest runs every test of the manifest at path.
func (r *Runner) RunManifest(ctx context.Context, path string) error {
	manifest, err := ParseManifest(ctx, path, r.logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "\nRunning manifest: %s\n", path)
	fmt.Fprintf(r.out, "   Found %d tests\n\n", len(manifest.Tests))

	for i := range manifest.Tests {
		if err := ctx.Err(); err != nil {
			return err
		}
		test := &manifest.Tests[i]
		r.stats.Total++

		result := r.runTest(ctx, test)
		switch result {
		case ResultPass:
			r.stats.Passed++
		case ResultSkip:
			r.stats.Skipped++
		default:
			r.stats.Failed++
		}
		if result == ResultSkip {
			fmt.Fprintf(r.out, "  %s: %s (type: %s)\n", result, test.Name, test.Type)
		} else {
			fmt.Fprintf(r.out, "  %s: %s\n", result, test.Name)
		}
	}

	r.printSummary()
	return nil
}

func (r *Runner) runTest(ctx context.Context, test *Case) Result {
	tt, ok := testTypes[test.Type]
	if !ok {
		return ResultSkip
	}
	if test.Action.Path == "" {
		r.recordError(test, "no action file specified")
		return ResultError
	}

	actual, stats, err := r.read(ctx, test.Action, tt.format)
	switch tt.kind {
	case kindNegative:
		if err == nil && stats.Skipped == 0 {
			r.recordError(test, "document was accepted but should have been rejected")
			return ResultFail
		}
		return ResultPass

	case kindPositive:
		if err != nil {
			r.recordError(test, fmt.Sprintf("reader error: %v", err))
			return ResultFail
		}
		if stats.Skipped > 0 {
			r.recordError(test, fmt.Sprintf("%d statements rejected", stats.Skipped))
			return ResultFail
		}
		return ResultPass
	}

	if err != nil {
		r.recordError(test, fmt.Sprintf("reader error: %v", err))
		return ResultFail
	}
	if stats.Skipped > 0 {
		r.recordError(test, fmt.Sprintf("%d statements rejected", stats.Skipped))
		return ResultFail
	}
	if test.Result.Path == "" {
		r.recordError(test, "no result file specified")
		return ResultError
	}
	// Expected results are N-Triples or N-Quads; the N-Quads reader takes both.
	expected, _, err := r.read(ctx, test.Result, rdfio.NQuads)
	if err != nil {
		r.recordError(test, fmt.Sprintf("failed to read expected results: %v", err))
		return ResultError
	}
	if !rdf.Isomorphic(expected, actual) {
		r.recordError(test, fmt.Sprintf("statements mismatch: expected %d, got %d", len(expected), len(actual)))
		return ResultFail
	}
	return ResultPass
}

// read parses f with its manifest IRI as the base, the way the test suite
// expects relative references to resolve.
func (r *Runner) read(ctx context.Context, f File, format rdfio.Format) ([]*rdf.Quad, rdfio.Stats, error) {
	doc := &rdf.Collector{}
	opts := rdfio.ReadOptions{Base: f.IRI, Logger: r.logger.With("file", f.Path)}
	stats, err := rdfio.ReadFile(ctx, f.Path, format, doc, opts)
	return doc.Quads, stats, err
}

func (r *Runner) recordError(test *Case, msg string) {
	r.logger.Debug("test failed", "test", test.Name, "error", msg)
	r.stats.Errors = append(r.stats.Errors, Failure{
		TestName: test.Name,
		Type:     test.Type,
		Error:    msg,
	})
}

func (r *Runner) printSummary() {
	fmt.Fprintln(r.out, "\n"+strings.Repeat("━", 60))
	fmt.Fprintln(r.out, "TEST SUMMARY")
	fmt.Fprintln(r.out, strings.Repeat("━", 60))
	fmt.Fprintf(r.out, "Total:   %d\n", r.stats.Total)
	if r.stats.Total > 0 {
		fmt.Fprintf(r.out, "Passed:  %d (%.1f%%)\n", r.stats.Passed,
			float64(r.stats.Passed)/float64(r.stats.Total)*100)
	}
	fmt.Fprintf(r.out, "Failed:  %d\n", r.stats.Failed)
	fmt.Fprintf(r.out, "Skipped: %d\n", r.stats.Skipped)

	if len(r.stats.Errors) > 0 {
		fmt.Fprintln(r.out, "\nERRORS:")
		for i, err := range r.stats.Errors {
			if i >= 10 {
				fmt.Fprintf(r.out, "   ... and %d more\n", len(r.stats.Errors)-10)
				break
			}
			fmt.Fprintf(r.out, "   • %s: %s\n", err.TestName, err.Error)
		}
	}
	fmt.Fprintln(r.out, strings.Repeat("━", 60))
}

// Stats returns the tally so far.
func (r *Runner) Stats() *Stats {
	return r.stats
}
