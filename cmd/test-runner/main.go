package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/aleksaelezovic/rdfio/internal/testsuite"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: test-runner <manifest-file-or-directory>...")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  test-runner testdata/rdf-tests/rdf/rdf11/rdf-turtle/manifest.ttl")
		fmt.Println("  test-runner testdata/rdf-tests/rdf/rdf11/rdf-n-quads testdata/rdf-tests/rdf/rdf11/rdf-trig")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
	if os.Getenv("RDFIO_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}
	runner := testsuite.NewRunner(os.Stdout, logger)

	for _, path := range os.Args[1:] {
		info, err := os.Stat(path)
		if err != nil {
			logger.Fatal("failed to access path", "path", path, "err", err)
		}
		if info.IsDir() {
			path = filepath.Join(path, "manifest.ttl")
		}
		if err := runner.RunManifest(ctx, path); err != nil {
			logger.Fatal("failed to run manifest", "path", path, "err", err)
		}
	}

	if runner.Stats().Failed > 0 {
		os.Exit(1)
	}
}
