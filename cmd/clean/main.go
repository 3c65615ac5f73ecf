// Command clean validates and normalizes the raw Superstore CSV, writing a
// cleaned CSV plus a profiling summary. It runs offline, once, before the
// dashboard server starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"superstore-dashboard/internal/cleaner"
	"superstore-dashboard/internal/config"
	"superstore-dashboard/internal/observability"
)

const cleanTimeout = 5 * time.Minute

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	input := fs.String("input", "", "path to the raw Superstore CSV")
	outdir := fs.String("outdir", "data/processed", "output directory for cleaned CSV and profiling summary")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: clean -input <raw.csv> [-outdir <dir>]")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()

	c := cleaner.New(logger)

	result, err := c.Clean(ctx, *input)
	if err != nil {
		logger.Error("cleaning failed", "error", err)
		fmt.Fprintf(os.Stderr, "clean: %v\n", err)
		return 1
	}

	cleanedPath, profilePath, err := c.WriteOutputs(result, *outdir)
	if err != nil {
		logger.Error("writing outputs failed", "error", err)
		fmt.Fprintf(os.Stderr, "clean: %v\n", err)
		return 1
	}

	fmt.Printf("Wrote: %s\n", cleanedPath)
	fmt.Printf("Wrote: %s\n", profilePath)
	return 0
}
