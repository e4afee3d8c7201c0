package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/ingest"
	"github.com/rendis/templestay/internal/engine/storage"
)

// signalContext is cancelled on SIGINT/SIGTERM so long commands stop cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runImport(args []string) error {
	var inputPath string
	var batchSize, concurrency int
	var noGeocode bool

	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.StringVar(&inputPath, "input", "", "CSV file to import (required)")
	fs.IntVar(&batchSize, "batch", 200, "Venues per insert batch")
	fs.IntVar(&concurrency, "concurrency", 4, "Batches in flight")
	fs.BoolVar(&noGeocode, "no-geocode", false, "Keep venues without coordinates as they are")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: templestay import [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe CSV needs kind and name columns; the export layout is accepted as is.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  templestay import -input temples.csv\n")
		fmt.Fprintf(os.Stderr, "  templestay import -input stays.csv -no-geocode\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if inputPath == "" {
		return fmt.Errorf("-input is required")
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	venues, err := storage.ReadCSV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}
	if len(venues) == 0 {
		return fmt.Errorf("no venues found in %s", inputPath)
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	opts := ingest.Options{
		BatchSize:   batchSize,
		Concurrency: concurrency,
		Area:        geo.ServiceArea,
		Progress:    os.Stderr,
	}
	if a.geocoder != nil && !noGeocode {
		opts.Geocoder = a.geocoder
	}

	startTime := time.Now()
	stats, err := ingest.Run(ctx, venues, a.store, opts, a.logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("importing: %w", err)
	}
	total, _ := a.store.Count(context.Background())

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Import Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Read:        %d\n", stats.Total)
	fmt.Fprintf(os.Stderr, "  Stored:      %d\n", stats.Stored.Load())
	fmt.Fprintf(os.Stderr, "  Geocoded:    %d\n", stats.Geocoded.Load())
	fmt.Fprintf(os.Stderr, "  No location: %d\n", stats.Unlocated.Load())
	fmt.Fprintf(os.Stderr, "  Errors:      %d\n", stats.Errors.Load())
	fmt.Fprintf(os.Stderr, "  In store:    %d\n", total)
	fmt.Fprintf(os.Stderr, "  Duration:    %s\n", time.Since(startTime).Truncate(time.Second))
	fmt.Fprintf(os.Stderr, "  Database:    %s\n", a.cfg.DBPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	return nil
}
