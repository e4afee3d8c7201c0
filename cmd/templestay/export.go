package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/templestay/internal/engine/storage"
	"github.com/rendis/templestay/internal/model"
)

func runExport(args []string) error {
	var outputPath, kindStr, field, value string
	var exact bool

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&outputPath, "output", "", "Output file path (default: next to the database)")
	fs.StringVar(&kindStr, "kind", "all", "Venue kind: all, temple or stay")
	fs.StringVar(&field, "field", "", "Filter column: name, region or tags")
	fs.StringVar(&value, "value", "", "Filter value (substring unless -exact)")
	fs.BoolVar(&exact, "exact", false, "Match -value exactly")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: templestay export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  templestay export -output venues.csv\n")
		fmt.Fprintf(os.Stderr, "  templestay export -kind stay -field region -value 경상북도\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := model.ParseKind(kindStr)
	if err != nil {
		return err
	}
	if (field == "") != (value == "") {
		return fmt.Errorf("-field and -value go together")
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if outputPath == "" {
		dir := filepath.Dir(a.cfg.DBPath)
		base := strings.TrimSuffix(filepath.Base(a.cfg.DBPath), filepath.Ext(a.cfg.DBPath))
		outputPath = filepath.Join(dir, base+".csv")
	}

	ctx := context.Background()
	var venues []model.Venue
	if field != "" {
		venues, err = a.store.FilterVenues(ctx, kind, field, value, exact)
	} else {
		venues, err = a.store.ListVenues(ctx, kind)
	}
	if err != nil {
		return fmt.Errorf("loading venues: %w", err)
	}
	if len(venues) == 0 {
		return fmt.Errorf("no venues found in %s", a.cfg.DBPath)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	if err := storage.WriteCSV(f, venues); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Exported %d venues to %s\n", len(venues), outputPath)
	return nil
}
