package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/rendis/templestay/internal/config"
	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/location"
	"github.com/rendis/templestay/internal/engine/search"
	"github.com/rendis/templestay/internal/engine/storage"
	"github.com/rendis/templestay/internal/logger"
	"github.com/rendis/templestay/internal/tui"
	"github.com/rendis/templestay/internal/tui/views"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "import":
			err = runImport(os.Args[2:])
		case "export":
			err = runExport(os.Args[2:])
		case "nearby":
			err = runNearby(os.Args[2:])
		case "search":
			err = runSearch(os.Args[2:])
		case "show":
			err = runShow(os.Args[2:])
		case "version":
			fmt.Println("templestay " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		default:
			printUsage()
			os.Exit(2)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// No subcommand → launch TUI
	if err := runTUI(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `templestay - find temples and temple stays near you

Usage:
  templestay                  Launch interactive TUI
  templestay nearby [flags]   List venues around a point
  templestay search [flags]   Search by name, region or address
  templestay show -id <id>    Print one venue as JSON
  templestay import [flags]   Load venues from CSV
  templestay export [flags]   Write venues to CSV
  templestay version          Show version

Settings come from ./templestay.yaml and TEMPLESTAY_* environment variables.
Run 'templestay <command> --help' for flags.
`)
}

// app is everything a command needs, built once from the config.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	store    *storage.Store
	geocoder *geo.Nominatim
	locator  *location.Provider
	search   *search.Service
}

// newApp loads config and opens the store. Logs go to logOut.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, err
	}
	return newAppWithLogger(cfg, logger.Setup(cfg.Log.Level, cfg.Log.Format, logOut))
}

func newAppWithLogger(cfg config.Config, log zerolog.Logger) (*app, error) {
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &app{cfg: cfg, logger: log, store: store}
	if cfg.Geocoder.Enabled {
		a.geocoder = geo.NewNominatim(geo.NominatimOptions{
			BaseURL:       cfg.Geocoder.BaseURL,
			UserAgent:     cfg.Geocoder.UserAgent,
			Language:      cfg.Geocoder.Language,
			CountryCodes:  cfg.Geocoder.CountryCodes,
			Timeout:       cfg.Geocoder.Timeout,
			RatePerSecond: cfg.Geocoder.RatePerSecond,
			CacheTTL:      cfg.Geocoder.CacheTTL,
		}, log)
	}

	var source location.Source = location.UnavailableSource{}
	device, _ := cfg.Location.DeviceCoordinate() // validated by LoadConfig
	if device != nil {
		source = location.StaticSource{Coordinate: *device}
	}
	a.locator = location.NewProvider(source, cfg.Location.Timeout, cfg.Location.DefaultCenter(), log)

	// a nil *Nominatim must not become a non-nil interface
	var geocoder search.Geocoder
	if a.geocoder != nil {
		geocoder = a.geocoder
	}
	a.search = search.NewService(store, geocoder, search.Options{StoreTimeout: cfg.Search.StoreTimeout}, log)
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing store")
	}
}

func runTUI() error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}
	log, closer, err := logger.OpenSession(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Info().Str("version", version).Str("db", cfg.DBPath).Msg("session start")

	a, err := newAppWithLogger(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	kind, _ := cfg.SearchKind()
	env := views.Env{
		Search:   a.search,
		Store:    a.store,
		Locator:  a.locator,
		Kind:     kind,
		Sort:     cfg.SortKey(),
		Zoom:     cfg.Viewport.Zoom,
		Debounce: cfg.Viewport.Debounce,
		Logger:   log,
	}
	if a.geocoder != nil {
		env.Labeler = a.geocoder
		env.Geocoder = a.geocoder
	}

	count, err := a.store.Count(context.Background())
	if err != nil {
		log.Warn().Err(err).Msg("counting venues")
	}
	return tui.Run(env, a.store, tui.DefaultRecentPath(), count)
}
