package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/search"
	"github.com/rendis/templestay/internal/engine/storage"
	"github.com/rendis/templestay/internal/model"
)

// queryFlags are shared by nearby and search.
type queryFlags struct {
	kind    string
	sort    string
	asJSON  bool
	lat     float64
	lng     float64
	located bool
}

func (q *queryFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&q.kind, "kind", "", "Venue kind: all, temple or stay (default from config)")
	fs.StringVar(&q.sort, "sort", "", "Order: distance, popularity, recency or price (default from config)")
	fs.BoolVar(&q.asJSON, "json", false, "Print JSON instead of a table")
	fs.Float64Var(&q.lat, "lat", 0, "Center latitude (default: device location)")
	fs.Float64Var(&q.lng, "lng", 0, "Center longitude (default: device location)")
}

// resolve fills in config defaults. The center is the -lat/-lng pair when given,
// otherwise the device location (or its fallback).
func (q *queryFlags) resolve(ctx context.Context, a *app, fs *flag.FlagSet) (model.Kind, model.SortKey, model.Coordinate, string, error) {
	kind, err := a.cfg.SearchKind()
	if q.kind != "" {
		kind, err = model.ParseKind(q.kind)
	}
	if err != nil {
		return kind, 0, model.Coordinate{}, "", err
	}
	sortKey := a.cfg.SortKey()
	if q.sort != "" {
		if sortKey, err = model.ParseSortKey(q.sort); err != nil {
			return kind, 0, model.Coordinate{}, "", err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lng" {
			q.located = true
		}
	})
	if q.located {
		c := model.Coordinate{Lat: q.lat, Lng: q.lng}
		if !c.Valid() {
			return kind, sortKey, c, "", fmt.Errorf("center %s is out of range", c)
		}
		return kind, sortKey, c, "", nil
	}
	fix := a.locator.CurrentLocation(ctx)
	return kind, sortKey, fix.Coordinate, fix.Notice(), nil
}

func runNearby(args []string) error {
	var q queryFlags
	var radius float64
	var zoom int

	fs := flag.NewFlagSet("nearby", flag.ExitOnError)
	q.register(fs)
	fs.Float64Var(&radius, "radius", 0, "Search radius in km (overrides -zoom)")
	fs.IntVar(&zoom, "zoom", 0, "Map zoom level; the radius follows it (default from config)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: templestay nearby [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  templestay nearby -lat 37.5700 -lng 126.9830 -zoom 4\n")
		fmt.Fprintf(os.Stderr, "  templestay nearby -radius 30 -kind stay -sort price\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	kind, sortKey, center, notice, err := q.resolve(ctx, a, fs)
	if err != nil {
		return err
	}
	switch {
	case radius < 0:
		return fmt.Errorf("-radius must be positive")
	case radius > 0:
		zoom = geo.ZoomForRadius(radius)
	default:
		if zoom == 0 {
			zoom = a.cfg.Viewport.Zoom
		}
		radius = geo.RadiusForZoom(zoom)
	}

	venues, err := a.search.Nearby(ctx, center, radius, kind)
	if err != nil {
		return err
	}
	search.Rank(venues, sortKey)

	if notice != "" {
		fmt.Fprintln(os.Stderr, notice)
	}
	fmt.Fprintf(os.Stderr, "%d venues within %s of %s (zoom %d)\n", len(venues), geo.FormatDistance(radius), center, zoom)
	return printVenues(venues, q.asJSON)
}

func runSearch(args []string) error {
	var q queryFlags
	var text, regionName, address string
	var radius float64

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	q.register(fs)
	fs.StringVar(&text, "q", "", "Free text: name, region or address")
	fs.StringVar(&regionName, "region", "", "Administrative region, short forms accepted (경북, 서울)")
	fs.StringVar(&address, "address", "", "Geocode this address and search around it")
	fs.Float64Var(&radius, "radius", 0, "Radius in km for -address")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: templestay search [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  templestay search -q 조계사\n")
		fmt.Fprintf(os.Stderr, "  templestay search -region 경북 -kind stay -sort popularity\n")
		fmt.Fprintf(os.Stderr, "  templestay search -address \"부산 해운대구\" -radius 15\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	set := 0
	for _, s := range []string{text, regionName, address} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("use only one of -q, -region and -address")
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	kind, sortKey, center, notice, err := q.resolve(ctx, a, fs)
	if err != nil {
		return err
	}

	var res search.Result
	if address != "" {
		res, err = a.search.AddressSearch(ctx, address, radius, sortKey, kind)
	} else {
		res, err = a.search.Search(ctx, model.SearchQuery{
			Center:       &center,
			SortKey:      sortKey,
			FreeText:     text,
			RegionFilter: regionName,
			Kind:         kind,
		})
	}
	if err != nil {
		return err
	}

	if res.Notice != "" {
		notice = res.Notice
	}
	if notice != "" {
		fmt.Fprintln(os.Stderr, notice)
	}
	fmt.Fprintf(os.Stderr, "%d venues\n", len(res.Venues))
	return printVenues(res.Venues, q.asJSON)
}

func runShow(args []string) error {
	var id string
	var q queryFlags

	fs := flag.NewFlagSet("show", flag.ExitOnError)
	q.register(fs)
	fs.StringVar(&id, "id", "", "Venue id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("-id is required")
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	_, _, center, _, err := q.resolve(ctx, a, fs)
	if err != nil {
		return err
	}
	v, err := a.search.Venue(ctx, id, &center)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no venue with id %q", id)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVenues(venues []model.Venue, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(venues)
	}
	if len(venues) == 0 {
		return nil
	}

	rows := make([][]string, len(venues))
	for i, v := range venues {
		price := ""
		if v.PriceTier != nil {
			price = strconv.Itoa(*v.PriceTier)
		}
		rows[i] = []string{v.ID, v.Name, v.Kind.String(), v.Region, v.FormattedDistance, strconv.Itoa(v.PopularityScore), price}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "KIND", "REGION", "DISTANCE", "FOLLOWERS", "PRICE").
		Rows(rows...)
	fmt.Println(t.Render())
	return nil
}
