package views

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rendis/templestay/internal/engine/ingest"
	"github.com/rendis/templestay/internal/engine/search"
	"github.com/rendis/templestay/internal/engine/viewport"
	"github.com/rendis/templestay/internal/model"
)

// Searcher is the part of the search service the views use.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) (search.Result, error)
	AddressSearch(ctx context.Context, text string, radiusKm float64, sortKey model.SortKey, kind model.Kind) (search.Result, error)
	Nearby(ctx context.Context, center model.Coordinate, radiusKm float64, kind model.Kind) ([]model.Venue, error)
}

// Env carries the collaborators and defaults shared by every view.
// Labeler and Geocoder may be nil.
type Env struct {
	Search   Searcher
	Store    ingest.Store
	Locator  viewport.Locator
	Labeler  viewport.Labeler
	Geocoder ingest.Geocoder
	Kind     model.Kind
	Sort     model.SortKey
	Zoom     int
	Debounce time.Duration
	Logger   zerolog.Logger
}

// Navigation messages
type (
	NavigateToHome   struct{}
	NavigateToSearch struct{}
	NavigateToRecent struct{}
	NavigateToImport struct{}

	// NavigateToNearby opens the map; Center, when set, is shown instead of the user position.
	NavigateToNearby struct {
		Center *model.Coordinate
	}

	StartImportMsg struct {
		Path string
	}
)
