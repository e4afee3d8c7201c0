package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/model"
)

// DefaultStoreTimeout bounds one data-store round trip.
const DefaultStoreTimeout = 10 * time.Second

var ErrInvalidRadius = errors.New("radius must be positive")

// VenueStore is the data-store collaborator. It does no geospatial filtering.
type VenueStore interface {
	ListVenues(ctx context.Context, kind model.Kind) ([]model.Venue, error)
	GetVenue(ctx context.Context, id string) (*model.Venue, error)
}

// Geocoder resolves free text to a coordinate; nil, nil means not found.
type Geocoder interface {
	AddressToCoordinate(ctx context.Context, text string) (*model.Coordinate, error)
}

type Options struct {
	StoreTimeout    time.Duration
	GeocodeTimeout  time.Duration
	DefaultRadiusKm float64
}

// Service produces radius-bounded, distance-annotated, ranked venue lists.
type Service struct {
	store    VenueStore
	geocoder Geocoder
	opts     Options
	logger   zerolog.Logger
}

func NewService(store VenueStore, geocoder Geocoder, opts Options, logger zerolog.Logger) *Service {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.GeocodeTimeout <= 0 {
		opts.GeocodeTimeout = 10 * time.Second
	}
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = geo.RadiusForZoom(geo.DefaultZoom)
	}
	return &Service{
		store:    store,
		geocoder: geocoder,
		opts:     opts,
		logger:   logger.With().Str("component", "search").Logger(),
	}
}

// Nearby returns the venues of kind within radiusKm of center, annotated with
// their distance and in store order. On a store failure it returns an empty
// list together with a *QueryError.
func (s *Service) Nearby(ctx context.Context, center model.Coordinate, radiusKm float64, kind model.Kind) ([]model.Venue, error) {
	if radiusKm <= 0 {
		return []model.Venue{}, fmt.Errorf("nearby %s: %w", center, ErrInvalidRadius)
	}

	candidates, err := s.fetch(ctx, kind)
	if err != nil {
		s.logger.Warn().Err(err).Stringer("center", center).Float64("radius_km", radiusKm).Msg("nearby fetch failed")
		return []model.Venue{}, &QueryError{Op: "nearby", Err: err}
	}

	venues := WithinRadius(center, radiusKm, candidates)
	s.logger.Debug().
		Stringer("center", center).
		Float64("radius_km", radiusKm).
		Int("candidates", len(candidates)).
		Int("within", len(venues)).
		Msg("nearby")
	return venues, nil
}

// fetch loads candidates for kind. Both kinds are loaded concurrently for model.KindAll.
func (s *Service) fetch(ctx context.Context, kind model.Kind) ([]model.Venue, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	if kind != model.KindAll {
		return s.store.ListVenues(ctx, kind)
	}

	kinds := []model.Kind{model.KindTemple, model.KindStay}
	parts := make([][]model.Venue, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		g.Go(func() error {
			venues, err := s.store.ListVenues(gctx, k)
			if err != nil {
				return fmt.Errorf("listing %s venues: %w", k, err)
			}
			parts[i] = venues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Venue
	for _, p := range parts {
		all = append(all, p...)
	}
	return all, nil
}

// Annotate returns copies of venues with distance fields computed from center.
// Venues without a coordinate are kept with no distance.
func Annotate(center model.Coordinate, venues []model.Venue) []model.Venue {
	out := make([]model.Venue, 0, len(venues))
	for _, v := range venues {
		v.DistanceKm = nil
		v.FormattedDistance = ""
		if v.Coordinate != nil {
			d := geo.DistanceKm(center, *v.Coordinate)
			v.DistanceKm = &d
			v.FormattedDistance = geo.FormatDistance(d)
		}
		out = append(out, v)
	}
	return out
}

// WithinRadius annotates candidates and keeps those with a coordinate no
// farther than radiusKm from center.
func WithinRadius(center model.Coordinate, radiusKm float64, candidates []model.Venue) []model.Venue {
	out := make([]model.Venue, 0, len(candidates))
	for _, v := range Annotate(center, candidates) {
		if v.DistanceKm != nil && *v.DistanceKm <= radiusKm {
			out = append(out, v)
		}
	}
	return out
}
