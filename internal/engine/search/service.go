package search

import (
	"context"

	"github.com/rendis/templestay/internal/engine/region"
	"github.com/rendis/templestay/internal/model"
)

// Result is a ranked venue list plus what the UI needs to explain it.
type Result struct {
	Venues   []model.Venue
	Center   *model.Coordinate
	Notice   string
	Degraded bool
}

// Search selects candidates by free text, region, or radius (in that order of
// precedence), then ranks them by q.SortKey.
func (s *Service) Search(ctx context.Context, q model.SearchQuery) (Result, error) {
	l := s.logger.With().
		Str("op", "Search").
		Str("kind", q.Kind.String()).
		Stringer("sort", q.SortKey).
		Logger()

	candidates, err := s.fetch(ctx, q.Kind)
	if err != nil {
		l.Warn().Err(err).Msg("candidate fetch failed")
		return Result{Venues: []model.Venue{}, Center: q.Center}, &QueryError{Op: "search", Err: err}
	}

	var venues []model.Venue
	switch {
	case q.IsTextMode():
		for _, v := range candidates {
			if region.Matches(v, q.FreeText) {
				venues = append(venues, v)
			}
		}
		venues = s.annotateIfCentered(q.Center, venues)
	case q.IsRegionMode():
		for _, v := range candidates {
			if region.MatchesRegion(v.Region, q.RegionFilter) {
				venues = append(venues, v)
			}
		}
		venues = s.annotateIfCentered(q.Center, venues)
	case q.Center != nil && q.RadiusKm > 0:
		venues = WithinRadius(*q.Center, q.RadiusKm, candidates)
	default:
		venues = s.annotateIfCentered(q.Center, candidates)
	}
	if venues == nil {
		venues = []model.Venue{}
	}

	Rank(venues, q.SortKey)
	l.Debug().
		Str("text", q.FreeText).
		Str("region", q.RegionFilter).
		Int("candidates", len(candidates)).
		Int("results", len(venues)).
		Msg("search")
	return Result{Venues: venues, Center: q.Center}, nil
}

func (s *Service) annotateIfCentered(center *model.Coordinate, venues []model.Venue) []model.Venue {
	if center == nil {
		return venues
	}
	return Annotate(*center, venues)
}

// AddressSearch geocodes text and searches around the result. When the geocoder
// fails or knows nothing, it falls back to a plain free-text search and marks
// the result as degraded.
func (s *Service) AddressSearch(ctx context.Context, text string, radiusKm float64, sortKey model.SortKey, kind model.Kind) (Result, error) {
	if radiusKm <= 0 {
		radiusKm = s.opts.DefaultRadiusKm
	}

	coord, err := s.geocode(ctx, text)
	if err != nil || coord == nil {
		if err != nil {
			s.logger.Warn().Err(err).Str("address", text).Msg("geocoding failed, searching as text")
		}
		res, serr := s.Search(ctx, model.SearchQuery{FreeText: text, SortKey: sortKey, Kind: kind})
		res.Degraded = true
		res.Notice = "Address not found; showing text matches instead"
		return res, serr
	}

	return s.Search(ctx, model.SearchQuery{
		Center:   coord,
		RadiusKm: radiusKm,
		SortKey:  sortKey,
		Kind:     kind,
	})
}

func (s *Service) geocode(ctx context.Context, text string) (*model.Coordinate, error) {
	if s.geocoder == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.GeocodeTimeout)
	defer cancel()
	return s.geocoder.AddressToCoordinate(ctx, text)
}

// Venue loads one venue, annotating its distance from center when both are known.
func (s *Service) Venue(ctx context.Context, id string, center *model.Coordinate) (*model.Venue, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	v, err := s.store.GetVenue(ctx, id)
	if err != nil {
		return nil, &QueryError{Op: "venue " + id, Err: err}
	}
	if center != nil {
		annotated := Annotate(*center, []model.Venue{*v})
		return &annotated[0], nil
	}
	return v, nil
}
