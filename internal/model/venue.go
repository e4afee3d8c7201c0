package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Coordinate is a WGS-84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts to an orb.Point, which is [lng, lat].
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// FromPoint converts an orb.Point back to a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lng: p.Lon()}
}

// ParseCoordinate reads "lat,lng".
func ParseCoordinate(s string) (Coordinate, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("coordinate %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: latitude: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: longitude: %w", s, err)
	}
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("coordinate %q out of range", s)
	}
	return c, nil
}

func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

// Kind distinguishes the two venue variants.
type Kind string

const (
	KindTemple Kind = "temple"
	KindStay   Kind = "stay"
	KindAll    Kind = ""
)

// ParseKind accepts "temple", "stay", or "all"/"" for both.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "temple", "temples":
		return KindTemple, nil
	case "stay", "stays", "program", "templestay":
		return KindStay, nil
	case "", "all":
		return KindAll, nil
	}
	return KindAll, fmt.Errorf("unknown venue kind %q", s)
}

func (k Kind) String() string {
	if k == KindAll {
		return "all"
	}
	return string(k)
}

// Venue is a temple or a multi-day stay program as read from the store.
// DistanceKm and FormattedDistance are per-query annotations and are never persisted.
type Venue struct {
	ID              string      `json:"id"`
	Kind            Kind        `json:"kind"`
	Name            string      `json:"name"`
	Region          string      `json:"region"`
	Address         string      `json:"address"`
	Coordinate      *Coordinate `json:"coordinate,omitempty"`
	PopularityScore int         `json:"follower_count"`
	CreatedAt       time.Time   `json:"created_at"`
	PriceTier       *int        `json:"price,omitempty"` // stay programs only
	Tags            []string    `json:"tags"`
	Description     string      `json:"description,omitempty"`

	DistanceKm        *float64 `json:"distance_km,omitempty"`
	FormattedDistance string   `json:"formatted_distance,omitempty"`
}

// HasCoordinate reports whether the venue can take part in distance filtering.
func (v Venue) HasCoordinate() bool {
	return v.Coordinate != nil
}

// SortKey selects the ranking order applied after candidate selection.
type SortKey int

const (
	SortPopularity SortKey = iota
	SortDistance
	SortRecency
	SortPriceAscending
)

var sortKeyNames = map[SortKey]string{
	SortPopularity:     "popularity",
	SortDistance:       "distance",
	SortRecency:        "recency",
	SortPriceAscending: "price",
}

func (k SortKey) String() string {
	if s, ok := sortKeyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("SortKey(%d)", int(k))
}

func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "popularity", "popular", "likes":
		return SortPopularity, nil
	case "distance", "near", "nearest", "":
		return SortDistance, nil
	case "recency", "recent", "newest":
		return SortRecency, nil
	case "price", "price-asc", "cheapest":
		return SortPriceAscending, nil
	}
	return SortDistance, fmt.Errorf("unknown sort key %q", s)
}

// SearchQuery describes one discovery request. At most one of FreeText and
// RegionFilter is set; with neither, every candidate of Kind is browsed.
type SearchQuery struct {
	Center       *Coordinate
	RadiusKm     float64
	SortKey      SortKey
	FreeText     string
	RegionFilter string
	Kind         Kind
}

func (q SearchQuery) IsTextMode() bool {
	return strings.TrimSpace(q.FreeText) != ""
}

func (q SearchQuery) IsRegionMode() bool {
	return !q.IsTextMode() && strings.TrimSpace(q.RegionFilter) != ""
}

// ViewportState is the map's current center, zoom level, and derived search radius.
type ViewportState struct {
	Center    Coordinate
	ZoomLevel int
	RadiusKm  float64
}
