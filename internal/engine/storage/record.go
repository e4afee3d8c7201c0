package storage

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rendis/templestay/internal/model"
)

// record is a venues row as stored. Every optional column is nullable and the
// tags column holds a JSON-encoded array that is not guaranteed to parse.
type record struct {
	ID            string
	Kind          string
	Name          string
	Region        sql.NullString
	Address       sql.NullString
	Lat           sql.NullFloat64
	Lng           sql.NullFloat64
	FollowerCount sql.NullInt64
	Tags          sql.NullString
	Price         sql.NullInt64
	Description   sql.NullString
	CreatedAt     sql.NullString
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// toVenue converts a row to the typed venue, substituting a fallback for every
// missing or malformed field rather than rejecting the row.
func (r record) toVenue() model.Venue {
	v := model.Venue{
		ID:          r.ID,
		Kind:        model.Kind(r.Kind),
		Name:        r.Name,
		Region:      r.Region.String,
		Address:     r.Address.String,
		Description: r.Description.String,
		Tags:        ParseTags(r.Tags.String),
		CreatedAt:   ParseTime(r.CreatedAt.String),
	}
	if r.Lat.Valid && r.Lng.Valid {
		c := model.Coordinate{Lat: r.Lat.Float64, Lng: r.Lng.Float64}
		if c.Valid() {
			v.Coordinate = &c
		}
	}
	if r.FollowerCount.Valid && r.FollowerCount.Int64 > 0 {
		v.PopularityScore = int(r.FollowerCount.Int64)
	}
	if r.Price.Valid {
		p := int(r.Price.Int64)
		v.PriceTier = &p
	}
	return v
}

func fromVenue(v model.Venue) record {
	r := record{
		ID:            v.ID,
		Kind:          string(v.Kind),
		Name:          v.Name,
		Region:        sql.NullString{String: v.Region, Valid: v.Region != ""},
		Address:       sql.NullString{String: v.Address, Valid: v.Address != ""},
		FollowerCount: sql.NullInt64{Int64: int64(v.PopularityScore), Valid: true},
		Description:   sql.NullString{String: v.Description, Valid: v.Description != ""},
	}
	if v.Coordinate != nil {
		r.Lat = sql.NullFloat64{Float64: v.Coordinate.Lat, Valid: true}
		r.Lng = sql.NullFloat64{Float64: v.Coordinate.Lng, Valid: true}
	}
	if v.PriceTier != nil {
		r.Price = sql.NullInt64{Int64: int64(*v.PriceTier), Valid: true}
	}
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	r.Tags = sql.NullString{String: string(data), Valid: true}
	if !v.CreatedAt.IsZero() {
		r.CreatedAt = sql.NullString{String: v.CreatedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	return r
}

// ParseTags decodes a JSON string array. Anything else yields an empty slice.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

// ParseTime accepts the layouts the store has used over time; unknown input is the zero time.
func ParseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
