package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rendis/templestay/internal/model"
	"github.com/rendis/templestay/internal/tui/views"
)

const maxRecent = 10

// recentSearch is the on-disk form of a search; enums are stored by name.
type recentSearch struct {
	Mode     string    `json:"mode"`
	Text     string    `json:"text"`
	Kind     string    `json:"kind"`
	Sort     string    `json:"sort"`
	RadiusKm float64   `json:"radius_km,omitempty"`
	At       time.Time `json:"at"`
}

// DefaultRecentPath is recent.json under the user config dir.
func DefaultRecentPath() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		cfg = "."
	}
	return filepath.Join(cfg, "templestay", "recent.json")
}

func toRecent(e views.RecentEntry) recentSearch {
	return recentSearch{
		Mode:     e.Search.Mode.String(),
		Text:     e.Search.Text,
		Kind:     e.Search.Kind.String(),
		Sort:     e.Search.Sort.String(),
		RadiusKm: e.Search.RadiusKm,
		At:       e.At,
	}
}

func fromRecent(r recentSearch) (views.RecentEntry, bool) {
	mode := views.ModeText
	switch r.Mode {
	case views.ModeRegion.String():
		mode = views.ModeRegion
	case views.ModeAddress.String():
		mode = views.ModeAddress
	}
	kind, err := model.ParseKind(r.Kind)
	if err != nil {
		return views.RecentEntry{}, false
	}
	sortKey, err := model.ParseSortKey(r.Sort)
	if err != nil {
		return views.RecentEntry{}, false
	}
	return views.RecentEntry{
		Search: views.StartSearchMsg{Mode: mode, Text: r.Text, Kind: kind, Sort: sortKey, RadiusKm: r.RadiusKm},
		At:     r.At,
	}, true
}

// LoadRecent returns the saved searches, newest first. A missing file is not an error.
func LoadRecent(path string) ([]views.RecentEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var raw []recentSearch
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	entries := make([]views.RecentEntry, 0, len(raw))
	for _, r := range raw {
		if e, ok := fromRecent(r); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// SaveRecent puts search first, dropping an earlier identical search.
func SaveRecent(path string, search views.StartSearchMsg, at time.Time) error {
	entries, err := LoadRecent(path)
	if err != nil {
		entries = nil
	}

	filtered := make([]views.RecentEntry, 0, len(entries)+1)
	filtered = append(filtered, views.RecentEntry{Search: search, At: at})
	for _, e := range entries {
		if e.Search != search {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > maxRecent {
		filtered = filtered[:maxRecent]
	}

	raw := make([]recentSearch, len(filtered))
	for i, e := range filtered {
		raw[i] = toRecent(e)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
