package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/templestay/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templestay.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "templestay.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, model.Coordinate{Lat: 37.5665, Lng: 126.9780}, cfg.Location.DefaultCenter())
	assert.Equal(t, 15*time.Second, cfg.Location.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Search.StoreTimeout)
	assert.Equal(t, model.SortDistance, cfg.SortKey())
	assert.Equal(t, 3, cfg.Viewport.Zoom)
	assert.Zero(t, cfg.Viewport.Debounce)
	assert.True(t, cfg.Geocoder.Enabled)
	assert.Equal(t, 1.0, cfg.Geocoder.RatePerSecond)

	kind, err := cfg.SearchKind()
	require.NoError(t, err)
	assert.Equal(t, model.KindAll, kind)

	device, err := cfg.Location.DeviceCoordinate()
	require.NoError(t, err)
	assert.Nil(t, device)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	// Setup
	dir := writeConfig(t, `
db_path: /var/lib/templestay/venues.db
location:
  device: "35.79, 129.332"
  timeout: 3s
search:
  sort: popularity
  kind: stay
viewport:
  zoom: 5
  debounce: 250ms
geocoder:
  enabled: false
`)
	t.Setenv("TEMPLESTAY_SEARCH_SORT", "recency")
	t.Setenv("TEMPLESTAY_LOG_LEVEL", "debug")

	// Execute
	cfg, err := LoadConfig(dir)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/templestay/venues.db", cfg.DBPath)
	assert.Equal(t, 3*time.Second, cfg.Location.Timeout)
	assert.Equal(t, model.SortRecency, cfg.SortKey())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Viewport.Zoom)
	assert.Equal(t, 250*time.Millisecond, cfg.Viewport.Debounce)
	assert.False(t, cfg.Geocoder.Enabled)

	device, err := cfg.Location.DeviceCoordinate()
	require.NoError(t, err)
	assert.Equal(t, &model.Coordinate{Lat: 35.79, Lng: 129.332}, device)

	kind, err := cfg.SearchKind()
	require.NoError(t, err)
	assert.Equal(t, model.KindStay, kind)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown sort", body: "search:\n  sort: alphabetical\n"},
		{name: "unknown kind", body: "search:\n  kind: hermitage\n"},
		{name: "bad device position", body: "location:\n  device: north\n"},
		{name: "default center out of range", body: "location:\n  default_lat: 91\n"},
		{name: "negative debounce", body: "viewport:\n  debounce: -1s\n"},
		{name: "malformed yaml", body: "search: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
