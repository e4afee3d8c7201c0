package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/location"
	"github.com/rendis/templestay/internal/engine/search"
	"github.com/rendis/templestay/internal/model"
)

// Config holds all application configuration
type Config struct {
	DBPath   string         `mapstructure:"db_path"`
	Log      LogConfig      `mapstructure:"log"`
	Location LocationConfig `mapstructure:"location"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Search   SearchConfig   `mapstructure:"search"`
	Viewport ViewportConfig `mapstructure:"viewport"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File receives TUI session logs; the terminal belongs to the UI.
	File string `mapstructure:"file"`
}

// LocationConfig describes where the device position comes from.
type LocationConfig struct {
	// Device is a fixed "lat,lng" standing in for a positioning service. Empty means unavailable.
	Device     string        `mapstructure:"device"`
	DefaultLat float64       `mapstructure:"default_lat"`
	DefaultLng float64       `mapstructure:"default_lng"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type GeocoderConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Language      string        `mapstructure:"language"`
	CountryCodes  string        `mapstructure:"country_codes"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

type SearchConfig struct {
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	Sort         string        `mapstructure:"sort"`
	Kind         string        `mapstructure:"kind"`
}

type ViewportConfig struct {
	Zoom     int           `mapstructure:"zoom"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoadConfig reads templestay.yaml from path (when present) and TEMPLESTAY_* environment
// overrides on top of the defaults. TEMPLESTAY_SEARCH_SORT overrides search.sort.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("templestay")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("templestay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("reading config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("decoding config: %w", err)
	}
	return config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "templestay.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "templestay.log")

	v.SetDefault("location.device", "")
	v.SetDefault("location.default_lat", location.DefaultCenter.Lat)
	v.SetDefault("location.default_lng", location.DefaultCenter.Lng)
	v.SetDefault("location.timeout", location.DefaultTimeout)

	v.SetDefault("geocoder.enabled", true)
	v.SetDefault("geocoder.base_url", geo.DefaultNominatimURL)
	v.SetDefault("geocoder.user_agent", "templestay/1.0")
	v.SetDefault("geocoder.language", "ko")
	v.SetDefault("geocoder.country_codes", "kr")
	v.SetDefault("geocoder.timeout", 10*time.Second)
	v.SetDefault("geocoder.rate_per_second", 1.0)
	v.SetDefault("geocoder.cache_ttl", time.Hour)

	v.SetDefault("search.store_timeout", search.DefaultStoreTimeout)
	v.SetDefault("search.sort", model.SortDistance.String())
	v.SetDefault("search.kind", "all")

	v.SetDefault("viewport.zoom", geo.DefaultZoom)
	v.SetDefault("viewport.debounce", time.Duration(0))
}

// Validate rejects values the rest of the program cannot work with.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if !(model.Coordinate{Lat: c.Location.DefaultLat, Lng: c.Location.DefaultLng}).Valid() {
		return fmt.Errorf("location default %.6f,%.6f is out of range", c.Location.DefaultLat, c.Location.DefaultLng)
	}
	if _, err := c.Location.DeviceCoordinate(); err != nil {
		return err
	}
	if _, err := model.ParseSortKey(c.Search.Sort); err != nil {
		return fmt.Errorf("search.sort: %w", err)
	}
	if _, err := c.SearchKind(); err != nil {
		return fmt.Errorf("search.kind: %w", err)
	}
	if c.Viewport.Debounce < 0 {
		return errors.New("viewport.debounce must not be negative")
	}
	return nil
}

// DefaultCenter is the configured fallback position.
func (l LocationConfig) DefaultCenter() model.Coordinate {
	return model.Coordinate{Lat: l.DefaultLat, Lng: l.DefaultLng}
}

// DeviceCoordinate parses Device. A nil coordinate means no device position is configured.
func (l LocationConfig) DeviceCoordinate() (*model.Coordinate, error) {
	if strings.TrimSpace(l.Device) == "" {
		return nil, nil
	}
	c, err := model.ParseCoordinate(l.Device)
	if err != nil {
		return nil, fmt.Errorf("location.device: %w", err)
	}
	return &c, nil
}

// SortKey returns the parsed default sort order.
func (c Config) SortKey() model.SortKey {
	key, err := model.ParseSortKey(c.Search.Sort)
	if err != nil {
		return model.SortDistance
	}
	return key
}

// SearchKind returns the parsed default venue kind; "all" selects both.
func (c Config) SearchKind() (model.Kind, error) {
	return model.ParseKind(c.Search.Kind)
}
