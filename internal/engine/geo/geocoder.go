package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rendis/templestay/internal/model"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "templestay/0.1 (venue discovery)"
)

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type nominatimReverse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// NominatimOptions configures the OSM Nominatim client.
type NominatimOptions struct {
	BaseURL       string
	UserAgent     string
	Language      string
	CountryCodes  string
	Timeout       time.Duration
	RatePerSecond float64
	CacheTTL      time.Duration
}

// Nominatim is a forward/reverse geocoder backed by the OSM Nominatim API.
// Requests are rate limited and answers (including misses) are cached.
type Nominatim struct {
	baseURL      string
	userAgent    string
	language     string
	countryCodes string
	client       *http.Client
	limiter      *rate.Limiter
	cache        *cache.Cache
	logger       zerolog.Logger
}

func NewNominatim(opts NominatimOptions, logger zerolog.Logger) *Nominatim {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultNominatimURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	return &Nominatim{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		userAgent:    opts.UserAgent,
		language:     opts.Language,
		countryCodes: opts.CountryCodes,
		client:       &http.Client{Timeout: opts.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		cache:        cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		logger:       logger.With().Str("component", "geocoder").Logger(),
	}
}

// AddressToCoordinate resolves free text to a coordinate. It returns nil, nil when
// the address is unknown.
func (n *Nominatim) AddressToCoordinate(ctx context.Context, text string) (*model.Coordinate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	key := "fwd:" + strings.ToLower(text)
	if cached, found := n.cache.Get(key); found {
		return cached.(*model.Coordinate), nil
	}

	params := url.Values{
		"q":      {text},
		"format": {"json"},
		"limit":  {"1"},
	}
	if n.countryCodes != "" {
		params.Set("countrycodes", n.countryCodes)
	}

	var results []nominatimResult
	if err := n.get(ctx, "/search", params, &results); err != nil {
		return nil, err
	}

	var coord *model.Coordinate
	if len(results) > 0 {
		lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
		lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
		if errLat != nil || errLng != nil {
			return nil, fmt.Errorf("invalid coordinate from geocoder: %q, %q", results[0].Lat, results[0].Lon)
		}
		coord = &model.Coordinate{Lat: lat, Lng: lng}
	}

	n.cache.Set(key, coord, cache.DefaultExpiration)
	n.logger.Debug().Str("query", text).Bool("found", coord != nil).Msg("forward geocode")
	return coord, nil
}

// CoordinateToAddress returns a display label for c, or "" when nothing is known there.
func (n *Nominatim) CoordinateToAddress(ctx context.Context, c model.Coordinate) (string, error) {
	key := fmt.Sprintf("rev:%.5f:%.5f", c.Lat, c.Lng)
	if cached, found := n.cache.Get(key); found {
		return cached.(string), nil
	}

	params := url.Values{
		"lat":    {strconv.FormatFloat(c.Lat, 'f', 6, 64)},
		"lon":    {strconv.FormatFloat(c.Lng, 'f', 6, 64)},
		"format": {"json"},
		"zoom":   {"14"},
	}

	var result nominatimReverse
	if err := n.get(ctx, "/reverse", params, &result); err != nil {
		return "", err
	}

	label := ""
	if result.Error == "" {
		label = result.DisplayName
	}
	n.cache.Set(key, label, cache.DefaultExpiration)
	return label, nil
}

func (n *Nominatim) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for geocoder slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	if n.language != "" {
		req.Header.Set("Accept-Language", n.language)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding geocoding response: %w", err)
	}
	return nil
}
