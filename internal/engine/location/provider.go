package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rendis/templestay/internal/model"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
)

// DefaultCenter is the fallback city-center point (Seoul City Hall).
var DefaultCenter = model.Coordinate{Lat: 37.5665, Lng: 126.9780}

// DefaultTimeout bounds how long a location fix may take.
const DefaultTimeout = 15 * time.Second

// Source produces the device's current position.
type Source interface {
	Locate(ctx context.Context) (model.Coordinate, error)
}

// Condition names why a fix fell back to the default coordinate.
type Condition int

const (
	ConditionOK Condition = iota
	ConditionPermissionDenied
	ConditionUnavailable
	ConditionTimeout
)

func (c Condition) String() string {
	switch c {
	case ConditionOK:
		return "ok"
	case ConditionPermissionDenied:
		return "permission_denied"
	case ConditionUnavailable:
		return "unavailable"
	case ConditionTimeout:
		return "timeout"
	}
	return fmt.Sprintf("Condition(%d)", int(c))
}

// Fix is the outcome of a location request. It always carries a usable coordinate.
type Fix struct {
	Coordinate model.Coordinate
	Fallback   bool
	Condition  Condition
}

// Notice is the non-blocking warning shown when the fix is a fallback.
func (f Fix) Notice() string {
	switch f.Condition {
	case ConditionPermissionDenied:
		return "Location permission denied; showing the default area"
	case ConditionUnavailable:
		return "Location unavailable; showing the default area"
	case ConditionTimeout:
		return "Location request timed out; showing the default area"
	}
	return ""
}

// Provider wraps a Source with a timeout and a fallback coordinate.
type Provider struct {
	source   Source
	timeout  time.Duration
	fallback model.Coordinate
	logger   zerolog.Logger
}

func NewProvider(source Source, timeout time.Duration, fallback model.Coordinate, logger zerolog.Logger) *Provider {
	if source == nil {
		source = UnavailableSource{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Provider{
		source:   source,
		timeout:  timeout,
		fallback: fallback,
		logger:   logger.With().Str("component", "location").Logger(),
	}
}

// CurrentLocation never fails: on denial, unavailability or timeout it returns the
// fallback coordinate and names the condition.
func (p *Provider) CurrentLocation(ctx context.Context) Fix {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		coord model.Coordinate
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := p.source.Locate(ctx)
		ch <- result{coord: c, err: err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err == nil && !res.coord.Valid() {
		res.err = fmt.Errorf("%w: invalid coordinate %s", ErrUnavailable, res.coord)
	}
	if res.err == nil {
		return Fix{Coordinate: res.coord}
	}

	cond := classify(res.err)
	p.logger.Warn().Err(res.err).Stringer("condition", cond).Msg("falling back to default location")
	return Fix{Coordinate: p.fallback, Fallback: true, Condition: cond}
}

func classify(err error) Condition {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ConditionPermissionDenied
	case errors.Is(err, context.DeadlineExceeded):
		return ConditionTimeout
	default:
		return ConditionUnavailable
	}
}

// StaticSource always reports the same position, e.g. one configured by the user.
type StaticSource struct {
	Coordinate model.Coordinate
}

func (s StaticSource) Locate(context.Context) (model.Coordinate, error) {
	return s.Coordinate, nil
}

// UnavailableSource is used when no positioning is configured.
type UnavailableSource struct{}

func (UnavailableSource) Locate(context.Context) (model.Coordinate, error) {
	return model.Coordinate{}, ErrUnavailable
}
