// Package viewport keeps the map viewport and the nearby-venue list in sync.
//
// The Controller is driven entirely by bubbletea messages. Every viewport
// change (locate, pan, zoom) dispatches a proximity query tagged with a
// monotonically increasing sequence number, and a response is applied only
// when it is newer than the last one applied, so a slow reply for an old
// viewport can never overwrite the current one.
package viewport

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/location"
	"github.com/rendis/templestay/internal/engine/search"
	"github.com/rendis/templestay/internal/model"
)

// Querier runs the radius query for a viewport.
type Querier interface {
	Nearby(ctx context.Context, center model.Coordinate, radiusKm float64, kind model.Kind) ([]model.Venue, error)
}

// Locator yields the starting position, possibly a fallback.
type Locator interface {
	CurrentLocation(ctx context.Context) location.Fix
}

// Labeler names a coordinate for the viewport header.
type Labeler interface {
	CoordinateToAddress(ctx context.Context, c model.Coordinate) (string, error)
}

// Marker is one pin on the map surface.
type Marker struct {
	ID         string
	Label      string
	Coordinate model.Coordinate
	User       bool
	// Center marks the search center, which moves on every pan.
	Center bool
}

// Surface is the rendering target. The Controller is its only writer.
type Surface interface {
	SetMarkers(markers []Marker)
	ClearMarkers()
	SetViewport(state model.ViewportState)
}

// Messages understood by Controller.Update.
type (
	PanMsg struct {
		Center model.Coordinate
	}
	ZoomMsg struct {
		Level int
	}
	LocateMsg struct{}

	SortMsg struct {
		Key model.SortKey
	}
	ResultsMsg struct {
		Seq    uint64
		Venues []model.Venue
		Err    error
	}
	LabelMsg struct {
		Seq   uint64
		Label string
	}

	locatedMsg struct {
		fix location.Fix
	}
	fetchMsg struct {
		gen uint64
	}
)

type Options struct {
	Kind    model.Kind
	SortKey model.SortKey // callers usually want model.SortDistance
	// Zoom is the level used until the first ZoomMsg; nil means geo.DefaultZoom.
	// Any level is accepted, including 0, which falls outside the radius table.
	Zoom *int
	// Debounce delays the query after a pan or zoom; zero dispatches immediately.
	Debounce time.Duration
	// LabelTimeout bounds a reverse-geocoding call.
	LabelTimeout time.Duration
}

type Controller struct {
	querier Querier
	locator Locator
	labeler Labeler
	surface Surface
	opts    Options
	logger  zerolog.Logger

	state   model.ViewportState
	user    *model.Coordinate
	located bool
	notice  string

	seq      uint64 // last dispatched
	applied  uint64 // highest applied
	labelSeq uint64
	gen      uint64
	cancel   context.CancelFunc
	lcancel  context.CancelFunc
	loading  bool
	venues   []model.Venue
	err      error
	label    string
	sortKey  model.SortKey
}

// New builds a Controller. labeler may be nil.
func New(querier Querier, locator Locator, labeler Labeler, surface Surface, opts Options, logger zerolog.Logger) *Controller {
	zoom := geo.DefaultZoom
	if opts.Zoom != nil {
		zoom = *opts.Zoom
	}
	if opts.LabelTimeout <= 0 {
		opts.LabelTimeout = 5 * time.Second
	}
	return &Controller{
		querier: querier,
		locator: locator,
		labeler: labeler,
		surface: surface,
		opts:    opts,
		logger:  logger.With().Str("component", "viewport").Logger(),
		state: model.ViewportState{
			Center:    location.DefaultCenter,
			ZoomLevel: zoom,
			RadiusKm:  geo.RadiusForZoom(zoom),
		},
		sortKey: opts.SortKey,
	}
}

// Init asks the locator for the starting position.
func (c *Controller) Init() tea.Cmd {
	return func() tea.Msg { return LocateMsg{} }
}

// Update applies msg and returns the follow-up command, if any.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case LocateMsg:
		return c.locate()

	case locatedMsg:
		center := msg.fix.Coordinate
		c.user = &center
		c.located = true
		c.notice = msg.fix.Notice()
		c.state.Center = center
		c.state.RadiusKm = geo.RadiusForZoom(c.state.ZoomLevel)
		c.logger.Info().
			Stringer("center", center).
			Stringer("condition", msg.fix.Condition).
			Float64("radius_km", c.state.RadiusKm).
			Msg("located")
		c.surface.SetViewport(c.state)
		c.publishMarkers()
		return c.dispatch()

	case PanMsg:
		if !msg.Center.Valid() || msg.Center == c.state.Center {
			return nil
		}
		c.state.Center = msg.Center
		c.surface.SetViewport(c.state)
		c.publishMarkers()
		return c.schedule()

	case ZoomMsg:
		radius := geo.RadiusForZoom(msg.Level)
		c.state.ZoomLevel = msg.Level
		if radius == c.state.RadiusKm {
			return nil
		}
		c.state.RadiusKm = radius
		c.surface.SetViewport(c.state)
		return c.schedule()

	case fetchMsg:
		if msg.gen != c.gen {
			return nil
		}
		return c.dispatch()

	case ResultsMsg:
		c.applyResults(msg)
		return nil

	case LabelMsg:
		if msg.Seq < c.labelSeq {
			return nil
		}
		c.labelSeq = msg.Seq
		c.label = msg.Label
		if msg.Seq == c.seq {
			c.cancelLabel()
		}
		return nil

	case SortMsg:
		c.sortKey = msg.Key
		search.Rank(c.venues, c.sortKey)
		return nil
	}
	return nil
}

func (c *Controller) locate() tea.Cmd {
	if c.locator == nil {
		center := c.state.Center
		return func() tea.Msg {
			return locatedMsg{fix: location.Fix{Coordinate: center, Condition: location.ConditionOK}}
		}
	}
	locator := c.locator
	return func() tea.Msg {
		return locatedMsg{fix: locator.CurrentLocation(context.Background())}
	}
}

// schedule dispatches now, or after the debounce window when no newer change arrives.
func (c *Controller) schedule() tea.Cmd {
	if c.opts.Debounce <= 0 {
		return c.dispatch()
	}
	c.gen++
	gen := c.gen
	return tea.Tick(c.opts.Debounce, func(time.Time) tea.Msg {
		return fetchMsg{gen: gen}
	})
}

// dispatch cancels the in-flight query and label lookup and starts new ones
// for the current viewport.
func (c *Controller) dispatch() tea.Cmd {
	c.Close()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.seq++
	c.loading = true
	seq := c.seq
	center, radius, kind := c.state.Center, c.state.RadiusKm, c.opts.Kind
	querier := c.querier

	c.logger.Debug().
		Uint64("seq", seq).
		Stringer("center", center).
		Float64("radius_km", radius).
		Msg("dispatch")

	query := func() tea.Msg {
		venues, err := querier.Nearby(ctx, center, radius, kind)
		return ResultsMsg{Seq: seq, Venues: venues, Err: err}
	}
	if c.labeler == nil {
		return query
	}

	// the lookup outlives the query; only the next dispatch or Close cancels it
	lbase, lcancel := context.WithCancel(context.Background())
	c.lcancel = lcancel
	labeler, timeout := c.labeler, c.opts.LabelTimeout
	label := func() tea.Msg {
		lctx, done := context.WithTimeout(lbase, timeout)
		defer done()
		name, err := labeler.CoordinateToAddress(lctx, center)
		if err != nil {
			name = ""
		}
		return LabelMsg{Seq: seq, Label: name}
	}
	return tea.Batch(query, label)
}

func (c *Controller) applyResults(msg ResultsMsg) {
	if msg.Seq <= c.applied {
		c.logger.Debug().Uint64("seq", msg.Seq).Uint64("applied", c.applied).Msg("stale response dropped")
		return
	}
	// a superseded query that failed was almost always cancelled by its successor
	if msg.Err != nil && msg.Seq < c.seq {
		return
	}
	c.applied = msg.Seq
	if msg.Seq == c.seq {
		c.loading = false
		c.cancelQuery()
	}

	c.err = msg.Err
	c.venues = msg.Venues
	if c.venues == nil {
		c.venues = []model.Venue{}
	}
	if msg.Err != nil {
		c.logger.Warn().Err(msg.Err).Uint64("seq", msg.Seq).Msg("nearby query failed")
	}
	search.Rank(c.venues, c.sortKey)
	c.publishMarkers()
}

// publishMarkers replaces the surface's markers with the current batch.
func (c *Controller) publishMarkers() {
	c.surface.ClearMarkers()
	c.surface.SetMarkers(c.markers())
}

func (c *Controller) markers() []Marker {
	out := make([]Marker, 0, len(c.venues)+2)
	if c.user != nil {
		out = append(out, Marker{ID: "user", Label: "You", Coordinate: *c.user, User: true})
	}
	out = append(out, Marker{ID: "center", Coordinate: c.state.Center, Center: true})
	for _, v := range c.venues {
		if !v.HasCoordinate() {
			continue
		}
		out = append(out, Marker{ID: v.ID, Label: v.Name, Coordinate: *v.Coordinate})
	}
	return out
}

// Close cancels any in-flight query and label lookup.
func (c *Controller) Close() {
	c.cancelQuery()
	c.cancelLabel()
}

func (c *Controller) cancelQuery() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) cancelLabel() {
	if c.lcancel != nil {
		c.lcancel()
		c.lcancel = nil
	}
}

func (c *Controller) State() model.ViewportState { return c.state }
func (c *Controller) Venues() []model.Venue       { return c.venues }
func (c *Controller) Err() error                  { return c.err }
func (c *Controller) Notice() string              { return c.notice }
func (c *Controller) Label() string               { return c.label }
func (c *Controller) Loading() bool               { return c.loading }
func (c *Controller) Located() bool               { return c.located }
func (c *Controller) SortKey() model.SortKey      { return c.sortKey }

// UserLocation is the located position, nil before the first fix.
func (c *Controller) UserLocation() *model.Coordinate { return c.user }
