package viewport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/location"
	"github.com/rendis/templestay/internal/model"
)

var (
	cityHall = model.Coordinate{Lat: 37.5665, Lng: 126.9780}
	gangnam  = model.Coordinate{Lat: 37.4979, Lng: 127.0276}
)

type fakeQuerier struct {
	mu       sync.Mutex
	byCenter map[model.Coordinate][]model.Venue
	err      error
	honorCtx bool
	calls    []float64
}

func (f *fakeQuerier) Nearby(ctx context.Context, center model.Coordinate, radiusKm float64, kind model.Kind) ([]model.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, radiusKm)
	if f.honorCtx && ctx.Err() != nil {
		return []model.Venue{}, ctx.Err()
	}
	if f.err != nil {
		return []model.Venue{}, f.err
	}
	return append([]model.Venue(nil), f.byCenter[center]...), nil
}

func (f *fakeQuerier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLocator struct {
	fix location.Fix
}

func (f fakeLocator) CurrentLocation(context.Context) location.Fix { return f.fix }

type fakeLabeler struct {
	names map[model.Coordinate]string
}

func (f fakeLabeler) CoordinateToAddress(ctx context.Context, c model.Coordinate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name, ok := f.names[c]; ok {
		return name, nil
	}
	return "", errors.New("no address")
}

// recordingSurface keeps the last state it was given and the order of calls.
type recordingSurface struct {
	calls    []string
	markers  []Marker
	viewport model.ViewportState
}

func (s *recordingSurface) SetMarkers(markers []Marker) {
	s.calls = append(s.calls, "set")
	s.markers = markers
}

func (s *recordingSurface) ClearMarkers() {
	s.calls = append(s.calls, "clear")
	s.markers = nil
}

func (s *recordingSurface) SetViewport(state model.ViewportState) {
	s.calls = append(s.calls, "viewport")
	s.viewport = state
}

// run executes cmd and flattens batches into the messages they produce.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// drive feeds msg to c and keeps feeding whatever the commands produce.
func drive(c *Controller, msg tea.Msg) {
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		queue = append(queue, run(c.Update(next))...)
	}
}

func venue(id string, c model.Coordinate, popularity int) model.Venue {
	return model.Venue{ID: id, Kind: model.KindTemple, Name: id, Coordinate: &c, PopularityScore: popularity}
}

func newController(q Querier, l Locator, lb Labeler, opts Options) (*Controller, *recordingSurface) {
	surface := &recordingSurface{}
	return New(q, l, lb, surface, opts, zerolog.Nop()), surface
}

func TestController_LocateRunsFirstQuery(t *testing.T) {
	// Setup
	q := &fakeQuerier{byCenter: map[model.Coordinate][]model.Venue{
		cityHall: {venue("jogyesa", model.Coordinate{Lat: 37.574, Lng: 126.9816}, 10)},
	}}
	c, surface := newController(q, fakeLocator{fix: location.Fix{Coordinate: cityHall}}, nil, Options{})

	// Execute
	drive(c, c.Init()())

	// Assert
	assert.True(t, c.Located())
	assert.Equal(t, model.ViewportState{Center: cityHall, ZoomLevel: geo.DefaultZoom, RadiusKm: 2}, c.State())
	assert.Equal(t, c.State(), surface.viewport)
	assert.Equal(t, []string{"viewport", "clear", "set", "clear", "set"}, surface.calls)
	require.Len(t, surface.markers, 3)
	assert.True(t, surface.markers[0].User)
	assert.True(t, surface.markers[1].Center)
	assert.Equal(t, cityHall, surface.markers[1].Coordinate)
	assert.Equal(t, "jogyesa", surface.markers[2].ID)
	assert.Equal(t, []float64{2}, q.calls)
	assert.False(t, c.Loading())
	assert.Empty(t, c.Notice())
}

func TestController_FallbackNoticeIsKept(t *testing.T) {
	q := &fakeQuerier{}
	fix := location.Fix{Coordinate: location.DefaultCenter, Fallback: true, Condition: location.ConditionPermissionDenied}
	c, _ := newController(q, fakeLocator{fix: fix}, nil, Options{})

	drive(c, LocateMsg{})

	assert.Equal(t, fix.Notice(), c.Notice())
	assert.Equal(t, location.DefaultCenter, c.State().Center)
	assert.Equal(t, 1, q.callCount())
	assert.Empty(t, c.Venues())
}

func TestController_NilLocatorUsesCurrentCenter(t *testing.T) {
	q := &fakeQuerier{}
	zoom := 5
	c, _ := newController(q, nil, nil, Options{Zoom: &zoom})

	drive(c, LocateMsg{})

	assert.Equal(t, location.DefaultCenter, *c.UserLocation())
	assert.Equal(t, []float64{8}, q.calls)
}

func TestController_InitialZoom(t *testing.T) {
	zero, seven := 0, 7
	tests := []struct {
		name       string
		zoom       *int
		wantLevel  int
		wantRadius float64
	}{
		{name: "unset uses the default", zoom: nil, wantLevel: geo.DefaultZoom, wantRadius: 2},
		{name: "zero is outside the table", zoom: &zero, wantLevel: 0, wantRadius: geo.WideRadiusKm},
		{name: "configured level", zoom: &seven, wantLevel: 7, wantRadius: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			q := &fakeQuerier{}
			c, _ := newController(q, nil, nil, Options{Zoom: tt.zoom})

			// Execute
			drive(c, LocateMsg{})

			// Assert
			assert.Equal(t, tt.wantLevel, c.State().ZoomLevel)
			assert.Equal(t, tt.wantRadius, c.State().RadiusKm)
			assert.Equal(t, []float64{tt.wantRadius}, q.calls)
		})
	}
}

func TestController_Pan(t *testing.T) {
	q := &fakeQuerier{byCenter: map[model.Coordinate][]model.Venue{
		gangnam: {venue("bongeunsa", model.Coordinate{Lat: 37.5152, Lng: 127.0573}, 5)},
	}}
	c, surface := newController(q, fakeLocator{fix: location.Fix{Coordinate: cityHall}}, nil, Options{})
	drive(c, LocateMsg{})

	drive(c, PanMsg{Center: gangnam})

	assert.Equal(t, gangnam, c.State().Center)
	assert.Equal(t, 2.0, c.State().RadiusKm)
	assert.Equal(t, []string{"bongeunsa"}, venueIDs(c.Venues()))
	assert.Equal(t, cityHall, *c.UserLocation(), "panning does not move the user marker")
	assert.Equal(t, gangnam, surface.viewport.Center)
	center := centerMarker(t, surface.markers)
	assert.Equal(t, gangnam, center.Coordinate, "the center marker follows the pan")

	// same center and invalid centers are ignored
	assert.Nil(t, c.Update(PanMsg{Center: gangnam}))
	assert.Nil(t, c.Update(PanMsg{Center: model.Coordinate{Lat: 120, Lng: 0}}))
	assert.Equal(t, 2, q.callCount())
}

func TestController_Zoom(t *testing.T) {
	q := &fakeQuerier{}
	c, _ := newController(q, fakeLocator{fix: location.Fix{Coordinate: cityHall}}, nil, Options{})
	drive(c, LocateMsg{})
	require.Equal(t, 1, q.callCount())

	tests := []struct {
		name       string
		level      int
		wantRadius float64
		wantQuery  bool
	}{
		{name: "same level keeps radius", level: 3, wantRadius: 2, wantQuery: false},
		{name: "zoom out", level: 5, wantRadius: 8, wantQuery: true},
		{name: "zoom in", level: 1, wantRadius: 0.5, wantQuery: true},
		{name: "outside the table", level: 12, wantRadius: 256, wantQuery: true},
		{name: "another level with the same radius", level: 0, wantRadius: 256, wantQuery: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := q.callCount()

			drive(c, ZoomMsg{Level: tt.level})

			assert.Equal(t, tt.wantRadius, c.State().RadiusKm)
			assert.Equal(t, tt.level, c.State().ZoomLevel)
			if tt.wantQuery {
				assert.Equal(t, before+1, q.callCount())
			} else {
				assert.Equal(t, before, q.callCount())
			}
		})
	}
}

func TestController_StaleResponseIsDropped(t *testing.T) {
	// Setup
	jongno := model.Coordinate{Lat: 37.574, Lng: 126.9816}
	q := &fakeQuerier{byCenter: map[model.Coordinate][]model.Venue{
		jongno:  {venue("jogyesa", jongno, 10)},
		gangnam: {venue("bongeunsa", model.Coordinate{Lat: 37.5152, Lng: 127.0573}, 5)},
	}}
	c, surface := newController(q, nil, nil, Options{})

	// Execute: two viewport changes in flight, the second answers first
	first := c.Update(PanMsg{Center: jongno})
	second := c.Update(PanMsg{Center: gangnam})
	for _, m := range run(second) {
		c.Update(m)
	}
	for _, m := range run(first) {
		c.Update(m)
	}

	// Assert
	assert.Equal(t, []string{"bongeunsa"}, venueIDs(c.Venues()))
	require.Len(t, surface.markers, 2)
	assert.Equal(t, gangnam, centerMarker(t, surface.markers).Coordinate)
	assert.Equal(t, "bongeunsa", surface.markers[1].ID)
	assert.False(t, c.Loading())
}

func TestController_LateOlderResponseStillAppliesWhenNewer(t *testing.T) {
	q := &fakeQuerier{byCenter: map[model.Coordinate][]model.Venue{
		gangnam: {venue("bongeunsa", model.Coordinate{Lat: 37.5152, Lng: 127.0573}, 5)},
	}}
	c, _ := newController(q, nil, nil, Options{})

	first := c.Update(PanMsg{Center: gangnam})
	second := c.Update(ZoomMsg{Level: 5})
	for _, m := range run(first) {
		c.Update(m)
	}
	assert.True(t, c.Loading(), "the latest query is still pending")
	assert.Equal(t, []string{"bongeunsa"}, venueIDs(c.Venues()))

	for _, m := range run(second) {
		c.Update(m)
	}
	assert.False(t, c.Loading())
}

func TestController_SupersededQueryIsCancelled(t *testing.T) {
	q := &fakeQuerier{honorCtx: true, byCenter: map[model.Coordinate][]model.Venue{
		gangnam: {venue("bongeunsa", model.Coordinate{Lat: 37.5152, Lng: 127.0573}, 5)},
	}}
	c, _ := newController(q, nil, nil, Options{})

	first := c.Update(ZoomMsg{Level: 6})
	second := c.Update(PanMsg{Center: gangnam})

	firstMsgs := run(first)
	require.Len(t, firstMsgs, 1)
	res := firstMsgs[0].(ResultsMsg)
	assert.ErrorIs(t, res.Err, context.Canceled)

	c.Update(res)
	assert.NoError(t, c.Err(), "a cancelled superseded query is not surfaced")

	for _, m := range run(second) {
		c.Update(m)
	}
	assert.NoError(t, c.Err())
	assert.Equal(t, []string{"bongeunsa"}, venueIDs(c.Venues()))
}

func TestController_QueryFailure(t *testing.T) {
	q := &fakeQuerier{err: errors.New("store unreachable")}
	c, surface := newController(q, fakeLocator{fix: location.Fix{Coordinate: cityHall}}, nil, Options{})

	drive(c, LocateMsg{})

	assert.Error(t, c.Err())
	assert.NotNil(t, c.Venues())
	assert.Empty(t, c.Venues())
	require.Len(t, surface.markers, 2)
	assert.True(t, surface.markers[0].User)
	assert.True(t, surface.markers[1].Center)
}

func TestController_Debounce(t *testing.T) {
	q := &fakeQuerier{}
	c, _ := newController(q, nil, nil, Options{Debounce: 5 * time.Millisecond})

	tick1 := c.Update(PanMsg{Center: gangnam})
	tick2 := c.Update(ZoomMsg{Level: 4})
	require.NotNil(t, tick1)
	require.NotNil(t, tick2)

	// the first tick belongs to an older generation
	for _, m := range run(tick1) {
		assert.Nil(t, c.Update(m))
	}
	assert.Equal(t, 0, q.callCount())

	for _, m := range run(tick2) {
		drive(c, m)
	}
	assert.Equal(t, []float64{4}, q.calls)
}

func TestController_Sort(t *testing.T) {
	near := model.Coordinate{Lat: 37.567, Lng: 126.978}
	far := model.Coordinate{Lat: 37.575, Lng: 126.978}
	q := &fakeQuerier{byCenter: map[model.Coordinate][]model.Venue{
		cityHall: {venue("far", far, 50), venue("near", near, 10)},
	}}
	c, _ := newController(q, fakeLocator{fix: location.Fix{Coordinate: cityHall}}, nil, Options{SortKey: model.SortPopularity})
	drive(c, LocateMsg{})
	assert.Equal(t, []string{"far", "near"}, venueIDs(c.Venues()))

	c.Update(SortMsg{Key: model.SortPriceAscending})
	assert.Equal(t, []string{"far", "near"}, venueIDs(c.Venues()), "ties keep their order")
	assert.Equal(t, model.SortPriceAscending, c.SortKey())
}

func TestController_Label(t *testing.T) {
	lb := fakeLabeler{names: map[model.Coordinate]string{cityHall: "서울특별시 중구 세종대로"}}
	c, _ := newController(&fakeQuerier{}, fakeLocator{fix: location.Fix{Coordinate: cityHall}}, lb, Options{})

	drive(c, LocateMsg{})
	assert.Equal(t, "서울특별시 중구 세종대로", c.Label())

	drive(c, PanMsg{Center: gangnam})
	assert.Empty(t, c.Label(), "failed lookups clear the label")

	c.Update(LabelMsg{Seq: 1, Label: "stale"})
	assert.Empty(t, c.Label())
}

func TestController_LabelArrivesAfterResults(t *testing.T) {
	// Setup
	lb := fakeLabeler{names: map[model.Coordinate]string{cityHall: "서울특별시 중구 세종대로"}}
	c, _ := newController(&fakeQuerier{}, fakeLocator{fix: location.Fix{Coordinate: cityHall}}, lb, Options{})
	located := run(c.Update(LocateMsg{}))
	require.Len(t, located, 1)
	batch := c.Update(located[0])
	require.NotNil(t, batch)
	cmds, ok := batch().(tea.BatchMsg)
	require.True(t, ok)
	require.Len(t, cmds, 2)

	// Execute: the local query answers before the reverse lookup
	c.Update(cmds[0]())
	require.False(t, c.Loading())
	c.Update(cmds[1]())

	// Assert
	assert.Equal(t, "서울특별시 중구 세종대로", c.Label())
}

func TestController_CloseCancelsLabel(t *testing.T) {
	lb := fakeLabeler{names: map[model.Coordinate]string{cityHall: "서울특별시 중구 세종대로"}}
	c, _ := newController(&fakeQuerier{}, fakeLocator{fix: location.Fix{Coordinate: cityHall}}, lb, Options{})
	located := run(c.Update(LocateMsg{}))
	require.Len(t, located, 1)
	cmds, ok := c.Update(located[0])().(tea.BatchMsg)
	require.True(t, ok)

	c.Close()
	c.Update(cmds[1]())

	assert.Empty(t, c.Label())
}

func centerMarker(t *testing.T, markers []Marker) Marker {
	t.Helper()
	for _, m := range markers {
		if m.Center {
			return m
		}
	}
	require.FailNow(t, "no center marker")
	return Marker{}
}

func venueIDs(venues []model.Venue) []string {
	out := make([]string, 0, len(venues))
	for _, v := range venues {
		out = append(out, v.ID)
	}
	return out
}
