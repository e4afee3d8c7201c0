package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	venues  map[string]model.Venue
	failing map[string]bool // any batch containing one of these ids fails
}

func newMemStore() *memStore {
	return &memStore{venues: map[string]model.Venue{}, failing: map[string]bool{}}
}

func (s *memStore) InsertBatch(_ context.Context, venues []model.Venue) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range venues {
		if s.failing[v.ID] {
			return 0, errors.New("disk full")
		}
	}
	for _, v := range venues {
		s.venues[v.ID] = v
	}
	return len(venues), nil
}

func (s *memStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.venues))
	for id := range s.venues {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MockGeocoder is a mock implementation of the Geocoder interface
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) AddressToCoordinate(ctx context.Context, text string) (*model.Coordinate, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(*model.Coordinate), args.Error(1)
}

func located(id string, lat, lng float64) model.Venue {
	return model.Venue{ID: id, Kind: model.KindTemple, Name: id, Coordinate: &model.Coordinate{Lat: lat, Lng: lng}}
}

func TestRun_StoresEveryBatch(t *testing.T) {
	// Setup
	var venues []model.Venue
	for i := range 25 {
		venues = append(venues, located(fmt.Sprintf("v-%02d", i), 37.5, 127.0))
	}
	store := newMemStore()
	var progress bytes.Buffer

	// Execute
	stats, err := Run(context.Background(), venues, store, Options{BatchSize: 10, Concurrency: 3, Progress: &progress}, zerolog.Nop())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Total)
	assert.Equal(t, int64(25), stats.Processed.Load())
	assert.Equal(t, int64(25), stats.Stored.Load())
	assert.Equal(t, int64(3), stats.BatchesRun.Load())
	assert.Zero(t, stats.Errors.Load())
	assert.Len(t, store.ids(), 25)
	assert.Contains(t, progress.String(), "[25/25 venues] 25 stored")
}

func TestRun_GeocodesMissingCoordinates(t *testing.T) {
	venues := []model.Venue{
		located("has-coord", 35.79, 129.332),
		{ID: "by-address", Name: "해인사", Address: "경남 합천군 가야면 해인사길 122"},
		{ID: "by-region", Name: "송광사", Region: "전남 순천시"},
		{ID: "abroad", Name: "Somewhere", Address: "Tokyo"},
		{ID: "unknown", Name: "무명암", Address: "어딘가"},
		{ID: "nothing", Name: "빈 기록"},
	}
	mockGeo := new(MockGeocoder)
	mockGeo.On("AddressToCoordinate", mock.Anything, "경남 합천군 가야면 해인사길 122").Return(&model.Coordinate{Lat: 35.8011, Lng: 128.098}, nil)
	mockGeo.On("AddressToCoordinate", mock.Anything, "전남 순천시 송광사").Return(&model.Coordinate{Lat: 35.0, Lng: 127.27}, nil)
	mockGeo.On("AddressToCoordinate", mock.Anything, "Tokyo").Return(&model.Coordinate{Lat: 35.68, Lng: 139.69}, nil)
	mockGeo.On("AddressToCoordinate", mock.Anything, "어딘가").Return((*model.Coordinate)(nil), nil)
	store := newMemStore()

	stats, err := Run(context.Background(), venues, store, Options{Geocoder: mockGeo, Area: geo.ServiceArea, BatchSize: 2}, zerolog.Nop())

	require.NoError(t, err)
	mockGeo.AssertExpectations(t)
	mockGeo.AssertNumberOfCalls(t, "AddressToCoordinate", 4)
	assert.Equal(t, int64(3), stats.Geocoded.Load())
	assert.Equal(t, int64(1), stats.OutOfArea.Load())
	assert.Equal(t, int64(3), stats.Unlocated.Load())
	assert.Equal(t, int64(6), stats.Stored.Load())

	require.NotNil(t, store.venues["by-address"].Coordinate)
	assert.Equal(t, 128.098, store.venues["by-address"].Coordinate.Lng)
	assert.Nil(t, store.venues["abroad"].Coordinate)
	assert.Nil(t, store.venues["unknown"].Coordinate)
	assert.Nil(t, venues[1].Coordinate, "input slice is not modified")
}

func TestRun_FailedBatchDoesNotStopOthers(t *testing.T) {
	venues := []model.Venue{
		located("a", 37.5, 127), located("b", 37.5, 127),
		located("c", 37.5, 127), located("d", 37.5, 127),
	}
	store := newMemStore()
	store.failing["c"] = true
	var batches [][]model.Venue
	var mu sync.Mutex

	stats, err := Run(context.Background(), venues, store, Options{
		BatchSize: 2,
		OnBatch: func(b []model.Venue) {
			mu.Lock()
			batches = append(batches, b)
			mu.Unlock()
		},
	}, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Errors.Load())
	assert.Equal(t, int64(2), stats.Stored.Load())
	assert.Equal(t, []string{"a", "b"}, store.ids())
	assert.Len(t, batches, 1)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := Run(ctx, []model.Venue{located("a", 37.5, 127)}, newMemStore(), Options{}, zerolog.Nop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Stored.Load())
}

func TestRun_ExternalStats(t *testing.T) {
	stats := &Stats{}

	got, err := Run(context.Background(), []model.Venue{located("a", 37.5, 127)}, newMemStore(), Options{Stats: stats}, zerolog.Nop())

	require.NoError(t, err)
	assert.Same(t, stats, got)
	assert.Equal(t, int64(1), stats.Stored.Load())
}
