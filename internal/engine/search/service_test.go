package search

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/model"
)

// MockVenueStore is a mock implementation of the VenueStore interface
type MockVenueStore struct {
	mock.Mock
}

func (m *MockVenueStore) ListVenues(ctx context.Context, kind model.Kind) ([]model.Venue, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).([]model.Venue), args.Error(1)
}

func (m *MockVenueStore) GetVenue(ctx context.Context, id string) (*model.Venue, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.Venue), args.Error(1)
}

// MockGeocoder is a mock implementation of the Geocoder interface
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) AddressToCoordinate(ctx context.Context, text string) (*model.Coordinate, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(*model.Coordinate), args.Error(1)
}

var cityHall = model.Coordinate{Lat: 37.5665, Lng: 126.9780}

// about 5 km due north of city hall
var fiveKmNorth = model.Coordinate{Lat: 37.5665 + 5/111.195, Lng: 126.9780}

func coord(lat, lng float64) *model.Coordinate {
	return &model.Coordinate{Lat: lat, Lng: lng}
}

func temples() []model.Venue {
	return []model.Venue{
		{ID: "jogyesa", Kind: model.KindTemple, Name: "조계사", Region: "서울특별시 종로구", Coordinate: coord(37.5740, 126.9816), PopularityScore: 300},
		{ID: "bongeunsa", Kind: model.KindTemple, Name: "봉은사", Region: "서울특별시 강남구", Coordinate: coord(37.5152, 127.0573), PopularityScore: 250},
		{ID: "bulguksa", Kind: model.KindTemple, Name: "불국사", Region: "경상북도 경주시", Coordinate: coord(35.79, 129.332), PopularityScore: 500},
		{ID: "nocoord", Kind: model.KindTemple, Name: "무명사", Region: "경북 경주시", PopularityScore: 10},
	}
}

func stays() []model.Venue {
	return []model.Venue{
		{ID: "stay-gyeongju", Kind: model.KindStay, Name: "골굴사 템플스테이", Region: "경북 경주시", Coordinate: coord(35.75, 129.35), PriceTier: intp(70000), PopularityScore: 40},
		{ID: "stay-seoul", Kind: model.KindStay, Name: "도심 템플스테이", Region: "서울 종로구", Coordinate: coord(37.5740, 126.9816), PriceTier: intp(50000), PopularityScore: 40},
	}
}

func newTestService(store VenueStore, geocoder Geocoder) *Service {
	return NewService(store, geocoder, Options{}, zerolog.Nop())
}

func TestService_Nearby_EndToEnd(t *testing.T) {
	mockStore := new(MockVenueStore)
	mockStore.On("ListVenues", mock.Anything, model.KindTemple).Return([]model.Venue{
		{ID: "here", Kind: model.KindTemple, Name: "시청 앞 법당", Coordinate: coord(cityHall.Lat, cityHall.Lng)},
		{ID: "away", Kind: model.KindTemple, Name: "북쪽 절", Coordinate: &fiveKmNorth},
	}, nil)
	svc := newTestService(mockStore, nil)

	venues, err := svc.Nearby(context.Background(), cityHall, geo.RadiusForZoom(3), model.KindTemple)

	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "here", venues[0].ID)
	assert.Equal(t, "0m", venues[0].FormattedDistance)
	assert.Equal(t, 0.0, *venues[0].DistanceKm)
	mockStore.AssertExpectations(t)
}

func TestService_Nearby_RadiusFilter(t *testing.T) {
	mockStore := new(MockVenueStore)
	mockStore.On("ListVenues", mock.Anything, model.KindTemple).Return(temples(), nil)
	svc := newTestService(mockStore, nil)

	for _, radius := range []float64{0.5, 2, 8, 16, 256, 512} {
		venues, err := svc.Nearby(context.Background(), cityHall, radius, model.KindTemple)
		require.NoError(t, err)

		kept := map[string]bool{}
		for _, v := range venues {
			kept[v.ID] = true
			require.NotNil(t, v.DistanceKm)
			assert.LessOrEqual(t, *v.DistanceKm, radius)
			assert.Equal(t, geo.FormatDistance(*v.DistanceKm), v.FormattedDistance)
		}
		for _, v := range temples() {
			if kept[v.ID] || v.Coordinate == nil {
				continue
			}
			assert.Greater(t, geo.DistanceKm(cityHall, *v.Coordinate), radius, "%s excluded at %.1fkm", v.ID, radius)
		}
		assert.False(t, kept["nocoord"])
	}
}

func TestService_Nearby_AllKinds(t *testing.T) {
	mockStore := new(MockVenueStore)
	mockStore.On("ListVenues", mock.Anything, model.KindTemple).Return(temples(), nil)
	mockStore.On("ListVenues", mock.Anything, model.KindStay).Return(stays(), nil)
	svc := newTestService(mockStore, nil)

	venues, err := svc.Nearby(context.Background(), cityHall, 2, model.KindAll)

	require.NoError(t, err)
	assert.Equal(t, []string{"jogyesa", "stay-seoul"}, ids(venues))
	mockStore.AssertExpectations(t)
}

func TestService_Nearby_StoreFailure(t *testing.T) {
	mockStore := new(MockVenueStore)
	mockStore.On("ListVenues", mock.Anything, model.KindTemple).Return([]model.Venue(nil), errors.New("connection reset"))
	svc := newTestService(mockStore, nil)

	venues, err := svc.Nearby(context.Background(), cityHall, 2, model.KindTemple)

	assert.NotNil(t, venues)
	assert.Empty(t, venues)
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.True(t, qerr.Retryable())
}

func TestService_Nearby_InvalidRadius(t *testing.T) {
	svc := newTestService(new(MockVenueStore), nil)

	venues, err := svc.Nearby(context.Background(), cityHall, 0, model.KindTemple)

	assert.Empty(t, venues)
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestService_Search(t *testing.T) {
	tests := []struct {
		name     string
		query    model.SearchQuery
		expected []string
	}{
		{
			name:     "free text by sub-region",
			query:    model.SearchQuery{FreeText: "경주", Kind: model.KindTemple, SortKey: model.SortPopularity},
			expected: []string{"bulguksa", "nocoord"},
		},
		{
			name:     "free text by name",
			query:    model.SearchQuery{FreeText: "봉은", Kind: model.KindTemple},
			expected: []string{"bongeunsa"},
		},
		{
			name:     "free text with center sorts by distance, missing coordinate last",
			query:    model.SearchQuery{FreeText: "경북", Kind: model.KindTemple, Center: &cityHall, SortKey: model.SortDistance},
			expected: []string{"bulguksa", "nocoord"},
		},
		{
			name:     "region filter full name",
			query:    model.SearchQuery{RegionFilter: "서울특별시", Kind: model.KindTemple, SortKey: model.SortPopularity},
			expected: []string{"jogyesa", "bongeunsa"},
		},
		{
			name:     "region filter across kinds",
			query:    model.SearchQuery{RegionFilter: "경상북도", Kind: model.KindAll, SortKey: model.SortPopularity},
			expected: []string{"bulguksa", "stay-gyeongju", "nocoord"},
		},
		{
			name:     "browse with radius",
			query:    model.SearchQuery{Center: &cityHall, RadiusKm: 16, Kind: model.KindTemple, SortKey: model.SortDistance},
			expected: []string{"jogyesa", "bongeunsa"},
		},
		{
			name:     "browse all without center",
			query:    model.SearchQuery{Kind: model.KindTemple, SortKey: model.SortPopularity},
			expected: []string{"bulguksa", "jogyesa", "bongeunsa", "nocoord"},
		},
		{
			name:     "price ascending",
			query:    model.SearchQuery{Kind: model.KindStay, SortKey: model.SortPriceAscending},
			expected: []string{"stay-seoul", "stay-gyeongju"},
		},
		{
			name:     "no match",
			query:    model.SearchQuery{FreeText: "송광사", Kind: model.KindTemple},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mockStore := new(MockVenueStore)
			mockStore.On("ListVenues", mock.Anything, model.KindTemple).Return(temples(), nil).Maybe()
			mockStore.On("ListVenues", mock.Anything, model.KindStay).Return(stays(), nil).Maybe()
			svc := newTestService(mockStore, nil)

			// Execute
			res, err := svc.Search(context.Background(), tt.query)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(res.Venues))
			assert.False(t, res.Degraded)
		})
	}
}

func TestService_Search_StoreFailure(t *testing.T) {
	mockStore := new(MockVenueStore)
	mockStore.On("ListVenues", mock.Anything, model.KindTemple).Return(temples(), nil)
	mockStore.On("ListVenues", mock.Anything, model.KindStay).Return([]model.Venue(nil), errors.New("timeout"))
	svc := newTestService(mockStore, nil)

	res, err := svc.Search(context.Background(), model.SearchQuery{FreeText: "경주", Kind: model.KindAll})

	var qerr *QueryError
	assert.ErrorAs(t, err, &qerr)
	assert.NotNil(t, res.Venues)
	assert.Empty(t, res.Venues)
}

func TestService_AddressSearch(t *testing.T) {
	gyeongju := coord(35.78, 129.33)

	tests := []struct {
		name         string
		geoResult    *model.Coordinate
		geoErr       error
		expected     []string
		wantDegraded bool
	}{
		{
			name:      "geocoded address searches around the point",
			geoResult: gyeongju,
			expected:  []string{"bulguksa"},
		},
		{
			name:         "unknown address falls back to text",
			geoResult:    nil,
			expected:     []string{"bulguksa", "nocoord"},
			wantDegraded: true,
		},
		{
			name:         "geocoder error falls back to text",
			geoErr:       errors.New("503"),
			expected:     []string{"bulguksa", "nocoord"},
			wantDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(MockVenueStore)
			mockStore.On("ListVenues", mock.Anything, model.KindTemple).Return(temples(), nil)
			mockGeo := new(MockGeocoder)
			mockGeo.On("AddressToCoordinate", mock.Anything, "경주").Return(tt.geoResult, tt.geoErr)
			svc := newTestService(mockStore, mockGeo)

			res, err := svc.AddressSearch(context.Background(), "경주", 4, model.SortPopularity, model.KindTemple)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(res.Venues))
			assert.Equal(t, tt.wantDegraded, res.Degraded)
			assert.Equal(t, tt.wantDegraded, res.Notice != "")
			if !tt.wantDegraded {
				assert.Equal(t, tt.geoResult, res.Center)
			}
			mockGeo.AssertExpectations(t)
		})
	}
}

func TestService_AddressSearch_NoGeocoder(t *testing.T) {
	mockStore := new(MockVenueStore)
	mockStore.On("ListVenues", mock.Anything, model.KindTemple).Return(temples(), nil)
	svc := newTestService(mockStore, nil)

	res, err := svc.AddressSearch(context.Background(), "봉은사", 0, model.SortDistance, model.KindTemple)

	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, []string{"bongeunsa"}, ids(res.Venues))
}

func TestService_Venue(t *testing.T) {
	mockStore := new(MockVenueStore)
	v := temples()[0]
	mockStore.On("GetVenue", mock.Anything, "jogyesa").Return(&v, nil)
	mockStore.On("GetVenue", mock.Anything, "missing").Return((*model.Venue)(nil), errors.New("venue not found"))
	svc := newTestService(mockStore, nil)

	got, err := svc.Venue(context.Background(), "jogyesa", &cityHall)
	require.NoError(t, err)
	require.NotNil(t, got.DistanceKm)
	assert.Less(t, *got.DistanceKm, 1.0)
	assert.Equal(t, geo.FormatDistance(*got.DistanceKm), got.FormattedDistance)
	assert.Nil(t, v.DistanceKm)

	_, err = svc.Venue(context.Background(), "missing", nil)
	assert.Error(t, err)
}
