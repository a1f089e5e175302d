package flights

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/Domenick1991/flightreservation/internal/repository"
	"github.com/Domenick1991/flightreservation/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Search(ctx context.Context, search domain.FlightSearch) ([]domain.Flight, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightRepository) CountByCity(ctx context.Context, cityID int64) (int, error) {
	args := m.Called(ctx, cityID)
	return args.Int(0), args.Error(1)
}

func (m *MockFlightRepository) DebitSeats(ctx context.Context, flightID int64, n int) (int, error) {
	args := m.Called(ctx, flightID, n)
	return args.Int(0), args.Error(1)
}

func (m *MockFlightRepository) CreditSeats(ctx context.Context, flightID int64, n int) (int, error) {
	args := m.Called(ctx, flightID, n)
	return args.Int(0), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Get(1).(int64), args.Error(2)
}

func (m *MockCache) SetFlights(ctx context.Context, generation int64, flights []domain.Flight) error {
	args := m.Called(ctx, generation, flights)
	return args.Error(0)
}

func (m *MockCache) InvalidateFlights(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func sampleFlights() []domain.Flight {
	return []domain.Flight{
		{
			ID:             4,
			Code:           "SU1234",
			DepartureCity:  domain.City{ID: 1, Name: "Moscow", Country: "Russia"},
			ArrivalCity:    domain.City{ID: 2, Name: "Saint Petersburg", Country: "Russia"},
			DepartureTime:  time.Now(),
			ArrivalTime:    time.Now().Add(time.Hour),
			TotalSeats:     150,
			AvailableSeats: 149,
			BasePrice:      decimal.RequireFromString("5000.00"),
		},
	}
}

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockRepo, nil, nil, nil, mockCache, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), int64(3), nil).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, int64(3), flights).Return(nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)

	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockRepo, nil, nil, nil, mockCache, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(flights, int64(3), nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)

	mockCache.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "List")
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_List_CacheError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockRepo, nil, nil, nil, mockCache, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), int64(0), errors.New("cache error")).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, int64(0), flights).Return(errors.New("cache down")).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)

	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_RepositoryError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockRepo, nil, nil, nil, mockCache, nil)
	ctx := context.Background()

	expectedErr := errors.New("database error")
	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), int64(3), nil).Once()
	mockRepo.On("List", ctx).Return([]domain.Flight{}, expectedErr).Once()

	result, err := service.List(ctx)

	assert.Nil(t, result)
	assert.Equal(t, expectedErr, err)

	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil, nil, nil, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockRepo.On("List", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_GetByID(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil, nil, nil, nil)
	ctx := context.Background()
	flight := &sampleFlights()[0]

	mockRepo.On("GetByID", ctx, int64(4)).Return(flight, nil).Once()
	mockRepo.On("GetByID", ctx, int64(999)).Return(nil, domain.ErrNotFound).Once()

	result, err := service.GetByID(ctx, 4)
	assert.NoError(t, err)
	assert.Equal(t, flight, result)

	result, err = service.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, result)

	mockRepo.AssertExpectations(t)
}

func TestFlightService_Search(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil, nil, nil, nil)
	ctx := context.Background()

	search := domain.FlightSearch{DepartureCityID: 1, ArrivalCityID: 2}
	mockRepo.On("Search", mock.Anything, search).Return(sampleFlights(), nil).Once()

	result, err := service.Search(ctx, search)
	assert.NoError(t, err)
	assert.Len(t, result, 1)

	_, err = service.Search(ctx, domain.FlightSearch{MinSeats: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	mockRepo.AssertExpectations(t)
}

type fixture struct {
	service  *FlightService
	store    *memory.Store
	cache    *MockCache
	from, to *domain.City
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	cache := &MockCache{}
	ctx := context.Background()

	from := &domain.City{Name: "Moscow", Country: "Russia"}
	to := &domain.City{Name: "Kazan", Country: "Russia"}
	require.NoError(t, store.Cities().Create(ctx, from))
	require.NoError(t, store.Cities().Create(ctx, to))

	return &fixture{
		service: NewFlightService(store.Flights(), store.Cities(), store.Reservations(), store, cache, nil),
		store:   store,
		cache:   cache,
		from:    from,
		to:      to,
	}
}

func (f *fixture) input() FlightInput {
	dep := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	return FlightInput{
		Code:            "SU100",
		DepartureCityID: f.from.ID,
		ArrivalCityID:   f.to.ID,
		DepartureTime:   dep,
		ArrivalTime:     dep.Add(90 * time.Minute),
		TotalSeats:      100,
		BasePrice:       decimal.RequireFromString("200.00"),
	}
}

func TestFlightService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.On("InvalidateFlights", mock.Anything).Return(nil).Once()

	flight, err := f.service.Create(ctx, f.input())
	require.NoError(t, err)
	assert.Equal(t, 100, flight.AvailableSeats)
	assert.Equal(t, "Kazan", flight.ArrivalCity.Name)
	f.cache.AssertExpectations(t)

	testCases := []struct {
		name   string
		modify func(in *FlightInput)
		want   error
	}{
		{"empty code", func(in *FlightInput) { in.Code = " " }, domain.ErrInvalidArgument},
		{"zero seats", func(in *FlightInput) { in.TotalSeats = 0 }, domain.ErrInvalidArgument},
		{"negative price", func(in *FlightInput) { in.BasePrice = decimal.NewFromInt(-1) }, domain.ErrInvalidArgument},
		{"fractional cents", func(in *FlightInput) { in.BasePrice = decimal.RequireFromString("10.001") }, domain.ErrInvalidArgument},
		{"arrival before departure", func(in *FlightInput) { in.ArrivalTime = in.DepartureTime.Add(-time.Minute) }, domain.ErrConflict},
		{"unknown city", func(in *FlightInput) { in.ArrivalCityID = 999 }, domain.ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := f.input()
			tc.modify(&in)
			_, err := f.service.Create(ctx, in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFlightService_Update_ShiftsAvailableSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.On("InvalidateFlights", mock.Anything).Return(nil)

	flight, err := f.service.Create(ctx, f.input())
	require.NoError(t, err)
	_, err = f.store.Flights().DebitSeats(ctx, flight.ID, 30)
	require.NoError(t, err)

	in := f.input()
	in.TotalSeats = 120
	in.BasePrice = decimal.RequireFromString("250.00")
	updated, err := f.service.Update(ctx, flight.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 90, updated.AvailableSeats)
	assert.Equal(t, 30, updated.BookedSeats())

	in.TotalSeats = 29
	_, err = f.service.Update(ctx, flight.ID, in)
	assert.ErrorIs(t, err, domain.ErrConflict)

	in.TotalSeats = 30
	updated, err = f.service.Update(ctx, flight.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableSeats)

	_, err = f.service.Update(ctx, 999, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFlightService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.On("InvalidateFlights", mock.Anything).Return(nil)

	flight, err := f.service.Create(ctx, f.input())
	require.NoError(t, err)

	require.NoError(t, f.store.Reservations().Create(ctx, &domain.Reservation{
		Code: "AAAA0001", SeatsReserved: 1, FlightID: flight.ID, ReservationDate: time.Now(),
	}))
	assert.ErrorIs(t, f.service.Delete(ctx, flight.ID), domain.ErrConflict)

	res, err := f.store.Reservations().GetByCode(ctx, "AAAA0001")
	require.NoError(t, err)
	require.NoError(t, f.store.Reservations().Delete(ctx, res.ID))

	assert.NoError(t, f.service.Delete(ctx, flight.ID))
	assert.ErrorIs(t, f.service.Delete(ctx, flight.ID), domain.ErrNotFound)
}

// lockingReads records which flight reads went through the row-locking path.
type lockingReads struct {
	repository.FlightRepository
	mu       sync.Mutex
	locked   int
	unlocked int
}

func (r *lockingReads) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	r.mu.Lock()
	r.unlocked++
	r.mu.Unlock()
	return r.FlightRepository.GetByID(ctx, id)
}

func (r *lockingReads) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Flight, error) {
	r.mu.Lock()
	r.locked++
	r.mu.Unlock()
	return r.FlightRepository.GetByIDForUpdate(ctx, id)
}

func TestFlightService_UpdateAndDelete_LockFlightRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.On("InvalidateFlights", mock.Anything).Return(nil)

	reads := &lockingReads{FlightRepository: f.store.Flights()}
	service := NewFlightService(reads, f.store.Cities(), f.store.Reservations(), f.store, f.cache, nil)

	flight, err := service.Create(ctx, f.input())
	require.NoError(t, err)

	in := f.input()
	in.TotalSeats = 110
	_, err = service.Update(ctx, flight.ID, in)
	require.NoError(t, err)
	require.NoError(t, service.Delete(ctx, flight.ID))

	assert.Equal(t, 2, reads.locked)
	assert.Zero(t, reads.unlocked)
}

func TestFlightService_Update_ConcurrentWithBookingsConservesSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.On("InvalidateFlights", mock.Anything).Return(nil)

	flight, err := f.service.Create(ctx, f.input())
	require.NoError(t, err)

	const bookings = 20
	var wg sync.WaitGroup
	for i := 0; i < bookings; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.store.Flights().DebitSeats(ctx, flight.ID, 1)
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			in := f.input()
			in.TotalSeats = 100 + i%2
			_, err := f.service.Update(ctx, flight.ID, in)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.store.Flights().GetByID(ctx, flight.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings, got.TotalSeats-got.AvailableSeats)
}
