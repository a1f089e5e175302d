package flights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/Domenick1991/flightreservation/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Search(ctx context.Context, search domain.FlightSearch) ([]domain.Flight, error)
	Create(ctx context.Context, input FlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, input FlightInput) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
}

// FlightCache holds the flight list. GetFlights returns the generation current at read
// time; SetFlights must be given that generation so a list read before an invalidation
// is never served after it.
type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, int64, error)
	SetFlights(ctx context.Context, generation int64, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type FlightInput struct {
	Code            string          `json:"code"`
	DepartureCityID int64           `json:"departure_city_id"`
	ArrivalCityID   int64           `json:"arrival_city_id"`
	DepartureTime   time.Time       `json:"departure_time"`
	ArrivalTime     time.Time       `json:"arrival_time"`
	TotalSeats      int             `json:"total_seats"`
	BasePrice       decimal.Decimal `json:"base_price"`
}

func (in FlightInput) validate() error {
	switch {
	case strings.TrimSpace(in.Code) == "":
		return fmt.Errorf("flight code is required: %w", domain.ErrInvalidArgument)
	case in.TotalSeats < 1:
		return fmt.Errorf("total seats must be positive, got %d: %w", in.TotalSeats, domain.ErrInvalidArgument)
	case in.BasePrice.IsNegative():
		return fmt.Errorf("base price must not be negative: %w", domain.ErrInvalidArgument)
	case !in.BasePrice.Equal(in.BasePrice.Round(2)):
		return fmt.Errorf("base price %s has more than two decimal places: %w", in.BasePrice, domain.ErrInvalidArgument)
	case in.DepartureTime.IsZero() || in.ArrivalTime.IsZero():
		return fmt.Errorf("departure and arrival times are required: %w", domain.ErrInvalidArgument)
	case in.ArrivalTime.Before(in.DepartureTime):
		return fmt.Errorf("arrival %s is before departure %s: %w",
			in.ArrivalTime.Format(time.RFC3339), in.DepartureTime.Format(time.RFC3339), domain.ErrConflict)
	}
	return nil
}

type FlightService struct {
	flights      repository.FlightRepository
	cities       repository.CityRepository
	reservations repository.ReservationRepository
	tx           repository.TxManager
	cache        FlightCache
	log          *zap.Logger
	tracer       trace.Tracer
}

func NewFlightService(
	flights repository.FlightRepository,
	cities repository.CityRepository,
	reservations repository.ReservationRepository,
	tx repository.TxManager,
	cache FlightCache,
	log *zap.Logger,
) *FlightService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FlightService{
		flights:      flights,
		cities:       cities,
		reservations: reservations,
		tx:           tx,
		cache:        cache,
		log:          log,
		tracer:       otel.Tracer("flightreservation/flights"),
	}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	var generation int64
	if s.cache != nil {
		cached, gen, err := s.cache.GetFlights(ctx)
		generation = gen
		if err != nil {
			s.log.Warn("flight cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.flights.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, generation, flights); err != nil {
			s.log.Warn("flight cache write failed", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.flights.GetByID(ctx, id)
}

func (s *FlightService) Search(ctx context.Context, search domain.FlightSearch) ([]domain.Flight, error) {
	ctx, span := s.tracer.Start(ctx, "flights.search", trace.WithAttributes(
		attribute.Int64("departure_city_id", search.DepartureCityID),
		attribute.Int64("arrival_city_id", search.ArrivalCityID),
	))
	defer span.End()

	if search.MinSeats < 0 {
		return nil, fmt.Errorf("min seats must not be negative: %w", domain.ErrInvalidArgument)
	}
	flights, err := s.flights.Search(ctx, search)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("results", len(flights)))
	return flights, nil
}

// Create adds a flight with every seat available.
func (s *FlightService) Create(ctx context.Context, input FlightInput) (*domain.Flight, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	flight := &domain.Flight{
		Code:           strings.TrimSpace(input.Code),
		DepartureTime:  input.DepartureTime,
		ArrivalTime:    input.ArrivalTime,
		TotalSeats:     input.TotalSeats,
		AvailableSeats: input.TotalSeats,
		BasePrice:      input.BasePrice,
	}
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.resolveCities(ctx, flight, input); err != nil {
			return err
		}
		return s.flights.Create(ctx, flight)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.Info("flight created", zap.Int64("flight_id", flight.ID), zap.String("code", flight.Code))
	return flight, nil
}

// Update replaces the flight's schedule, capacity and price. Available seats move by the
// change in capacity so that booked seats stay booked.
func (s *FlightService) Update(ctx context.Context, id int64, input FlightInput) (*domain.Flight, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var flight *domain.Flight
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.flights.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		available := current.AvailableSeats + input.TotalSeats - current.TotalSeats
		if available < 0 {
			return fmt.Errorf("flight %d has %d booked seats, capacity %d is too small: %w",
				id, current.BookedSeats(), input.TotalSeats, domain.ErrConflict)
		}

		current.Code = strings.TrimSpace(input.Code)
		current.DepartureTime = input.DepartureTime
		current.ArrivalTime = input.ArrivalTime
		current.TotalSeats = input.TotalSeats
		current.AvailableSeats = available
		current.BasePrice = input.BasePrice
		if err := s.resolveCities(ctx, current, input); err != nil {
			return err
		}
		if err := s.flights.Update(ctx, current); err != nil {
			return err
		}
		flight = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.Info("flight updated", zap.Int64("flight_id", id), zap.Int("total_seats", flight.TotalSeats))
	return flight, nil
}

// Delete removes a flight with no reservations.
func (s *FlightService) Delete(ctx context.Context, id int64) error {
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if _, err := s.flights.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := s.reservations.CountByFlight(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("flight %d has %d reservations: %w", id, n, domain.ErrConflict)
		}
		return s.flights.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info("flight deleted", zap.Int64("flight_id", id))
	return nil
}

func (s *FlightService) resolveCities(ctx context.Context, flight *domain.Flight, input FlightInput) error {
	departure, err := s.cities.GetByID(ctx, input.DepartureCityID)
	if err != nil {
		return fmt.Errorf("departure city: %w", err)
	}
	arrival, err := s.cities.GetByID(ctx, input.ArrivalCityID)
	if err != nil {
		return fmt.Errorf("arrival city: %w", err)
	}
	flight.DepartureCity = *departure
	flight.ArrivalCity = *arrival
	return nil
}

func (s *FlightService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.log.Warn("flight cache invalidation failed", zap.Error(err))
	}
}

var _ FlightUseCase = (*FlightService)(nil)
