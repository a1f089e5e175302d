package cities

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/Domenick1991/flightreservation/internal/repository"
	"go.uber.org/zap"
)

type CityUseCase interface {
	Create(ctx context.Context, input CityInput) (*domain.City, error)
	GetByID(ctx context.Context, id int64) (*domain.City, error)
	List(ctx context.Context) ([]domain.City, error)
	Update(ctx context.Context, id int64, input CityInput) (*domain.City, error)
	Delete(ctx context.Context, id int64) error
}

type CityInput struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

func (in CityInput) normalize() (CityInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Country = strings.TrimSpace(in.Country)
	if in.Name == "" {
		return in, fmt.Errorf("city name is required: %w", domain.ErrInvalidArgument)
	}
	if in.Country == "" {
		return in, fmt.Errorf("city country is required: %w", domain.ErrInvalidArgument)
	}
	return in, nil
}

type CityService struct {
	cities  repository.CityRepository
	flights repository.FlightRepository
	tx      repository.TxManager
	log     *zap.Logger
}

func NewCityService(cities repository.CityRepository, flights repository.FlightRepository, tx repository.TxManager, log *zap.Logger) *CityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CityService{cities: cities, flights: flights, tx: tx, log: log}
}

func (s *CityService) Create(ctx context.Context, input CityInput) (*domain.City, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}
	city := &domain.City{Name: input.Name, Country: input.Country}
	if err := s.cities.Create(ctx, city); err != nil {
		return nil, err
	}
	s.log.Info("city created", zap.Int64("city_id", city.ID), zap.String("name", city.Name))
	return city, nil
}

func (s *CityService) GetByID(ctx context.Context, id int64) (*domain.City, error) {
	return s.cities.GetByID(ctx, id)
}

func (s *CityService) List(ctx context.Context) ([]domain.City, error) {
	return s.cities.List(ctx)
}

func (s *CityService) Update(ctx context.Context, id int64, input CityInput) (*domain.City, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}
	city := &domain.City{ID: id, Name: input.Name, Country: input.Country}
	if err := s.cities.Update(ctx, city); err != nil {
		return nil, err
	}
	return city, nil
}

// Delete removes a city that no flight departs from or arrives at.
func (s *CityService) Delete(ctx context.Context, id int64) error {
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if _, err := s.cities.GetByID(ctx, id); err != nil {
			return err
		}
		n, err := s.flights.CountByCity(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("city %d is used by %d flights: %w", id, n, domain.ErrConflict)
		}
		return s.cities.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("city deleted", zap.Int64("city_id", id))
	return nil
}

var _ CityUseCase = (*CityService)(nil)
