package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightreservation/config"
	"github.com/Domenick1991/flightreservation/internal/database/migrations"
	"github.com/Domenick1991/flightreservation/internal/repository"
	"github.com/Domenick1991/flightreservation/internal/repository/memory"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Storage bundles the repositories of one backend with its transaction manager.
type Storage struct {
	Cities       repository.CityRepository
	Flights      repository.FlightRepository
	Reservations repository.ReservationRepository
	Tx           repository.TxManager

	pool *pgxpool.Pool
}

// OpenStorage connects the backend selected by cfg.Database.Driver.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*Storage, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return &Storage{
			Cities:       store.Cities(),
			Flights:      store.Flights(),
			Reservations: store.Reservations(),
			Tx:           store,
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.AutoMigrate {
		runner := migrations.NewRunner(pool, log)
		err := runner.Up()
		if cerr := runner.Close(); cerr != nil {
			log.Warn("failed to close migrator", zap.Error(cerr))
		}
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &Storage{
		Cities:       repository.NewCityRepository(pool),
		Flights:      repository.NewFlightRepository(pool),
		Reservations: repository.NewReservationRepository(pool),
		Tx:           manager.Must(trmpgx.NewDefaultFactory(pool)),
		pool:         pool,
	}, nil
}

// Pool is nil for the in-memory backend.
func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
