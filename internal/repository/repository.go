package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightreservation/internal/domain"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CityRepository interface {
	Create(ctx context.Context, city *domain.City) error
	GetByID(ctx context.Context, id int64) (*domain.City, error)
	List(ctx context.Context) ([]domain.City, error)
	Update(ctx context.Context, city *domain.City) error
	Delete(ctx context.Context, id int64) error
}

type FlightRepository interface {
	Create(ctx context.Context, flight *domain.Flight) error
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// GetByIDForUpdate reads the flight and locks its row until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Flight, error)
	List(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, search domain.FlightSearch) ([]domain.Flight, error)
	Update(ctx context.Context, flight *domain.Flight) error
	Delete(ctx context.Context, id int64) error
	CountByCity(ctx context.Context, cityID int64) (int, error)
	// DebitSeats takes n seats off the flight and returns the remaining count.
	DebitSeats(ctx context.Context, flightID int64, n int) (int, error)
	// CreditSeats gives n seats back and returns the new available count.
	CreditSeats(ctx context.Context, flightID int64, n int) (int, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByCode(ctx context.Context, code string) (*domain.Reservation, error)
	// GetByCodeForUpdate reads the reservation and locks its row until the surrounding
	// transaction ends.
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.Reservation, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]domain.Reservation, error)
	Update(ctx context.Context, reservation *domain.Reservation) error
	Delete(ctx context.Context, id int64) error
	CountByFlight(ctx context.Context, flightID int64) (int, error)
}

// TxManager runs fn as one atomic unit of work. Repositories called with the ctx passed
// to fn take part in the same transaction.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

// pgRepo resolves the transaction bound to ctx, falling back to the pool.
type pgRepo struct {
	db     *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

func newPGRepo(db *pgxpool.Pool) pgRepo {
	return pgRepo{db: db, getter: trmpgx.DefaultCtxGetter}
}

func (r pgRepo) conn(ctx context.Context) trmpgx.Tr {
	return r.getter.DefaultTrOrDB(ctx, r.db)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// translate maps driver errors onto domain error kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", what, pgErr.Message, domain.ErrConflict)
		case pgCheckViolation:
			return fmt.Errorf("%s: %s: %w", what, pgErr.Message, domain.ErrInvalidArgument)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
