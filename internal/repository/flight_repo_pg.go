package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flightColumns = `f.id, f.code, f.departure_time, f.arrival_time, f.total_seats, f.available_seats, f.base_price, f.created_at, f.updated_at,
	dc.id, dc.name, dc.country, ac.id, ac.name, ac.country`

const flightFrom = ` FROM flights f
	JOIN cities dc ON dc.id = f.departure_city_id
	JOIN cities ac ON ac.id = f.arrival_city_id`

type PGFlightRepository struct {
	pgRepo
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{pgRepo: newPGRepo(db)}
}

func scanFlight(row rowScanner, f *domain.Flight) error {
	return row.Scan(&f.ID, &f.Code, &f.DepartureTime, &f.ArrivalTime, &f.TotalSeats, &f.AvailableSeats, &f.BasePrice, &f.CreatedAt, &f.UpdatedAt,
		&f.DepartureCity.ID, &f.DepartureCity.Name, &f.DepartureCity.Country,
		&f.ArrivalCity.ID, &f.ArrivalCity.Name, &f.ArrivalCity.Country)
}

func (r *PGFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	err := r.conn(ctx).QueryRow(ctx, `INSERT INTO flights (code, departure_city_id, arrival_city_id, departure_time, arrival_time, total_seats, available_seats, base_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		flight.Code, flight.DepartureCity.ID, flight.ArrivalCity.ID, flight.DepartureTime, flight.ArrivalTime, flight.TotalSeats, flight.AvailableSeats, flight.BasePrice).
		Scan(&flight.ID, &flight.CreatedAt, &flight.UpdatedAt)
	return translate(err, "create flight")
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return r.get(ctx, `SELECT `+flightColumns+flightFrom+` WHERE f.id=$1`, id)
}

func (r *PGFlightRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Flight, error) {
	return r.get(ctx, `SELECT `+flightColumns+flightFrom+` WHERE f.id=$1 FOR UPDATE OF f`, id)
}

func (r *PGFlightRepository) get(ctx context.Context, query string, id int64) (*domain.Flight, error) {
	var f domain.Flight
	if err := scanFlight(r.conn(ctx).QueryRow(ctx, query, id), &f); err != nil {
		return nil, translate(err, fmt.Sprintf("flight %d", id))
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	return r.query(ctx, `SELECT `+flightColumns+flightFrom+` ORDER BY f.departure_time, f.id`)
}

func (r *PGFlightRepository) Search(ctx context.Context, search domain.FlightSearch) ([]domain.Flight, error) {
	where := []string{"f.departure_city_id = $1", "f.arrival_city_id = $2"}
	args := []any{search.DepartureCityID, search.ArrivalCityID}

	if !search.From.IsZero() {
		args = append(args, search.From)
		where = append(where, fmt.Sprintf("f.departure_time >= $%d", len(args)))
		if !search.To.IsZero() {
			args = append(args, search.To)
			where = append(where, fmt.Sprintf("f.departure_time < $%d", len(args)))
		}
	}
	if search.MinSeats > 0 {
		args = append(args, search.MinSeats)
		where = append(where, fmt.Sprintf("f.available_seats >= $%d", len(args)))
	}

	return r.query(ctx, `SELECT `+flightColumns+flightFrom+` WHERE `+strings.Join(where, " AND ")+` ORDER BY f.departure_time, f.id`, args...)
}

func (r *PGFlightRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Flight, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err, "query flights")
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := scanFlight(rows, &f); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	err := r.conn(ctx).QueryRow(ctx, `UPDATE flights SET code=$2, departure_city_id=$3, arrival_city_id=$4, departure_time=$5, arrival_time=$6,
		total_seats=$7, available_seats=$8, base_price=$9, updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		flight.ID, flight.Code, flight.DepartureCity.ID, flight.ArrivalCity.ID, flight.DepartureTime, flight.ArrivalTime,
		flight.TotalSeats, flight.AvailableSeats, flight.BasePrice).
		Scan(&flight.UpdatedAt)
	return translate(err, fmt.Sprintf("update flight %d", flight.ID))
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.conn(ctx).Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("delete flight %d", id))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PGFlightRepository) CountByCity(ctx context.Context, cityID int64) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM flights WHERE departure_city_id=$1 OR arrival_city_id=$1`, cityID).Scan(&n)
	return n, translate(err, "count flights")
}

func (r *PGFlightRepository) DebitSeats(ctx context.Context, flightID int64, n int) (int, error) {
	var available int
	err := r.conn(ctx).QueryRow(ctx, `UPDATE flights SET available_seats = available_seats - $2, updated_at = now()
		WHERE id=$1 AND available_seats >= $2 RETURNING available_seats`, flightID, n).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, r.guardFailed(ctx, flightID, fmt.Errorf("debit %d seats from flight %d: %w", n, flightID, domain.ErrInsufficientInventory))
	}
	return available, translate(err, fmt.Sprintf("debit flight %d", flightID))
}

func (r *PGFlightRepository) CreditSeats(ctx context.Context, flightID int64, n int) (int, error) {
	var available int
	err := r.conn(ctx).QueryRow(ctx, `UPDATE flights SET available_seats = available_seats + $2, updated_at = now()
		WHERE id=$1 AND available_seats + $2 <= total_seats RETURNING available_seats`, flightID, n).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, r.guardFailed(ctx, flightID, fmt.Errorf("credit %d seats to flight %d exceeds capacity: %w", n, flightID, domain.ErrConflict))
	}
	return available, translate(err, fmt.Sprintf("credit flight %d", flightID))
}

// guardFailed tells a missing flight apart from a failed seat guard.
func (r *PGFlightRepository) guardFailed(ctx context.Context, flightID int64, guardErr error) error {
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM flights WHERE id=$1)`, flightID).Scan(&exists); err != nil {
		return translate(err, fmt.Sprintf("flight %d", flightID))
	}
	if !exists {
		return fmt.Errorf("flight %d: %w", flightID, domain.ErrNotFound)
	}
	return guardErr
}

var _ FlightRepository = (*PGFlightRepository)(nil)
