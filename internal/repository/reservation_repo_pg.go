package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reservationSelect = `SELECT r.id, r.code, r.passenger_first_name, r.passenger_last_name, r.passenger_email,
	r.seats_reserved, r.total_price, r.reservation_date, r.flight_id, ` + flightColumns + `
	FROM reservations r
	JOIN flights f ON f.id = r.flight_id
	JOIN cities dc ON dc.id = f.departure_city_id
	JOIN cities ac ON ac.id = f.arrival_city_id`

type PGReservationRepository struct {
	pgRepo
}

func NewReservationRepository(db *pgxpool.Pool) ReservationRepository {
	return &PGReservationRepository{pgRepo: newPGRepo(db)}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var (
		res domain.Reservation
		f   domain.Flight
	)
	err := row.Scan(&res.ID, &res.Code, &res.PassengerFirstName, &res.PassengerLastName, &res.PassengerEmail,
		&res.SeatsReserved, &res.TotalPrice, &res.ReservationDate, &res.FlightID,
		&f.ID, &f.Code, &f.DepartureTime, &f.ArrivalTime, &f.TotalSeats, &f.AvailableSeats, &f.BasePrice, &f.CreatedAt, &f.UpdatedAt,
		&f.DepartureCity.ID, &f.DepartureCity.Name, &f.DepartureCity.Country,
		&f.ArrivalCity.ID, &f.ArrivalCity.Name, &f.ArrivalCity.Country)
	if err != nil {
		return nil, err
	}
	res.Flight = &f
	return &res, nil
}

func (r *PGReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	err := r.conn(ctx).QueryRow(ctx, `INSERT INTO reservations (code, passenger_first_name, passenger_last_name, passenger_email,
		seats_reserved, total_price, reservation_date, flight_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		res.Code, res.PassengerFirstName, res.PassengerLastName, res.PassengerEmail,
		res.SeatsReserved, res.TotalPrice, res.ReservationDate, res.FlightID).
		Scan(&res.ID)
	return translate(err, "create reservation")
}

func (r *PGReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	res, err := scanReservation(r.conn(ctx).QueryRow(ctx, reservationSelect+` WHERE r.id=$1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("reservation %d", id))
	}
	return res, nil
}

func (r *PGReservationRepository) GetByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	return r.getByCode(ctx, reservationSelect+` WHERE r.code=$1`, code)
}

func (r *PGReservationRepository) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Reservation, error) {
	return r.getByCode(ctx, reservationSelect+` WHERE r.code=$1 FOR UPDATE OF r`, code)
}

func (r *PGReservationRepository) getByCode(ctx context.Context, query, code string) (*domain.Reservation, error) {
	res, err := scanReservation(r.conn(ctx).QueryRow(ctx, query, code))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("reservation %q", code))
	}
	return res, nil
}

func (r *PGReservationRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE code=$1)`, code).Scan(&exists)
	return exists, translate(err, "check reservation code")
}

func (r *PGReservationRepository) List(ctx context.Context) ([]domain.Reservation, error) {
	rows, err := r.conn(ctx).Query(ctx, reservationSelect+` ORDER BY r.reservation_date DESC, r.id DESC`)
	if err != nil {
		return nil, translate(err, "list reservations")
	}
	defer rows.Close()

	reservations := make([]domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

func (r *PGReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	cmd, err := r.conn(ctx).Exec(ctx, `UPDATE reservations SET passenger_first_name=$2, passenger_last_name=$3, passenger_email=$4,
		seats_reserved=$5, total_price=$6 WHERE id=$1`,
		res.ID, res.PassengerFirstName, res.PassengerLastName, res.PassengerEmail, res.SeatsReserved, res.TotalPrice)
	if err != nil {
		return translate(err, fmt.Sprintf("update reservation %d", res.ID))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("reservation %d: %w", res.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PGReservationRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.conn(ctx).Exec(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("delete reservation %d", id))
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PGReservationRepository) CountByFlight(ctx context.Context, flightID int64) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM reservations WHERE flight_id=$1`, flightID).Scan(&n)
	return n, translate(err, "count reservations")
}

var _ ReservationRepository = (*PGReservationRepository)(nil)
