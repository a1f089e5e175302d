// Package memory keeps cities, flights and reservations in process memory. It backs the
// "memory" database driver and the behavioural tests of the services.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/Domenick1991/flightreservation/internal/repository"
)

type txKey struct{}

type state struct {
	cities       map[int64]domain.City
	flights      map[int64]flightRow
	reservations map[int64]domain.Reservation
	nextID       int64
}

type flightRow struct {
	domain.Flight
	departureCityID int64
	arrivalCityID   int64
}

func (s *state) clone() *state {
	c := &state{
		cities:       make(map[int64]domain.City, len(s.cities)),
		flights:      make(map[int64]flightRow, len(s.flights)),
		reservations: make(map[int64]domain.Reservation, len(s.reservations)),
		nextID:       s.nextID,
	}
	for k, v := range s.cities {
		c.cities[k] = v
	}
	for k, v := range s.flights {
		c.flights[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

// Store is a mutex-guarded set of tables. Do serializes units of work and restores the
// previous contents when fn fails.
type Store struct {
	mu    sync.Mutex
	data  *state
	clock func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: &state{
			cities:       make(map[int64]domain.City),
			flights:      make(map[int64]flightRow),
			reservations: make(map[int64]domain.Reservation),
		},
		clock: time.Now,
	}
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// run executes fn with the tables locked unless ctx already holds the lock through Do.
func (s *Store) run(ctx context.Context, fn func(d *state) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) Cities() repository.CityRepository {
	return &cityRepo{s}
}

func (s *Store) Flights() repository.FlightRepository {
	return &flightRepo{s}
}

func (s *Store) Reservations() repository.ReservationRepository {
	return &reservationRepo{s}
}

func (d *state) materializeFlight(row flightRow) domain.Flight {
	f := row.Flight
	f.DepartureCity = d.cities[row.departureCityID]
	f.ArrivalCity = d.cities[row.arrivalCityID]
	return f
}

func (d *state) id() int64 {
	d.nextID++
	return d.nextID
}

type cityRepo struct{ s *Store }

func (r *cityRepo) Create(ctx context.Context, city *domain.City) error {
	return r.s.run(ctx, func(d *state) error {
		for _, c := range d.cities {
			if c.Name == city.Name && c.Country == city.Country {
				return fmt.Errorf("city %s, %s already exists: %w", city.Name, city.Country, domain.ErrConflict)
			}
		}
		city.ID = d.id()
		d.cities[city.ID] = *city
		return nil
	})
}

func (r *cityRepo) GetByID(ctx context.Context, id int64) (*domain.City, error) {
	var city domain.City
	err := r.s.run(ctx, func(d *state) error {
		c, ok := d.cities[id]
		if !ok {
			return fmt.Errorf("city %d: %w", id, domain.ErrNotFound)
		}
		city = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &city, nil
}

func (r *cityRepo) List(ctx context.Context) ([]domain.City, error) {
	cities := make([]domain.City, 0)
	_ = r.s.run(ctx, func(d *state) error {
		for _, c := range d.cities {
			cities = append(cities, c)
		}
		return nil
	})
	sort.Slice(cities, func(i, j int) bool {
		if cities[i].Name != cities[j].Name {
			return cities[i].Name < cities[j].Name
		}
		return cities[i].Country < cities[j].Country
	})
	return cities, nil
}

func (r *cityRepo) Update(ctx context.Context, city *domain.City) error {
	return r.s.run(ctx, func(d *state) error {
		if _, ok := d.cities[city.ID]; !ok {
			return fmt.Errorf("city %d: %w", city.ID, domain.ErrNotFound)
		}
		for id, c := range d.cities {
			if id != city.ID && c.Name == city.Name && c.Country == city.Country {
				return fmt.Errorf("city %s, %s already exists: %w", city.Name, city.Country, domain.ErrConflict)
			}
		}
		d.cities[city.ID] = *city
		return nil
	})
}

func (r *cityRepo) Delete(ctx context.Context, id int64) error {
	return r.s.run(ctx, func(d *state) error {
		if _, ok := d.cities[id]; !ok {
			return fmt.Errorf("city %d: %w", id, domain.ErrNotFound)
		}
		for _, f := range d.flights {
			if f.departureCityID == id || f.arrivalCityID == id {
				return fmt.Errorf("city %d is referenced by flights: %w", id, domain.ErrConflict)
			}
		}
		delete(d.cities, id)
		return nil
	})
}

type flightRepo struct{ s *Store }

func (r *flightRepo) Create(ctx context.Context, flight *domain.Flight) error {
	return r.s.run(ctx, func(d *state) error {
		if err := d.checkCities(flight); err != nil {
			return err
		}
		now := r.s.clock().UTC()
		flight.ID = d.id()
		flight.CreatedAt, flight.UpdatedAt = now, now
		d.flights[flight.ID] = flightRow{Flight: *flight, departureCityID: flight.DepartureCity.ID, arrivalCityID: flight.ArrivalCity.ID}
		return nil
	})
}

func (d *state) checkCities(flight *domain.Flight) error {
	for _, id := range []int64{flight.DepartureCity.ID, flight.ArrivalCity.ID} {
		if _, ok := d.cities[id]; !ok {
			return fmt.Errorf("city %d is not present: %w", id, domain.ErrConflict)
		}
	}
	return nil
}

func (r *flightRepo) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	var flight domain.Flight
	err := r.s.run(ctx, func(d *state) error {
		row, ok := d.flights[id]
		if !ok {
			return fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
		}
		flight = d.materializeFlight(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &flight, nil
}

// GetByIDForUpdate needs no row lock here: Do already holds the store mutex.
func (r *flightRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Flight, error) {
	return r.GetByID(ctx, id)
}

func (r *flightRepo) List(ctx context.Context) ([]domain.Flight, error) {
	return r.filter(ctx, func(*domain.Flight) bool { return true })
}

func (r *flightRepo) Search(ctx context.Context, search domain.FlightSearch) ([]domain.Flight, error) {
	return r.filter(ctx, search.Matches)
}

func (r *flightRepo) filter(ctx context.Context, keep func(*domain.Flight) bool) ([]domain.Flight, error) {
	flights := make([]domain.Flight, 0)
	_ = r.s.run(ctx, func(d *state) error {
		for _, row := range d.flights {
			f := d.materializeFlight(row)
			if keep(&f) {
				flights = append(flights, f)
			}
		}
		return nil
	})
	sort.Slice(flights, func(i, j int) bool {
		if !flights[i].DepartureTime.Equal(flights[j].DepartureTime) {
			return flights[i].DepartureTime.Before(flights[j].DepartureTime)
		}
		return flights[i].ID < flights[j].ID
	})
	return flights, nil
}

func (r *flightRepo) Update(ctx context.Context, flight *domain.Flight) error {
	return r.s.run(ctx, func(d *state) error {
		row, ok := d.flights[flight.ID]
		if !ok {
			return fmt.Errorf("flight %d: %w", flight.ID, domain.ErrNotFound)
		}
		if err := d.checkCities(flight); err != nil {
			return err
		}
		if flight.AvailableSeats < 0 || flight.AvailableSeats > flight.TotalSeats {
			return fmt.Errorf("flight %d: available seats out of range: %w", flight.ID, domain.ErrInvalidArgument)
		}
		flight.CreatedAt = row.CreatedAt
		flight.UpdatedAt = r.s.clock().UTC()
		d.flights[flight.ID] = flightRow{Flight: *flight, departureCityID: flight.DepartureCity.ID, arrivalCityID: flight.ArrivalCity.ID}
		return nil
	})
}

func (r *flightRepo) Delete(ctx context.Context, id int64) error {
	return r.s.run(ctx, func(d *state) error {
		if _, ok := d.flights[id]; !ok {
			return fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
		}
		for _, res := range d.reservations {
			if res.FlightID == id {
				return fmt.Errorf("flight %d has reservations: %w", id, domain.ErrConflict)
			}
		}
		delete(d.flights, id)
		return nil
	})
}

func (r *flightRepo) CountByCity(ctx context.Context, cityID int64) (int, error) {
	n := 0
	_ = r.s.run(ctx, func(d *state) error {
		for _, f := range d.flights {
			if f.departureCityID == cityID || f.arrivalCityID == cityID {
				n++
			}
		}
		return nil
	})
	return n, nil
}

func (r *flightRepo) DebitSeats(ctx context.Context, flightID int64, n int) (int, error) {
	return r.adjust(ctx, flightID, func(row *flightRow) error {
		if row.AvailableSeats < n {
			return fmt.Errorf("debit %d seats from flight %d: %w", n, flightID, domain.ErrInsufficientInventory)
		}
		row.AvailableSeats -= n
		return nil
	})
}

func (r *flightRepo) CreditSeats(ctx context.Context, flightID int64, n int) (int, error) {
	return r.adjust(ctx, flightID, func(row *flightRow) error {
		if row.AvailableSeats+n > row.TotalSeats {
			return fmt.Errorf("credit %d seats to flight %d exceeds capacity: %w", n, flightID, domain.ErrConflict)
		}
		row.AvailableSeats += n
		return nil
	})
}

func (r *flightRepo) adjust(ctx context.Context, flightID int64, change func(row *flightRow) error) (int, error) {
	var available int
	err := r.s.run(ctx, func(d *state) error {
		row, ok := d.flights[flightID]
		if !ok {
			return fmt.Errorf("flight %d: %w", flightID, domain.ErrNotFound)
		}
		if err := change(&row); err != nil {
			return err
		}
		row.UpdatedAt = r.s.clock().UTC()
		d.flights[flightID] = row
		available = row.AvailableSeats
		return nil
	})
	return available, err
}

type reservationRepo struct{ s *Store }

func (r *reservationRepo) Create(ctx context.Context, res *domain.Reservation) error {
	return r.s.run(ctx, func(d *state) error {
		if _, ok := d.flights[res.FlightID]; !ok {
			return fmt.Errorf("flight %d is not present: %w", res.FlightID, domain.ErrConflict)
		}
		for _, existing := range d.reservations {
			if existing.Code == res.Code {
				return fmt.Errorf("reservation code %q already used: %w", res.Code, domain.ErrConflict)
			}
		}
		res.ID = d.id()
		stored := *res
		stored.Flight = nil
		d.reservations[res.ID] = stored
		return nil
	})
}

func (r *reservationRepo) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	return r.find(ctx, fmt.Sprintf("reservation %d", id), func(res *domain.Reservation) bool { return res.ID == id })
}

func (r *reservationRepo) GetByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	return r.find(ctx, fmt.Sprintf("reservation %q", code), func(res *domain.Reservation) bool { return res.Code == code })
}

func (r *reservationRepo) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Reservation, error) {
	return r.GetByCode(ctx, code)
}

func (r *reservationRepo) find(ctx context.Context, what string, match func(*domain.Reservation) bool) (*domain.Reservation, error) {
	var found *domain.Reservation
	_ = r.s.run(ctx, func(d *state) error {
		for _, res := range d.reservations {
			if match(&res) {
				found = d.materializeReservation(res)
				return nil
			}
		}
		return nil
	})
	if found == nil {
		return nil, fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return found, nil
}

func (d *state) materializeReservation(res domain.Reservation) *domain.Reservation {
	f := d.materializeFlight(d.flights[res.FlightID])
	res.Flight = &f
	return &res
}

func (r *reservationRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByCode(ctx, code)
	return err == nil, nil
}

func (r *reservationRepo) List(ctx context.Context) ([]domain.Reservation, error) {
	reservations := make([]domain.Reservation, 0)
	_ = r.s.run(ctx, func(d *state) error {
		for _, res := range d.reservations {
			reservations = append(reservations, *d.materializeReservation(res))
		}
		return nil
	})
	sort.Slice(reservations, func(i, j int) bool {
		if !reservations[i].ReservationDate.Equal(reservations[j].ReservationDate) {
			return reservations[i].ReservationDate.After(reservations[j].ReservationDate)
		}
		return reservations[i].ID > reservations[j].ID
	})
	return reservations, nil
}

func (r *reservationRepo) Update(ctx context.Context, res *domain.Reservation) error {
	return r.s.run(ctx, func(d *state) error {
		existing, ok := d.reservations[res.ID]
		if !ok {
			return fmt.Errorf("reservation %d: %w", res.ID, domain.ErrNotFound)
		}
		existing.PassengerFirstName = res.PassengerFirstName
		existing.PassengerLastName = res.PassengerLastName
		existing.PassengerEmail = res.PassengerEmail
		existing.SeatsReserved = res.SeatsReserved
		existing.TotalPrice = res.TotalPrice
		d.reservations[res.ID] = existing
		return nil
	})
}

func (r *reservationRepo) Delete(ctx context.Context, id int64) error {
	return r.s.run(ctx, func(d *state) error {
		if _, ok := d.reservations[id]; !ok {
			return fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
		}
		delete(d.reservations, id)
		return nil
	})
}

func (r *reservationRepo) CountByFlight(ctx context.Context, flightID int64) (int, error) {
	n := 0
	_ = r.s.run(ctx, func(d *state) error {
		for _, res := range d.reservations {
			if res.FlightID == flightID {
				n++
			}
		}
		return nil
	})
	return n, nil
}

var (
	_ repository.TxManager             = (*Store)(nil)
	_ repository.CityRepository        = (*cityRepo)(nil)
	_ repository.FlightRepository      = (*flightRepo)(nil)
	_ repository.ReservationRepository = (*reservationRepo)(nil)
)
