package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Flight struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	DepartureCity  City            `json:"departure_city"`
	ArrivalCity    City            `json:"arrival_city"`
	DepartureTime  time.Time       `json:"departure_time"`
	ArrivalTime    time.Time       `json:"arrival_time"`
	TotalSeats     int             `json:"total_seats"`
	AvailableSeats int             `json:"available_seats"`
	BasePrice      decimal.Decimal `json:"base_price"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PriceFor returns the exact price of the given number of seats at the flight's base price.
func (f *Flight) PriceFor(seats int) decimal.Decimal {
	return f.BasePrice.Mul(decimal.NewFromInt(int64(seats)))
}

// HasSeats reports whether n seats can still be debited.
func (f *Flight) HasSeats(n int) bool {
	return f.AvailableSeats >= n
}

// BookedSeats is the number of seats currently held by reservations.
func (f *Flight) BookedSeats() int {
	return f.TotalSeats - f.AvailableSeats
}

// FlightSearch filters flights between two cities. A zero From disables date filtering;
// otherwise departure time must fall in [From, To), or [From, ∞) when To is zero.
type FlightSearch struct {
	DepartureCityID int64
	ArrivalCityID   int64
	From            time.Time
	To              time.Time
	MinSeats        int
}

// Matches applies the search filter to a single flight.
func (s FlightSearch) Matches(f *Flight) bool {
	if f.DepartureCity.ID != s.DepartureCityID || f.ArrivalCity.ID != s.ArrivalCityID {
		return false
	}
	if s.MinSeats > 0 && f.AvailableSeats < s.MinSeats {
		return false
	}
	if s.From.IsZero() {
		return true
	}
	if f.DepartureTime.Before(s.From) {
		return false
	}
	return s.To.IsZero() || f.DepartureTime.Before(s.To)
}
