package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationCodeLength is the length of generated reservation codes.
const ReservationCodeLength = 8

type Reservation struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"code"`
	PassengerFirstName string          `json:"passenger_first_name"`
	PassengerLastName  string          `json:"passenger_last_name"`
	PassengerEmail     string          `json:"passenger_email"`
	SeatsReserved      int             `json:"seats_reserved"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	ReservationDate    time.Time       `json:"reservation_date"`
	FlightID           int64           `json:"flight_id"`
	Flight             *Flight         `json:"flight,omitempty"`
}

// PassengerName returns "First Last".
func (r *Reservation) PassengerName() string {
	return r.PassengerFirstName + " " + r.PassengerLastName
}
