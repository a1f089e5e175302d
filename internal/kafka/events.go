package kafka

import (
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	EventReservationCreated   = "reservation_created"
	EventReservationUpdated   = "reservation_updated"
	EventReservationCancelled = "reservation_cancelled"
)

// ReservationEvent is the JSON payload published for every reservation change.
type ReservationEvent struct {
	Type            string          `json:"type"`
	Code            string          `json:"code"`
	FlightID        int64           `json:"flight_id"`
	FlightCode      string          `json:"flight_code,omitempty"`
	DepartureCity   string          `json:"departure_city,omitempty"`
	ArrivalCity     string          `json:"arrival_city,omitempty"`
	DepartureTime   time.Time       `json:"departure_time,omitzero"`
	PassengerName   string          `json:"passenger_name"`
	Email           string          `json:"email"`
	Seats           int             `json:"seats"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	ReservationDate time.Time       `json:"reservation_date"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

func NewReservationEvent(eventType string, res *domain.Reservation, at time.Time) ReservationEvent {
	event := ReservationEvent{
		Type:            eventType,
		Code:            res.Code,
		FlightID:        res.FlightID,
		PassengerName:   res.PassengerName(),
		Email:           res.PassengerEmail,
		Seats:           res.SeatsReserved,
		TotalPrice:      res.TotalPrice,
		ReservationDate: res.ReservationDate,
		OccurredAt:      at,
	}
	if f := res.Flight; f != nil {
		event.FlightCode = f.Code
		event.DepartureCity = f.DepartureCity.Name
		event.ArrivalCity = f.ArrivalCity.Name
		event.DepartureTime = f.DepartureTime
	}
	return event
}
