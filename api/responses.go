package api

import (
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
)

type flightResponse struct {
	ID             int64       `json:"id"`
	Code           string      `json:"code"`
	DepartureCity  domain.City `json:"departure_city"`
	ArrivalCity    domain.City `json:"arrival_city"`
	DepartureTime  string      `json:"departure_time"`
	ArrivalTime    string      `json:"arrival_time"`
	TotalSeats     int         `json:"total_seats"`
	AvailableSeats int         `json:"available_seats"`
	BasePrice      string      `json:"base_price"`
}

type reservationResponse struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"reservation_code"`
	PassengerFirstName string          `json:"passenger_first_name"`
	PassengerLastName  string          `json:"passenger_last_name"`
	PassengerEmail     string          `json:"passenger_email"`
	SeatsReserved      int             `json:"seats_reserved"`
	TotalPrice         string          `json:"total_price"`
	ReservationDate    string          `json:"reservation_date"`
	FlightID           int64           `json:"flight_id"`
	Flight             *flightResponse `json:"flight,omitempty"`
}

func newFlightResponse(f *domain.Flight) *flightResponse {
	if f == nil {
		return nil
	}
	return &flightResponse{
		ID:             f.ID,
		Code:           f.Code,
		DepartureCity:  f.DepartureCity,
		ArrivalCity:    f.ArrivalCity,
		DepartureTime:  f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    f.ArrivalTime.Format(time.RFC3339),
		TotalSeats:     f.TotalSeats,
		AvailableSeats: f.AvailableSeats,
		BasePrice:      f.BasePrice.StringFixed(2),
	}
}

func newFlightsResponse(list []domain.Flight) []*flightResponse {
	resp := make([]*flightResponse, 0, len(list))
	for i := range list {
		resp = append(resp, newFlightResponse(&list[i]))
	}
	return resp
}

func newReservationResponse(r *domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:                 r.ID,
		Code:               r.Code,
		PassengerFirstName: r.PassengerFirstName,
		PassengerLastName:  r.PassengerLastName,
		PassengerEmail:     r.PassengerEmail,
		SeatsReserved:      r.SeatsReserved,
		TotalPrice:         r.TotalPrice.StringFixed(2),
		ReservationDate:    r.ReservationDate.Format(time.RFC3339),
		FlightID:           r.FlightID,
		Flight:             newFlightResponse(r.Flight),
	}
}
