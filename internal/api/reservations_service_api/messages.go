package reservations_service_api

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
)

type City struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type Flight struct {
	ID             int64  `json:"id"`
	Code           string `json:"code"`
	DepartureCity  City   `json:"departure_city"`
	ArrivalCity    City   `json:"arrival_city"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	TotalSeats     int32  `json:"total_seats"`
	AvailableSeats int32  `json:"available_seats"`
	BasePrice      string `json:"base_price"`
}

type Reservation struct {
	ID                 int64   `json:"id"`
	Code               string  `json:"reservation_code"`
	PassengerFirstName string  `json:"passenger_first_name"`
	PassengerLastName  string  `json:"passenger_last_name"`
	PassengerEmail     string  `json:"passenger_email"`
	SeatsReserved      int32   `json:"seats_reserved"`
	TotalPrice         string  `json:"total_price"`
	ReservationDate    string  `json:"reservation_date"`
	Flight             *Flight `json:"flight,omitempty"`
}

type GetFlightRequest struct {
	ID int64 `json:"id"`
}

type FlightReply struct {
	Flight *Flight `json:"flight"`
}

type FlightsReply struct {
	Flights []*Flight `json:"flights"`
}

// SearchFlightsRequest dates accept RFC 3339 timestamps or plain 2006-01-02 dates.
type SearchFlightsRequest struct {
	DepartureCityID int64  `json:"departure_city_id"`
	ArrivalCityID   int64  `json:"arrival_city_id"`
	StartDate       string `json:"start_date,omitempty"`
	EndDate         string `json:"end_date,omitempty"`
}

type CreateReservationRequest struct {
	FlightID           int64  `json:"flight_id"`
	PassengerFirstName string `json:"passenger_first_name"`
	PassengerLastName  string `json:"passenger_last_name"`
	PassengerEmail     string `json:"passenger_email"`
	NumberOfSeats      int32  `json:"number_of_seats"`
}

type ReservationCodeRequest struct {
	Code string `json:"reservation_code"`
}

type ReservationReply struct {
	Reservation *Reservation `json:"reservation"`
}

type CancelReservationReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PdfReply struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

func (r *SearchFlightsRequest) toSearch() (domain.FlightSearch, error) {
	search := domain.FlightSearch{
		DepartureCityID: r.DepartureCityID,
		ArrivalCityID:   r.ArrivalCityID,
	}
	var err error
	if search.From, err = parseDate(r.StartDate); err != nil {
		return search, fmt.Errorf("start_date: %w", err)
	}
	if search.To, err = parseDate(r.EndDate); err != nil {
		return search, fmt.Errorf("end_date: %w", err)
	}
	return search, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD: %w", value, domain.ErrInvalidArgument)
	}
	return t, nil
}

func toCity(c domain.City) City {
	return City{ID: c.ID, Name: c.Name, Country: c.Country}
}

func toFlight(f *domain.Flight) *Flight {
	if f == nil {
		return nil
	}
	return &Flight{
		ID:             f.ID,
		Code:           f.Code,
		DepartureCity:  toCity(f.DepartureCity),
		ArrivalCity:    toCity(f.ArrivalCity),
		DepartureTime:  f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    f.ArrivalTime.Format(time.RFC3339),
		TotalSeats:     int32(f.TotalSeats),
		AvailableSeats: int32(f.AvailableSeats),
		BasePrice:      f.BasePrice.StringFixed(2),
	}
}

func toReservation(r *domain.Reservation) *Reservation {
	if r == nil {
		return nil
	}
	return &Reservation{
		ID:                 r.ID,
		Code:               r.Code,
		PassengerFirstName: r.PassengerFirstName,
		PassengerLastName:  r.PassengerLastName,
		PassengerEmail:     r.PassengerEmail,
		SeatsReserved:      int32(r.SeatsReserved),
		TotalPrice:         r.TotalPrice.StringFixed(2),
		ReservationDate:    r.ReservationDate.Format(time.RFC3339),
		Flight:             toFlight(r.Flight),
	}
}
