package reservations_service_api

import (
	"context"

	"github.com/Domenick1991/flightreservation/internal/api/rpc"
	"github.com/Domenick1991/flightreservation/internal/service/flights"
	"github.com/Domenick1991/flightreservation/internal/service/reservation"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Server exposes flight lookups and the reservation workflow over gRPC.
type Server struct {
	flights      flights.FlightUseCase
	reservations reservation.ReservationUseCase
}

var _ ReservationServiceServer = (*Server)(nil)

func NewServer(flights flights.FlightUseCase, reservations reservation.ReservationUseCase) *Server {
	return &Server{flights: flights, reservations: reservations}
}

func (s *Server) GetFlight(ctx context.Context, req *GetFlightRequest) (*FlightReply, error) {
	flight, err := s.flights.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &FlightReply{Flight: toFlight(flight)}, nil
}

func (s *Server) GetAllFlights(ctx context.Context, _ *emptypb.Empty) (*FlightsReply, error) {
	list, err := s.flights.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := &FlightsReply{Flights: make([]*Flight, 0, len(list))}
	for i := range list {
		resp.Flights = append(resp.Flights, toFlight(&list[i]))
	}
	return resp, nil
}

func (s *Server) SearchFlights(ctx context.Context, req *SearchFlightsRequest) (*FlightsReply, error) {
	search, err := req.toSearch()
	if err != nil {
		return nil, err
	}
	list, err := s.flights.Search(ctx, search)
	if err != nil {
		return nil, err
	}
	resp := &FlightsReply{Flights: make([]*Flight, 0, len(list))}
	for i := range list {
		resp.Flights = append(resp.Flights, toFlight(&list[i]))
	}
	return resp, nil
}

func (s *Server) CreateReservation(ctx context.Context, req *CreateReservationRequest) (*ReservationReply, error) {
	created, err := s.reservations.CreateReservation(ctx, reservation.CreateReservationInput{
		FlightID: req.FlightID,
		Passenger: reservation.Passenger{
			FirstName: req.PassengerFirstName,
			LastName:  req.PassengerLastName,
			Email:     req.PassengerEmail,
		},
		Seats: int(req.NumberOfSeats),
	})
	if err != nil {
		return nil, err
	}
	return &ReservationReply{Reservation: toReservation(created)}, nil
}

func (s *Server) GetReservationByCode(ctx context.Context, req *ReservationCodeRequest) (*ReservationReply, error) {
	res, err := s.reservations.GetReservationByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	return &ReservationReply{Reservation: toReservation(res)}, nil
}

// CancelReservation never fails the call: the outcome is reported in the reply.
func (s *Server) CancelReservation(ctx context.Context, req *ReservationCodeRequest) (*CancelReservationReply, error) {
	if _, err := s.reservations.CancelReservation(ctx, req.Code); err != nil {
		return &CancelReservationReply{Success: false, Message: rpc.Message(err)}, nil
	}
	return &CancelReservationReply{Success: true, Message: "Reservation cancelled successfully"}, nil
}

func (s *Server) GetReservationPdf(ctx context.Context, req *ReservationCodeRequest) (*PdfReply, error) {
	doc, err := s.reservations.RenderConfirmation(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	return &PdfReply{FileName: doc.FileName, ContentType: doc.ContentType, Data: doc.Data}, nil
}
