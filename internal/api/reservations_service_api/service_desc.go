package reservations_service_api

import (
	"context"

	"github.com/Domenick1991/flightreservation/internal/api/rpc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "flightreservation.v1.ReservationService"

type ReservationServiceServer interface {
	GetFlight(context.Context, *GetFlightRequest) (*FlightReply, error)
	GetAllFlights(context.Context, *emptypb.Empty) (*FlightsReply, error)
	SearchFlights(context.Context, *SearchFlightsRequest) (*FlightsReply, error)
	CreateReservation(context.Context, *CreateReservationRequest) (*ReservationReply, error)
	GetReservationByCode(context.Context, *ReservationCodeRequest) (*ReservationReply, error)
	CancelReservation(context.Context, *ReservationCodeRequest) (*CancelReservationReply, error)
	GetReservationPdf(context.Context, *ReservationCodeRequest) (*PdfReply, error)
}

func unary[Req, Resp any](name string, call func(ReservationServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReservationServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReservationServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the service for grpc.Server.RegisterService. Messages travel
// through the json codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetFlight", ReservationServiceServer.GetFlight),
		unary("GetAllFlights", ReservationServiceServer.GetAllFlights),
		unary("SearchFlights", ReservationServiceServer.SearchFlights),
		unary("CreateReservation", ReservationServiceServer.CreateReservation),
		unary("GetReservationByCode", ReservationServiceServer.GetReservationByCode),
		unary("CancelReservation", ReservationServiceServer.CancelReservation),
		unary("GetReservationPdf", ReservationServiceServer.GetReservationPdf),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flightreservation/v1/reservation_service",
}

func RegisterReservationServiceServer(s grpc.ServiceRegistrar, srv ReservationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls ReservationService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(rpc.CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFlight(ctx context.Context, in *GetFlightRequest, opts ...grpc.CallOption) (*FlightReply, error) {
	return invoke[FlightReply](ctx, c.cc, "GetFlight", in, opts)
}

func (c *Client) GetAllFlights(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*FlightsReply, error) {
	return invoke[FlightsReply](ctx, c.cc, "GetAllFlights", in, opts)
}

func (c *Client) SearchFlights(ctx context.Context, in *SearchFlightsRequest, opts ...grpc.CallOption) (*FlightsReply, error) {
	return invoke[FlightsReply](ctx, c.cc, "SearchFlights", in, opts)
}

func (c *Client) CreateReservation(ctx context.Context, in *CreateReservationRequest, opts ...grpc.CallOption) (*ReservationReply, error) {
	return invoke[ReservationReply](ctx, c.cc, "CreateReservation", in, opts)
}

func (c *Client) GetReservationByCode(ctx context.Context, in *ReservationCodeRequest, opts ...grpc.CallOption) (*ReservationReply, error) {
	return invoke[ReservationReply](ctx, c.cc, "GetReservationByCode", in, opts)
}

func (c *Client) CancelReservation(ctx context.Context, in *ReservationCodeRequest, opts ...grpc.CallOption) (*CancelReservationReply, error) {
	return invoke[CancelReservationReply](ctx, c.cc, "CancelReservation", in, opts)
}

func (c *Client) GetReservationPdf(ctx context.Context, in *ReservationCodeRequest, opts ...grpc.CallOption) (*PdfReply, error) {
	return invoke[PdfReply](ctx, c.cc, "GetReservationPdf", in, opts)
}
