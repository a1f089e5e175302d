package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/Domenick1991/flightreservation/internal/kafka"
	"github.com/Domenick1991/flightreservation/internal/metrics"
	"github.com/Domenick1991/flightreservation/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	PDFContentType      = "application/pdf"
	defaultCodeAttempts = 10
)

type ReservationUseCase interface {
	CreateReservation(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error)
	GetReservationByCode(ctx context.Context, code string) (*domain.Reservation, error)
	GetReservationByID(ctx context.Context, id int64) (*domain.Reservation, error)
	ListReservations(ctx context.Context) ([]domain.Reservation, error)
	CancelReservation(ctx context.Context, code string) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, code string, input UpdateReservationInput) (*domain.Reservation, error)
	CalculateTotalPrice(ctx context.Context, flightID int64, seats int) (decimal.Decimal, error)
	RenderConfirmation(ctx context.Context, code string) (*Document, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// CacheInvalidator drops cached flight data after seat counts change.
type CacheInvalidator interface {
	InvalidateFlights(ctx context.Context) error
}

type Renderer interface {
	Render(res *domain.Reservation) ([]byte, error)
}

type CodeGenerator interface {
	Generate() string
}

// CodeGeneratorFunc adapts a function to CodeGenerator.
type CodeGeneratorFunc func() string

func (f CodeGeneratorFunc) Generate() string { return f() }

// UUIDCodes returns the first eight hex digits of a random UUID in upper case.
var UUIDCodes = CodeGeneratorFunc(func() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:domain.ReservationCodeLength])
})

type Passenger struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

type CreateReservationInput struct {
	FlightID int64 `json:"flight_id" validate:"gt=0"`
	Passenger
	Seats int `json:"seats" validate:"gte=1"`
}

type UpdateReservationInput struct {
	Passenger
	Seats int `json:"seats" validate:"gte=1"`
}

// Document is a rendered confirmation ready to be served as a file.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

type ReservationService struct {
	reservations       repository.ReservationRepository
	flights            repository.FlightRepository
	tx                 repository.TxManager
	cache              CacheInvalidator
	producer           Producer
	renderer           Renderer
	codes              CodeGenerator
	clock              func() time.Time
	codeAttempts       int
	reservationsTopic  string
	notificationsTopic string
	log                *zap.Logger
	tracer             trace.Tracer
	validate           *validator.Validate
}

type ReservationServiceOption func(*ReservationService)

func WithCache(cache CacheInvalidator) ReservationServiceOption {
	return func(s *ReservationService) {
		s.cache = cache
	}
}

// WithProducer publishes reservation events to topic.
func WithProducer(producer Producer, topic string) ReservationServiceOption {
	return func(s *ReservationService) {
		s.producer = producer
		s.reservationsTopic = topic
	}
}

func WithNotificationsTopic(topic string) ReservationServiceOption {
	return func(s *ReservationService) {
		s.notificationsTopic = topic
	}
}

func WithRenderer(renderer Renderer) ReservationServiceOption {
	return func(s *ReservationService) {
		s.renderer = renderer
	}
}

func WithCodeGenerator(codes CodeGenerator) ReservationServiceOption {
	return func(s *ReservationService) {
		s.codes = codes
	}
}

func WithClock(clock func() time.Time) ReservationServiceOption {
	return func(s *ReservationService) {
		s.clock = clock
	}
}

func WithCodeAttempts(n int) ReservationServiceOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.codeAttempts = n
		}
	}
}

func WithLogger(log *zap.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		if log != nil {
			s.log = log
		}
	}
}

func NewReservationService(
	reservations repository.ReservationRepository,
	flights repository.FlightRepository,
	tx repository.TxManager,
	opts ...ReservationServiceOption,
) *ReservationService {
	service := &ReservationService{
		reservations: reservations,
		flights:      flights,
		tx:           tx,
		codes:        UUIDCodes,
		clock:        time.Now,
		codeAttempts: defaultCodeAttempts,
		log:          zap.NewNop(),
		tracer:       otel.Tracer("flightreservation/reservation"),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateReservation books seats on a flight. The availability check, code allocation,
// insert and seat debit commit together or not at all.
func (s *ReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (res *domain.Reservation, err error) {
	ctx, span := s.start(ctx, "create", attribute.Int64("flight_id", input.FlightID), attribute.Int("seats", input.Seats))
	defer func() { s.finish(span, "create", err) }()
	defer metrics.Observe("create", time.Now())

	input.Passenger = input.Passenger.trimmed()
	if err := s.check(input); err != nil {
		return nil, err
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		flight, err := s.flights.GetByID(ctx, input.FlightID)
		if err != nil {
			return err
		}
		if !flight.HasSeats(input.Seats) {
			return fmt.Errorf("flight %d has %d seats available, %d requested: %w",
				flight.ID, flight.AvailableSeats, input.Seats, domain.ErrInsufficientInventory)
		}

		code, err := s.allocateCode(ctx)
		if err != nil {
			return err
		}

		res = &domain.Reservation{
			Code:               code,
			PassengerFirstName: input.FirstName,
			PassengerLastName:  input.LastName,
			PassengerEmail:     input.Email,
			SeatsReserved:      input.Seats,
			TotalPrice:         flight.PriceFor(input.Seats),
			ReservationDate:    s.clock().UTC(),
			FlightID:           flight.ID,
		}
		if err := s.reservations.Create(ctx, res); err != nil {
			return err
		}

		available, err := s.flights.DebitSeats(ctx, flight.ID, input.Seats)
		if err != nil {
			return err
		}
		flight.AvailableSeats = available
		res.Flight = flight
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Seats(metrics.SeatsDebited, res.SeatsReserved)
	span.SetAttributes(attribute.String("code", res.Code))
	s.log.Info("reservation created",
		zap.String("code", res.Code),
		zap.Int64("flight_id", res.FlightID),
		zap.Int("seats", res.SeatsReserved),
		zap.String("total_price", res.TotalPrice.StringFixed(2)),
	)
	s.afterChange(ctx, kafka.EventReservationCreated, res)
	return res, nil
}

// allocateCode draws codes until one is unused. The unique index on the code column
// still rejects a code taken by a concurrent transaction.
func (s *ReservationService) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < s.codeAttempts; i++ {
		code := s.codes.Generate()
		exists, err := s.reservations.ExistsByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		s.log.Debug("reservation code collision", zap.String("code", code))
	}
	return "", fmt.Errorf("no free reservation code after %d attempts: %w", s.codeAttempts, domain.ErrConflict)
}

func (s *ReservationService) GetReservationByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	return s.reservations.GetByCode(ctx, code)
}

func (s *ReservationService) GetReservationByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *ReservationService) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	return s.reservations.List(ctx)
}

// CancelReservation gives the seats back to the flight and deletes the reservation.
func (s *ReservationService) CancelReservation(ctx context.Context, code string) (res *domain.Reservation, err error) {
	ctx, span := s.start(ctx, "cancel", attribute.String("code", code))
	defer func() { s.finish(span, "cancel", err) }()
	defer metrics.Observe("cancel", time.Now())

	code, err = normalizeCode(code)
	if err != nil {
		return nil, err
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.reservations.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		available, err := s.flights.CreditSeats(ctx, current.FlightID, current.SeatsReserved)
		if err != nil {
			return err
		}
		if err := s.reservations.Delete(ctx, current.ID); err != nil {
			return err
		}
		if current.Flight != nil {
			current.Flight.AvailableSeats = available
		}
		res = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Seats(metrics.SeatsCredited, res.SeatsReserved)
	s.log.Info("reservation cancelled", zap.String("code", res.Code), zap.Int("seats", res.SeatsReserved))
	s.afterChange(ctx, kafka.EventReservationCancelled, res)
	return res, nil
}

// UpdateReservation changes passenger details and seat count. A larger seat count debits
// the difference, a smaller one credits it, and the total is re-priced at the flight's
// current base price.
func (s *ReservationService) UpdateReservation(ctx context.Context, code string, input UpdateReservationInput) (res *domain.Reservation, err error) {
	ctx, span := s.start(ctx, "update", attribute.String("code", code), attribute.Int("seats", input.Seats))
	defer func() { s.finish(span, "update", err) }()
	defer metrics.Observe("update", time.Now())

	code, err = normalizeCode(code)
	if err != nil {
		return nil, err
	}
	input.Passenger = input.Passenger.trimmed()
	if err := s.check(input); err != nil {
		return nil, err
	}

	var delta int
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.reservations.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		flight, err := s.flights.GetByID(ctx, current.FlightID)
		if err != nil {
			return err
		}

		delta = input.Seats - current.SeatsReserved
		switch {
		case delta > 0:
			flight.AvailableSeats, err = s.flights.DebitSeats(ctx, flight.ID, delta)
		case delta < 0:
			flight.AvailableSeats, err = s.flights.CreditSeats(ctx, flight.ID, -delta)
		}
		if err != nil {
			return err
		}

		current.PassengerFirstName = input.FirstName
		current.PassengerLastName = input.LastName
		current.PassengerEmail = input.Email
		current.SeatsReserved = input.Seats
		current.TotalPrice = flight.PriceFor(input.Seats)
		if err := s.reservations.Update(ctx, current); err != nil {
			return err
		}
		current.Flight = flight
		res = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if delta > 0 {
		metrics.Seats(metrics.SeatsDebited, delta)
	} else {
		metrics.Seats(metrics.SeatsCredited, -delta)
	}
	s.log.Info("reservation updated", zap.String("code", res.Code), zap.Int("seats", res.SeatsReserved), zap.Int("delta", delta))
	s.afterChange(ctx, kafka.EventReservationUpdated, res)
	return res, nil
}

func (s *ReservationService) CalculateTotalPrice(ctx context.Context, flightID int64, seats int) (decimal.Decimal, error) {
	if seats < 1 {
		return decimal.Zero, fmt.Errorf("seats must be at least 1, got %d: %w", seats, domain.ErrInvalidArgument)
	}
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return decimal.Zero, err
	}
	return flight.PriceFor(seats), nil
}

func (s *ReservationService) RenderConfirmation(ctx context.Context, code string) (doc *Document, err error) {
	ctx, span := s.start(ctx, "render", attribute.String("code", code))
	defer func() { s.finish(span, "render", err) }()

	if s.renderer == nil {
		return nil, errors.New("confirmation renderer is not configured")
	}
	res, err := s.GetReservationByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(res)
	if err != nil {
		return nil, fmt.Errorf("render reservation %s: %w", res.Code, err)
	}
	return &Document{
		FileName:    fmt.Sprintf("Reservation_%s.pdf", res.Code),
		ContentType: PDFContentType,
		Data:        data,
	}, nil
}

func (s *ReservationService) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid %s: %w", strings.Join(fields, ", "), domain.ErrInvalidArgument)
		}
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
	}
	return nil
}

func (p Passenger) trimmed() Passenger {
	return Passenger{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Email:     strings.TrimSpace(p.Email),
	}
}

func normalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("reservation code is required: %w", domain.ErrInvalidArgument)
	}
	return code, nil
}

// afterChange runs the post-commit side effects. None of them can fail the request.
func (s *ReservationService) afterChange(ctx context.Context, eventType string, res *domain.Reservation) {
	metrics.ReservationDone(eventType)
	if s.cache != nil {
		if err := s.cache.InvalidateFlights(ctx); err != nil {
			s.log.Warn("flight cache invalidation failed", zap.Error(err))
		}
	}
	if err := s.publish(ctx, eventType, res); err != nil {
		metrics.PublishFailed(eventType)
		s.log.Warn("failed to publish reservation event",
			zap.String("event", eventType),
			zap.String("code", res.Code),
			zap.Error(err),
		)
	}
}

func (s *ReservationService) publish(ctx context.Context, eventType string, res *domain.Reservation) error {
	if s.producer == nil || s.reservationsTopic == "" {
		return nil
	}
	event := kafka.NewReservationEvent(eventType, res, s.clock().UTC())
	if err := s.producer.Publish(ctx, s.reservationsTopic, res.Code, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, res.Code, event)
	}
	return nil
}

func (s *ReservationService) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "reservation."+operation, trace.WithAttributes(attrs...))
}

func (s *ReservationService) finish(span trace.Span, operation string, err error) {
	defer span.End()
	if err != nil {
		kind := domain.Kind(err)
		metrics.Failure(operation, kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return
	}
	span.SetStatus(codes.Ok, "")
}

var _ ReservationUseCase = (*ReservationService)(nil)
