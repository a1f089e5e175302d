package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightreservation/config"
	"github.com/Domenick1991/flightreservation/internal/cache"
	"github.com/Domenick1991/flightreservation/internal/kafka"
	"github.com/Domenick1991/flightreservation/internal/pdf"
	"github.com/Domenick1991/flightreservation/internal/service/cities"
	"github.com/Domenick1991/flightreservation/internal/service/flights"
	"github.com/Domenick1991/flightreservation/internal/service/reservation"
	"go.uber.org/zap"
)

// App holds the wired services and the resources that must be released on exit.
type App struct {
	Storage      *Storage
	Cities       *cities.CityService
	Flights      *flights.FlightService
	Reservations *reservation.ReservationService

	cache    *cache.RedisCache
	producer *kafka.Producer
	log      *zap.Logger
}

// NewApp wires storage, cache, event producer and renderer into the services. Redis and
// Kafka are optional: leaving their addresses empty disables them. A missing PDF font
// disables confirmations unless cfg.PDF.Required is set, in which case NewApp fails.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	storage, err := OpenStorage(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	app := &App{Storage: storage, log: log}

	opts := []reservation.ReservationServiceOption{
		reservation.WithLogger(log),
		reservation.WithCodeAttempts(cfg.Reservation.CodeAttempts),
	}

	renderer, err := pdf.NewRenderer(cfg.PDF.FontPath)
	switch {
	case err != nil && cfg.PDF.Required:
		storage.Close()
		return nil, fmt.Errorf("pdf renderer: %w", err)
	case err != nil:
		log.Warn("PDF confirmations are disabled", zap.String("font_path", cfg.PDF.FontPath), zap.Error(err))
	default:
		opts = append(opts, reservation.WithRenderer(renderer))
	}

	var flightCache flights.FlightCache
	if cfg.Redis.Addr != "" {
		app.cache = cache.NewRedisCache(cfg.Redis)
		if err := app.cache.Ping(ctx); err != nil {
			log.Warn("redis is unreachable, flight cache errors will be logged", zap.Error(err))
		}
		flightCache = app.cache
		opts = append(opts, reservation.WithCache(app.cache))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		app.producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		if err := app.producer.CheckConnection(ctx); err != nil {
			log.Warn("kafka is unreachable, events will be dropped", zap.Error(err))
		}
		opts = append(opts,
			reservation.WithProducer(app.producer, cfg.Kafka.ReservationsTopic),
			reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}

	app.Cities = cities.NewCityService(storage.Cities, storage.Flights, storage.Tx, log)
	app.Flights = flights.NewFlightService(storage.Flights, storage.Cities, storage.Reservations, storage.Tx, flightCache, log)
	app.Reservations = reservation.NewReservationService(storage.Reservations, storage.Flights, storage.Tx, opts...)
	return app, nil
}

// Ready reports whether the database and, when configured, Redis respond.
func (a *App) Ready(ctx context.Context) error {
	if err := a.Storage.Ping(ctx); err != nil {
		return err
	}
	if a.cache != nil {
		return a.cache.Ping(ctx)
	}
	return nil
}

func (a *App) Close() error {
	var err error
	if a.producer != nil {
		err = errors.Join(err, a.producer.Close())
	}
	if a.cache != nil {
		err = errors.Join(err, a.cache.Close())
	}
	a.Storage.Close()
	return err
}
