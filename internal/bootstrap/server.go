package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Domenick1991/flightreservation/api"
	"github.com/Domenick1991/flightreservation/config"
	"github.com/Domenick1991/flightreservation/internal/api/reservations_service_api"
	"github.com/Domenick1991/flightreservation/internal/api/rpc"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
}

func NewServers(cfg *config.Config, app *App, log *zap.Logger) *Servers {
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(rpc.UnaryServerInterceptor(log)))
	reservations_service_api.RegisterReservationServiceServer(grpcSrv,
		reservations_service_api.NewServer(app.Flights, app.Reservations))

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(log, api.Handlers{
		Cities:       api.NewCityHandler(app.Cities),
		Flights:      api.NewFlightHandler(app.Flights, app.Reservations),
		Reservations: api.NewReservationHandler(app.Reservations),
	}, func(c *gin.Context) error { return app.Ready(c.Request.Context()) })

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: &http.Server{
			Addr:    cfg.HTTP.Address,
			Handler: otelhttp.NewHandler(router, "http"),
		},
		cfg: cfg,
		log: log,
	}
}

// Run serves gRPC and HTTP until ctx is cancelled or one of the servers fails, then
// shuts both down within the configured timeout.
func (s *Servers) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", s.cfg.GRPC.Address, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("gRPC server started", zap.String("address", s.cfg.GRPC.Address))
		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.log.Info("HTTP server started", zap.String("address", s.cfg.HTTP.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
