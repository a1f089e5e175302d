package api

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

//go:embed openapi.json
var openAPISpec []byte

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(*gin.Context) error

type Handlers struct {
	Cities       *CityHandler
	Flights      *FlightHandler
	Reservations *ReservationHandler
}

// NewRouter mounts the JSON API under /api/v1 next to docs, metrics and health endpoints.
func NewRouter(log *zap.Logger, h Handlers, checks ...HealthCheck) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	v1 := router.Group("/api/v1")
	h.Cities.Register(v1.Group("/cities"))
	h.Flights.Register(v1.Group("/flights"))
	h.Reservations.Register(v1.Group("/reservations"))

	router.GET("/healthz", func(c *gin.Context) {
		for _, check := range checks {
			if err := check(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPISpec)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))

	return router
}

// RequestLogger logs one line per request with the errors attached by handlers.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}
