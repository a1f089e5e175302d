package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/Domenick1991/flightreservation/internal/service/flights"
	"github.com/Domenick1991/flightreservation/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
	pricing reservation.ReservationUseCase
}

func NewFlightHandler(service flights.FlightUseCase, pricing reservation.ReservationUseCase) *FlightHandler {
	return &FlightHandler{service: service, pricing: pricing}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/search", h.search)
	router.GET("/:id", h.get)
	router.GET("/:id/price", h.price)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

type searchQuery struct {
	DepartureCityID int64  `form:"departure_city_id" binding:"required"`
	ArrivalCityID   int64  `form:"arrival_city_id" binding:"required"`
	StartDate       string `form:"start_date"`
	EndDate         string `form:"end_date"`
	MinSeats        int    `form:"min_seats"`
}

type priceResponse struct {
	FlightID   int64  `json:"flight_id"`
	Seats      int    `json:"seats"`
	TotalPrice string `json:"total_price"`
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newFlightsResponse(list))
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newFlightResponse(flight))
}

func (h *FlightHandler) search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	search := domain.FlightSearch{
		DepartureCityID: q.DepartureCityID,
		ArrivalCityID:   q.ArrivalCityID,
		MinSeats:        q.MinSeats,
	}
	var err error
	if search.From, err = queryDate(q.StartDate); err != nil {
		badRequest(c, "invalid start_date")
		return
	}
	if search.To, err = queryDate(q.EndDate); err != nil {
		badRequest(c, "invalid end_date")
		return
	}

	list, err := h.service.Search(c.Request.Context(), search)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newFlightsResponse(list))
}

func (h *FlightHandler) price(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	seats, err := strconv.Atoi(c.DefaultQuery("seats", "1"))
	if err != nil {
		badRequest(c, "invalid seats")
		return
	}
	total, err := h.pricing.CalculateTotalPrice(c.Request.Context(), id, seats)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, priceResponse{FlightID: id, Seats: seats, TotalPrice: total.StringFixed(2)})
}

func (h *FlightHandler) create(c *gin.Context) {
	var req flights.FlightInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	flight, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newFlightResponse(flight))
}

func (h *FlightHandler) update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req flights.FlightInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	flight, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newFlightResponse(flight))
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// queryDate accepts RFC 3339 timestamps and plain dates. Empty means unset.
func queryDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}
