package api

import (
	"net/http"

	"github.com/Domenick1991/flightreservation/internal/api/rpc"
	"github.com/Domenick1991/flightreservation/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	service reservation.ReservationUseCase
}

type cancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewReservationHandler(service reservation.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/id/:id", h.getByID)
	router.GET("/:code", h.get)
	router.GET("/:code/pdf", h.pdf)
	router.PUT("/:code", h.update)
	router.DELETE("/:code", h.cancel)
}

func (h *ReservationHandler) list(c *gin.Context) {
	list, err := h.service.ListReservations(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	resp := make([]reservationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, newReservationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReservationHandler) create(c *gin.Context) {
	var req reservation.CreateReservationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.service.CreateReservation(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReservationResponse(res))
}

func (h *ReservationHandler) get(c *gin.Context) {
	res, err := h.service.GetReservationByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(res))
}

func (h *ReservationHandler) getByID(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	res, err := h.service.GetReservationByID(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(res))
}

func (h *ReservationHandler) pdf(c *gin.Context) {
	doc, err := h.service.RenderConfirmation(c.Request.Context(), c.Param("code"))
	if err != nil {
		abort(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

func (h *ReservationHandler) update(c *gin.Context) {
	var req reservation.UpdateReservationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.service.UpdateReservation(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(res))
}

// cancel reports failures in the body with 200, like the RPC operation.
func (h *ReservationHandler) cancel(c *gin.Context) {
	if _, err := h.service.CancelReservation(c.Request.Context(), c.Param("code")); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusOK, cancelResponse{Success: false, Message: rpc.Message(err)})
		return
	}
	c.JSON(http.StatusOK, cancelResponse{Success: true, Message: "Reservation cancelled successfully"})
}
