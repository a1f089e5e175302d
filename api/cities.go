package api

import (
	"net/http"

	"github.com/Domenick1991/flightreservation/internal/service/cities"
	"github.com/gin-gonic/gin"
)

type CityHandler struct {
	service cities.CityUseCase
}

func NewCityHandler(service cities.CityUseCase) *CityHandler {
	return &CityHandler{service: service}
}

func (h *CityHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

func (h *CityHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CityHandler) get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	city, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, city)
}

func (h *CityHandler) create(c *gin.Context) {
	var req cities.CityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	city, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, city)
}

func (h *CityHandler) update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req cities.CityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	city, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, city)
}

func (h *CityHandler) delete(c *gin.Context) {
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
