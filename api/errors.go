package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/flightreservation/internal/api/rpc"
	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// abort writes err with the status of its error kind.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	code := rpc.HTTPStatus(err)
	kind := domain.Kind(err)
	msg := err.Error()
	if kind == "internal" {
		msg = http.StatusText(code)
	}
	c.AbortWithStatusJSON(code, errorResponse{Error: msg, Kind: kind})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Kind: "invalid_argument"})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
