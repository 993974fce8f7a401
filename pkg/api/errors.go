package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// statusFor maps an error type to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}

	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidArgument,
		errors.ErrorTypeInvalidOptionKind,
		errors.ErrorTypeInvalidPosition,
		errors.ErrorTypeInvalidBarrierType,
		errors.ErrorTypeDomain:
		return http.StatusBadRequest
	case errors.ErrorTypeMismatchedGrid:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw("Request failed", "path", c.FullPath(), "error", err)
	} else {
		h.log.Debugw("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Type: errors.TypeOf(err).String()})
}

func (h *Handlers) respondBindError(c *gin.Context, err error) {
	h.respondError(c, errors.WithType(errors.Wrap(err, "invalid request body"), errors.ErrorTypeInvalidArgument))
}
