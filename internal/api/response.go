package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/domain"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// statusOf maps an error to its HTTP status and envelope code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err in the error envelope and aborts the chain.
// Only caller-facing kinds expose their message.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal error"
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", requestIDFrom(c)),
			zap.Error(err),
		)
	case http.StatusServiceUnavailable:
		log.Warn("dependency unavailable", zap.String("request_id", requestIDFrom(c)), zap.Error(err))
		msg = "service unavailable"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{
		Code:      code,
		Message:   msg,
		RequestID: requestIDFrom(c),
	}})
}

// bindJSON decodes the request body into dst. A malformed body is a
// validation error.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return domain.Invalid("invalid request body: " + err.Error())
	}
	return nil
}

func bindQuery(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return domain.Invalid("invalid query: " + err.Error())
	}
	return nil
}
