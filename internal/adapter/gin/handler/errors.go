package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pkgerrors "user-auth-service/pkg/errors"
	"user-auth-service/pkg/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// handleError converts usecase errors to HTTP responses. Backend details are logged,
// never returned.
func handleError(c *gin.Context, log *zap.Logger, err error) {
	log = logger.WithContext(c.Request.Context(), log)

	var (
		unavailable     *pkgerrors.UnavailableError
		upstream        *pkgerrors.UpstreamError
		validation      *pkgerrors.ValidationError
		notFound        *pkgerrors.NotFoundError
		alreadyExists   *pkgerrors.AlreadyExistsError
		unauthenticated *pkgerrors.UnauthenticatedError
	)

	switch {
	case errors.As(err, &unavailable):
		log.Error("request failed, backend unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "service_unavailable",
			Message: unavailable.Message,
		})
	case errors.As(err, &upstream):
		log.Warn("request failed, upstream error", zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "external API error",
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validation.Error(),
		})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: notFound.Error(),
		})
	case errors.As(err, &alreadyExists):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "already_exists",
			Message: alreadyExists.Error(),
		})
	case errors.As(err, &unauthenticated):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: unauthenticated.Error(),
		})
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

// badRequest reports a malformed request body.
func badRequest(c *gin.Context, log *zap.Logger, err error) {
	logger.WithContext(c.Request.Context(), log).Warn("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "request body must be valid JSON",
	})
}
