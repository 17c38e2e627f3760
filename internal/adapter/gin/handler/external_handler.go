package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-auth-service/internal/usecase/weather"
	"user-auth-service/internal/usecase/webhook"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Signature"

// DefaultMaxWebhookBytes bounds webhook bodies when no limit is configured.
const DefaultMaxWebhookBytes = 1 << 20

// WeatherUsecase resolves current weather for a city.
type WeatherUsecase interface {
	GetWeather(ctx context.Context, in weather.GetWeatherRequest) (json.RawMessage, error)
}

// WebhookUsecase verifies and records provider events.
type WebhookUsecase interface {
	Handle(ctx context.Context, body []byte, signature string) (*webhook.Result, error)
}

// ExternalHandler serves the third-party integrations: the weather proxy and the
// provider webhook.
type ExternalHandler struct {
	weather      WeatherUsecase
	webhook      WebhookUsecase
	maxBodyBytes int64
	log          *zap.Logger
}

// NewExternalHandler creates a new ExternalHandler instance
func NewExternalHandler(w WeatherUsecase, wh WebhookUsecase, maxBodyBytes int64, log *zap.Logger) *ExternalHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxWebhookBytes
	}
	return &ExternalHandler{weather: w, webhook: wh, maxBodyBytes: maxBodyBytes, log: log}
}

// Weather handles GET /v1/external/weather?city=
func (h *ExternalHandler) Weather(c *gin.Context) {
	payload, err := h.weather.GetWeather(c.Request.Context(), weather.GetWeatherRequest{City: c.Query("city")})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// ProviderWebhook handles POST /v1/webhooks/provider
func (h *ExternalHandler) ProviderWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "payload_too_large",
				Message: "webhook body exceeds the size limit",
			})
			return
		}
		badRequest(c, h.log, err)
		return
	}

	res, err := h.webhook.Handle(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
