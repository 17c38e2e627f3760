package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"user-auth-service/internal/usecase/weather"
	"user-auth-service/internal/usecase/webhook"
	pkgerrors "user-auth-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

type MockWeatherUsecase struct {
	mock.Mock
}

func (m *MockWeatherUsecase) GetWeather(ctx context.Context, in weather.GetWeatherRequest) (json.RawMessage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

type MockWebhookUsecase struct {
	mock.Mock
}

func (m *MockWebhookUsecase) Handle(ctx context.Context, body []byte, signature string) (*webhook.Result, error) {
	args := m.Called(ctx, body, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Result), args.Error(1)
}

func setupExternalTest(t *testing.T, maxBody int64) (*gin.Engine, *MockWeatherUsecase, *MockWebhookUsecase) {
	gin.SetMode(gin.TestMode)
	w := new(MockWeatherUsecase)
	wh := new(MockWebhookUsecase)
	h := NewExternalHandler(w, wh, maxBody, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/external/weather", h.Weather)
	r.POST("/webhooks/provider", h.ProviderWebhook)
	return r, w, wh
}

func TestExternalHandler_Weather(t *testing.T) {
	t.Run("Payload Passed Through", func(t *testing.T) {
		r, w, _ := setupExternalTest(t, 0)
		payload := json.RawMessage(`{"name":"Berlin","main":{"temp":280.1}}`)
		w.On("GetWeather", mock.Anything, weather.GetWeatherRequest{City: "Berlin"}).Return(payload, nil)

		rec := doJSON(r, http.MethodGet, "/external/weather?city=Berlin", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, string(payload), rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})

	t.Run("Upstream Failure", func(t *testing.T) {
		r, w, _ := setupExternalTest(t, 0)
		w.On("GetWeather", mock.Anything, mock.Anything).Return(nil, pkgerrors.NewUpstreamError("openweathermap", http.StatusUnauthorized))

		rec := doJSON(r, http.MethodGet, "/external/weather?city=Berlin", nil)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "external API error", decodeError(t, rec).Message)
	})

	t.Run("Missing City", func(t *testing.T) {
		r, w, _ := setupExternalTest(t, 0)
		w.On("GetWeather", mock.Anything, weather.GetWeatherRequest{}).Return(nil, pkgerrors.NewValidationError("city", "city is required"))

		rec := doJSON(r, http.MethodGet, "/external/weather", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExternalHandler_ProviderWebhook(t *testing.T) {
	body := `{"id":"evt_1","type":"payment.succeeded"}`

	t.Run("Accepted", func(t *testing.T) {
		r, _, wh := setupExternalTest(t, 0)
		wh.On("Handle", mock.Anything, []byte(body), "abc123").Return(&webhook.Result{Status: webhook.StatusOK, EventID: "evt_1"}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", strings.NewReader(body))
		req.Header.Set(SignatureHeader, "abc123")
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","event_id":"evt_1"}`, rec.Body.String())
	})

	t.Run("Duplicate", func(t *testing.T) {
		r, _, wh := setupExternalTest(t, 0)
		wh.On("Handle", mock.Anything, mock.Anything, mock.Anything).Return(&webhook.Result{Status: webhook.StatusDuplicate, EventID: "evt_1"}, nil)

		rec := doJSON(r, http.MethodPost, "/webhooks/provider", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"duplicate"`)
	})

	t.Run("Bad Signature", func(t *testing.T) {
		r, _, wh := setupExternalTest(t, 0)
		wh.On("Handle", mock.Anything, mock.Anything, mock.Anything).Return(nil, webhook.ErrBadSignature)

		rec := doJSON(r, http.MethodPost, "/webhooks/provider", body)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Ledger Down", func(t *testing.T) {
		r, _, wh := setupExternalTest(t, 0)
		wh.On("Handle", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewUnavailableError("event ledger unavailable", errors.New("dial tcp: refused")))

		rec := doJSON(r, http.MethodPost, "/webhooks/provider", body)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NotContains(t, rec.Body.String(), "dial tcp")
	})

	t.Run("Oversized Body", func(t *testing.T) {
		r, _, wh := setupExternalTest(t, 16)

		rec := doJSON(r, http.MethodPost, "/webhooks/provider", body)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		wh.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
	})
}
