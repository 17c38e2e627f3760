package weather

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"user-auth-service/internal/adapter/cache"
	pkgerrors "user-auth-service/pkg/errors"
	"user-auth-service/pkg/logger"
)

// Provider fetches current conditions for a city as raw JSON.
type Provider interface {
	Current(ctx context.Context, city string) ([]byte, error)
}

// GetWeatherRequest names the city to look up.
type GetWeatherRequest struct {
	City string `validate:"required,min=1,max=100"`
}

// Usecase proxies weather lookups through a Redis cache.
type Usecase struct {
	provider Provider
	cache    cache.WeatherCache
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a weather Usecase. A nil cache disables caching.
func New(provider Provider, c cache.WeatherCache, log *zap.Logger) *Usecase {
	return &Usecase{provider: provider, cache: c, log: log, validate: validator.New()}
}

// GetWeather returns the provider payload for the city, serving it from cache while
// fresh. Cache faults are logged and bypassed.
func (uc *Usecase) GetWeather(ctx context.Context, in GetWeatherRequest) (json.RawMessage, error) {
	in.City = strings.TrimSpace(in.City)
	if err := uc.validate.Struct(in); err != nil {
		return nil, pkgerrors.FromValidator(err)
	}

	log := logger.WithContext(ctx, uc.log).With(zap.String("city", in.City))

	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, in.City)
		if err != nil {
			log.Warn("weather cache read failed", zap.Error(err))
		} else if cached != nil {
			return json.RawMessage(cached), nil
		}
	}

	payload, err := uc.provider.Current(ctx, in.City)
	if err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		log.Warn("weather provider returned invalid json")
		return nil, pkgerrors.NewUpstreamError("weather provider", 0)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, in.City, payload); err != nil {
			log.Warn("weather cache write failed", zap.Error(err))
		}
	}
	return json.RawMessage(payload), nil
}
