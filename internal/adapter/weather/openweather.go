package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	pkgerrors "user-auth-service/pkg/errors"
	"user-auth-service/pkg/logger"
)

const (
	// ProviderName identifies the upstream in errors and logs.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the public OpenWeatherMap endpoint.
	DefaultBaseURL = "https://api.openweathermap.org"

	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 5 * time.Second

	maxResponseBytes = 1 << 20
)

// Config holds provider settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fetches current weather from OpenWeatherMap.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a provider client. Zero fields fall back to the defaults.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// Current returns the provider's raw JSON for city. Any non-200 answer or transport
// failure is reported as *pkgerrors.UpstreamError.
func (c *Client) Current(ctx context.Context, city string) ([]byte, error) {
	log := logger.WithContext(ctx, c.log).With(zap.String("city", city))

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	endpoint := c.baseURL + "/data/2.5/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("weather request failed", zap.Error(err))
		return nil, pkgerrors.NewUpstreamError(ProviderName, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Warn("failed to read weather response", zap.Error(err))
		return nil, pkgerrors.NewUpstreamError(ProviderName, resp.StatusCode)
	}

	log.Debug("weather provider answered",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		log.Warn("weather provider returned non-200", zap.Int("status", resp.StatusCode))
		return nil, pkgerrors.NewUpstreamError(ProviderName, resp.StatusCode)
	}
	return body, nil
}
