package server

import (
	"net/http"
	"time"

	ginmiddleware "user-auth-service/internal/adapter/gin/middleware"
	ginrouter "user-auth-service/internal/adapter/gin/router"
	grpcmiddleware "user-auth-service/internal/adapter/grpc/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(
	handlers ginrouter.Handlers,
	tokens ginmiddleware.TokenValidator,
	rateLimiter *grpcmiddleware.RateLimiter,
	environment string,
	ginAddr string,
	l *zap.Logger,
) *http.Server {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin router with all middleware and routes
	router := ginrouter.SetupRouter(handlers, tokens, rateLimiter, l)

	l.Info("Gin REST API configured", zap.String("address", ginAddr))

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
