package router

import (
	"net/http"

	"user-auth-service/api/openapi"
	"user-auth-service/internal/adapter/gin/handler"
	"user-auth-service/internal/adapter/gin/middleware"
	grpcmiddleware "user-auth-service/internal/adapter/grpc/middleware"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by SetupRouter.
type Handlers struct {
	User     *handler.UserHandler
	Auth     *handler.AuthHandler
	External *handler.ExternalHandler
	Health   *handler.HealthHandler
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	h Handlers,
	tokens middleware.TokenValidator,
	rateLimiter *grpcmiddleware.RateLimiter,
	log *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.RateLimiter(rateLimiter, log))

	router.GET("/health", h.Health.Health)

	// API description and browsable UI
	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openapi.Spec)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.GET("/me", middleware.BearerAuth(tokens), h.Auth.Me)
		}

		users := v1.Group("/users")
		{
			users.POST("", h.User.CreateUser)
			users.GET("", h.User.ListUsers)
			users.GET("/:id", h.User.GetUser)
			users.PUT("/:id", h.User.UpdateUser)
			users.DELETE("/:id", h.User.DeleteUser)
		}

		v1.GET("/external/weather", h.External.Weather)
		v1.POST("/webhooks/provider", h.External.ProviderWebhook)
	}

	return router
}
