package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-auth-service/internal/adapter/gin/middleware"
	domain "user-auth-service/internal/domain/user"
	"user-auth-service/internal/usecase/auth"
)

// AuthUsecase is the auth flow the handler drives.
type AuthUsecase interface {
	Register(ctx context.Context, in auth.RegisterRequest) (*domain.PublicUser, error)
	Login(ctx context.Context, in auth.LoginRequest) (*auth.TokenResponse, error)
	Me(ctx context.Context, subject string) (*domain.PublicUser, error)
}

// AuthHandler handles registration, login and the current-user endpoint
type AuthHandler struct {
	uc  AuthUsecase
	log *zap.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(uc AuthUsecase, log *zap.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, log: log}
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.Register(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.Login(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me handles GET /v1/auth/me. Requires middleware.BearerAuth.
func (h *AuthHandler) Me(c *gin.Context) {
	resp, err := h.uc.Me(c.Request.Context(), middleware.Subject(c))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
