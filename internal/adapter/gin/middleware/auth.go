package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"user-auth-service/pkg/logger"
)

const subjectKey = "auth.subject"

// TokenValidator checks an access token and returns its subject.
type TokenValidator interface {
	Validate(token string) (string, bool)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer <token>" header
// and exposes the token subject through Subject.
func BearerAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, tok, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tok) == "" {
			unauthorized(c)
			return
		}

		subject, ok := tokens.Validate(strings.TrimSpace(tok))
		if !ok {
			unauthorized(c)
			return
		}

		c.Set(subjectKey, subject)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), subject))
		c.Next()
	}
}

// Subject returns the authenticated subject, or "" outside BearerAuth.
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": "Could not validate credentials",
	})
}
