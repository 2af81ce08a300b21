package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-api/internal/app"
	"portfolio-api/internal/transport/http/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "email"
)

// TokenFromRequest reads the session token from the Authorization header
// first and falls back to the session cookie. A Bearer header always wins,
// even when its token is empty, so a broken header is never rescued by a
// stale cookie.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "Bearer" {
		return ""
	}
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	return ""
}

func AuthJWT(authService *app.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			response.Error(c, 401, response.CodeUnauthorized, "not authenticated")
			c.Abort()
			return
		}

		claims, err := authService.Authenticate(token)
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "not authenticated")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextEmailKey, claims.Email)
		c.Next()
	}
}
