package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"recon-engine/internal/domain"
	"recon-engine/internal/service"
	"recon-engine/pkg/response"
)

const contextUserKey = "auth_user"

// Auth resolves the bearer token on every request into the acting User and
// stores it in the gin context "bearer token (opaque to the
// core)" contract. Missing/invalid/expired tokens are rejected with 401
// before the request reaches any handler. The token is read from the
// Authorization header, falling back to a `token` query parameter for the
// WebSocket upgrade route, since browsers cannot set custom headers on it.
func Auth(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
		if token == "" {
			response.Error(c, 401, "UNAUTHORIZED", "missing bearer token", "")
			c.Abort()
			return
		}

		user, err := auth.ResolveSession(token)
		if err != nil || user == nil {
			response.Error(c, 401, "UNAUTHORIZED", "invalid or expired session", "")
			c.Abort()
			return
		}
		if !user.IsActive {
			response.Error(c, 403, "FORBIDDEN", "account deactivated", "")
			c.Abort()
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// CurrentUser retrieves the acting User stashed by Auth. Callers must only
// invoke this on routes behind the Auth middleware.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}
