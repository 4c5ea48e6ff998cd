package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders adds the minimal response headers the `environment`
// config option implies: HSTS is only sent in production, since it
// actively breaks local HTTP development.
func SecurityHeaders(environment string) gin.HandlerFunc {
	production := environment == "production"
	return func(c *gin.Context) {
		if production {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}
