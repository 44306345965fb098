package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// the API only ever answers JSON or plain text, nothing needs to load
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

const hsts = "max-age=31536000; includeSubDomains"

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", apiCSP)

		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			h.Set("Strict-Transport-Security", hsts)
		}

		// admin answers carry attendee data
		if strings.HasPrefix(c.Request.URL.Path, "/admin") {
			h.Set("Cache-Control", "no-store")
		}
		c.Next()
	}
}
