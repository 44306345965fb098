package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const corsMaxAge = 10 * 60

var (
	corsMethods       = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}, ",")
	corsAllowHeaders  = strings.Join([]string{"Content-Type", "If-None-Match", HeaderRequestID}, ",")
	corsExposeHeaders = strings.Join([]string{"ETag", "Location", HeaderRequestID}, ",")
)

// CORSMiddleware lets the admin and public browser views call the API from
// their own origin. A "*" entry allows any origin; the origin is still echoed
// back rather than answering with a literal wildcard.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	anyOrigin := false

	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			anyOrigin = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		preflight := ctx.Request.Method == http.MethodOptions

		if origin != "" {
			ctx.Writer.Header().Add("Vary", "Origin")

			if _, ok := allowed[origin]; ok || anyOrigin {
				ctx.Header("Access-Control-Allow-Origin", origin)
				ctx.Header("Access-Control-Expose-Headers", corsExposeHeaders)

				if preflight {
					ctx.Header("Access-Control-Allow-Methods", corsMethods)
					ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
					ctx.Header("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
				}
			}
		}

		if preflight {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
