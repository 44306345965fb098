package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-Id"

	// gin context keys; handlers read the snake_case one
	CtxRequestID       = "requestID"
	legacyRequestIDKey = "request_id"

	maxRequestIDLen = 128
)

// RequestID reuses a caller supplied X-Request-Id when it looks sane and
// mints a uuid otherwise.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(HeaderRequestID)

		if !validRequestID(id) {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(HeaderRequestID, id)

		ctx.Set(CtxRequestID, id)
		ctx.Set(legacyRequestIDKey, id)

		ctx.Next()
	}
}

// ids end up in logs and job payloads, so only visible ASCII is accepted
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
