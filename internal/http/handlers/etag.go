package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CachedJSON is a response body encoded once, kept with its ETag so cache hits
// skip both the store and the encoder.
type CachedJSON struct {
	Body []byte
	ETag string
}

func NewCachedJSON(payload any) (CachedJSON, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return CachedJSON{}, err
	}

	return CachedJSON{Body: b, ETag: etagOf(b)}, nil
}

func RespondCachedJSON(ctx *gin.Context, status int, c CachedJSON) {
	ctx.Header("ETag", c.ETag)

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), c.ETag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", c.Body)
}

func RespondJSONWithETag(ctx *gin.Context, status int, payload any) {
	c, err := NewCachedJSON(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	RespondCachedJSON(ctx, status, c)
}

func etagOf(b []byte) string {
	sum := sha256.Sum256(b)

	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	if strings.TrimSpace(headerValue) == "" || strings.TrimSpace(currentETag) == "" {
		return false
	}

	if strings.TrimSpace(headerValue) == "*" {
		return true
	}

	current := normalizeETag(currentETag)

	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}

	return false
}

func normalizeETag(raw string) string {
	v := strings.TrimSpace(raw)

	// RFC allows weak validators like W/"abc".
	if strings.HasPrefix(v, "W/") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "W/"))
	}

	return v
}
