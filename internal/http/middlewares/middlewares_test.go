package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	h := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/x", h)
	r.POST("/x", h)
	r.GET("/admin/x", h)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	r := okRouter(RequestID(), rl.RateLimiterMiddleware(KeyByIP))

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"rate_limited"`)

	// another client is unaffected
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	clock = clock.Add(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestRateLimiter_SweepsExpiredBuckets(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	clock := time.Unix(0, 0)
	rl.now = func() time.Time { return clock }

	rl.allow("a")
	rl.allow("b")
	require.Len(t, rl.clients, 2)

	clock = clock.Add(2 * time.Second)
	rl.allow("c")

	assert.Len(t, rl.clients, 1)
}

func TestRequireJSON(t *testing.T) {
	r := okRouter(RequireJSON())

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{name: "json body", body: `{}`, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "form body", body: `a=b`, contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
		{name: "missing type", body: `{}`, want: http.StatusUnsupportedMediaType},
		{name: "upper case type", body: `{}`, contentType: "Application/JSON", want: http.StatusOK},
		{name: "json suffix is not json", body: `{}`, contentType: "application/jsonp", want: http.StatusUnsupportedMediaType},
		{name: "bodiless command", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			assert.Equal(t, tt.want, serve(r, req).Code)
		})
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := okRouter(MaxBodyBytes(4))

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":1}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc")
	w := serve(r, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "abc", seen)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get("X-Request-Id"), 36)

	for _, bad := range []string{"has space", "tab\there", strings.Repeat("a", 129)} {
		req = httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Request-Id", bad)
		w = serve(r, req)
		assert.Len(t, w.Header().Get("X-Request-Id"), 36, "replaces %q", bad)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := okRouter(CORSMiddleware([]string{"http://localhost:3000"}))

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = serve(r, req)
	assert.Equal(t, "ETag,Location,X-Request-Id", w.Header().Get("Access-Control-Expose-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"), "methods only on preflight")

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	r = okRouter(CORSMiddleware([]string{"*"}))
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://any.example")
	w = serve(r, req)
	assert.Equal(t, "http://any.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	r := okRouter(SecurityHeaders())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Cache-Control"))

	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/admin/x", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = serve(r, req)
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}
