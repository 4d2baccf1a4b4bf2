package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.Use(CORS(), BearerAuth(token))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	g.GET("/healthz", ok)
	g.GET("/v1/plugins", ok)
	return g
}

func serve(g *gin.Engine, method, path, remote string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestBearerAuth(t *testing.T) {
	g := newEngine("s3cret")
	const remote = "10.0.0.8:4000"

	tests := []struct {
		name   string
		path   string
		remote string
		header map[string]string
		want   int
	}{
		{name: "missing header", path: "/v1/plugins", remote: remote, want: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/v1/plugins", remote: remote, header: map[string]string{"Authorization": "Basic s3cret"}, want: http.StatusUnauthorized},
		{name: "wrong token", path: "/v1/plugins", remote: remote, header: map[string]string{"Authorization": "Bearer nope"}, want: http.StatusUnauthorized},
		{name: "valid token", path: "/v1/plugins", remote: remote, header: map[string]string{"Authorization": "Bearer s3cret"}, want: http.StatusOK},
		{name: "healthz whitelisted", path: "/healthz", remote: remote, want: http.StatusOK},
		{name: "loopback bypass", path: "/v1/plugins", remote: "127.0.0.1:5000", want: http.StatusOK},
		{name: "ipv6 loopback bypass", path: "/v1/plugins", remote: "[::1]:5000", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(g, http.MethodGet, tt.path, tt.remote, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestBearerAuthDisabledWithoutToken(t *testing.T) {
	w := serve(newEngine(""), http.MethodGet, "/v1/plugins", "10.0.0.8:4000", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	g := newEngine("")

	w := serve(g, http.MethodOptions, "/v1/plugins", "10.0.0.8:4000", map[string]string{"Origin": "http://ui.local"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://ui.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	w = serve(g, http.MethodGet, "/v1/plugins", "10.0.0.8:4000", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
