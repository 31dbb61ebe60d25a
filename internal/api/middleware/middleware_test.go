package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogger(t *testing.T) {
	for _, cfg := range []*LoggerConfig{nil, {AccessLog: true}, {AccessLog: false}} {
		r := newRouter(RequestID(), Logger(cfg))
		r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
		r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
		r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil)).Code)
		assert.Equal(t, http.StatusBadRequest, serve(r, httptest.NewRequest(http.MethodGet, "/bad", nil)).Code)
		assert.Equal(t, http.StatusInternalServerError, serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil)).Code)
	}
}

func TestRecovery(t *testing.T) {
	r := newRouter(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextKeyRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w = serve(r, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestMetrics(t *testing.T) {
	r := newRouter(Metrics(&telemetry.Metrics{}))
	r.GET("/api/reportcache/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/api/reportcache/abc", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil)).Code)
}

func TestErrorHandler(t *testing.T) {
	r := newRouter(ErrorHandler())
	r.GET("/state", func(c *gin.Context) {
		_ = c.Error(errors.ErrInvalidState("document is not rendered"))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(stderrors.New("disk full"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/state", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "document is not rendered", body["message"])
	assert.Equal(t, string(errors.ErrCodeInvalidState), body["code"])

	w = serve(r, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type staticValidator map[string]string

func (v staticValidator) ValidateToken(token string) (string, error) {
	if sub, ok := v[token]; ok {
		return sub, nil
	}
	return "", stderrors.New("unknown token")
}

func TestBearerAuth(t *testing.T) {
	r := newRouter(BearerAuth(staticValidator{"good": "viewer"}))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextKeySubject)) })

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "viewer", w.Body.String())
			}
		})
	}
}
