package mockservice

import (
	"net/http/httptest"
	"testing"

	"github.com/verustcode/reportviewer/internal/config"
)

// NewTestServer starts the service on an httptest server that is closed
// when the test ends.
func NewTestServer(tb testing.TB, cfg config.MockConfig, opts ...Option) (*Service, *httptest.Server) {
	tb.Helper()
	svc := New(cfg, opts...)
	ts := httptest.NewServer(NewRouter(svc, nil))
	tb.Cleanup(ts.Close)
	return svc, ts
}
