package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type routeHandler struct {
	path string
}

func (h routeHandler) Register(e *echo.Echo) {
	e.GET(h.path, func(c echo.Context) error { return c.String(http.StatusOK, h.path) })
}

type panicHandler struct{}

func (panicHandler) Register(e *echo.Echo) {
	e.GET("/boom", func(echo.Context) error { panic("boom") })
}

func TestServerMountsHandlers(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, "", routeHandler{path: "/a"}, nil, routeHandler{path: "/b"})
	if srv.Addr() != ":8080" {
		t.Fatalf("default addr = %q", srv.Addr())
	}
	for _, path := range []string{"/a", "/b"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != path {
			t.Fatalf("GET %s = %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestServerRecoversHandlerPanics(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, ":0", panicHandler{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestIsProbe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want bool
	}{
		{path: "/ping", want: true},
		{path: "/health", want: true},
		{path: "/metrics", want: true},
		{path: "/reminders/jobs", want: false},
	}
	for _, tc := range cases {
		got := isProbe(httptest.NewRequest(http.MethodGet, tc.path, nil))
		if got != tc.want {
			t.Fatalf("path=%q want=%v got=%v", tc.path, tc.want, got)
		}
	}
}
