package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRequestTimeout_CompletesWithinDeadline(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestTimeout(time.Second)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequestTimeout_ReturnsTimeoutOnExpiry(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestTimeout(20 * time.Millisecond)(func(c echo.Context) error {
		time.Sleep(200 * time.Millisecond)
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504 HTTPError, got %v", err)
	}
}

func TestRequestTimeout_ContextHasDeadline(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestTimeout(time.Second)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); !ok {
			t.Error("expected request context to carry a deadline")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestRequestTimeout_PropagatesHandlerError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	want := echo.NewHTTPError(http.StatusConflict, "slot taken")
	handler := RequestTimeout(time.Second)(func(c echo.Context) error {
		return want
	})
	if err := handler(c); err != want {
		t.Errorf("expected handler error to pass through, got %v", err)
	}
}
