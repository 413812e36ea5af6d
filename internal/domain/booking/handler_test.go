package booking

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSchedulingHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError(CodeInvalidRequest, "bad input"), http.StatusBadRequest},
		{"not found", NewNotFoundError("missing"), http.StatusNotFound},
		{"conflict", NewConflictError(CodeConflict, "taken", nil), http.StatusConflict},
		{"rejected", NewRejectionError(CodeNotAvailableNow, "off shift", nil), http.StatusConflict},
		{"empty series", NewConflictError(CodeEmptySeries, "nothing bookable", nil), http.StatusConflict},
		{"plain error", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr, ok := schedulingHTTPError(tt.err).(*echo.HTTPError)
			if !ok {
				t.Fatal("expected *echo.HTTPError")
			}
			if httpErr.Code != tt.want {
				t.Errorf("got status %d, want %d", httpErr.Code, tt.want)
			}
		})
	}
}

func TestSearchFilterFromQuery(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet,
		"/appointments?status=confirmed&date_from=2026-03-01&date_to=2026-03-31", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	filter, err := searchFilterFromQuery(c)
	if err != nil {
		t.Fatalf("searchFilterFromQuery: %v", err)
	}
	if filter.Status == nil || *filter.Status != StatusConfirmed {
		t.Errorf("expected confirmed status filter")
	}
	if filter.DateFrom == nil || filter.DateFrom.Format("2006-01-02") != "2026-03-01" {
		t.Errorf("expected date_from parsed")
	}
	if filter.DateTo == nil || filter.DateTo.Format("2006-01-02") != "2026-03-31" {
		t.Errorf("expected date_to parsed")
	}
	if filter.ClientID != nil || filter.ProfessionalID != nil || filter.SeriesID != nil {
		t.Errorf("unset filters must stay nil")
	}
}

func TestSearchFilterFromQuery_BadInput(t *testing.T) {
	e := echo.New()
	for _, query := range []string{
		"client_id=not-a-uuid",
		"date_from=03/01/2026",
		"status=walking",
	} {
		req := httptest.NewRequest(http.MethodGet, "/appointments?"+query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		_, err := searchFilterFromQuery(c)
		if err == nil {
			t.Errorf("query %q should be rejected", query)
			continue
		}
		// The helper hands back a bare message; the handler is the one
		// place that wraps it into an HTTP error.
		if _, ok := err.(*echo.HTTPError); ok {
			t.Errorf("query %q: helper must not return *echo.HTTPError", query)
		}
		if strings.Contains(err.Error(), "code=") {
			t.Errorf("query %q: message %q carries HTTP framing", query, err.Error())
		}
	}
}
