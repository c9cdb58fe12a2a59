package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtour/caseflow/internal/platform/auth"
)

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, "op-1")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Recovery(logger)(func(c echo.Context) error {
		panic("boom")
	})

	err := h(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "handler panicked") {
		t.Errorf("expected panic log, got: %s", out)
	}
	if !strings.Contains(out, `"operator_id":"op-1"`) {
		t.Errorf("expected operator in panic log, got: %s", out)
	}
	if !strings.Contains(out, `"path":"/api/v1/patients"`) {
		t.Errorf("expected path in panic log, got: %s", out)
	}
}

func TestRecovery_PassesThroughNormally(t *testing.T) {
	var buf bytes.Buffer

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got: %s", buf.String())
	}
}
