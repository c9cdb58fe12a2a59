package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtour/caseflow/internal/platform/auth"
)

// Logger returns request logging middleware. Besides the usual HTTP fields it
// records the acting operator and, where the path carries one, the patient
// whose record was touched, so one log line ties a request to a case. Health
// probes are demoted to debug to keep the log readable.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			switch {
			case err != nil:
				evt = logger.Error().Err(err)
			case strings.HasPrefix(req.URL.Path, "/health"):
				evt = logger.Debug()
			}

			evt.Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if op := auth.UserIDFromContext(req.Context()); op != "" {
				evt.Str("operator_id", op)
			}
			if pid := extractPatientID(c); pid != "" {
				evt.Str("patient_id", pid)
			}
			evt.Msg("request")

			return err
		}
	}
}
