package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// dbHealth is the /health/db response body.
type dbHealth struct {
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	ConnsInUse  int32  `json:"conns_in_use"`
	ConnsIdle   int32  `json:"conns_idle"`
	ConnsMax    int32  `json:"conns_max"`
	AcquireWait string `json:"acquire_wait"`
}

func healthBody(inUse, idle, max int32, wait time.Duration, pingErr error) (int, dbHealth) {
	h := dbHealth{
		Status:      "ok",
		ConnsInUse:  inUse,
		ConnsIdle:   idle,
		ConnsMax:    max,
		AcquireWait: wait.String(),
	}
	if pingErr != nil {
		h.Status = "unavailable"
		h.Error = pingErr.Error()
		return http.StatusServiceUnavailable, h
	}
	return http.StatusOK, h
}

// HealthHandler reports database connectivity and pool usage on /health/db.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stat := pool.Stat()
		code, body := healthBody(
			stat.AcquiredConns(),
			stat.IdleConns(),
			stat.MaxConns(),
			stat.AcquireDuration(),
			pool.Ping(ctx),
		)
		return c.JSON(code, body)
	}
}
