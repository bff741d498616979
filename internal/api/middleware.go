package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// HeaderUserID carries the authenticated user, set by the auth gateway in
// front of the API.
const HeaderUserID = "X-User-Id"

const sessionKey = "session"

// observe writes an access log record and request metrics. Errors are
// rendered here so the logged status is the one the client sees.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		elapsed := time.Since(start)

		req := c.Request()
		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}

		s.deps.Metrics.RecordHTTP(req.Method, route, status, elapsed)

		level := s.logger.Info
		if status >= http.StatusInternalServerError {
			level = s.logger.Error
		}
		level("HTTP request",
			"method", req.Method,
			"uri", req.RequestURI,
			"status", status,
			"duration", elapsed,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
		return nil
	}
}

// requireSession builds the per-request session from HeaderUserID.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderUserID+" header")
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+HeaderUserID+" header")
		}

		c.Set(sessionKey, model.Session{
			UserID:    userID,
			RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		})
		return next(c)
	}
}

func sessionFrom(c echo.Context) model.Session {
	session, _ := c.Get(sessionKey).(model.Session)
	return session
}
