package middleware

import (
	"time"

	"AgentTrader/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one debug line per HTTP request.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			l.Debug("http request",
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}
