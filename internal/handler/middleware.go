package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/flightscout/pkg/logger"
	"github.com/dharmasatrya/flightscout/pkg/metrics"
)

// RequestLogger writes one access line per request through the service logger.
func RequestLogger(log logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Int64("latency_ms", v.Latency.Milliseconds()),
				logger.String("request_id", v.RequestID),
			}
			ctx := c.Request().Context()
			if v.Error != nil {
				log.Error(ctx, "request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			log.Info(ctx, "request", fields...)
			return nil
		},
	})
}

// Metrics records request counts and latency keyed by route template.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPRequest(route, c.Request().Method, strconv.Itoa(status),
				float64(time.Since(start).Microseconds())/1000)
			return err
		}
	}
}
