package observability

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger logs every request with its headers, JSON bodies for
// mutating methods, and the response status. A malformed JSON body is
// logged raw instead of failing the request.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("headers", c.GetReqHeaders()),
		}

		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
			if body := c.Body(); len(body) > 0 {
				var parsed map[string]any
				if err := json.Unmarshal(body, &parsed); err == nil {
					fields = append(fields, zap.Any("body", parsed))
				} else {
					fields = append(fields, zap.ByteString("body_raw", body))
				}
			}
		}
		logger.Info("incoming request", fields...)

		err := c.Next()

		status := c.Response().StatusCode()
		duration := time.Since(start)
		logger.Info("request completed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		)
		if metrics != nil {
			metrics.RecordRequest(c.Path(), c.Method(), status, duration)
		}
		return err
	}
}
