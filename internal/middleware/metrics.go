package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/couture/internal/metrics"
)

// resolve runs the app error handler for err so the final status is known
// to the middleware that inspects it.
func resolve(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}
	return c.App().ErrorHandler(c, err)
}

// Metrics records request counts and latencies by matched route.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		done := metrics.RequestStarted()
		err := resolve(c, c.Next())

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		done(c.Method(), route, c.Response().StatusCode())
		return err
	}
}
