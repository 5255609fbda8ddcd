package routes

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/couture/internal/apperr"
	"github.com/example/couture/internal/middleware"
)

// ErrorHandler turns handler errors into JSON responses. Unexpected errors
// are logged and hidden from everyone but staff.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"success": false, "error": fe.Message})
		}

		appErr := apperr.From(err)
		status := appErr.Status()
		switch appErr.Kind {
		case apperr.KindValidation:
			if len(appErr.Fields) > 0 {
				return c.Status(status).JSON(fiber.Map{"success": false, "errors": appErr.Fields})
			}
		case apperr.KindRateLimited:
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(appErr.RetryAfter))
			return c.Status(status).JSON(fiber.Map{
				"success":             false,
				"error":               appErr.Message,
				"retry_after_seconds": appErr.RetryAfter,
			})
		case apperr.KindInternal:
			actor := middleware.CurrentActor(c)
			log.Error("request failed",
				zap.Error(err),
				zap.String("actor", actor.String()),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("resource_id", c.Params("id")),
			)
			body := fiber.Map{"success": false, "error": "Internal server error"}
			if actor.IsStaff {
				body["detail"] = err.Error()
			}
			return c.Status(status).JSON(body)
		}

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   appErr.Message,
			"code":    appErr.Code,
		})
	}
}
