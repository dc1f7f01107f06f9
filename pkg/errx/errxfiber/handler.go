// Package errxfiber renders errx errors as fiber JSON responses.
package errxfiber

import (
	"errors"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// RequestIDHeader is set by the requestid middleware
const RequestIDHeader = "X-Request-ID"

// ErrorHandler is the app-wide fiber error handler. Bodies carry only the
// public message and code; details and causes go to the log.
func ErrorHandler(c *fiber.Ctx, err error) error {
	requestID := c.GetRespHeader(RequestIDHeader, c.Get(RequestIDHeader))

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":      fe.Message,
			"code":       "FIBER_ERROR",
			"request_id": requestID,
		})
	}

	status := errx.HTTPStatus(err)
	entry := logx.WithContext(c.UserContext()).WithFields(logx.Fields{
		"path":   c.Path(),
		"method": c.Method(),
		"status": status,
	}).WithError(err)

	var e *errx.Error
	if errors.As(err, &e) {
		if len(e.Details) > 0 {
			entry = entry.WithField("details", e.Details)
		}
		if status >= fiber.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}
		return c.Status(status).JSON(fiber.Map{
			"error":      e.Message,
			"code":       e.Code,
			"request_id": requestID,
		})
	}

	entry.Error("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":      errx.PublicMessage(err),
		"code":       "INTERNAL_ERROR",
		"request_id": requestID,
	})
}
