package http

import (
	"context"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-portal/internal/observability"
	apperrors "github.com/spec-kit/staff-portal/pkg/util/errorutil"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestIDMiddleware())
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	// The request logger wraps error handling so it sees the final status.
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

// requestIDMiddleware keeps a caller-supplied request id or mints one.
func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(requestIDHeader, id)
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)

				body := fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}
				if len(domainErr.Details) > 0 {
					body["details"] = domainErr.Details
				}
				if id, ok := c.Locals(requestIDKey).(string); ok {
					body["request_id"] = id
				}
				if minutes, ok := domainErr.Details["remaining_minutes"].(int); ok && minutes > 0 {
					c.Set(fiber.HeaderRetryAfter, strconv.Itoa(minutes*60))
				}

				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				} else {
					logger.Debug("request rejected", zap.String("path", c.Path()), zap.String("code", domainErr.Code))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(fiber.Map{"error": body})
				err = nil
			}
		}()
		return c.Next()
	}
}
