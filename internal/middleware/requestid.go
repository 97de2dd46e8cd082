package middleware

import (
	"customer-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HeaderRequestID is propagated from the caller when present
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware tags each request with an id and a request-scoped logger
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request().Header.Set(HeaderRequestID, requestID)
		}
		c.Response().Header().Set(HeaderRequestID, requestID)

		c.Set("request_id", requestID)

		log := logger.GetLogger().With(zap.String("request_id", requestID))
		logger.SetEcho(c, log)

		return next(c)
	}
}
