package handler

import (
	"net/http"

	"customer-service/pkg/database"
	"customer-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthHandler reports service liveness and database reachability
type HealthHandler struct {
	serviceName string
	db          *gorm.DB
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(serviceName string, db *gorm.DB) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	if h.db != nil {
		if err := database.Ping(h.db); err != nil {
			logger.FromEcho(c).Error("Database health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"status":  "unavailable",
				"service": h.serviceName,
			})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"service": h.serviceName,
	})
}
