package handler

import (
	"errors"
	"net/http"

	"customer-service/internal/customer"
	"customer-service/internal/identity"
	"customer-service/internal/model"
	"customer-service/pkg/logger"
	"customer-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CustomerHandler serves the customers resource
type CustomerHandler struct {
	service *customer.Service
	binder  echo.DefaultBinder
}

// NewCustomerHandler creates a handler backed by service
func NewCustomerHandler(service *customer.Service) *CustomerHandler {
	return &CustomerHandler{service: service}
}

// Register mounts the customer routes on g
func (h *CustomerHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// List handles GET /customers
func (h *CustomerHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	customers, err := h.service.List(c.Request().Context(), identity.FromEcho(c))
	if err != nil {
		return h.fail(c, "list", err, "Failed to load customers")
	}

	prometheus.RecordCustomerOperation("list")
	log.Info("Customers retrieved successfully", zap.Int("count", len(customers)))
	return c.JSON(http.StatusOK, model.ListResponse{Customers: customers})
}

// Create handles POST /customers
func (h *CustomerHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	created, err := h.service.Create(c.Request().Context(), identity.FromEcho(c), h.bindFields(c))
	if err != nil {
		return h.fail(c, "create", err, "Failed to create customer")
	}

	prometheus.RecordCustomerOperation("create")
	log.Info("Customer created successfully", zap.String("customer_id", created.ID))
	return c.JSON(http.StatusCreated, created)
}

// Update handles PATCH /customers/:id
func (h *CustomerHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	updated, err := h.service.Update(c.Request().Context(), identity.FromEcho(c), id, h.bindFields(c))
	if err != nil {
		return h.fail(c, "update", err, "Failed to update customer")
	}

	prometheus.RecordCustomerOperation("update")
	log.Info("Customer updated successfully",
		zap.String("customer_id", id),
		zap.Int64("updated_at", updated.UpdatedAt))
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /customers/:id
func (h *CustomerHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	if err := h.service.Delete(c.Request().Context(), identity.FromEcho(c), id); err != nil {
		return h.fail(c, "delete", err, "Failed to delete customer")
	}

	prometheus.RecordCustomerOperation("delete")
	log.Info("Customer deleted successfully", zap.String("customer_id", id))
	return c.JSON(http.StatusOK, model.DeleteResponse{OK: true})
}

// bindFields decodes the JSON body. A malformed body counts as an empty payload.
func (h *CustomerHandler) bindFields(c echo.Context) model.CustomerFields {
	var fields model.CustomerFields
	if err := h.binder.BindBody(c, &fields); err != nil {
		logger.FromEcho(c).Warn("Ignoring malformed request body", zap.Error(err))
		return model.CustomerFields{}
	}
	return fields
}

// fail maps a service error to its status and message
func (h *CustomerHandler) fail(c echo.Context, operation string, err error, storeMessage string) error {
	log := logger.FromEcho(c)

	status, message, kind := http.StatusInternalServerError, storeMessage, "store"
	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		status, message, kind = http.StatusUnauthorized, "Unauthorized", "unauthorized"
	case errors.Is(err, identity.ErrNoOrganization):
		status, message, kind = http.StatusBadRequest, "No organization selected", "no_tenant"
		prometheus.RecordTenantContextMissing()
	case errors.Is(err, customer.ErrNameRequired):
		status, message, kind = http.StatusBadRequest, "Name is required", "validation"
	case errors.Is(err, customer.ErrNameEmpty):
		status, message, kind = http.StatusBadRequest, "Name cannot be empty", "validation"
	case errors.Is(err, customer.ErrNotFound):
		status, message, kind = http.StatusNotFound, "Not found", "not_found"
	}

	prometheus.RecordCustomerError(operation, kind)
	if status == http.StatusInternalServerError {
		log.Error(storeMessage, zap.String("operation", operation), zap.Error(err))
	} else {
		log.Warn("Customer request rejected",
			zap.String("operation", operation),
			zap.Int("status", status),
			zap.String("reason", message))
	}

	return c.JSON(status, model.ErrorResponse{Error: message})
}
