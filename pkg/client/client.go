package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"customer-service/internal/model"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each API call when Config.Timeout is zero
const DefaultTimeout = 30 * time.Second

// Identity headers read by a server running in header mode
const (
	DefaultUserHeader = "X-User-ID"
	DefaultOrgHeader  = "X-Org-ID"
)

// Config holds the client settings
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// UserID and OrgID are sent as identity headers when set
	UserID     string
	OrgID      string
	UserHeader string
	OrgHeader  string
}

// Payload is the body of a create or update call. Nil fields are omitted.
type Payload struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// APIError is a non-2xx response from the customers API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client calls the customers API
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// New creates a client. Calls are never retried.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}
	if cfg.UserID != "" {
		httpClient.SetHeader(orDefault(cfg.UserHeader, DefaultUserHeader), cfg.UserID)
	}
	if cfg.OrgID != "" {
		httpClient.SetHeader(orDefault(cfg.OrgHeader, DefaultOrgHeader), cfg.OrgID)
	}

	return &Client{httpClient: httpClient, logger: logger}
}

// List fetches the active organization's customers
func (c *Client) List(ctx context.Context) ([]model.Customer, error) {
	var result model.ListResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&model.ErrorResponse{}).
		Get("/customers")
	if err := c.check(resp, err, "list"); err != nil {
		return nil, err
	}
	if result.Customers == nil {
		result.Customers = []model.Customer{}
	}
	return result.Customers, nil
}

// Create adds a customer and returns the stored record
func (c *Client) Create(ctx context.Context, payload Payload) (*model.Customer, error) {
	var created model.Customer
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&created).
		SetError(&model.ErrorResponse{}).
		Post("/customers")
	if err := c.check(resp, err, "create"); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update patches the customer with id and returns the merged record
func (c *Client) Update(ctx context.Context, id string, payload Payload) (*model.Customer, error) {
	var updated model.Customer
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&updated).
		SetError(&model.ErrorResponse{}).
		Patch("/customers/" + url.PathEscape(id))
	if err := c.check(resp, err, "update"); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the customer with id
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&model.DeleteResponse{}).
		SetError(&model.ErrorResponse{}).
		Delete("/customers/" + url.PathEscape(id))
	return c.check(resp, err, "delete")
}

// check turns a transport failure or non-2xx response into an error
func (c *Client) check(resp *resty.Response, err error, operation string) error {
	if err != nil {
		c.logger.Error("Customers API call failed",
			zap.String("operation", operation),
			zap.Error(err))
		return fmt.Errorf("%s customers: %w", operation, err)
	}
	if resp.IsSuccess() {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*model.ErrorResponse); ok && body != nil {
		apiErr.Message = body.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode())
	}

	c.logger.Warn("Customers API returned error",
		zap.String("operation", operation),
		zap.Int("status_code", resp.StatusCode()),
		zap.String("message", apiErr.Message))
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
