package customer

import (
	"context"
	"errors"

	"customer-service/internal/model"
)

// ErrNotFound means no record with that id exists in the tenant's scope
var ErrNotFound = errors.New("customer not found")

// Repository is the tenant-scoped customer store.
// Every method filters by orgID; a record is never reachable from another tenant.
type Repository interface {
	List(ctx context.Context, orgID string) ([]model.Customer, error)
	Create(ctx context.Context, orgID string, c *model.Customer) (*model.Customer, error)
	Merge(ctx context.Context, orgID, id string, patch model.CustomerPatch) (*model.Customer, error)
	Delete(ctx context.Context, orgID, id string) error
}
