package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"customer-service/internal/identity"
	"customer-service/internal/model"
	"customer-service/pkg/logger"

	"go.uber.org/zap"
)

var (
	// ErrNameRequired is returned by Create when the name is missing or blank
	ErrNameRequired = errors.New("name is required")
	// ErrNameEmpty is returned by Update when a present name is null or blank
	ErrNameEmpty = errors.New("name cannot be empty")
)

// Service implements the customer operations on top of a Repository
type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewService creates a customer service. A nil now uses time.Now.
func NewService(repo Repository, log *zap.Logger, now func() time.Time) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, log: log, now: now}
}

// List returns the tenant's customers, most recently updated first
func (s *Service) List(ctx context.Context, session identity.Session) ([]model.Customer, error) {
	orgID, err := session.Tenant()
	if err != nil {
		return nil, err
	}

	customers, err := s.repo.List(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// Create validates fields and stores a new customer in the session's organization
func (s *Service) Create(ctx context.Context, session identity.Session, fields model.CustomerFields) (*model.Customer, error) {
	orgID, err := session.Tenant()
	if err != nil {
		return nil, err
	}

	name := fields.Name.Trimmed()
	if name == "" {
		return nil, ErrNameRequired
	}

	now := s.now().UnixMilli()
	created, err := s.repo.Create(ctx, orgID, &model.Customer{
		Name:      name,
		Email:     fields.Email.Normalized(),
		Phone:     fields.Phone.Normalized(),
		Notes:     fields.Notes.Normalized(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	logger.FromContextOr(ctx, s.log).Info("Customer created",
		zap.String("org_id", orgID),
		zap.String("customer_id", created.ID))
	return created, nil
}

// Update writes only the fields present in the payload and refreshes updatedAt
func (s *Service) Update(ctx context.Context, session identity.Session, id string, fields model.CustomerFields) (*model.Customer, error) {
	orgID, err := session.Tenant()
	if err != nil {
		return nil, err
	}

	patch := model.CustomerPatch{
		Fields:    make(map[string]*string),
		UpdatedAt: s.now().UnixMilli(),
	}

	if fields.Name.Set {
		name := fields.Name.Trimmed()
		if name == "" {
			return nil, ErrNameEmpty
		}
		patch.Name = &name
	}
	if fields.Email.Set {
		patch.Fields["email"] = fields.Email.Normalized()
	}
	if fields.Phone.Set {
		patch.Fields["phone"] = fields.Phone.Normalized()
	}
	if fields.Notes.Set {
		patch.Fields["notes"] = fields.Notes.Normalized()
	}

	updated, err := s.repo.Merge(ctx, orgID, id, patch)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("update customer %s: %w", id, err)
	}

	logger.FromContextOr(ctx, s.log).Info("Customer updated",
		zap.String("org_id", orgID),
		zap.String("customer_id", id))
	return updated, nil
}

// Delete removes the customer. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, session identity.Session, id string) error {
	orgID, err := session.Tenant()
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}

	logger.FromContextOr(ctx, s.log).Info("Customer deleted",
		zap.String("org_id", orgID),
		zap.String("customer_id", id))
	return nil
}
