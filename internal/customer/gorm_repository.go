package customer

import (
	"context"
	"errors"
	"time"

	"customer-service/internal/model"
	"customer-service/prometheus"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRepository stores customers in a SQL database through GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository on db
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) scoped(ctx context.Context, orgID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Customer{}).Where("org_id = ?", orgID)
}

// List returns up to model.MaxListSize records, most recently updated first
func (r *GormRepository) List(ctx context.Context, orgID string) ([]model.Customer, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	customers := make([]model.Customer, 0)
	err := r.scoped(ctx, orgID).
		Order("updated_at DESC").
		Order("id ASC").
		Limit(model.MaxListSize).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// Create inserts c under orgID with a fresh id
func (r *GormRepository) Create(ctx context.Context, orgID string, c *model.Customer) (*model.Customer, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	record := *c
	record.ID = uuid.New().String()
	record.OrgID = orgID

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Merge applies patch to an existing record and returns the merged result.
// The existence check and the write share one transaction so a missing
// record is never recreated.
func (r *GormRepository) Merge(ctx context.Context, orgID, id string, patch model.CustomerPatch) (*model.Customer, error) {
	defer prometheus.TrackDBOperation("merge")(time.Now())

	var merged model.Customer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Customer
		err := tx.Where("org_id = ? AND id = ?", orgID, id).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		// updatedAt must strictly increase even if the clock has not
		if patch.UpdatedAt <= current.UpdatedAt {
			patch.UpdatedAt = current.UpdatedAt + 1
		}

		err = tx.Model(&model.Customer{}).
			Where("org_id = ? AND id = ?", orgID, id).
			Updates(patch.Columns()).Error
		if err != nil {
			return err
		}

		return tx.Where("org_id = ? AND id = ?", orgID, id).First(&merged).Error
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// Delete removes the record; a missing record is not an error
func (r *GormRepository) Delete(ctx context.Context, orgID, id string) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	return r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&model.Customer{}).Error
}
