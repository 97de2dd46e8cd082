package customer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"customer-service/internal/model"
	"customer-service/pkg/config"
	"customer-service/pkg/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T) (*gorm.DB, *GormRepository) {
	t.Helper()
	db, err := database.InitDB(&config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "customers.db"),
		LogLevel:   logger.Silent,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	require.NoError(t, database.MigrateModels(db, &model.Customer{}))
	return db, NewGormRepository(db)
}

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *GormRepository) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return mock, NewGormRepository(db)
}

func seed(t *testing.T, repo *GormRepository, orgID, name string, updatedAt int64) *model.Customer {
	t.Helper()
	c, err := repo.Create(context.Background(), orgID, &model.Customer{
		Name:      name,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	})
	require.NoError(t, err)
	return c
}

func names(customers []model.Customer) []string {
	out := make([]string, len(customers))
	for i, c := range customers {
		out[i] = c.Name
	}
	return out
}

func TestGormRepository_CreateAssignsIDAndOrg(t *testing.T) {
	_, repo := setupSQLite(t)

	c, err := repo.Create(context.Background(), "org_1", &model.Customer{
		Name:  "Acme",
		OrgID: "org_other",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "org_1", c.OrgID)
}

func TestGormRepository_ListOrderedByUpdatedAtDesc(t *testing.T) {
	_, repo := setupSQLite(t)

	seed(t, repo, "org_1", "three", 3)
	seed(t, repo, "org_1", "one", 1)
	seed(t, repo, "org_1", "two", 2)

	customers, err := repo.List(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two", "one"}, names(customers))
}

func TestGormRepository_ListCapped(t *testing.T) {
	_, repo := setupSQLite(t)

	for i := 0; i < model.MaxListSize+5; i++ {
		seed(t, repo, "org_1", fmt.Sprintf("c%03d", i), int64(i))
	}

	customers, err := repo.List(context.Background(), "org_1")
	require.NoError(t, err)
	require.Len(t, customers, model.MaxListSize)
	assert.Equal(t, "c104", customers[0].Name)
}

func TestGormRepository_ListEmpty(t *testing.T) {
	_, repo := setupSQLite(t)

	customers, err := repo.List(context.Background(), "org_1")
	require.NoError(t, err)
	assert.NotNil(t, customers)
	assert.Empty(t, customers)
}

func TestGormRepository_TenantIsolation(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	a := seed(t, repo, "org_a", "Acme", 10)

	customers, err := repo.List(ctx, "org_b")
	require.NoError(t, err)
	assert.Empty(t, customers)

	_, err = repo.Merge(ctx, "org_b", a.ID, model.CustomerPatch{Name: ptr("Hijack"), UpdatedAt: 20})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "org_b", a.ID))

	customers, err = repo.List(ctx, "org_a")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Acme", customers[0].Name)
}

func TestGormRepository_MergeMissingDoesNotWrite(t *testing.T) {
	db, repo := setupSQLite(t)

	_, err := repo.Merge(context.Background(), "org_1", "missing", model.CustomerPatch{Name: ptr("Ghost"), UpdatedAt: 5})
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&model.Customer{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGormRepository_MergeWritesOnlyPatchColumns(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	c, err := repo.Create(ctx, "org_1", &model.Customer{
		Name:      "Acme",
		Email:     ptr("a@acme.test"),
		Phone:     ptr("555"),
		CreatedAt: 100,
		UpdatedAt: 100,
	})
	require.NoError(t, err)

	merged, err := repo.Merge(ctx, "org_1", c.ID, model.CustomerPatch{
		Fields:    map[string]*string{"email": nil, "notes": ptr("vip")},
		UpdatedAt: 200,
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme", merged.Name)
	assert.Nil(t, merged.Email)
	assert.Equal(t, ptr("555"), merged.Phone)
	assert.Equal(t, ptr("vip"), merged.Notes)
	assert.Equal(t, int64(100), merged.CreatedAt)
	assert.Equal(t, int64(200), merged.UpdatedAt)
}

func TestGormRepository_MergeUpdatedAtStrictlyIncreases(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	c := seed(t, repo, "org_1", "Acme", 1000)

	merged, err := repo.Merge(ctx, "org_1", c.ID, model.CustomerPatch{UpdatedAt: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(1001), merged.UpdatedAt)

	// clock went backwards
	merged, err = repo.Merge(ctx, "org_1", c.ID, model.CustomerPatch{UpdatedAt: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(1002), merged.UpdatedAt)
}

func TestGormRepository_DeleteIdempotent(t *testing.T) {
	_, repo := setupSQLite(t)
	ctx := context.Background()

	c := seed(t, repo, "org_1", "Acme", 1)

	require.NoError(t, repo.Delete(ctx, "org_1", c.ID))
	require.NoError(t, repo.Delete(ctx, "org_1", c.ID))

	customers, err := repo.List(ctx, "org_1")
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestGormRepository_ListQueryError(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background(), "org_1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_MergeMissingRollsBack(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Merge(context.Background(), "org_1", "missing", model.CustomerPatch{UpdatedAt: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	// no UPDATE or INSERT was issued
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_DeleteExecError(t *testing.T) {
	mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "org_1", "c1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func ptr(s string) *string { return &s }
