package rulesdb

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nofendian17/marketscanner/internal/scanerr"
)

// Config holds Postgres connection parameters for the rules database.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func (c Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName,
	)
}

// Repository wraps GORM access to the user_scanner_filters table.
type Repository struct {
	db *gorm.DB
}

// Open connects to Postgres and returns a ready Repository. Callers
// own the returned *gorm.DB lifetime via Close.
func Open(cfg Config) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(cfg.dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("rulesdb: open: %w", err)
	}
	return &Repository{db: db}, nil
}

// NewRepository wraps an already-opened *gorm.DB, for callers that
// manage the connection pool themselves (e.g. shared with other
// services in the same process).
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate ensures the user_scanner_filters table exists, mirroring
// the teacher's schema-init-at-startup step.
func (r *Repository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&UserScannerFilter{}); err != nil {
		return fmt.Errorf("rulesdb: automigrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListEnabled returns every enabled filter across all users, the full
// set the RETE manager compiles into user rules on each reload.
func (r *Repository) ListEnabled(ctx context.Context) ([]UserScannerFilter, error) {
	var filters []UserScannerFilter
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&filters).Error; err != nil {
		return nil, fmt.Errorf("rulesdb: list enabled: %w", err)
	}
	return filters, nil
}

// CountEnabled returns the number of enabled filters, used by the
// periodic safety-net reload to detect drift without loading every row.
func (r *Repository) CountEnabled(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserScannerFilter{}).Where("enabled = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("rulesdb: count enabled: %w", err)
	}
	return count, nil
}

// Save creates or updates a user's filter.
func (r *Repository) Save(ctx context.Context, filter *UserScannerFilter) error {
	if err := r.db.WithContext(ctx).Save(filter).Error; err != nil {
		return fmt.Errorf("rulesdb: save: %w", err)
	}
	return nil
}

// Delete removes a filter by ID. Returns a *scanerr.NotFoundError if
// no row matched id, since GORM's Delete otherwise succeeds silently
// on a no-op.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&UserScannerFilter{}, id)
	if result.Error != nil {
		return fmt.Errorf("rulesdb: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return scanerr.NewNotFoundErrorWithID("user_scanner_filter", id)
	}
	return nil
}
