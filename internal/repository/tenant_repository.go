package repository

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(db *gorm.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

// Create creates a new tenant
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = domain.NewID()
	}
	if tenant.Status == "" {
		tenant.Status = domain.StatusValid
	}
	if err := conn(ctx, r.db).Create(tenant).Error; err != nil {
		return fmt.Errorf("failed to create tenant: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a tenant by ID regardless of status
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := conn(ctx, r.db).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", translate(err))
	}
	return &t, nil
}
