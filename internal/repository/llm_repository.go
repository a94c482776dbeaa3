package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

// PostgresLLMRepository implements domain.LLMRepository
type PostgresLLMRepository struct {
	db *gorm.DB
}

// NewPostgresLLMRepository creates a new catalog repository
func NewPostgresLLMRepository(db *gorm.DB) *PostgresLLMRepository {
	return &PostgresLLMRepository{db: db}
}

// Create adds a catalog entry
func (r *PostgresLLMRepository) Create(ctx context.Context, m *domain.LLM) error {
	if m.Status == "" {
		m.Status = domain.StatusValid
	}
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create llm: %w", translate(err))
	}
	return nil
}

// ListByFactory returns the VALID catalog entries of one provider
func (r *PostgresLLMRepository) ListByFactory(ctx context.Context, factory string) ([]*domain.LLM, error) {
	var out []*domain.LLM
	err := conn(ctx, r.db).
		Where("fid = ? AND status = ?", factory, domain.StatusValid).
		Order("llm_name ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list llms: %w", err)
	}
	return out, nil
}

// List returns the whole catalog
func (r *PostgresLLMRepository) List(ctx context.Context) ([]*domain.LLM, error) {
	var out []*domain.LLM
	if err := conn(ctx, r.db).Order("fid ASC, llm_name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list llms: %w", err)
	}
	return out, nil
}

// PostgresTenantLLMRepository implements domain.TenantLLMRepository
type PostgresTenantLLMRepository struct {
	db *gorm.DB
}

// NewPostgresTenantLLMRepository creates a new tenant model repository
func NewPostgresTenantLLMRepository(db *gorm.DB) *PostgresTenantLLMRepository {
	return &PostgresTenantLLMRepository{db: db}
}

// Create inserts a tenant model row
func (r *PostgresTenantLLMRepository) Create(ctx context.Context, m *domain.TenantLLM) error {
	if m.ID == "" {
		m.ID = domain.NewID()
	}
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create tenant llm: %w", translate(err))
	}
	return nil
}
