package repository

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

// PostgresDialogRepository implements domain.DialogRepository
type PostgresDialogRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPostgresDialogRepository creates a new dialog repository
func NewPostgresDialogRepository(db *gorm.DB, logger *slog.Logger) *PostgresDialogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDialogRepository{db: db, logger: logger}
}

// Create inserts a dialog
func (r *PostgresDialogRepository) Create(ctx context.Context, d *domain.Dialog) error {
	if d.ID == "" {
		d.ID = domain.NewID()
	}
	if d.Status == "" {
		d.Status = domain.StatusValid
	}
	if err := conn(ctx, r.db).Create(d).Error; err != nil {
		r.logger.Error("failed to create dialog",
			slog.String("tenant_id", d.TenantID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create dialog: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a dialog regardless of status
func (r *PostgresDialogRepository) GetByID(ctx context.Context, id string) (*domain.Dialog, error) {
	var d domain.Dialog
	if err := conn(ctx, r.db).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, fmt.Errorf("failed to get dialog: %w", translate(err))
	}
	return &d, nil
}

// UpdateByID applies a column patch and returns the number of rows touched
func (r *PostgresDialogRepository) UpdateByID(ctx context.Context, id string, fields map[string]any) (int64, error) {
	res := conn(ctx, r.db).Model(&domain.Dialog{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update dialog: %w", translate(res.Error))
	}
	return res.RowsAffected, nil
}

// ListByTenant returns VALID dialogs of a tenant, newest first
func (r *PostgresDialogRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Dialog, error) {
	var out []*domain.Dialog
	err := conn(ctx, r.db).
		Where("tenant_id = ? AND status = ?", tenantID, domain.StatusValid).
		Order("create_time DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dialogs: %w", err)
	}
	return out, nil
}

// SoftDelete marks dialogs INVALID
func (r *PostgresDialogRepository) SoftDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := conn(ctx, r.db).Model(&domain.Dialog{}).
		Where("id IN ?", ids).
		Update("status", string(domain.StatusInvalid)).Error
	if err != nil {
		return fmt.Errorf("failed to delete dialogs: %w", err)
	}
	return nil
}

// PostgresKnowledgebaseRepository implements domain.KnowledgebaseRepository
type PostgresKnowledgebaseRepository struct {
	db *gorm.DB
}

// NewPostgresKnowledgebaseRepository creates a new knowledge base lookup
func NewPostgresKnowledgebaseRepository(db *gorm.DB) *PostgresKnowledgebaseRepository {
	return &PostgresKnowledgebaseRepository{db: db}
}

// GetByIDs returns the knowledge bases with the given ids in any status
func (r *PostgresKnowledgebaseRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Knowledgebase, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*domain.Knowledgebase
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to get knowledge bases: %w", err)
	}
	return out, nil
}
