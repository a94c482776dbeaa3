package repository

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

// PostgresMembershipRepository implements domain.MembershipRepository
type PostgresMembershipRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPostgresMembershipRepository creates a new membership repository
func NewPostgresMembershipRepository(db *gorm.DB, logger *slog.Logger) *PostgresMembershipRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMembershipRepository{db: db, logger: logger}
}

// Create inserts a membership row
func (r *PostgresMembershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	if m.ID == "" {
		m.ID = domain.NewID()
	}
	if m.Status == "" {
		m.Status = domain.StatusValid
	}
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create membership: %w", translate(err))
	}
	return nil
}

// Find returns the membership row of a (user, tenant) pair in any role
func (r *PostgresMembershipRepository) Find(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	var m domain.Membership
	err := conn(ctx, r.db).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		First(&m).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find membership: %w", translate(err))
	}
	return &m, nil
}

// IsOwner reports whether a VALID owner row exists for the pair
func (r *PostgresMembershipRepository) IsOwner(ctx context.Context, userID, tenantID string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.Membership{}).
		Where("user_id = ? AND tenant_id = ? AND role = ? AND status = ?",
			userID, tenantID, domain.RoleOwner, domain.StatusValid).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ownership: %w", err)
	}
	return n > 0, nil
}

// CountOwned counts the VALID tenants the user owns
func (r *PostgresMembershipRepository) CountOwned(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.Membership{}).
		Where("user_id = ? AND role = ? AND status = ?", userID, domain.RoleOwner, domain.StatusValid).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count owned tenants: %w", err)
	}
	return n, nil
}

// ListByUser returns the user's VALID memberships, oldest first
func (r *PostgresMembershipRepository) ListByUser(ctx context.Context, userID string, roles []domain.Role) ([]*domain.Membership, error) {
	q := conn(ctx, r.db).Where("user_id = ? AND status = ?", userID, domain.StatusValid)
	if len(roles) > 0 {
		q = q.Where("role IN ?", roleStrings(roles))
	}
	var out []*domain.Membership
	if err := q.Order("create_time ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return out, nil
}

// UpdateRole moves the pair's row from any of the from roles to to
func (r *PostgresMembershipRepository) UpdateRole(ctx context.Context, tenantID, userID string, from []domain.Role, to domain.Role) (int64, error) {
	res := conn(ctx, r.db).Model(&domain.Membership{}).
		Where("tenant_id = ? AND user_id = ? AND role IN ?", tenantID, userID, roleStrings(from)).
		Update("role", string(to))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update membership role: %w", translate(res.Error))
	}
	return res.RowsAffected, nil
}

// Delete removes the pair's row, restricted to roles when given
func (r *PostgresMembershipRepository) Delete(ctx context.Context, tenantID, userID string, roles []domain.Role) (int64, error) {
	q := conn(ctx, r.db).Where("tenant_id = ? AND user_id = ?", tenantID, userID)
	if len(roles) > 0 {
		q = q.Where("role IN ?", roleStrings(roles))
	}
	res := q.Delete(&domain.Membership{})
	if res.Error != nil {
		r.logger.Error("failed to delete membership",
			slog.String("tenant_id", tenantID),
			slog.String("user_id", userID),
			slog.String("error", res.Error.Error()),
		)
		return 0, fmt.Errorf("failed to delete membership: %w", res.Error)
	}
	return res.RowsAffected, nil
}

const listMembersQuery = `
	SELECT u.id AS user_id, u.nickname, u.email, u.avatar, ut.role, ut.status,
		ut.create_date AS join_date, ut.update_date, t.name AS tenant_name
	FROM user_tenant ut
	JOIN "user" u ON u.id = ut.user_id
	JOIN tenant t ON t.id = ut.tenant_id
	WHERE ut.tenant_id = ? AND ut.status = ? AND ut.role IN ?
	ORDER BY ut.create_time ASC
`

// ListMembers returns VALID members of a tenant in the given roles
func (r *PostgresMembershipRepository) ListMembers(ctx context.Context, tenantID string, roles []domain.Role) ([]domain.MemberView, error) {
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleOwner, domain.RoleNormal, domain.RoleInvite, domain.RolePending}
	}
	var out []domain.MemberView
	err := conn(ctx, r.db).
		Raw(listMembersQuery, tenantID, domain.StatusValid, roleStrings(roles)).
		Scan(&out).Error
	if err != nil {
		r.logger.Error("failed to list members",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return out, nil
}

const listJoinedTenantsQuery = `
	SELECT t.id AS tenant_id, t.name, ut.role, t.llm_id, t.embd_id, t.asr_id, t.img2txt_id,
		COALESCE(o.nickname, '') AS owner_name, COALESCE(o.email, '') AS owner_email,
		t.create_date, t.update_date
	FROM user_tenant ut
	JOIN tenant t ON t.id = ut.tenant_id AND t.status = ?
	LEFT JOIN user_tenant ot ON ot.tenant_id = t.id AND ot.role = 'owner'
	LEFT JOIN "user" o ON o.id = ot.user_id
	WHERE ut.user_id = ? AND ut.status = ?
	ORDER BY ut.create_time ASC
`

// ListJoinedTenants returns every VALID tenant the user has a VALID row in
func (r *PostgresMembershipRepository) ListJoinedTenants(ctx context.Context, userID string) ([]domain.JoinedTenantView, error) {
	var out []domain.JoinedTenantView
	err := conn(ctx, r.db).
		Raw(listJoinedTenantsQuery, domain.StatusValid, userID, domain.StatusValid).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list joined tenants: %w", err)
	}
	return out, nil
}

const listAvailableTeamsQuery = `
	SELECT t.id AS tenant_id, t.name,
		COALESCE(o.nickname, '') AS owner_name, COALESCE(o.email, '') AS owner_email,
		t.create_date, t.update_date,
		EXISTS (
			SELECT 1 FROM user_tenant p
			WHERE p.tenant_id = t.id AND p.user_id = ? AND p.role = 'pending'
		) AS has_applied
	FROM tenant t
	LEFT JOIN user_tenant ot ON ot.tenant_id = t.id AND ot.role = 'owner'
	LEFT JOIN "user" o ON o.id = ot.user_id
	WHERE t.status = ? AND t.id NOT IN (
		SELECT j.tenant_id FROM user_tenant j
		WHERE j.user_id = ? AND j.status = ? AND j.role IN ('owner', 'normal')
	)
	ORDER BY t.create_time DESC
`

// ListAvailableTeams returns VALID tenants the user has not joined
func (r *PostgresMembershipRepository) ListAvailableTeams(ctx context.Context, userID string) ([]domain.TeamView, error) {
	var out []domain.TeamView
	err := conn(ctx, r.db).
		Raw(listAvailableTeamsQuery, userID, domain.StatusValid, userID, domain.StatusValid).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list available teams: %w", err)
	}
	return out, nil
}
