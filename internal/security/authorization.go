package security

import (
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermManageMembers Permission = "manage_members"
	PermViewMembers   Permission = "view_members"
	PermEditDialog    Permission = "edit_dialog"
	PermDeleteDialog  Permission = "delete_dialog"
)

// RolePermissions maps membership roles to their permissions. Invited and
// pending users hold none.
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleOwner: {
		PermManageMembers,
		PermViewMembers,
		PermEditDialog,
		PermDeleteDialog,
	},
	domain.RoleNormal: {
		PermEditDialog,
		PermDeleteDialog,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// RolesWith returns every role granted permission.
func (as *AuthorizationService) RolesWith(permission Permission) []domain.Role {
	var out []domain.Role
	for _, role := range []domain.Role{domain.RoleOwner, domain.RoleNormal, domain.RoleInvite, domain.RolePending} {
		if as.HasPermission(role, permission) {
			out = append(out, role)
		}
	}
	return out
}
