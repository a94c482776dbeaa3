package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the soft-delete flag shared by every table.
type Status string

const (
	StatusValid   Status = "1"
	StatusInvalid Status = "0"
)

// Role is a user's role inside a tenant.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleNormal  Role = "normal"
	RoleInvite  Role = "invite"
	RolePending Role = "pending"
)

// NewID returns a 32 character hex identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Timestamps are the audit columns carried by every table.
type Timestamps struct {
	CreateTime int64     `json:"create_time" gorm:"autoCreateTime:milli"`
	CreateDate time.Time `json:"create_date" gorm:"autoCreateTime"`
	UpdateTime int64     `json:"update_time" gorm:"autoUpdateTime:milli"`
	UpdateDate time.Time `json:"update_date" gorm:"autoUpdateTime"`
}

// User represents an account
type User struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(32)"`
	Email       string `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Nickname    string `json:"nickname" gorm:"type:varchar(100);not null"`
	Password    string `json:"-" gorm:"type:varchar(255)"` // bcrypt hash
	Avatar      string `json:"avatar" gorm:"type:text"`
	Status      Status `json:"status" gorm:"type:varchar(1);default:'1';index"`
	IsSuperuser bool   `json:"is_superuser" gorm:"default:false"`
	Timestamps
}

func (User) TableName() string { return "user" }

// IsActive reports whether the account has not been soft-deleted.
func (u *User) IsActive() bool { return u.Status == StatusValid }

// UserRepository is the identity store.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

// Tenant represents a team/workspace
type Tenant struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(32)"`
	Name      string `json:"name" gorm:"type:varchar(100);not null"`
	LLMID     string `json:"llm_id" gorm:"column:llm_id;type:varchar(128)"`
	EmbdID    string `json:"embd_id" gorm:"column:embd_id;type:varchar(128)"`
	ASRID     string `json:"asr_id" gorm:"column:asr_id;type:varchar(128)"`
	Img2TxtID string `json:"img2txt_id" gorm:"column:img2txt_id;type:varchar(128)"`
	RerankID  string `json:"rerank_id" gorm:"column:rerank_id;type:varchar(128)"`
	ParserIDs string `json:"parser_ids" gorm:"column:parser_ids;type:varchar(256)"`
	Status    Status `json:"status" gorm:"type:varchar(1);default:'1';index"`
	Timestamps
}

func (Tenant) TableName() string { return "tenant" }

// TenantRepository is the tenant store.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

// Membership binds a user to a tenant with a role. A tenant has exactly one
// owner row and a user owns at most one tenant; both are backed by partial
// unique indexes.
type Membership struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(32)"`
	UserID    string `json:"user_id" gorm:"type:varchar(32);not null;uniqueIndex:idx_user_tenant_pair,priority:1;uniqueIndex:idx_user_tenant_one_owned,where:role = 'owner' AND status = '1'"`
	TenantID  string `json:"tenant_id" gorm:"type:varchar(32);not null;uniqueIndex:idx_user_tenant_pair,priority:2;uniqueIndex:idx_user_tenant_one_owner,where:role = 'owner'"`
	Role      Role   `json:"role" gorm:"type:varchar(16);not null;index"`
	InvitedBy string `json:"invited_by" gorm:"type:varchar(32)"`
	Status    Status `json:"status" gorm:"type:varchar(1);default:'1'"`
	Timestamps
}

func (Membership) TableName() string { return "user_tenant" }

// MemberView is a membership joined with its user and tenant.
type MemberView struct {
	UserID     string    `json:"user_id"`
	Nickname   string    `json:"nickname"`
	Email      string    `json:"email"`
	Avatar     string    `json:"avatar"`
	Role       Role      `json:"role"`
	Status     Status    `json:"status"`
	JoinDate   time.Time `json:"join_date"`
	UpdateDate time.Time `json:"update_date"`
	TenantName string    `json:"tenant_name"`
}

// JoinedTenantView is a tenant as seen by one of its members.
type JoinedTenantView struct {
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	LLMID      string    `json:"llm_id"`
	EmbdID     string    `json:"embd_id"`
	ASRID      string    `json:"asr_id"`
	Img2TxtID  string    `json:"img2txt_id"`
	OwnerName  string    `json:"owner_name"`
	OwnerEmail string    `json:"owner_email"`
	CreateDate time.Time `json:"create_date"`
	UpdateDate time.Time `json:"update_date"`
}

// TeamView is a team a user may apply to.
type TeamView struct {
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	OwnerName  string    `json:"owner_name"`
	OwnerEmail string    `json:"owner_email"`
	CreateDate time.Time `json:"create_date"`
	UpdateDate time.Time `json:"update_date"`
	HasApplied bool      `json:"has_applied"`
}

// MembershipRepository is the membership store. Role filters passed as nil
// match any role.
type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	Find(ctx context.Context, userID, tenantID string) (*Membership, error)
	IsOwner(ctx context.Context, userID, tenantID string) (bool, error)
	CountOwned(ctx context.Context, userID string) (int64, error)
	ListByUser(ctx context.Context, userID string, roles []Role) ([]*Membership, error)
	UpdateRole(ctx context.Context, tenantID, userID string, from []Role, to Role) (int64, error)
	Delete(ctx context.Context, tenantID, userID string, roles []Role) (int64, error)
	ListMembers(ctx context.Context, tenantID string, roles []Role) ([]MemberView, error)
	ListJoinedTenants(ctx context.Context, userID string) ([]JoinedTenantView, error)
	ListAvailableTeams(ctx context.Context, userID string) ([]TeamView, error)
}

// Transactor runs fn inside one store transaction. Repositories called with
// the context handed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
