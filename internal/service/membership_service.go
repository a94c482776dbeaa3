package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
	"github.com/aryan0dhankhar/teamspace/internal/observability/metrics"
	"github.com/aryan0dhankhar/teamspace/internal/observability/tracing"
	"github.com/aryan0dhankhar/teamspace/internal/reliability/retry"
	"github.com/aryan0dhankhar/teamspace/internal/security"
	"github.com/aryan0dhankhar/teamspace/pkg/cache"
)

const (
	maxTeamNameLength     = 100
	defaultSeedMaxTokens  = 8192
	catalogCacheKeyPrefix = "catalog:"
)

// TeamDefaults are the model ids and provider credentials a new team starts
// with.
type TeamDefaults struct {
	ChatModel       string
	EmbeddingModel  string
	ASRModel        string
	Image2TextModel string
	RerankModel     string
	Parsers         string
	LLMFactory      string
	APIKey          string
	BaseURL         string
}

// MembershipService owns team creation and the membership lifecycle.
type MembershipService struct {
	users      domain.UserRepository
	tenants    domain.TenantRepository
	members    domain.MembershipRepository
	catalog    domain.LLMRepository
	tenantLLMs domain.TenantLLMRepository
	tx         domain.Transactor
	authz      *security.AuthorizationService
	catalogs   *cache.Cache[[]*domain.LLM]
	retryCfg   *retry.Config
	logger     *slog.Logger
}

// NewMembershipService creates a new membership service
func NewMembershipService(
	repos Repositories,
	tx domain.Transactor,
	authz *security.AuthorizationService,
	catalogTTL time.Duration,
	logger *slog.Logger,
) *MembershipService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	if catalogTTL <= 0 {
		catalogTTL = 5 * time.Minute
	}
	return &MembershipService{
		users:      repos.Users,
		tenants:    repos.Tenants,
		members:    repos.Members,
		catalog:    repos.Catalog,
		tenantLLMs: repos.TenantLLMs,
		tx:         tx,
		authz:      authz,
		catalogs:   cache.New[[]*domain.LLM](catalogTTL),
		retryCfg:   retry.DefaultConfig(),
		logger:     logger,
	}
}

// IsOwner reports whether userID holds the VALID owner row of tenantID.
func (s *MembershipService) IsOwner(ctx context.Context, userID, tenantID string) (bool, error) {
	ok, err := s.members.IsOwner(ctx, userID, tenantID)
	if err != nil {
		return false, domain.StoreFailure(err)
	}
	return ok, nil
}

// Authorize fails with Unauthorized unless userID holds a VALID membership
// in tenantID whose role grants perm.
func (s *MembershipService) Authorize(ctx context.Context, userID, tenantID string, perm security.Permission) error {
	m, err := s.members.Find(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return unauthorized()
		}
		return domain.StoreFailure(err)
	}
	if m.Status != domain.StatusValid || !s.authz.HasPermission(m.Role, perm) {
		return unauthorized()
	}
	return nil
}

// CreateTeam creates a tenant owned by founderID. A user owns at most one
// team. Tenant models are seeded after commit on a best-effort basis.
func (s *MembershipService) CreateTeam(ctx context.Context, founderID, name string, defaults TeamDefaults) (tenant *domain.Tenant, err error) {
	ctx, span := tracing.Start(ctx, "membership.create_team", attribute.String("user_id", founderID))
	defer func() {
		tracing.End(span, err)
		observe(s.logger, "create_team", err)
	}()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "Team name is required.")
	}
	if utf8.RuneCountInString(name) > maxTeamNameLength {
		return nil, domain.NewError(domain.KindInvalidArgument, "Team name must be at most %d characters.", maxTeamNameLength)
	}

	if _, err := s.users.GetByID(ctx, founderID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "User not found.")
		}
		return nil, domain.StoreFailure(err)
	}

	tenant = &domain.Tenant{
		ID:        domain.NewID(),
		Name:      name,
		LLMID:     defaults.ChatModel,
		EmbdID:    defaults.EmbeddingModel,
		ASRID:     defaults.ASRModel,
		Img2TxtID: defaults.Image2TextModel,
		RerankID:  defaults.RerankModel,
		ParserIDs: defaults.Parsers,
		Status:    domain.StatusValid,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		owned, err := s.members.CountOwned(ctx, founderID)
		if err != nil {
			return domain.StoreFailure(err)
		}
		if owned > 0 {
			return alreadyOwner()
		}
		if err := s.tenants.Create(ctx, tenant); err != nil {
			return domain.StoreFailure(err)
		}
		err = s.members.Create(ctx, &domain.Membership{
			ID:        domain.NewID(),
			UserID:    founderID,
			TenantID:  tenant.ID,
			Role:      domain.RoleOwner,
			InvitedBy: founderID,
			Status:    domain.StatusValid,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			return alreadyOwner()
		}
		if err != nil {
			return domain.StoreFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, serviceError(err)
	}

	s.logger.Info("team created",
		slog.String("tenant_id", tenant.ID),
		slog.String("user_id", founderID),
	)

	if err := s.seedTenantModels(ctx, tenant.ID, defaults); err != nil {
		s.logger.Warn("tenant model seeding incomplete",
			slog.String("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
	}
	return tenant, nil
}

func alreadyOwner() *domain.Error {
	return domain.NewError(domain.KindAlreadyOwner, "Each user can only create one team.")
}

// CatalogFor returns the catalog entries of factory, cached for the
// configured TTL.
func (s *MembershipService) CatalogFor(ctx context.Context, factory string) ([]*domain.LLM, error) {
	return s.catalogs.GetOrLoad(ctx, catalogCacheKeyPrefix+factory, func(ctx context.Context) ([]*domain.LLM, error) {
		return s.catalog.ListByFactory(ctx, factory)
	})
}

// InvalidateCatalog drops cached catalog listings.
func (s *MembershipService) InvalidateCatalog() {
	s.catalogs.Invalidate(catalogCacheKeyPrefix)
}

func (s *MembershipService) seedTenantModels(ctx context.Context, tenantID string, defaults TeamDefaults) error {
	if defaults.LLMFactory == "" {
		return nil
	}
	entries, err := s.CatalogFor(ctx, defaults.LLMFactory)
	if err != nil {
		return fmt.Errorf("failed to load catalog for %s: %w", defaults.LLMFactory, err)
	}

	var result *multierror.Error
	for _, llm := range entries {
		maxTokens := llm.MaxTokens
		if maxTokens <= 0 {
			maxTokens = defaultSeedMaxTokens
		}
		row := &domain.TenantLLM{
			ID:         domain.NewID(),
			TenantID:   tenantID,
			LLMFactory: defaults.LLMFactory,
			LLMName:    llm.LLMName,
			ModelType:  llm.ModelType,
			APIKey:     defaults.APIKey,
			APIBase:    defaults.BaseURL,
			MaxTokens:  maxTokens,
		}
		_, err := retry.Do(ctx, s.retryCfg, s.logger, "seed tenant model", func(ctx context.Context) (struct{}, error) {
			err := s.tenantLLMs.Create(ctx, row)
			if errors.Is(err, domain.ErrDuplicate) {
				return struct{}{}, retry.Permanent(err)
			}
			return struct{}{}, err
		})
		if err != nil {
			metrics.ObserveTenantModelSeed("failed")
			result = multierror.Append(result, fmt.Errorf("%s: %w", llm.LLMName, err))
			continue
		}
		metrics.ObserveTenantModelSeed("ok")
	}
	return result.ErrorOrNil()
}

// Invite adds an INVITE membership for the user registered under email.
func (s *MembershipService) Invite(ctx context.Context, inviterID, tenantID, email string) (m *domain.Membership, user *domain.User, err error) {
	defer func() { observe(s.logger, "invite", err) }()

	if err := s.Authorize(ctx, inviterID, tenantID, security.PermManageMembers); err != nil {
		return nil, nil, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, nil, domain.NewError(domain.KindInvalidArgument, "email is required")
	}

	user, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.NewError(domain.KindNotFound, "User not found.")
		}
		return nil, nil, domain.StoreFailure(err)
	}

	existing, err := s.members.Find(ctx, user.ID, tenantID)
	switch {
	case err == nil:
		return nil, nil, existingMemberError(email, existing.Role)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, nil, domain.StoreFailure(err)
	}

	m = &domain.Membership{
		ID:        domain.NewID(),
		UserID:    user.ID,
		TenantID:  tenantID,
		Role:      domain.RoleInvite,
		InvitedBy: inviterID,
		Status:    domain.StatusValid,
	}
	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, nil, domain.NewError(domain.KindAlreadyMember, "%s is already in the team.", email)
		}
		return nil, nil, domain.StoreFailure(err)
	}

	s.logger.Info("member invited",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", user.ID),
		slog.String("invited_by", inviterID),
	)
	return m, user, nil
}

func existingMemberError(email string, role domain.Role) *domain.Error {
	switch role {
	case domain.RoleNormal:
		return domain.NewError(domain.KindAlreadyMember, "%s is already in the team.", email)
	case domain.RoleOwner:
		return domain.NewError(domain.KindAlreadyMember, "%s is the owner of the team.", email)
	default:
		return domain.NewError(domain.KindInvalidState, "%s is in the team, but the role: %s is invalid.", email, role)
	}
}

// ApplyToJoin records a PENDING application of userID to tenantID.
func (s *MembershipService) ApplyToJoin(ctx context.Context, userID, tenantID string) (m *domain.Membership, err error) {
	defer func() { observe(s.logger, "apply", err) }()

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Team not found.")
		}
		return nil, domain.StoreFailure(err)
	}
	if tenant.Status != domain.StatusValid {
		return nil, domain.NewError(domain.KindNotFound, "Team not found.")
	}

	if _, err := s.members.Find(ctx, userID, tenantID); err == nil {
		return nil, alreadyRequested()
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.StoreFailure(err)
	}

	m = &domain.Membership{
		ID:       domain.NewID(),
		UserID:   userID,
		TenantID: tenantID,
		Role:     domain.RolePending,
		Status:   domain.StatusValid,
	}
	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, alreadyRequested()
		}
		return nil, domain.StoreFailure(err)
	}
	return m, nil
}

func alreadyRequested() *domain.Error {
	return domain.NewError(domain.KindAlreadyRequested, "You have already applied or joined this team.")
}

// ResolveApplication accepts or rejects a pending application or open
// invitation. Nothing happens when the target has neither.
func (s *MembershipService) ResolveApplication(ctx context.Context, ownerID, tenantID, targetUserID string, accept bool) (err error) {
	op := "reject"
	if accept {
		op = "accept"
	}
	defer func() { observe(s.logger, op, err) }()

	if err := s.Authorize(ctx, ownerID, tenantID, security.PermManageMembers); err != nil {
		return err
	}

	open := []domain.Role{domain.RolePending, domain.RoleInvite}
	var n int64
	if accept {
		n, err = s.members.UpdateRole(ctx, tenantID, targetUserID, open, domain.RoleNormal)
	} else {
		n, err = s.members.Delete(ctx, tenantID, targetUserID, open)
	}
	if err != nil {
		return domain.StoreFailure(err)
	}

	s.logger.Info("application resolved",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", targetUserID),
		slog.Bool("accepted", accept),
		slog.Int64("rows", n),
	)
	return nil
}

// AcceptInvite turns the caller's own INVITE row into NORMAL.
func (s *MembershipService) AcceptInvite(ctx context.Context, userID, tenantID string) (err error) {
	defer func() { observe(s.logger, "agree", err) }()

	n, err := s.members.UpdateRole(ctx, tenantID, userID, []domain.Role{domain.RoleInvite}, domain.RoleNormal)
	if err != nil {
		return domain.StoreFailure(err)
	}
	if n == 0 {
		s.logger.Debug("no invitation to accept",
			slog.String("tenant_id", tenantID),
			slog.String("user_id", userID),
		)
	}
	return nil
}

// RemoveMember deletes targetUserID from tenantID. The owner may remove
// anyone; any member, the owner included, may remove themselves.
func (s *MembershipService) RemoveMember(ctx context.Context, actingUserID, tenantID, targetUserID string) (err error) {
	defer func() { observe(s.logger, "remove", err) }()

	roles := []domain.Role{domain.RoleNormal, domain.RoleInvite, domain.RolePending}
	if actingUserID == targetUserID {
		roles = append(roles, domain.RoleOwner)
	} else if err := s.Authorize(ctx, actingUserID, tenantID, security.PermManageMembers); err != nil {
		return err
	}

	n, err := s.members.Delete(ctx, tenantID, targetUserID, roles)
	if err != nil {
		return domain.StoreFailure(err)
	}
	if n == 0 {
		return nil
	}

	s.logger.Info("member removed",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", targetUserID),
		slog.String("removed_by", actingUserID),
	)
	return nil
}

// ListTeamUsers returns the VALID non-owner rows of tenantID: members,
// open invitations and applications.
func (s *MembershipService) ListTeamUsers(ctx context.Context, tenantID string) ([]domain.MemberView, error) {
	out, err := s.members.ListMembers(ctx, tenantID,
		[]domain.Role{domain.RoleNormal, domain.RoleInvite, domain.RolePending})
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	return out, nil
}

// ListMembers returns the VALID members of tenantID. Open invitations and
// applications are included when includePending is set.
func (s *MembershipService) ListMembers(ctx context.Context, tenantID string, includePending bool) ([]domain.MemberView, error) {
	roles := []domain.Role{domain.RoleOwner, domain.RoleNormal}
	if includePending {
		roles = append(roles, domain.RoleInvite, domain.RolePending)
	}
	out, err := s.members.ListMembers(ctx, tenantID, roles)
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	return out, nil
}

// ListJoinedTenants returns every team the user has a VALID row in.
func (s *MembershipService) ListJoinedTenants(ctx context.Context, userID string) ([]domain.JoinedTenantView, error) {
	out, err := s.members.ListJoinedTenants(ctx, userID)
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	return out, nil
}

// ListAvailableTeams returns the teams the user could apply to.
func (s *MembershipService) ListAvailableTeams(ctx context.Context, userID string) ([]domain.TeamView, error) {
	out, err := s.members.ListAvailableTeams(ctx, userID)
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	return out, nil
}

// ResolveActingTenant picks the tenant a user works in: the owned team
// first, otherwise the oldest NORMAL membership.
func (s *MembershipService) ResolveActingTenant(ctx context.Context, userID string) (*domain.Tenant, error) {
	rows, err := s.members.ListByUser(ctx, userID, []domain.Role{domain.RoleOwner, domain.RoleNormal})
	if err != nil {
		return nil, domain.StoreFailure(err)
	}

	ordered := make([]*domain.Membership, 0, len(rows))
	for _, m := range rows {
		if m.Role == domain.RoleOwner {
			ordered = append(ordered, m)
		}
	}
	for _, m := range rows {
		if m.Role == domain.RoleNormal {
			ordered = append(ordered, m)
		}
	}

	for _, m := range ordered {
		tenant, err := s.tenants.GetByID(ctx, m.TenantID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, domain.StoreFailure(err)
		}
		if tenant.Status == domain.StatusValid {
			return tenant, nil
		}
	}
	return nil, domain.NewError(domain.KindNotFound, "Tenant not found!")
}

// MemberTenantIDs returns the tenants where userID is OWNER or NORMAL.
func (s *MembershipService) MemberTenantIDs(ctx context.Context, userID string) ([]string, error) {
	return s.TenantIDsWith(ctx, userID, security.PermEditDialog)
}

// TenantIDsWith returns the tenants where userID's role grants perm.
func (s *MembershipService) TenantIDsWith(ctx context.Context, userID string, perm security.Permission) ([]string, error) {
	roles := s.authz.RolesWith(perm)
	if len(roles) == 0 {
		return nil, nil
	}
	rows, err := s.members.ListByUser(ctx, userID, roles)
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	ids := make([]string, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.TenantID)
	}
	return ids, nil
}
