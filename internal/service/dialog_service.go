package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
	"github.com/aryan0dhankhar/teamspace/internal/observability/metrics"
	"github.com/aryan0dhankhar/teamspace/internal/observability/tracing"
	"github.com/aryan0dhankhar/teamspace/internal/security"
)

const msgDialogRemoveDenied = "Only owner of dialog authorized for this operation."

// DialogView is a dialog as returned to callers, with the names of its
// VALID knowledge bases. kb_ids is narrowed to the same set.
type DialogView struct {
	*domain.Dialog
	KBNames []string `json:"kb_names"`
}

// DialogService manages dialogs inside the caller's tenants.
type DialogService struct {
	dialogs domain.DialogRepository
	kbs     domain.KnowledgebaseRepository
	teams   *MembershipService
	logger  *slog.Logger
}

// NewDialogService creates a new dialog service
func NewDialogService(repos Repositories, teams *MembershipService, logger *slog.Logger) *DialogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DialogService{
		dialogs: repos.Dialogs,
		kbs:     repos.Knowledgebases,
		teams:   teams,
		logger:  logger,
	}
}

// Set creates a dialog in the caller's acting tenant, or updates the dialog
// named by req.DialogID.
func (s *DialogService) Set(ctx context.Context, userID string, req DialogRequest) (view *DialogView, err error) {
	ctx, span := tracing.Start(ctx, "dialog.set",
		attribute.String("user_id", userID),
		attribute.Bool("update", req.IsUpdate()),
	)
	defer func() { tracing.End(span, err) }()

	var existing *domain.Dialog
	if req.IsUpdate() {
		existing, err = s.loadDialog(ctx, *req.DialogID)
		if err != nil {
			return nil, err
		}
		if err := s.teams.Authorize(ctx, userID, existing.TenantID, security.PermEditDialog); err != nil {
			return nil, err
		}
	}

	// Templates are validated before the acting tenant is looked up.
	res, err := ResolveDialog(existing, req)
	if err != nil {
		metrics.ObserveDialogValidationFailure(string(domain.KindOf(err)))
		return nil, err
	}

	var tenant *domain.Tenant
	if !req.IsUpdate() {
		tenant, err = s.teams.ResolveActingTenant(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	if len(res.Reverted) > 0 {
		metrics.ObserveDialogReverted(len(res.Reverted))
		s.logger.Info("dialog fields supplied empty were reset to defaults",
			slog.String("user_id", userID),
			slog.Any("fields", res.Reverted),
		)
	}

	if req.KBIDs != nil {
		kbs, err := s.kbs.GetByIDs(ctx, *req.KBIDs)
		if err != nil {
			return nil, domain.StoreFailure(err)
		}
		if err := CheckEmbeddingModels(kbs); err != nil {
			metrics.ObserveDialogValidationFailure(string(domain.KindOf(err)))
			return nil, err
		}
	}

	if !req.IsUpdate() {
		d := res.Dialog
		d.TenantID = tenant.ID
		if req.LLMID == nil {
			d.LLMID = tenant.LLMID
		}
		if err := s.dialogs.Create(ctx, d); err != nil {
			return nil, domain.StoreFailure(err)
		}
		s.logger.Info("dialog created",
			slog.String("dialog_id", d.ID),
			slog.String("tenant_id", d.TenantID),
		)
		return s.view(ctx, d)
	}

	if len(res.Patch) > 0 {
		n, err := s.dialogs.UpdateByID(ctx, existing.ID, res.Patch)
		if err != nil {
			return nil, domain.StoreFailure(err)
		}
		if n == 0 {
			return nil, domain.NewError(domain.KindNotFound, "Dialog not found!")
		}
	}
	updated, err := s.loadDialog(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, updated)
}

// Get returns one dialog of a tenant the caller belongs to.
func (s *DialogService) Get(ctx context.Context, userID, dialogID string) (*DialogView, error) {
	if dialogID == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "dialog_id is required")
	}
	d, err := s.loadDialog(ctx, dialogID)
	if err != nil {
		return nil, err
	}
	if err := s.teams.Authorize(ctx, userID, d.TenantID, security.PermEditDialog); err != nil {
		return nil, err
	}
	return s.view(ctx, d)
}

// List returns the VALID dialogs of the caller's acting tenant, newest first.
func (s *DialogService) List(ctx context.Context, userID string) ([]DialogView, error) {
	tenant, err := s.teams.ResolveActingTenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	dialogs, err := s.dialogs.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	return s.views(ctx, dialogs)
}

// Remove soft-deletes dialogs. Every dialog must belong to a tenant where
// the caller may delete dialogs, otherwise nothing is removed.
func (s *DialogService) Remove(ctx context.Context, userID string, dialogIDs []string) (err error) {
	ctx, span := tracing.Start(ctx, "dialog.remove", attribute.Int("count", len(dialogIDs)))
	defer func() { tracing.End(span, err) }()

	if len(dialogIDs) == 0 {
		return domain.NewError(domain.KindInvalidArgument, "dialog_ids is required")
	}

	tenantIDs, err := s.teams.TenantIDsWith(ctx, userID, security.PermDeleteDialog)
	if err != nil {
		return err
	}
	allowed := make(map[string]struct{}, len(tenantIDs))
	for _, id := range tenantIDs {
		allowed[id] = struct{}{}
	}

	for _, id := range dialogIDs {
		d, err := s.dialogs.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.KindUnauthorized, msgDialogRemoveDenied)
		}
		if err != nil {
			return domain.StoreFailure(err)
		}
		if _, ok := allowed[d.TenantID]; !ok {
			s.logger.Warn("dialog removal denied",
				slog.String("user_id", userID),
				slog.String("dialog_id", id),
			)
			return domain.NewError(domain.KindUnauthorized, msgDialogRemoveDenied)
		}
	}

	if err := s.dialogs.SoftDelete(ctx, dialogIDs); err != nil {
		return domain.StoreFailure(err)
	}
	s.logger.Info("dialogs removed",
		slog.String("user_id", userID),
		slog.Int("count", len(dialogIDs)),
	)
	return nil
}

func (s *DialogService) loadDialog(ctx context.Context, id string) (*domain.Dialog, error) {
	d, err := s.dialogs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Dialog not found!")
		}
		return nil, domain.StoreFailure(err)
	}
	if d.Status != domain.StatusValid {
		return nil, domain.NewError(domain.KindNotFound, "Dialog not found!")
	}
	return d, nil
}

func (s *DialogService) view(ctx context.Context, d *domain.Dialog) (*DialogView, error) {
	views, err := s.views(ctx, []*domain.Dialog{d})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views attaches kb names, looking every referenced kb up once.
func (s *DialogService) views(ctx context.Context, dialogs []*domain.Dialog) ([]DialogView, error) {
	seen := map[string]struct{}{}
	var ids []string
	for _, d := range dialogs {
		for _, id := range d.KBIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	valid := map[string]string{}
	if len(ids) > 0 {
		kbs, err := s.kbs.GetByIDs(ctx, ids)
		if err != nil {
			return nil, domain.StoreFailure(err)
		}
		for _, kb := range kbs {
			if kb.Status == domain.StatusValid {
				valid[kb.ID] = kb.Name
			}
		}
	}

	out := make([]DialogView, 0, len(dialogs))
	for _, d := range dialogs {
		cp := *d
		kbIDs := make([]string, 0, len(d.KBIDs))
		names := make([]string, 0, len(d.KBIDs))
		for _, id := range d.KBIDs {
			if name, ok := valid[id]; ok {
				kbIDs = append(kbIDs, id)
				names = append(names, name)
			}
		}
		cp.KBIDs = kbIDs
		out = append(out, DialogView{Dialog: &cp, KBNames: names})
	}
	return out, nil
}
