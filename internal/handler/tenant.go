package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
	"github.com/aryan0dhankhar/teamspace/internal/security"
	"github.com/aryan0dhankhar/teamspace/internal/service"
)

// TeamService is the membership policy engine as used over HTTP.
type TeamService interface {
	CreateTeam(ctx context.Context, founderID, name string, defaults service.TeamDefaults) (*domain.Tenant, error)
	Authorize(ctx context.Context, userID, tenantID string, perm security.Permission) error
	Invite(ctx context.Context, inviterID, tenantID, email string) (*domain.Membership, *domain.User, error)
	ApplyToJoin(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
	ResolveApplication(ctx context.Context, ownerID, tenantID, targetUserID string, accept bool) error
	AcceptInvite(ctx context.Context, userID, tenantID string) error
	RemoveMember(ctx context.Context, actingUserID, tenantID, targetUserID string) error
	ListTeamUsers(ctx context.Context, tenantID string) ([]domain.MemberView, error)
	ListMembers(ctx context.Context, tenantID string, includePending bool) ([]domain.MemberView, error)
	ListJoinedTenants(ctx context.Context, userID string) ([]domain.JoinedTenantView, error)
	ListAvailableTeams(ctx context.Context, userID string) ([]domain.TeamView, error)
}

// TenantHandler serves the team endpoints.
type TenantHandler struct {
	teams    TeamService
	defaults service.TeamDefaults
	now      func() time.Time
	logger   *slog.Logger
}

// NewTenantHandler creates a tenant handler. New teams start from defaults.
func NewTenantHandler(teams TeamService, defaults service.TeamDefaults, logger *slog.Logger) *TenantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantHandler{teams: teams, defaults: defaults, now: time.Now, logger: logger}
}

type memberResponse struct {
	domain.MemberView
	DeltaSeconds int64 `json:"delta_seconds"`
}

type joinedTenantResponse struct {
	domain.JoinedTenantView
	DeltaSeconds int64 `json:"delta_seconds"`
}

type teamResponse struct {
	domain.TeamView
	DeltaSeconds int64 `json:"delta_seconds"`
}

type invitedUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

func (h *TenantHandler) delta(updated time.Time) int64 {
	if updated.IsZero() {
		return 0
	}
	d := int64(h.now().Sub(updated).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

// CreateTeamRequest is the body of POST /v1/tenant/create.
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// Create handles POST /v1/tenant/create
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}

	tenant, err := h.teams.CreateTeam(r.Context(), uid, req.Name, h.defaults)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, tenant)
}

// ListJoined handles GET /v1/tenant/list
func (h *TenantHandler) ListJoined(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	rows, err := h.teams.ListJoinedTenants(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]joinedTenantResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, joinedTenantResponse{JoinedTenantView: row, DeltaSeconds: h.delta(row.UpdateDate)})
	}
	writeOK(w, out)
}

// ListAll handles GET /v1/tenant/all
func (h *TenantHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	rows, err := h.teams.ListAvailableTeams(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]teamResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamResponse{TeamView: row, DeltaSeconds: h.delta(row.UpdateDate)})
	}
	writeOK(w, out)
}

// Agree handles PUT /v1/tenant/agree/{tenant_id}
func (h *TenantHandler) Agree(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.teams.AcceptInvite(r.Context(), uid, mux.Vars(r)["tenant_id"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, true)
}

// Apply handles POST /v1/tenant/{tenant_id}/apply
func (h *TenantHandler) Apply(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if _, err := h.teams.ApplyToJoin(r.Context(), uid, mux.Vars(r)["tenant_id"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, true)
}

// HandleApplicationRequest is the body of POST .../handle_application.
type HandleApplicationRequest struct {
	UserID string `json:"user_id"`
	Action string `json:"action"`
}

// HandleApplication handles POST /v1/tenant/{tenant_id}/handle_application
func (h *TenantHandler) HandleApplication(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req HandleApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}
	if req.UserID == "" {
		writeBadRequest(w, "user_id is required")
		return
	}
	var accept bool
	switch req.Action {
	case "accept":
		accept = true
	case "reject":
	default:
		writeBadRequest(w, "action must be accept or reject")
		return
	}

	if err := h.teams.ResolveApplication(r.Context(), uid, mux.Vars(r)["tenant_id"], req.UserID, accept); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, true)
}

// ListUsers handles GET /v1/tenant/{tenant_id}/user/list. The owner row is
// not part of the listing.
func (h *TenantHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, func(ctx context.Context, tenantID string) ([]domain.MemberView, error) {
		return h.teams.ListTeamUsers(ctx, tenantID)
	})
}

// Members handles GET /v1/tenant/{tenant_id}/members
func (h *TenantHandler) Members(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, func(ctx context.Context, tenantID string) ([]domain.MemberView, error) {
		return h.teams.ListMembers(ctx, tenantID, true)
	})
}

func (h *TenantHandler) listMembers(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, tenantID string) ([]domain.MemberView, error)) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	tenantID := mux.Vars(r)["tenant_id"]
	if err := h.teams.Authorize(r.Context(), uid, tenantID, security.PermViewMembers); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rows, err := list(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]memberResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, memberResponse{MemberView: row, DeltaSeconds: h.delta(row.UpdateDate)})
	}
	writeOK(w, out)
}

// InviteRequest is the body of POST /v1/tenant/{tenant_id}/user.
type InviteRequest struct {
	Email string `json:"email"`
}

// Invite handles POST /v1/tenant/{tenant_id}/user
func (h *TenantHandler) Invite(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}

	_, user, err := h.teams.Invite(r.Context(), uid, mux.Vars(r)["tenant_id"], req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, invitedUser{ID: user.ID, Email: user.Email, Nickname: user.Nickname, Avatar: user.Avatar})
}

// RemoveUser handles DELETE /v1/tenant/{tenant_id}/user/{user_id}
func (h *TenantHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.teams.RemoveMember(r.Context(), uid, vars["tenant_id"], vars["user_id"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, true)
}
