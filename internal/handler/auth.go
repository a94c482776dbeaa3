package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
	"github.com/aryan0dhankhar/teamspace/internal/featureflags"
	"github.com/aryan0dhankhar/teamspace/internal/service"
)

// AuthService is what the auth endpoints need from the identity store.
type AuthService interface {
	Register(ctx context.Context, email, nickname, password string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Register handles POST /v1/user/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !featureflags.EnabledOr(featureflags.Registration, true) {
		writeJSON(w, http.StatusForbidden, Envelope{Code: CodeAuthenticationError, Message: "Registration is disabled."})
		return
	}

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to decode register request",
			slog.String("error", err.Error()),
		)
		writeBadRequest(w, "invalid request")
		return
	}

	result, err := h.authService.Register(r.Context(), req.Email, req.Nickname, req.Password)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user registered successfully",
		slog.String("user_id", result.UserID),
	)
	writeOK(w, result)
}

// Login handles POST /v1/user/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user logged in successfully",
		slog.String("user_id", result.UserID),
	)
	writeOK(w, result)
}

// Info handles GET /v1/user/info
func (h *AuthHandler) Info(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.authService.Profile(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, user)
}

// ChangePassword handles POST /v1/user/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeBadRequest(w, "old_password and new_password are required")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), uid, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user changed password", slog.String("user_id", uid))
	writeOK(w, true)
}
