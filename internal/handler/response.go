package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
	"github.com/aryan0dhankhar/teamspace/internal/security/middleware"
)

// Envelope codes.
const (
	CodeSuccess             = 0
	CodeArgumentError       = 101
	CodeDataError           = 102
	CodeAuthenticationError = 109
	CodeServerError         = 500
)

// Envelope is the body of every API response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: CodeSuccess, Message: "success", Data: data})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Envelope{Code: CodeArgumentError, Message: message})
}

// writeError renders a service error. Store failures are logged and shown
// with a generic message only.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.StoreFailure(err)
	}

	status, code := statusFor(de.Kind)
	env := Envelope{Code: code, Message: de.Message}
	if len(de.Details) > 0 {
		env.Data = map[string]any{"details": de.Details}
	}
	if de.Kind == domain.KindStoreFailure {
		logger.Error("request failed", slog.String("error", err.Error()))
		env.Message = "internal server error"
		env.Data = nil
	}
	writeJSON(w, status, env)
}

func statusFor(kind domain.Kind) (int, int) {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized, CodeAuthenticationError
	case domain.KindUnauthorized:
		return http.StatusForbidden, CodeAuthenticationError
	case domain.KindNotFound:
		return http.StatusNotFound, CodeDataError
	case domain.KindAlreadyMember, domain.KindAlreadyRequested, domain.KindAlreadyOwner, domain.KindInvalidState:
		return http.StatusConflict, CodeDataError
	case domain.KindMissingPlaceholder, domain.KindInconsistentEmbeddingModel:
		return http.StatusUnprocessableEntity, CodeDataError
	case domain.KindInvalidArgument:
		return http.StatusBadRequest, CodeArgumentError
	default:
		return http.StatusInternalServerError, CodeServerError
	}
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// userID returns the authenticated caller. Routes using it sit behind the
// JWT middleware.
func userID(r *http.Request) string {
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := userID(r)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, Envelope{Code: CodeAuthenticationError, Message: "Authorization required."})
		return "", false
	}
	return id, true
}
