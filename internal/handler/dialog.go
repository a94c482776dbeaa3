package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/teamspace/internal/service"
)

// DialogService is the dialog store as used over HTTP.
type DialogService interface {
	Set(ctx context.Context, userID string, req service.DialogRequest) (*service.DialogView, error)
	Get(ctx context.Context, userID, dialogID string) (*service.DialogView, error)
	List(ctx context.Context, userID string) ([]service.DialogView, error)
	Remove(ctx context.Context, userID string, dialogIDs []string) error
}

// DialogHandler serves the dialog endpoints.
type DialogHandler struct {
	dialogs DialogService
	logger  *slog.Logger
}

func NewDialogHandler(dialogs DialogService, logger *slog.Logger) *DialogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DialogHandler{dialogs: dialogs, logger: logger}
}

// Set handles POST /v1/dialog/set
func (h *DialogHandler) Set(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.DialogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}

	view, err := h.dialogs.Set(r.Context(), uid, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, view)
}

// Get handles GET /v1/dialog/get?dialog_id=
func (h *DialogHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.dialogs.Get(r.Context(), uid, r.URL.Query().Get("dialog_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, view)
}

// List handles GET /v1/dialog/list
func (h *DialogHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	views, err := h.dialogs.List(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, views)
}

// RemoveDialogsRequest is the body of POST /v1/dialog/rm.
type RemoveDialogsRequest struct {
	DialogIDs []string `json:"dialog_ids"`
}

// Remove handles POST /v1/dialog/rm
func (h *DialogHandler) Remove(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req RemoveDialogsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}
	if err := h.dialogs.Remove(r.Context(), uid, req.DialogIDs); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, true)
}
