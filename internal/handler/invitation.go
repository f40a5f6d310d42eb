package handler

import (
	"log/slog"
	"net/http"

	"atrium/internal/domain/services"
	"atrium/internal/httputil"
)

// InvitationHandler handles invitation HTTP requests
type InvitationHandler struct {
	invitationService services.InvitationService
	logger            *slog.Logger
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(invitationService services.InvitationService, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		logger:            logger,
	}
}

// SendInvite invites an email address into a workspace. Re-sending an
// already pending invite returns the existing record with 200.
// POST /api/invites
func (h *InvitationHandler) SendInvite(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.SendInviteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	invite, err := h.invitationService.SendInvite(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, invite)
}

// ListMyInvites lists invites addressed to the caller
// GET /api/invites
func (h *InvitationHandler) ListMyInvites(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	invites, err := h.invitationService.ListMyInvites(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, invites)
}

// AcceptInvite turns a pending invite into a membership
// POST /api/invites/{id}/accept
func (h *InvitationHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.invitationService.AcceptInvite(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeclineInvite marks a pending invite rejected
// POST /api/invites/{id}/decline
func (h *InvitationHandler) DeclineInvite(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.invitationService.DeclineInvite(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
