package handler

import (
	"log/slog"
	"net/http"

	"atrium/internal/domain/services"
	"atrium/internal/httputil"
)

// SpaceHandler handles space HTTP requests
type SpaceHandler struct {
	spaceService services.SpaceService
	logger       *slog.Logger
}

// NewSpaceHandler creates a new space handler
func NewSpaceHandler(spaceService services.SpaceService, logger *slog.Logger) *SpaceHandler {
	return &SpaceHandler{
		spaceService: spaceService,
		logger:       logger,
	}
}

// CreateSpace creates a space in a workspace
// POST /api/spaces
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.CreateSpaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	space, err := h.spaceService.CreateSpace(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, space)
}

// GetSpace retrieves a space by ID
// GET /api/spaces/{id}
func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	space, err := h.spaceService.GetSpace(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, space)
}

// ListSpaces lists the workspace's spaces the caller has been granted
// GET /api/workspaces/{id}/spaces
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	spaces, err := h.spaceService.ListSpaces(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, spaces)
}

// RenameSpace renames a space
// PATCH /api/spaces/{id}
func (h *SpaceHandler) RenameSpace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.spaceService.RenameSpace(r.Context(), userID, id, req.Name); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteSpace deletes a space and its folders
// DELETE /api/spaces/{id}
func (h *SpaceHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.spaceService.DeleteSpace(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSpaceMembers lists members granted the space
// GET /api/spaces/{id}/members
func (h *SpaceHandler) ListSpaceMembers(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.spaceService.ListSpaceMembers(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}

// AddMembers grants the space to existing workspace members
// POST /api/spaces/{id}/members
func (h *SpaceHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		MemberUserIDs []string `json:"member_user_ids"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.spaceService.AddMembers(r.Context(), userID, id, req.MemberUserIDs); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember revokes the space from a member
// DELETE /api/spaces/{id}/members/{memberID}
func (h *SpaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberID")
	if !ok {
		return
	}

	if err := h.spaceService.RemoveMember(r.Context(), userID, id, memberID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
