package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"atrium/internal/domain/services"
	"atrium/internal/httputil"
)

// WorkspaceHandler handles workspace and member HTTP requests
type WorkspaceHandler struct {
	workspaceService services.WorkspaceService
	logger           *slog.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspaceService services.WorkspaceService, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
		logger:           logger,
	}
}

// ListWorkspaces retrieves the caller's workspaces
// GET /api/workspaces
func (h *WorkspaceHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	workspaces, err := h.workspaceService.ListWorkspaces(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, workspaces)
}

// CreateWorkspace creates a new workspace owned by the caller
// POST /api/workspaces
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.CreateWorkspaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.CreateWorkspace(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, workspace)
}

// GetWorkspace retrieves a workspace by ID
// GET /api/workspaces/{id}
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	workspace, err := h.workspaceService.GetWorkspace(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, workspace)
}

// UpdateWorkspace renames a workspace
// PATCH /api/workspaces/{id}
func (h *WorkspaceHandler) UpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.UpdateWorkspaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.UpdateWorkspace(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, workspace)
}

// DeleteWorkspace deletes a workspace and everything under it
// DELETE /api/workspaces/{id}
func (h *WorkspaceHandler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteWorkspace(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectWorkspace records the caller's active workspace
// PUT /api/workspaces/{id}/select
func (h *WorkspaceHandler) SelectWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.workspaceService.SelectWorkspace(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers lists workspace members
// GET /api/workspaces/{id}/members
func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.workspaceService.ListMembers(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}

// SearchMembers finds members by name or email
// GET /api/workspaces/{id}/members/search?q=...&exclude_space_id=...&limit=...
func (h *WorkspaceHandler) SearchMembers(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	req := &services.SearchMembersRequest{
		Query: r.URL.Query().Get("q"),
	}
	if spaceID := r.URL.Query().Get("exclude_space_id"); spaceID != "" {
		req.ExcludeSpaceID = &spaceID
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		req.Limit = n
	}

	members, err := h.workspaceService.SearchMembers(r.Context(), userID, id, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}

// UpdateMemberRole changes another member's role
// PATCH /api/workspaces/{id}/members/{memberID}
func (h *WorkspaceHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberID")
	if !ok {
		return
	}

	var req services.UpdateMemberRoleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.workspaceService.UpdateMemberRole(r.Context(), userID, id, memberID, &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember removes a member from the workspace
// DELETE /api/workspaces/{id}/members/{memberID}
func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberID")
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveMember(r.Context(), userID, id, memberID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
