package handler

import (
	"log/slog"
	"net/http"

	"atrium/internal/domain/models"
	"atrium/internal/domain/services"
	"atrium/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService services.FolderService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService services.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

// CreateFolder creates a folder in a space, under a parent, or in the library
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder by ID
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// ListChildren lists folders under a parent, a space root, or the library
// GET /api/folders?workspace_id=...&space_id=...&parent_folder_id=...
func (h *FolderHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	req := &services.ListChildrenRequest{
		WorkspaceID: r.URL.Query().Get("workspace_id"),
	}
	if spaceID := r.URL.Query().Get("space_id"); spaceID != "" {
		req.SpaceID = &spaceID
	}
	if parentID := r.URL.Query().Get("parent_folder_id"); parentID != "" {
		req.ParentFolderID = &parentID
	}

	folders, err := h.folderService.ListChildren(r.Context(), userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folders)
}

// RenameFolder renames a folder
// PATCH /api/folders/{id}
func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
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

	folder, err := h.folderService.RenameFolder(r.Context(), userID, id, req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder and its whole subtree
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MoveFolder moves a folder to another folder, space, or the workspace root
// POST /api/folders/{id}/move
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var dest models.MoveDestination
	if err := httputil.ParseJSON(w, r, &dest); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := h.folderService.MoveFolder(r.Context(), userID, id, dest)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// GetAncestors returns the breadcrumb chain for a folder, root first
// GET /api/folders/{id}/ancestors?workspace_id=...
func (h *FolderHandler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	ancestors, err := h.folderService.GetAncestors(r.Context(), userID, workspaceID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ancestors)
}

// SearchFolders finds folders by name within a workspace
// GET /api/workspaces/{id}/folders/search?q=...
func (h *FolderHandler) SearchFolders(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	folders, err := h.folderService.SearchFolders(r.Context(), userID, id, r.URL.Query().Get("q"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folders)
}
