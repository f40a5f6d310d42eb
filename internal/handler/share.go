package handler

import (
	"log/slog"
	"net/http"

	"atrium/internal/authz"
	"atrium/internal/httputil"
)

// ShareHandler authorizes sharing content between scopes. The actual copy
// happens in the content service that owns the files; this endpoint is the
// permission gate clients hit first.
type ShareHandler struct {
	engine *authz.Engine
	logger *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(engine *authz.Engine, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		engine: engine,
		logger: logger,
	}
}

// ShareRequest names the two ends of a share.
type ShareRequest struct {
	Source      authz.ShareScope `json:"source"`
	Destination authz.ShareScope `json:"destination"`
}

// AuthorizeShare checks writer roles on both ends and that both ends live in
// the same workspace
// POST /api/share/authorize
func (h *ShareHandler) AuthorizeShare(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req ShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.engine.AuthorizeShare(r.Context(), userID, req.Source, req.Destination); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
