package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"atrium/internal/authz"
	"atrium/internal/domain/models"
	"atrium/internal/httputil"
	"atrium/internal/realtime"
)

// keepAliveInterval is how often an SSE comment line is written to keep
// intermediaries from closing an idle stream.
const keepAliveInterval = 10 * time.Second

// RealtimeHandler owns the SSE stream and the view-switching endpoint.
// Authentication happens in the bearer middleware before the hub ever sees a
// connection; room membership is re-checked here on every join.
type RealtimeHandler struct {
	hub    *realtime.Hub
	engine *authz.Engine
	logger *slog.Logger
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(hub *realtime.Hub, engine *authz.Engine, logger *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    hub,
		engine: engine,
		logger: logger,
	}
}

// viewRequest names the scope a client is looking at. Folder beats space
// beats workspace when several are present.
type viewRequest struct {
	WorkspaceID string `json:"workspace_id"`
	SpaceID     string `json:"space_id"`
	FolderID    string `json:"folder_id"`
}

// resolveViewRoom authorizes the requested view and returns its room.
func (h *RealtimeHandler) resolveViewRoom(r *http.Request, userID string, view viewRequest) (realtime.Room, error) {
	if view.FolderID != "" {
		if _, err := h.engine.CheckFolderPermission(r.Context(), userID, view.FolderID, models.AllRoles()...); err != nil {
			return "", err
		}
		return realtime.FolderRoom(view.FolderID), nil
	}
	if err := h.engine.ValidateMembership(r.Context(), userID, view.WorkspaceID, view.SpaceID); err != nil {
		return "", err
	}
	if view.SpaceID != "" {
		return realtime.SpaceRoom(view.SpaceID), nil
	}
	return realtime.WorkspaceRoom(view.WorkspaceID), nil
}

// Stream opens the Server-Sent Events connection. The first frame is a
// `connected` event carrying the connection id, which the client uses for
// view switches. The connection starts in the room of the view named by the
// query parameters.
// GET /api/realtime/stream?workspace_id=...&space_id=...&folder_id=...
func (h *RealtimeHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	view := viewRequest{
		WorkspaceID: r.URL.Query().Get("workspace_id"),
		SpaceID:     r.URL.Query().Get("space_id"),
		FolderID:    r.URL.Query().Get("folder_id"),
	}

	room, err := h.resolveViewRoom(r, userID, view)
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	connID := uuid.New().String()
	conn := h.hub.Connect(connID, userID)
	defer h.hub.Disconnect(connID)
	h.hub.Join(connID, room)

	fmt.Fprintf(w, "event: connected\ndata: {\"connectionId\":%q}\n\n", connID)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			// SSE comment line, ignored by clients
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-conn.C:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, event.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// SwitchView moves a connection to the room of a new view
// PUT /api/realtime/connections/{id}/view
func (h *RealtimeHandler) SwitchView(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	connID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	// A connection can only be steered by the user holding it
	owner, found := h.hub.Owner(connID)
	if !found || owner != userID {
		httputil.RespondError(w, http.StatusNotFound, "connection not found")
		return
	}

	var view viewRequest
	if err := httputil.ParseJSON(w, r, &view); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	to, err := h.resolveViewRoom(r, userID, view)
	if err != nil {
		handleError(w, err)
		return
	}

	h.hub.SwitchView(connID, h.currentViewRoom(connID), to)
	w.WriteHeader(http.StatusNoContent)
}

// currentViewRoom returns the connection's non-user room, if any. A
// connection holds at most one view room at a time.
func (h *RealtimeHandler) currentViewRoom(connID string) realtime.Room {
	for _, room := range h.hub.Rooms(connID) {
		if !strings.HasPrefix(string(room), "user-") {
			return room
		}
	}
	return ""
}
