package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// sendBuffer is the per-connection event queue depth. A connection whose
// buffer is full when an event arrives is disconnected rather than allowed
// to block the broadcast path.
const sendBuffer = 64

// Event is a named payload delivered to room subscribers.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals payload and wraps it with the event name. Marshal
// failures are programmer errors surfaced to the caller.
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: data}, nil
}

// Connection is one client's live subscription. Events arrive on C; the
// channel is closed when the connection is removed from the hub.
type Connection struct {
	ID     string
	UserID string
	C      chan Event

	mu     sync.Mutex
	rooms  map[Room]struct{}
	closed bool
}

// trySend queues the event without blocking. Returns false when the buffer
// is full; a send after close is a silent no-op since the receiver is gone.
func (c *Connection) trySend(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.C <- event:
		return true
	default:
		return false
	}
}

// Hub tracks live connections, their room membership, and per-user presence.
// All methods are safe for concurrent use. No channel send happens while the
// registry lock is held for writing beyond the buffered, non-blocking send in
// Broadcast.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	conns  map[string]*Connection          // connection id -> connection
	rooms  map[Room]map[string]*Connection // room -> connection id -> connection
	byUser map[string]map[string]*Connection
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[string]*Connection),
		rooms:  make(map[Room]map[string]*Connection),
		byUser: make(map[string]map[string]*Connection),
	}
}

// Connect registers a new connection for userID and joins its user room.
func (h *Hub) Connect(connID, userID string) *Connection {
	conn := &Connection{
		ID:     connID,
		UserID: userID,
		C:      make(chan Event, sendBuffer),
		rooms:  make(map[Room]struct{}),
	}

	h.mu.Lock()
	h.conns[connID] = conn
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[string]*Connection)
	}
	h.byUser[userID][connID] = conn
	h.joinLocked(conn, UserRoom(userID))
	h.mu.Unlock()

	h.logger.Debug("realtime connection opened", "connection_id", connID, "user_id", userID)
	return conn
}

// Disconnect removes the connection from every room and closes its channel.
// Safe to call for an id that was already removed.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	h.removeLocked(conn)
	h.mu.Unlock()

	conn.mu.Lock()
	conn.closed = true
	close(conn.C)
	conn.mu.Unlock()
	h.logger.Debug("realtime connection closed", "connection_id", connID, "user_id", conn.UserID)
}

// Join subscribes the connection to a room. Unknown connection ids are
// ignored: the client raced its own disconnect.
func (h *Hub) Join(connID string, room Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	h.joinLocked(conn, room)
}

// Leave unsubscribes the connection from a room.
func (h *Hub) Leave(connID string, room Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	h.leaveLocked(conn, room)
}

// SwitchView moves the connection from its previous view room to the one
// matching its new view, leaving the user room untouched.
func (h *Hub) SwitchView(connID string, from, to Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	if from != "" {
		h.leaveLocked(conn, from)
	}
	h.joinLocked(conn, to)
}

// Broadcast delivers the event to every connection in the room. Connections
// whose buffer is full are collected and disconnected after the lock is
// released.
func (h *Hub) Broadcast(room Room, event Event) {
	var stalled []*Connection

	h.mu.RLock()
	for _, conn := range h.rooms[room] {
		if !conn.trySend(event) {
			stalled = append(stalled, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stalled {
		h.logger.Warn("dropping stalled realtime connection",
			"connection_id", conn.ID,
			"user_id", conn.UserID,
			"room", string(room),
		)
		h.Disconnect(conn.ID)
	}
}

// EmitToUser delivers the event to every connection the user holds,
// regardless of room membership.
func (h *Hub) EmitToUser(userID string, event Event) {
	h.Broadcast(UserRoom(userID), event)
}

// Owner returns the user id a connection belongs to.
func (h *Hub) Owner(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[connID]
	if !ok {
		return "", false
	}
	return conn.UserID, true
}

// Present reports whether the user has at least one live connection.
func (h *Hub) Present(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Rooms returns the rooms a connection is currently in.
func (h *Hub) Rooms(connID string) []Room {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	rooms := make([]Room, 0, len(conn.rooms))
	for r := range conn.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (h *Hub) joinLocked(conn *Connection, room Room) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Connection)
	}
	h.rooms[room][conn.ID] = conn

	conn.mu.Lock()
	conn.rooms[room] = struct{}{}
	conn.mu.Unlock()
}

func (h *Hub) leaveLocked(conn *Connection, room Room) {
	if members, ok := h.rooms[room]; ok {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}

	conn.mu.Lock()
	delete(conn.rooms, room)
	conn.mu.Unlock()
}

func (h *Hub) removeLocked(conn *Connection) {
	conn.mu.Lock()
	rooms := make([]Room, 0, len(conn.rooms))
	for r := range conn.rooms {
		rooms = append(rooms, r)
	}
	conn.mu.Unlock()

	for _, r := range rooms {
		h.leaveLocked(conn, r)
	}

	delete(h.conns, conn.ID)
	if userConns, ok := h.byUser[conn.UserID]; ok {
		delete(userConns, conn.ID)
		if len(userConns) == 0 {
			delete(h.byUser, conn.UserID)
		}
	}
}
