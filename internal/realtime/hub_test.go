package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func strptr(s string) *string { return &s }

func TestViewRoom(t *testing.T) {
	tests := []struct {
		name        string
		workspaceID string
		spaceID     *string
		folderID    *string
		want        Room
	}{
		{
			name:        "folder wins over space and workspace",
			workspaceID: "w1",
			spaceID:     strptr("s1"),
			folderID:    strptr("f1"),
			want:        Room("folder-f1"),
		},
		{
			name:        "space wins over workspace",
			workspaceID: "w1",
			spaceID:     strptr("s1"),
			want:        Room("space-s1"),
		},
		{
			name:        "workspace root",
			workspaceID: "w1",
			want:        Room("workspace-w1"),
		},
		{
			name:        "empty pointers fall through",
			workspaceID: "w1",
			spaceID:     strptr(""),
			folderID:    strptr(""),
			want:        Room("workspace-w1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ViewRoom(tt.workspaceID, tt.spaceID, tt.folderID); got != tt.want {
				t.Errorf("ViewRoom = %s, want %s", got, tt.want)
			}
		})
	}
}

func mustEvent(t *testing.T, name string, payload any) Event {
	t.Helper()
	ev, err := NewEvent(name, payload)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return ev
}

func recvOne(t *testing.T, conn *Connection) Event {
	t.Helper()
	select {
	case ev := <-conn.C:
		return ev
	default:
		t.Fatalf("connection %s: no event queued", conn.ID)
		return Event{}
	}
}

func assertEmpty(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case ev := <-conn.C:
		t.Fatalf("connection %s: unexpected event %s", conn.ID, ev.Name)
	default:
	}
}

// Two clients in the same workspace but different rooms must not see each
// other's events; a room change flips who receives what.
func TestBroadcastRoomIsolation(t *testing.T) {
	hub := NewHub(discardLogger())

	inFolder := hub.Connect("c1", "alice")
	atSpaceRoot := hub.Connect("c2", "bob")
	hub.Join("c1", FolderRoom("f1"))
	hub.Join("c2", SpaceRoom("s1"))

	folderEvent := mustEvent(t, "folder:renamed", map[string]string{"id": "doc"})
	hub.Broadcast(FolderRoom("f1"), folderEvent)

	got := recvOne(t, inFolder)
	if got.Name != "folder:renamed" {
		t.Errorf("event name = %s", got.Name)
	}
	assertEmpty(t, atSpaceRoot)

	// bob opens the folder; alice goes back to the space root
	hub.SwitchView("c2", SpaceRoom("s1"), FolderRoom("f1"))
	hub.SwitchView("c1", FolderRoom("f1"), SpaceRoom("s1"))

	hub.Broadcast(FolderRoom("f1"), folderEvent)
	recvOne(t, atSpaceRoot)
	assertEmpty(t, inFolder)
}

func TestEmitToUserReachesAllConnections(t *testing.T) {
	hub := NewHub(discardLogger())

	tab1 := hub.Connect("c1", "alice")
	tab2 := hub.Connect("c2", "alice")
	other := hub.Connect("c3", "bob")

	hub.EmitToUser("alice", mustEvent(t, "notification:invitation", map[string]string{"workspaceId": "w1"}))

	recvOne(t, tab1)
	recvOne(t, tab2)
	assertEmpty(t, other)
}

func TestDisconnectCleansUp(t *testing.T) {
	hub := NewHub(discardLogger())

	conn := hub.Connect("c1", "alice")
	hub.Join("c1", FolderRoom("f1"))

	if !hub.Present("alice") {
		t.Fatal("alice should be present")
	}
	if hub.RoomSize(FolderRoom("f1")) != 1 {
		t.Fatalf("room size = %d", hub.RoomSize(FolderRoom("f1")))
	}

	hub.Disconnect("c1")

	if hub.Present("alice") {
		t.Error("alice still present after disconnect")
	}
	if hub.RoomSize(FolderRoom("f1")) != 0 {
		t.Error("room not emptied after disconnect")
	}
	if _, ok := <-conn.C; ok {
		t.Error("channel not closed")
	}

	// second disconnect is a no-op
	hub.Disconnect("c1")
}

func TestPresenceAcrossTabs(t *testing.T) {
	hub := NewHub(discardLogger())

	hub.Connect("c1", "alice")
	hub.Connect("c2", "alice")

	hub.Disconnect("c1")
	if !hub.Present("alice") {
		t.Error("alice left with one tab still open")
	}

	hub.Disconnect("c2")
	if hub.Present("alice") {
		t.Error("alice present with no connections")
	}
}

func TestStalledConnectionIsDropped(t *testing.T) {
	hub := NewHub(discardLogger())

	stalled := hub.Connect("c1", "alice")
	healthy := hub.Connect("c2", "bob")
	hub.Join("c1", SpaceRoom("s1"))
	hub.Join("c2", SpaceRoom("s1"))

	ev := mustEvent(t, "folder:created", map[string]string{"id": "f"})
	for i := 0; i < sendBuffer+1; i++ {
		hub.Broadcast(SpaceRoom("s1"), ev)
		// bob keeps reading; alice never does
		select {
		case <-healthy.C:
		default:
		}
	}

	if hub.Present("alice") {
		t.Error("stalled connection still registered")
	}
	if !hub.Present("bob") {
		t.Error("healthy connection dropped")
	}
	// the closed channel drains the backlog and terminates
	for range stalled.C {
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub := NewHub(discardLogger())

	conn := hub.Connect("c1", "alice")
	hub.Join("c1", WorkspaceRoom("w1"))
	hub.Leave("c1", WorkspaceRoom("w1"))

	hub.Broadcast(WorkspaceRoom("w1"), mustEvent(t, "workspace:updated", map[string]string{"id": "w1"}))
	assertEmpty(t, conn)
}

func TestRoomsListsMembership(t *testing.T) {
	hub := NewHub(discardLogger())

	hub.Connect("c1", "alice")
	hub.Join("c1", FolderRoom("f1"))

	rooms := hub.Rooms("c1")
	want := map[Room]bool{UserRoom("alice"): false, FolderRoom("f1"): false}
	for _, r := range rooms {
		if _, ok := want[r]; !ok {
			t.Errorf("unexpected room %s", r)
			continue
		}
		want[r] = true
	}
	for r, seen := range want {
		if !seen {
			t.Errorf("missing room %s", r)
		}
	}
}

func TestEventPayloadRoundTrip(t *testing.T) {
	ev := mustEvent(t, "folder:moved", map[string]string{"id": "f1", "workspaceId": "w1"})

	var payload map[string]string
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["id"] != "f1" {
		t.Errorf("payload id = %s", payload["id"])
	}
}
