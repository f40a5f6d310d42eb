package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// startBridge wires a hub and bridge against the shared redis and waits for
// its subscription to land.
func startBridge(t *testing.T, ctx context.Context, addr string) (*Hub, *Bridge) {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	hub := NewHub(discardLogger())
	bridge := NewBridge(hub, rdb, discardLogger())
	go func() {
		_ = bridge.Run(ctx)
	}()
	return hub, bridge
}

func waitForSubscribers(t *testing.T, addr string, n int) {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		counts, err := rdb.PubSubNumSub(context.Background(), channel).Result()
		if err == nil && counts[channel] >= int64(n) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("never reached %d subscribers on %s", n, channel)
}

func recvWithin(t *testing.T, conn *Connection, d time.Duration) Event {
	t.Helper()
	select {
	case ev := <-conn.C:
		return ev
	case <-time.After(d):
		t.Fatalf("connection %s: no event within %s", conn.ID, d)
		return Event{}
	}
}

func TestBridgeFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA, bridgeA := startBridge(t, ctx, mr.Addr())
	hubB, _ := startBridge(t, ctx, mr.Addr())
	waitForSubscribers(t, mr.Addr(), 2)

	local := hubA.Connect("a1", "alice")
	remote := hubB.Connect("b1", "bob")
	hubA.Join("a1", SpaceRoom("s1"))
	hubB.Join("b1", SpaceRoom("s1"))

	ev := mustEvent(t, "folder:created", map[string]string{"id": "f1"})
	bridgeA.Broadcast(SpaceRoom("s1"), ev)

	got := recvWithin(t, remote, 2*time.Second)
	if got.Name != "folder:created" {
		t.Errorf("remote event = %s", got.Name)
	}

	// the publishing instance delivers locally exactly once: its own
	// published copy is skipped by origin
	recvOne(t, local)
	time.Sleep(50 * time.Millisecond)
	assertEmpty(t, local)
}

func TestBridgeEmitToUserCrossesInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, bridgeA := startBridge(t, ctx, mr.Addr())
	hubB, _ := startBridge(t, ctx, mr.Addr())
	waitForSubscribers(t, mr.Addr(), 2)

	remote := hubB.Connect("b1", "alice")

	bridgeA.EmitToUser("alice", mustEvent(t, "workspace:created", map[string]string{"workspaceId": "w1"}))

	got := recvWithin(t, remote, 2*time.Second)
	if got.Name != "workspace:created" {
		t.Errorf("event = %s", got.Name)
	}
}

func TestBridgeIgnoresMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub, _ := startBridge(t, ctx, mr.Addr())
	waitForSubscribers(t, mr.Addr(), 1)

	conn := hub.Connect("c1", "alice")
	hub.Join("c1", SpaceRoom("s1"))

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	if err := rdb.Publish(ctx, channel, "not json").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// a well-formed event from another instance after the garbage still
	// arrives
	other := NewBridge(NewHub(discardLogger()), rdb, discardLogger())
	other.publish(SpaceRoom("s1"), mustEvent(t, "folder:deleted", map[string]string{"id": "f1"}))

	got := recvWithin(t, conn, 2*time.Second)
	if got.Name != "folder:deleted" {
		t.Errorf("event = %s", got.Name)
	}
}
