package monitor

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestMonitor(t *testing.T) Monitor {
	t.Helper()
	m := NewMonitor(
		WithAddr("127.0.0.1:0"),
		WithInterval(10*time.Millisecond),
	)
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

func dial(t *testing.T, m Monitor) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+m.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestClientReceivesLatestSnapshotOnConnect(t *testing.T) {
	m := startTestMonitor(t)

	m.Publish(Snapshot{
		State:         "bounce",
		NumCube:       3,
		NumGrid:       2,
		UpdatedBounce: 1,
		WorldReady:    true,
	})

	conn := dial(t, m)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Type != "bakeProgress" {
		t.Errorf("type = %q, want bakeProgress", snap.Type)
	}
	if snap.State != "bounce" || snap.NumCube != 3 || snap.NumGrid != 2 {
		t.Errorf("snapshot = %+v, want the published values", snap)
	}
	if !snap.WorldReady {
		t.Error("worldReady not carried")
	}
	if snap.Time == 0 {
		t.Error("publish did not stamp the snapshot time")
	}
}

func TestBroadcastDeliversUpdates(t *testing.T) {
	m := startTestMonitor(t)

	conn := dial(t, m)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Drain the initial snapshot.
	var snap Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("initial read: %v", err)
	}

	m.Publish(Snapshot{State: "cube", NumRenderCube: 5})

	// The broadcast ticker repeats the latest snapshot; read until the
	// published one shows up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read: %v", err)
		}
		if snap.State == "cube" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("published snapshot never broadcast")
		}
	}
	if snap.NumRenderCube != 5 {
		t.Errorf("numRenderCube = %d, want 5", snap.NumRenderCube)
	}
}

func TestStopDisconnectsClients(t *testing.T) {
	m := startTestMonitor(t)
	conn := dial(t, m)

	var snap Snapshot
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("initial read: %v", err)
	}

	m.Stop()

	// The connection dies once the server shuts down.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 100; i++ {
		if err := conn.ReadJSON(&snap); err != nil {
			return
		}
	}
	t.Fatal("connection stayed alive after Stop")
}
