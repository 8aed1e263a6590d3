package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chronywatch/chronywatch/internal/engine"
	wsHub "github.com/chronywatch/chronywatch/internal/ws"
)

// fakeSource serves a fixed latest snapshot.
type fakeSource struct {
	snap *engine.Snapshot
}

func (f *fakeSource) Latest() *engine.Snapshot { return f.snap }

func testSnapshot(tick uint64) *engine.Snapshot {
	return &engine.Snapshot{
		Time:   time.Date(2025, 8, 26, 12, 0, 0, 0, time.UTC),
		Tick:   tick,
		Alerts: []string{},
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// Returns the ws:// URL, the hub, and the run-loop cancel function.
func startHub(t *testing.T, src wsHub.Source) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(src)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

func TestHub_Connect_ReceivesLatestSnapshot(t *testing.T) {
	wsURL, _, _ := startHub(t, &fakeSource{snap: testSnapshot(7)})

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m wsHub.Message
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Event != "snapshot" {
		t.Errorf("event: got %q, want snapshot", m.Event)
	}
	if m.Data == nil || m.Data.Tick != 7 {
		t.Errorf("data: got %+v, want tick 7", m.Data)
	}
}

func TestHub_Connect_NoSnapshotYet(t *testing.T) {
	wsURL, hub, _ := startHub(t, &fakeSource{})

	conn := dial(t, wsURL)
	time.Sleep(20 * time.Millisecond)
	if n := hub.Count(); n != 1 {
		t.Fatalf("Count: got %d, want 1", n)
	}

	// Nothing published before the first tick: the first message arrives
	// only once Publish runs.
	hub.Publish(testSnapshot(1))
	msg := readMessage(t, conn)
	var m wsHub.Message
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Data.Tick != 1 {
		t.Errorf("tick: got %d, want 1", m.Data.Tick)
	}
}

func TestHub_PublishReachesAllClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, &fakeSource{snap: testSnapshot(1)})

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i]) // consume connect snapshot
	}
	time.Sleep(20 * time.Millisecond)

	hub.Publish(testSnapshot(2))

	for i, conn := range conns {
		var m wsHub.Message
		if err := json.Unmarshal(readMessage(t, conn), &m); err != nil {
			t.Errorf("client %d: unmarshal: %v", i, err)
			continue
		}
		if m.Data.Tick != 2 {
			t.Errorf("client %d: tick = %d, want 2", i, m.Data.Tick)
		}
	}
}

func TestHub_CountDecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, &fakeSource{snap: testSnapshot(1)})

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, &fakeSource{snap: testSnapshot(1)})

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(&fakeSource{})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
