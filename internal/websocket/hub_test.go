package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/larder/internal/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, householdID int64) *Client {
	return &Client{
		hub:         hub,
		householdID: householdID,
		send:        make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got, true
	case <-time.After(50 * time.Millisecond):
		return Message{}, false
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
	if len(hub.households) != 0 {
		t.Errorf("empty household sets were not pruned: %v", hub.households)
	}
}

func TestBroadcastHouseholdIsScoped(t *testing.T) {
	hub := NewHub(testLogger())

	mine1 := mockClient(hub, 1)
	mine2 := mockClient(hub, 1)
	theirs := mockClient(hub, 2)
	for _, c := range []*Client{mine1, mine2, theirs} {
		hub.Register(c)
	}

	msg := NewMessage(EntityPantryItem, ActionUpdated, 42, nil)
	msg.Item = map[string]any{"name": "milk", "status": "running_low"}
	hub.BroadcastHousehold(1, msg)

	for _, c := range []*Client{mine1, mine2} {
		got, ok := receive(t, c)
		if !ok {
			t.Fatal("household client did not receive message")
		}
		if got.Type != "pantry_item_updated" || got.ID != 42 {
			t.Errorf("got %+v", got)
		}
		item, _ := got.Item.(map[string]any)
		if item["name"] != "milk" {
			t.Errorf("item = %v", got.Item)
		}
	}
	if _, ok := receive(t, theirs); ok {
		t.Error("message leaked to another household")
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(testLogger())
	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.BroadcastHousehold(1, NewMessage("test", "fill", int64(i), nil))
	}
	hub.BroadcastHousehold(1, NewMessage("test", "dropped", 999, nil))

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected %d buffered messages, got %d", sendBufferSize, got)
	}
	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(EntityPantry, ActionBulkImported, 0, map[string]any{"created": 3})
	if msg.Type != "pantry_bulk_imported" {
		t.Errorf("type = %s", msg.Type)
	}
	data, _ := json.Marshal(msg)
	if strings.Contains(string(data), `"id"`) || strings.Contains(string(data), `"item"`) {
		t.Errorf("zero id/item should be omitted: %s", data)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(testLogger())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(household int64) {
			defer wg.Done()
			c := mockClient(hub, household)
			hub.Register(c)
			hub.BroadcastHousehold(household, NewMessage("test", "concurrent", 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocket(t *testing.T) {
	hub := NewHub(testLogger())
	handler := HandleWebSocket(hub, testLogger())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: 1, HouseholdID: 7})
		handler(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.BroadcastHousehold(7, NewMessage(EntityPantryItem, ActionCreated, 3, nil))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "pantry_item_created" || got.ID != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestHandleWebSocketRequiresHousehold(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleWebSocket(NewHub(testLogger()), testLogger())(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
