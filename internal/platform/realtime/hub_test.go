package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHub() *Hub {
	return NewHub(zerolog.Nop())
}

func TestHub_RegisterClient(t *testing.T) {
	hub := newTestHub()
	client := &Client{
		ID:     "client-1",
		Topics: []string{ConversationTopic("conv-1")},
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount("conversation/conv-1") != 1 {
		t.Fatalf("expected 1 client on conversation/conv-1, got %d", hub.TopicCount("conversation/conv-1"))
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := newTestHub()
	client := &Client{
		ID:     "client-2",
		Topics: []string{ConversationTopic("conv-2")},
		Send:   make(chan []byte, 256),
	}

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount("conversation/conv-2") != 0 {
		t.Fatalf("expected 0 clients on conversation/conv-2, got %d", hub.TopicCount("conversation/conv-2"))
	}

	// Send channel must be closed after unregister.
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send channel to be closed after unregister")
	}
}

func TestHub_BroadcastToTopic(t *testing.T) {
	hub := newTestHub()

	subscriber := &Client{
		ID:     "sub-1",
		Topics: []string{ConversationTopic("conv-1")},
		Send:   make(chan []byte, 256),
	}
	nonSubscriber := &Client{
		ID:     "non-sub-1",
		Topics: []string{TopicBoard},
		Send:   make(chan []byte, 256),
	}

	hub.Register(subscriber)
	hub.Register(nonSubscriber)

	event := Event{
		Type:           EventMessageCreated,
		Topic:          ConversationTopic("conv-1"),
		ConversationID: "conv-1",
		Timestamp:      time.Now(),
	}

	hub.Broadcast(ConversationTopic("conv-1"), event)

	select {
	case msg := <-subscriber.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if received.Type != EventMessageCreated {
			t.Fatalf("expected %s, got %s", EventMessageCreated, received.Type)
		}
		if received.ConversationID != "conv-1" {
			t.Fatalf("expected conversation conv-1, got %s", received.ConversationID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case <-nonSubscriber.Send:
		t.Fatal("non-subscriber should not have received event")
	default:
	}
}

func TestHub_SubscribeAndUnsubscribe(t *testing.T) {
	hub := newTestHub()
	client := &Client{
		ID:     "dyn-1",
		Topics: []string{},
		Send:   make(chan []byte, 256),
	}
	hub.Register(client)

	hub.Subscribe(client, []string{ConversationTopic("a"), TopicBoard})
	if hub.TopicCount("conversation/a") != 1 {
		t.Fatalf("expected 1 on conversation/a, got %d", hub.TopicCount("conversation/a"))
	}
	if hub.TopicCount(TopicBoard) != 1 {
		t.Fatalf("expected 1 on board, got %d", hub.TopicCount(TopicBoard))
	}

	hub.Unsubscribe(client, []string{ConversationTopic("a")})
	if hub.TopicCount("conversation/a") != 0 {
		t.Fatalf("expected 0 on conversation/a, got %d", hub.TopicCount("conversation/a"))
	}
	if hub.TopicCount(TopicBoard) != 1 {
		t.Fatalf("expected board subscription to survive, got %d", hub.TopicCount(TopicBoard))
	}
	if len(client.Topics) != 1 {
		t.Fatalf("expected 1 topic remaining, got %d", len(client.Topics))
	}
}

func TestHub_ProcessMessage(t *testing.T) {
	hub := newTestHub()
	client := &Client{
		ID:     "process-1",
		Topics: []string{},
		Send:   make(chan []byte, 256),
	}
	hub.Register(client)

	raw := `{"action":"subscribe","topics":["conversation/conv-9","board"]}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	hub.ProcessMessage(client, msg)

	if hub.TopicCount("conversation/conv-9") != 1 {
		t.Fatalf("expected 1 subscriber on conversation/conv-9, got %d", hub.TopicCount("conversation/conv-9"))
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"conversation/conv-9"}})
	if hub.TopicCount("conversation/conv-9") != 0 {
		t.Fatalf("expected 0 after unsubscribe, got %d", hub.TopicCount("conversation/conv-9"))
	}
}

func TestHub_PublishFillsTimestamp(t *testing.T) {
	hub := newTestHub()

	client := &Client{
		ID:     "pub-1",
		Topics: []string{TopicBoard},
		Send:   make(chan []byte, 256),
	}
	hub.Register(client)

	var publisher Publisher = hub
	event := Event{
		Type:      EventStageChanged,
		Topic:     TopicBoard,
		PatientID: "pat-1",
	}

	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-client.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if received.PatientID != "pat-1" {
			t.Fatalf("expected patient pat-1, got %s", received.PatientID)
		}
		if received.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be filled in")
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive published event")
	}
}

func TestHub_BroadcastToEmptyTopic(t *testing.T) {
	hub := newTestHub()

	// Should not panic
	hub.Broadcast("conversation/nobody", Event{
		Type:      EventMessageDeleted,
		Topic:     "conversation/nobody",
		Timestamp: time.Now(),
	})
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := newTestHub()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	clients := make([]*Client, n)
	for i := 0; i < n; i++ {
		clients[i] = &Client{
			ID:     "concurrent-" + string(rune(i)),
			Topics: []string{TopicBoard},
			Send:   make(chan []byte, 256),
		}
	}

	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}

	wg.Wait()

	if hub.ClientCount() < 0 {
		t.Fatalf("client count should not be negative, got %d", hub.ClientCount())
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	handler := NewHandler(newTestHub())

	e := echo.New()
	handler.RegisterRoutes(e.Group(""))

	found := false
	for _, r := range e.Routes() {
		if r.Path == "/ws" && r.Method == http.MethodGet {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected GET /ws route to be registered")
	}
}

func TestHandler_FullUpgradeWithDialer(t *testing.T) {
	hub := newTestHub()
	handler := NewHandler(hub)

	e := echo.New()
	handler.RegisterRoutes(e.Group(""))

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	dialer := gorillaws.Dialer{}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	time.Sleep(50 * time.Millisecond)
	if hub.ClientCount() < 1 {
		t.Fatal("expected at least 1 client registered after connect")
	}

	subMsg := ClientMessage{
		Action: "subscribe",
		Topics: []string{ConversationTopic("conv-ws")},
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if hub.TopicCount("conversation/conv-ws") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.TopicCount("conversation/conv-ws"))
	}

	event := Event{
		Type:           EventMessageCreated,
		Topic:          ConversationTopic("conv-ws"),
		ConversationID: "conv-ws",
		Timestamp:      time.Now(),
	}
	hub.Broadcast(ConversationTopic("conv-ws"), event)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.Type != EventMessageCreated {
		t.Fatalf("expected %s, got %s", EventMessageCreated, received.Type)
	}
	if received.ConversationID != "conv-ws" {
		t.Fatalf("expected conversation conv-ws, got %s", received.ConversationID)
	}
}
