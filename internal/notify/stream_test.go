package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"molt/internal/event"
	"molt/internal/logging"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var message Message
	if err := conn.ReadJSON(&message); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return message
}

func TestStreamDeliversReloadEvents(t *testing.T) {
	bus := event.NewBus[event.Event](event.BusOptions{})
	defer bus.Close()

	server := httptest.NewServer(&StreamHandler{Bus: bus})
	defer server.Close()

	conn := dial(t, server, "")

	// Give the handler a beat to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	bus.Publish(event.Event{
		Type:      event.TypeChangeDetected,
		Path:      "/app/main.go",
		Timestamp: time.Now().UTC(),
	})

	message := readMessage(t, conn)
	if message.Kind != "event" || message.Event == nil {
		t.Fatalf("unexpected message %+v", message)
	}
	if message.Event.Type != event.TypeChangeDetected || message.Event.Path != "/app/main.go" {
		t.Fatalf("unexpected event %+v", message.Event)
	}
}

func TestStreamReplaysLogBacklog(t *testing.T) {
	bus := event.NewBus[event.Event](event.BusOptions{})
	defer bus.Close()
	logger := logging.NewLoggerWithOutput(logging.LevelDebug, nil)
	logger.Info("watching", nil)

	server := httptest.NewServer(&StreamHandler{
		Bus:         bus,
		Logger:      logger,
		IncludeLogs: true,
	})
	defer server.Close()

	conn := dial(t, server, "")

	message := readMessage(t, conn)
	if message.Kind != "log" || message.Log == nil || message.Log.Message != "watching" {
		t.Fatalf("unexpected backlog message %+v", message)
	}
}

func TestStreamRejectsDisallowedOrigin(t *testing.T) {
	server := httptest.NewServer(&StreamHandler{
		AllowedOrigins: []string{"https://allowed.example"},
	})
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected upgrade rejection for disallowed origin")
	}
}

func TestStreamAllowsConfiguredOrigin(t *testing.T) {
	bus := event.NewBus[event.Event](event.BusOptions{})
	defer bus.Close()

	server := httptest.NewServer(&StreamHandler{
		Bus:            bus,
		AllowedOrigins: []string{"https://allowed.example"},
	})
	defer server.Close()

	dial(t, server, "https://allowed.example")
}
