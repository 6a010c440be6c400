// Package notify streams reload lifecycle events and log entries to
// websocket clients.
//
// The handler is plain http.Handler; the host decides whether and where to
// mount it. molt itself never opens a listener.
package notify

import (
	"net/http"
	"time"

	"molt/internal/event"
	"molt/internal/logging"

	"github.com/gorilla/websocket"
)

const (
	readBufferSize  = 1024
	writeBufferSize = 1024
	writeTimeout    = 10 * time.Second
	logBacklog      = 50
)

// Message is the envelope written to clients.
type Message struct {
	Kind  string         `json:"kind"` // "event" | "log"
	Event *event.Event   `json:"event,omitempty"`
	Log   *logging.Entry `json:"log,omitempty"`
}

// StreamHandler upgrades connections and relays events until the client
// goes away or the bus closes.
type StreamHandler struct {
	Bus    *event.Bus[event.Event]
	Logger *logging.Logger

	// AllowedOrigins restricts websocket upgrades. Empty means any origin;
	// apply restrictions at a reverse proxy if needed.
	AllowedOrigins []string

	// IncludeLogs also streams log entries and replays a short backlog on
	// connect.
	IncludeLogs bool
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	events, cancelEvents := h.subscribeEvents()
	defer cancelEvents()

	var logs <-chan logging.Entry
	cancelLogs := func() {}
	if h.IncludeLogs && h.Logger != nil {
		for _, entry := range h.Logger.History().Last(logBacklog) {
			if !h.write(conn, Message{Kind: "log", Log: &entry}) {
				return
			}
		}
		logs, cancelLogs = h.Logger.Subscribe()
	}
	defer cancelLogs()

	// Reads are discarded; the read loop only notices disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !h.write(conn, Message{Kind: "event", Event: &ev}) {
				return
			}
		case entry, ok := <-logs:
			if !ok {
				logs = nil
				continue
			}
			if !h.write(conn, Message{Kind: "log", Log: &entry}) {
				return
			}
		}
	}
}

func (h *StreamHandler) subscribeEvents() (<-chan event.Event, func()) {
	if h.Bus == nil {
		ch := make(chan event.Event)
		close(ch)
		return ch, func() {}
	}
	return h.Bus.Subscribe()
}

func (h *StreamHandler) write(conn *websocket.Conn, message Message) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(message); err != nil {
		h.logf("websocket write failed", err)
		return false
	}
	return true
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	if len(h.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (h *StreamHandler) logf(message string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.Debug(message, map[string]string{"error": err.Error()})
}
