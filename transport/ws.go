package transport

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"statecast/logging"
)

const (
	wsWriteWait      = 10 * time.Second
	wsSendBufferSize = 8
)

// WebSocketHub fans each frame out to every connected observer over
// websockets. It exists for observers that cannot receive datagrams; delivery
// keeps the same contract as UDP: a slow or broken subscriber is dropped, the
// tick is never delayed for it.
type WebSocketHub struct {
	upgrader   websocket.Upgrader
	maxPayload int
	publisher  logging.Publisher

	mu          sync.Mutex
	subscribers map[uint64]*wsSubscriber
	nextID      atomic.Uint64
	closed      bool

	counters counters
}

type wsSubscriber struct {
	id   uint64
	conn *websocket.Conn
	send chan []byte
}

// NewWebSocketHub builds a hub with no subscribers. maxPayload <= 0 selects
// DefaultMaxPayload; publisher may be nil.
func NewWebSocketHub(maxPayload int, publisher logging.Publisher) *WebSocketHub {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &WebSocketHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		maxPayload:  maxPayload,
		publisher:   publisher,
		subscribers: make(map[uint64]*wsSubscriber),
	}
}

// ServeHTTP upgrades the request and streams frames to the connection until
// it drops. Inbound messages are read and discarded to keep the connection's
// control frames flowing.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := &wsSubscriber{
		id:   h.nextID.Add(1),
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	go h.writePump(sub)
	h.readPump(sub)
}

// Send queues the payload for every subscriber. A subscriber whose buffer is
// full is dropped rather than letting the caller wait on it.
func (h *WebSocketHub) Send(payload []byte) error {
	if len(payload) > h.maxPayload {
		h.counters.droppedOversize.Add(1)
		return fmt.Errorf("%w: %d > %d bytes", ErrOversize, len(payload), h.maxPayload)
	}

	var stale []*wsSubscriber
	h.mu.Lock()
	for id, sub := range h.subscribers {
		select {
		case sub.send <- payload:
		default:
			delete(h.subscribers, id)
			close(sub.send)
			stale = append(stale, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range stale {
		sub.conn.Close()
		h.counters.droppedSendError.Add(1)
		h.publisher.Publish(logging.Event{
			Type:     logging.EventSubscriberDropped,
			Time:     time.Now(),
			Severity: logging.SeverityWarn,
			Message:  "subscriber fell behind",
			Extra:    map[string]any{"subscriber": sub.id},
		})
	}

	h.counters.recordSent(len(payload))
	return nil
}

// SubscriberCount reports how many observer connections are attached.
func (h *WebSocketHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Stats returns a copy of the delivery counters.
func (h *WebSocketHub) Stats() Stats {
	return h.counters.snapshot()
}

// Close disconnects every subscriber and rejects future ones.
func (h *WebSocketHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := make([]*wsSubscriber, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		close(sub.send)
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.conn.Close()
	}
	return nil
}

func (h *WebSocketHub) writePump(sub *wsSubscriber) {
	for payload := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(sub.id, "write failed")
			return
		}
	}
}

func (h *WebSocketHub) readPump(sub *wsSubscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(sub.id, "connection closed")
			return
		}
	}
}

func (h *WebSocketHub) drop(id uint64, reason string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(sub.send)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.conn.Close()
	h.publisher.Publish(logging.Event{
		Type:     logging.EventSubscriberDropped,
		Time:     time.Now(),
		Severity: logging.SeverityInfo,
		Message:  reason,
		Extra:    map[string]any{"subscriber": sub.id},
	})
}
