// Package intake receives singleton updates sent by the observer and stages
// them for the host. Updates are never applied concurrently with a tick's
// collection; the host drains the queue at a point of its choosing, so the
// state store stays read-only-shared while fragments are being produced.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"statecast/logging"
	"statecast/wire"
)

const (
	readBufferSize = 64 * 1024
	// maxPending bounds the staged queue so a chatty observer cannot grow
	// host memory without limit. Newest updates are dropped once full.
	maxPending = 256
)

// ApplyFunc writes one decoded update into the host's store.
type ApplyFunc func(store any, value json.RawMessage) error

// Listener binds a datagram socket, decodes {resource, value} updates, and
// queues them per registered writable singleton.
type Listener struct {
	conn      net.PacketConn
	publisher logging.Publisher

	mu       sync.Mutex
	handlers map[string]ApplyFunc
	pending  []wire.Update

	staged   atomic.Uint64
	applied  atomic.Uint64
	rejected atomic.Uint64
}

// NewListener binds addr (e.g. "127.0.0.1:8001"). Bind failure is a setup error.
func NewListener(addr string, publisher logging.Publisher) (*Listener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind intake %q: %w", addr, err)
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Listener{
		conn:      conn,
		publisher: publisher,
		handlers:  make(map[string]ApplyFunc),
	}, nil
}

// Handle registers the apply function for one writable singleton. Must be
// called before Run; duplicate names are a setup error.
func (l *Listener) Handle(name string, fn ApplyFunc) error {
	if name == "" {
		return fmt.Errorf("intake: resource name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("intake: apply function for %q must not be nil", name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.handlers[name]; exists {
		return fmt.Errorf("intake: duplicate handler for %q", name)
	}
	l.handlers[name] = fn
	return nil
}

// Resource registers a typed apply function for one writable singleton,
// erasing the concrete store and value types the same way registration does
// on the broadcast side.
func Resource[S, T any](l *Listener, name string, apply func(store S, value T) error) error {
	return l.Handle(name, func(store any, raw json.RawMessage) error {
		typed, ok := store.(S)
		if !ok {
			return fmt.Errorf("store is %T, want %T", store, *new(S))
		}
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode %q: %w", name, err)
		}
		return apply(typed, value)
	})
}

// Run reads datagrams until ctx is canceled. Malformed or unroutable updates
// are counted and skipped; nothing on this path can fail the host.
func (l *Listener) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		l.ingest(payload)
	}
}

func (l *Listener) ingest(payload []byte) {
	var update wire.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		l.reject("malformed update", err.Error())
		return
	}
	if update.Resource == "" || len(update.Value) == 0 {
		l.reject("incomplete update", update.Resource)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, known := l.handlers[update.Resource]; !known {
		l.rejected.Add(1)
		l.publisher.Publish(logging.Event{
			Type:     logging.EventIntakeRejected,
			Time:     time.Now(),
			Severity: logging.SeverityInfo,
			Kind:     update.Resource,
			Message:  "no handler registered",
		})
		return
	}
	if len(l.pending) >= maxPending {
		l.rejected.Add(1)
		l.publisher.Publish(logging.Event{
			Type:     logging.EventIntakeRejected,
			Time:     time.Now(),
			Severity: logging.SeverityWarn,
			Kind:     update.Resource,
			Message:  "queue full",
		})
		return
	}
	l.pending = append(l.pending, update)
	l.staged.Add(1)
}

func (l *Listener) reject(message, detail string) {
	l.rejected.Add(1)
	l.publisher.Publish(logging.Event{
		Type:     logging.EventIntakeRejected,
		Time:     time.Now(),
		Severity: logging.SeverityWarn,
		Message:  message,
		Extra:    map[string]any{"detail": detail},
	})
}

// ApplyPending drains the staged updates into the store in arrival order and
// reports how many applied. The host calls this between ticks; an apply error
// skips that update only.
func (l *Listener) ApplyPending(store any) int {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	handlers := l.handlers
	l.mu.Unlock()

	applied := 0
	for _, update := range pending {
		fn := handlers[update.Resource]
		if fn == nil {
			continue
		}
		if err := fn(store, update.Value); err != nil {
			l.rejected.Add(1)
			l.publisher.Publish(logging.Event{
				Type:     logging.EventIntakeRejected,
				Time:     time.Now(),
				Severity: logging.SeverityWarn,
				Kind:     update.Resource,
				Message:  err.Error(),
			})
			continue
		}
		applied++
		l.applied.Add(1)
	}
	return applied
}

// Stats reports the intake counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Staged:   l.staged.Load(),
		Applied:  l.applied.Load(),
		Rejected: l.rejected.Load(),
	}
}

// Stats is a point-in-time copy of the intake counters.
type Stats struct {
	Staged   uint64 `json:"staged"`
	Applied  uint64 `json:"applied"`
	Rejected uint64 `json:"rejected"`
}

// Addr reports the bound address, useful when binding port 0.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Close releases the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}
