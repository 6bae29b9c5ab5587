package statecast

import (
	"errors"
	"sync"
	"testing"
	"time"

	"statecast/logging"
	"statecast/logging/sinks"
	"statecast/transport"
)

// captureTransport records payloads instead of sending them. failWith makes
// every send report a drop, the way an unreachable peer would.
type captureTransport struct {
	mu       sync.Mutex
	payloads [][]byte
	failWith error
	dropped  uint64
	sent     uint64
}

func (c *captureTransport) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		c.dropped++
		return c.failWith
	}
	copied := make([]byte, len(payload))
	copy(copied, payload)
	c.payloads = append(c.payloads, copied)
	c.sent++
	return nil
}

func (c *captureTransport) Stats() transport.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return transport.Stats{FramesSent: c.sent, DroppedSendError: c.dropped}
}

func (c *captureTransport) Close() error { return nil }

func (c *captureTransport) last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) == 0 {
		return nil
	}
	return c.payloads[len(c.payloads)-1]
}

func newTestEngine(t *testing.T, tr transport.Transport, publisher logging.Publisher) *Engine {
	t.Helper()
	registry := NewRegistry()
	regs := []Registration{
		Component("Position", positionInstances),
		Resource("Clock", clockValue),
	}
	for _, reg := range regs {
		if err := registry.Register(reg); err != nil {
			t.Fatalf("expected registration to succeed, got %v", err)
		}
	}
	engine, err := New(DefaultConfig(), registry, tr, publisher)
	if err != nil {
		t.Fatalf("expected engine construction to succeed, got %v", err)
	}
	return engine
}

func TestTickBroadcastsWorkedExample(t *testing.T) {
	capture := &captureTransport{}
	engine := newTestEngine(t, capture, nil)

	store := &testStore{
		positions: map[uint64]testPosition{
			1: {X: 1, Y: 2},
			3: {X: 0, Y: 0},
		},
		clock: &testClock{Time: 12.5},
	}

	now := time.Unix(12, 500_000_000)
	var report TickReport
	for i := 0; i < 5; i++ {
		report = engine.Tick(store, now)
	}

	if report.Frame != 5 {
		t.Fatalf("expected frame 5, got %d", report.Frame)
	}
	if !report.Sent {
		t.Fatalf("expected tick 5 to send, drop reason %q", report.DropReason)
	}
	if report.Entries != 2 {
		t.Fatalf("expected 2 entries, got %d", report.Entries)
	}

	want := `{"frame":5,"timestamp":12.5,"entries":[` +
		`{"name":"Position","kind":"entity","values":[` +
		`{"entity_id":1,"value":{"x":1,"y":2}},` +
		`{"entity_id":3,"value":{"x":0,"y":0}}]},` +
		`{"name":"Clock","kind":"singleton","values":[{"time":12.5}]}]}`
	if got := string(capture.last()); got != want {
		t.Fatalf("expected worked-example frame\nwant %s\ngot  %s", want, got)
	}
}

func TestTickEntriesCoverEveryKindWhenStoreIsEmpty(t *testing.T) {
	capture := &captureTransport{}
	engine := newTestEngine(t, capture, nil)

	report := engine.Tick(&testStore{}, time.Unix(1, 0))
	if report.Entries != 2 {
		t.Fatalf("expected entries for every registered kind, got %d", report.Entries)
	}

	want := `{"frame":1,"timestamp":1,"entries":[` +
		`{"name":"Position","kind":"entity","values":[]},` +
		`{"name":"Clock","kind":"singleton","values":[]}]}`
	if got := string(capture.last()); got != want {
		t.Fatalf("expected empty-store frame\nwant %s\ngot  %s", want, got)
	}
}

func TestTickFreezesRegistry(t *testing.T) {
	engine := newTestEngine(t, &captureTransport{}, nil)
	engine.Tick(&testStore{}, time.Unix(1, 0))

	err := engine.registry.Register(Component("Late", positionInstances))
	if !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen after first tick, got %v", err)
	}
}

func TestTickSurvivesSendFailure(t *testing.T) {
	capture := &captureTransport{failWith: errors.New("connection refused")}
	memory := sinks.NewMemorySink()
	engine := newTestEngine(t, capture, memory)

	store := &testStore{clock: &testClock{Time: 1}}
	first := engine.Tick(store, time.Unix(1, 0))
	second := engine.Tick(store, time.Unix(2, 0))

	if first.Sent || second.Sent {
		t.Fatalf("expected both ticks to report dropped sends")
	}
	if first.DropReason != "send_failed" {
		t.Fatalf("expected send_failed drop reason, got %q", first.DropReason)
	}
	if second.Frame != first.Frame+1 {
		t.Fatalf("expected the next tick to proceed independently, frames %d then %d", first.Frame, second.Frame)
	}
	if count := memory.CountByType(logging.EventSendFailed); count != 2 {
		t.Fatalf("expected 2 send-failure diagnostics, got %d", count)
	}
}

func TestTickSkipsOversizedFrameAndContinues(t *testing.T) {
	memory := sinks.NewMemorySink()

	registry := NewRegistry()
	if err := registry.Register(Component("Position", positionInstances)); err != nil {
		t.Fatalf("expected registration to succeed, got %v", err)
	}

	hub := transport.NewWebSocketHub(16, nil)
	defer hub.Close()

	cfg := DefaultConfig()
	cfg.MaxPayload = 16
	engine, err := New(cfg, registry, hub, memory)
	if err != nil {
		t.Fatalf("expected engine construction to succeed, got %v", err)
	}

	store := &testStore{positions: map[uint64]testPosition{1: {X: 1, Y: 2}}}
	report := engine.Tick(store, time.Unix(1, 0))
	if report.Sent {
		t.Fatalf("expected oversized frame to be skipped")
	}
	if report.DropReason != "oversized" {
		t.Fatalf("expected oversized drop reason, got %q", report.DropReason)
	}
	if got := engine.Stats().DroppedOversize; got != 1 {
		t.Fatalf("expected dropped-oversize counter 1, got %d", got)
	}
	if count := memory.CountByType(logging.EventFrameOversized); count != 1 {
		t.Fatalf("expected 1 oversize diagnostic, got %d", count)
	}

	next := engine.Tick(store, time.Unix(2, 0))
	if next.Frame != report.Frame+1 {
		t.Fatalf("expected the process to continue to the next tick, frames %d then %d", report.Frame, next.Frame)
	}
}

func TestTickDropsFailingInstanceOnly(t *testing.T) {
	capture := &captureTransport{}
	memory := sinks.NewMemorySink()

	registry := NewRegistry()
	regs := []Registration{
		Component("Health", healthInstances),
		Component("Position", positionInstances),
		Resource("Clock", clockValue),
	}
	for _, reg := range regs {
		if err := registry.Register(reg); err != nil {
			t.Fatalf("expected registration to succeed, got %v", err)
		}
	}
	engine, err := New(DefaultConfig(), registry, capture, memory)
	if err != nil {
		t.Fatalf("expected engine construction to succeed, got %v", err)
	}

	store := populatedStore()
	store.healths[9] = nan()

	report := engine.Tick(store, time.Unix(3, 0))
	if !report.Sent {
		t.Fatalf("expected tick to send despite the failing instance, drop reason %q", report.DropReason)
	}
	if report.DroppedInstances != 1 {
		t.Fatalf("expected exactly 1 dropped instance, got %d", report.DroppedInstances)
	}
	if report.Entries != 3 {
		t.Fatalf("expected fragments for all kinds, got %d", report.Entries)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(events))
	}
	if events[0].Type != logging.EventSerializeDropped {
		t.Fatalf("expected serialize_dropped event, got %q", events[0].Type)
	}
	if events[0].Kind != "Health" || events[0].EntityID != 9 {
		t.Fatalf("expected diagnostic for Health entity 9, got kind=%q entity=%d", events[0].Kind, events[0].EntityID)
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
