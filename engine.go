package statecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"statecast/logging"
	"statecast/transport"
)

// Engine runs the per-tick pipeline: collect fragments from every registered
// kind, assemble them into one self-describing frame, and push the frame at
// the observer. All tick-time faults are recovered locally; from the host's
// point of view a tick always succeeds.
type Engine struct {
	cfg       Config
	registry  *Registry
	transport transport.Transport
	publisher logging.Publisher
	collector *collector
	frame     atomic.Uint64
}

// TickReport summarizes the outcome of one tick for the host's telemetry.
type TickReport struct {
	Frame            uint64
	Entries          int
	Bytes            int
	DroppedInstances int
	Sent             bool
	DropReason       string
	Duration         time.Duration
}

// New wires an engine from its collaborators. The transport handle is owned
// by the engine from here on; no other component may touch it directly.
func New(cfg Config, registry *Registry, tr transport.Transport, publisher logging.Publisher) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("engine: registry must not be nil")
	}
	if tr == nil {
		return nil, fmt.Errorf("engine: transport must not be nil")
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Engine{
		cfg:       cfg,
		registry:  registry,
		transport: tr,
		publisher: publisher,
		collector: newCollector(cfg.Workers, cfg.SerialCollect),
	}, nil
}

// Dial builds an engine with a UDP transport aimed at cfg.ObserverAddr.
func Dial(cfg Config, registry *Registry, publisher logging.Publisher) (*Engine, error) {
	udp, err := transport.DialUDP(cfg.ObserverAddr, cfg.MaxPayload)
	if err != nil {
		return nil, err
	}
	engine, err := New(cfg, registry, udp, publisher)
	if err != nil {
		udp.Close()
		return nil, err
	}
	return engine, nil
}

// Tick broadcasts the current state once. The host must guarantee no writer
// mutates the store while Tick is collecting; the engine only reads.
func (e *Engine) Tick(store any, now time.Time) TickReport {
	started := time.Now()
	e.registry.Freeze()

	frameNumber := e.frame.Add(1)
	entries := e.registry.Entries()
	fragments := e.collector.collect(entries, store)
	dropped := publishDrops(e.publisher, frameNumber, now, fragments)

	report := TickReport{
		Frame:            frameNumber,
		Entries:          len(fragments),
		DroppedInstances: dropped,
	}

	frame := assemble(frameNumber, now, fragments)
	payload, err := json.Marshal(frame)
	if err != nil {
		// No partial messages: the whole tick's broadcast is skipped.
		e.publisher.Publish(logging.Event{
			Type:     logging.EventAssembleFailed,
			Frame:    frameNumber,
			Time:     now,
			Severity: logging.SeverityError,
			Message:  err.Error(),
		})
		report.DropReason = "assemble_failed"
		report.Duration = time.Since(started)
		return report
	}

	report.Bytes = len(payload)
	if err := e.transport.Send(payload); err != nil {
		report.DropReason = classifySendError(err)
		e.publisher.Publish(logging.Event{
			Type:     sendEventType(err),
			Frame:    frameNumber,
			Time:     now,
			Severity: logging.SeverityWarn,
			Message:  err.Error(),
			Extra:    map[string]any{"bytes": len(payload)},
		})
	} else {
		report.Sent = true
	}

	report.Duration = time.Since(started)
	return report
}

// Run drives Tick from an internal ticker at cfg.TickRate until ctx is
// canceled, for hosts that want the engine to own the cadence. Hosts with
// their own loop call Tick directly instead.
func (e *Engine) Run(ctx context.Context, store any) {
	ticker := time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.Tick(store, now)
		}
	}
}

// Frame reports the last broadcast frame number.
func (e *Engine) Frame() uint64 {
	return e.frame.Load()
}

// Conn returns a handle for pushing side messages through the engine's
// transport. Safe to hand to any host subsystem.
func (e *Engine) Conn() *Conn {
	return &Conn{transport: e.transport, publisher: e.publisher}
}

// Stats exposes the transport's delivery counters.
func (e *Engine) Stats() transport.Stats {
	return e.transport.Stats()
}

// Close releases the transport.
func (e *Engine) Close() error {
	return e.transport.Close()
}

func classifySendError(err error) string {
	if isOversize(err) {
		return "oversized"
	}
	return "send_failed"
}

func sendEventType(err error) logging.EventType {
	if isOversize(err) {
		return logging.EventFrameOversized
	}
	return logging.EventSendFailed
}

func isOversize(err error) bool {
	return errors.Is(err, transport.ErrOversize)
}
