// Package transport moves assembled frames toward the observer. Every
// implementation is best-effort: a send either completes immediately or the
// payload is dropped with a counted reason, and the caller's tick proceeds
// either way.
package transport

import "errors"

// ErrOversize marks a payload rejected for exceeding the configured ceiling.
// Oversized payloads are never fragmented or partially sent.
var ErrOversize = errors.New("payload exceeds maximum size")

// Transport is a fire-and-forget channel to the observer. Send must never
// block waiting for the peer and must never panic on peer absence; a non-nil
// error reports why the payload was dropped so callers can record it.
type Transport interface {
	Send(payload []byte) error
	Stats() Stats
	Close() error
}

type multiTransport struct {
	targets []Transport
}

// Multi fans each payload out to every target. Send reports the first drop
// reason encountered; remaining targets are still attempted.
func Multi(targets ...Transport) Transport {
	filtered := make([]Transport, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			filtered = append(filtered, target)
		}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &multiTransport{targets: filtered}
}

func (m *multiTransport) Send(payload []byte) error {
	var firstErr error
	for _, target := range m.targets {
		if err := target.Send(payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiTransport) Stats() Stats {
	var total Stats
	for _, target := range m.targets {
		stats := target.Stats()
		total.FramesSent += stats.FramesSent
		total.BytesSent += stats.BytesSent
		total.DroppedOversize += stats.DroppedOversize
		total.DroppedSendError += stats.DroppedSendError
	}
	return total
}

func (m *multiTransport) Close() error {
	var firstErr error
	for _, target := range m.targets {
		if err := target.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
