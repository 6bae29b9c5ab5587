package transport

import (
	"fmt"
	"net"
)

// DefaultMaxPayload caps a single datagram at 32 KiB, the ceiling the editor
// protocol has always used.
const DefaultMaxPayload = 32 * 1024

// UDP pushes each payload to a fixed observer endpoint as one datagram. The
// socket is connected once at setup and reused for the process lifetime; there
// is no handshake, no acknowledgment, and no per-send state.
type UDP struct {
	conn       *net.UDPConn
	maxPayload int
	counters   counters
}

// DialUDP resolves addr and connects a datagram socket to it. maxPayload <= 0
// selects DefaultMaxPayload. Resolution and bind failures are setup errors.
func DialUDP(addr string, maxPayload int) (*UDP, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	remote, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve observer address %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, remote)
	if err != nil {
		return nil, fmt.Errorf("dial observer %q: %w", addr, err)
	}
	return &UDP{conn: conn, maxPayload: maxPayload}, nil
}

// Send writes payload as a single datagram. Payloads above the ceiling are
// dropped whole; write errors (no listener, unreachable network) are counted
// and reported but carry no retry obligation.
func (u *UDP) Send(payload []byte) error {
	if len(payload) > u.maxPayload {
		u.counters.droppedOversize.Add(1)
		return fmt.Errorf("%w: %d > %d bytes", ErrOversize, len(payload), u.maxPayload)
	}
	if _, err := u.conn.Write(payload); err != nil {
		u.counters.droppedSendError.Add(1)
		return fmt.Errorf("send datagram: %w", err)
	}
	u.counters.recordSent(len(payload))
	return nil
}

// MaxPayload reports the configured datagram ceiling.
func (u *UDP) MaxPayload() int {
	return u.maxPayload
}

// Stats returns a copy of the delivery counters.
func (u *UDP) Stats() Stats {
	return u.counters.snapshot()
}

// Close releases the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
