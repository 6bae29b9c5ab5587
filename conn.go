package statecast

import (
	"encoding/json"
	"time"

	"statecast/logging"
	"statecast/transport"
	"statecast/wire"
)

// Conn pushes arbitrary side messages to the observer over the engine's
// transport, wrapped in the {type, data} envelope. The message types the
// observer understands vary between editor implementations; delivery is
// best-effort like every frame.
type Conn struct {
	transport transport.Transport
	publisher logging.Publisher
}

// NewConn builds a side-message handle over an existing transport. Hosts that
// use an Engine normally call Engine.Conn instead; this constructor exists for
// wiring a diagnostics sink before the engine itself is assembled. publisher
// may be nil.
func NewConn(tr transport.Transport, publisher logging.Publisher) *Conn {
	return &Conn{transport: tr, publisher: publisher}
}

// SendMessage serializes payload under the given message type and sends it as
// its own datagram. A payload that cannot be serialized is reported and
// dropped; a delivery failure is counted by the transport and otherwise
// swallowed, since a diagnostics sink may itself forward through this Conn.
func (c *Conn) SendMessage(messageType string, payload any) {
	if c == nil || c.transport == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		if c.publisher != nil {
			c.publisher.Publish(logging.Event{
				Type:     logging.EventAssembleFailed,
				Time:     time.Now(),
				Severity: logging.SeverityWarn,
				Message:  err.Error(),
				Extra:    map[string]any{"messageType": messageType},
			})
		}
		return
	}
	envelope, err := json.Marshal(wire.Envelope{Type: messageType, Data: data})
	if err != nil {
		return
	}
	_ = c.transport.Send(envelope)
}
