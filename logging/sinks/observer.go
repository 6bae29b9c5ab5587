package sinks

import "statecast/logging"

// MessageSender pushes a typed side message toward the observer. Satisfied by
// statecast.Conn; declared here to keep the sink free of an import cycle.
type MessageSender interface {
	SendMessage(messageType string, payload any)
}

// ObserverSink forwards diagnostics events to the observer as "log" side
// messages so the editor can surface pipeline faults next to the state view.
type ObserverSink struct {
	sender MessageSender
	min    logging.Severity
}

// NewObserverSink builds a sink forwarding events at or above min severity.
func NewObserverSink(sender MessageSender, min logging.Severity) *ObserverSink {
	return &ObserverSink{sender: sender, min: min}
}

// Publish implements logging.Publisher. Delivery is best-effort; a failed
// forward is swallowed by the sender like any other send.
func (s *ObserverSink) Publish(event logging.Event) {
	if s == nil || s.sender == nil {
		return
	}
	if event.Severity < s.min {
		return
	}
	s.sender.SendMessage("log", event)
}
