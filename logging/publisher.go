// Package logging carries the diagnostics events emitted by the broadcast
// pipeline. Events describe recoverable faults (a dropped instance, an
// oversized frame, a failed send); none of them ever escalate to the host.
package logging

import "time"

// EventType identifies the diagnostic condition an event reports.
type EventType string

const (
	// EventSerializeDropped records an instance omitted from its fragment
	// because its value could not be serialized.
	EventSerializeDropped EventType = "serialize_dropped"
	// EventFrameOversized records a frame skipped for exceeding the payload ceiling.
	EventFrameOversized EventType = "frame_oversized"
	// EventSendFailed records a datagram the channel refused to carry.
	EventSendFailed EventType = "send_failed"
	// EventAssembleFailed records a tick whose frame could not be encoded.
	EventAssembleFailed EventType = "assemble_failed"
	// EventIntakeRejected records a malformed or unroutable inbound update.
	EventIntakeRejected EventType = "intake_rejected"
	// EventSubscriberDropped records an observer connection removed for falling behind.
	EventSubscriberDropped EventType = "subscriber_dropped"
)

// Severity orders events for sink filtering.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// Event is one diagnostic occurrence inside the broadcast pipeline.
type Event struct {
	Type     EventType      `json:"type"`
	Frame    uint64         `json:"frame,omitempty"`
	Time     time.Time      `json:"time"`
	Severity Severity       `json:"severity"`
	Kind     string         `json:"kind,omitempty"`
	EntityID uint64         `json:"entityId,omitempty"`
	Message  string         `json:"message,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// WithExtra returns a copy of the event carrying one more annotation.
func (e Event) WithExtra(key string, value any) Event {
	extra := make(map[string]any, len(e.Extra)+1)
	for k, v := range e.Extra {
		extra[k] = v
	}
	extra[key] = value
	e.Extra = extra
	return e
}

// Publisher receives diagnostics events. Implementations must be safe for
// concurrent use and must not block; the pipeline publishes from collection
// workers and from the send path.
type Publisher interface {
	Publish(event Event)
}

// PublisherFunc adapts a function into the Publisher interface.
type PublisherFunc func(event Event)

func (f PublisherFunc) Publish(event Event) {
	if f == nil {
		return
	}
	f(event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// NopPublisher returns a publisher that discards every event.
func NopPublisher() Publisher {
	return nopPublisher{}
}

type multiPublisher struct {
	targets []Publisher
}

func (m *multiPublisher) Publish(event Event) {
	for _, target := range m.targets {
		target.Publish(event)
	}
}

// Multi fans each event out to every non-nil target in order.
func Multi(targets ...Publisher) Publisher {
	filtered := make([]Publisher, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			filtered = append(filtered, target)
		}
	}
	switch len(filtered) {
	case 0:
		return NopPublisher()
	case 1:
		return filtered[0]
	}
	return &multiPublisher{targets: filtered}
}

type severityPublisher struct {
	next Publisher
	min  Severity
}

func (p *severityPublisher) Publish(event Event) {
	if event.Severity < p.min {
		return
	}
	p.next.Publish(event)
}

// WithMinSeverity drops events below min before they reach next.
func WithMinSeverity(next Publisher, min Severity) Publisher {
	if next == nil {
		return NopPublisher()
	}
	return &severityPublisher{next: next, min: min}
}
