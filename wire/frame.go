// Package wire defines the self-describing message grammar shared between the
// broadcasting process and the observer. A consumer with no prior knowledge of
// the registered kinds can recover, from a single frame, which kinds exist,
// whether they are per-entity or global, and their current instances.
package wire

import "encoding/json"

// KindTag distinguishes per-entity state from global singletons on the wire.
type KindTag string

const (
	// KindEntity marks state with zero or more instances, one per owning entity.
	KindEntity KindTag = "entity"
	// KindSingleton marks global state with at most one instance.
	KindSingleton KindTag = "singleton"
)

// Valid reports whether the tag is one of the two wire values.
func (k KindTag) Valid() bool {
	return k == KindEntity || k == KindSingleton
}

// Frame is the complete broadcast payload for one tick.
type Frame struct {
	// Frame increases by one per broadcast and never repeats within a process.
	Frame uint64 `json:"frame"`
	// Timestamp is wall-clock seconds since the Unix epoch.
	Timestamp float64 `json:"timestamp"`
	// Entries holds one element per registered kind, in registration order,
	// even when a kind currently has no instances.
	Entries []Entry `json:"entries"`
}

// Entry carries one kind's serialized instances for a single tick.
type Entry struct {
	Name string  `json:"name"`
	Kind KindTag `json:"kind"`
	// Values holds pre-serialized records. For KindEntity each record is an
	// EntityValue object; for KindSingleton the slice is empty or holds the
	// bare serialized value.
	Values []json.RawMessage `json:"values"`
}

// EntityValue pairs an entity identifier with that entity's serialized state.
type EntityValue struct {
	EntityID uint64          `json:"entity_id"`
	Value    json.RawMessage `json:"value"`
}

// Envelope is the side-message format for out-of-band observer traffic such as
// forwarded log events. It is sent as its own datagram, never inside a Frame.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Update is an observer-issued singleton mutation received on the intake path.
type Update struct {
	Resource string          `json:"resource"`
	Value    json.RawMessage `json:"value"`
}
