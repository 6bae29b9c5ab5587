// Package statecast broadcasts a live snapshot of a simulation's registered
// state to an out-of-process observer once per tick. The host declares which
// kinds of state are observable, drives the tick, and stays unaffected by a
// slow, absent, or misbehaving observer.
package statecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"statecast/wire"
)

var (
	// ErrDuplicateName reports a second registration under an existing name.
	ErrDuplicateName = errors.New("duplicate kind name")
	// ErrFrozen reports a registration attempted after broadcasting started.
	ErrFrozen = errors.New("registry is frozen")
	// ErrEmptyName reports a registration with a blank name.
	ErrEmptyName = errors.New("kind name must not be empty")
	// ErrNilSnapshotter reports a registration without a snapshot capability.
	ErrNilSnapshotter = errors.New("snapshotter must not be nil")
	// ErrInvalidKind reports a kind tag outside the wire vocabulary.
	ErrInvalidKind = errors.New("kind tag must be entity or singleton")
)

// InstanceError describes one instance omitted from a fragment.
type InstanceError struct {
	EntityID uint64
	Err      error
}

// Snapshotter serializes every current instance of one observable kind. The
// store is read-only during the call; implementations must not mutate it.
// Instances that cannot be serialized are skipped and reported in drops.
type Snapshotter interface {
	Snapshot(store any) (values []json.RawMessage, drops []InstanceError)
}

// SnapshotterFunc adapts a function into the Snapshotter interface.
type SnapshotterFunc func(store any) ([]json.RawMessage, []InstanceError)

// Snapshot implements Snapshotter.
func (f SnapshotterFunc) Snapshot(store any) ([]json.RawMessage, []InstanceError) {
	return f(store)
}

// Registration declares one observable kind: a stable name, its wire kind,
// and the capability that serializes its current instances.
type Registration struct {
	Name        string
	Kind        wire.KindTag
	Snapshotter Snapshotter
}

func (r Registration) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w (got %q)", ErrInvalidKind, r.Kind)
	}
	if r.Snapshotter == nil {
		return ErrNilSnapshotter
	}
	return nil
}

// Registry is the ordered, append-only table of observable kinds. It is built
// during setup and read every tick; once frozen it rejects further
// registrations, so ticks consult it without locking concerns.
type Registry struct {
	mu      sync.Mutex
	entries []Registration
	index   map[string]struct{}
	frozen  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]struct{})}
}

// Register appends one observable kind. A failed registration leaves the
// registry exactly as it was.
func (r *Registry) Register(reg Registration) error {
	if err := reg.validate(); err != nil {
		return fmt.Errorf("register %q: %w", reg.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("register %q: %w", reg.Name, ErrFrozen)
	}
	if _, exists := r.index[reg.Name]; exists {
		return fmt.Errorf("register %q: %w", reg.Name, ErrDuplicateName)
	}
	r.index[reg.Name] = struct{}{}
	r.entries = append(r.entries, reg)
	return nil
}

// Entries returns a copy of the registrations in registration order.
func (r *Registry) Entries() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]Registration, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Len reports the number of registered kinds.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Freeze marks setup as complete. Later Register calls fail with ErrFrozen.
// The engine freezes the registry before its first tick so a registration can
// never land inside a message being assembled.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether the registry still accepts registrations.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}
