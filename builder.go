package statecast

import (
	"statecast/logging"
	"statecast/transport"
)

// Builder accumulates kind registrations and produces a ready engine. It is
// registration-order preserving sugar over Registry; the first error sticks
// and surfaces from the terminal call, so call sites can chain without
// checking each step.
type Builder struct {
	cfg      Config
	registry *Registry
	err      error
}

// NewBuilder starts a builder with the given configuration.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg, registry: NewRegistry()}
}

// Sync registers the given kinds in order. Combine with the Component and
// Resource constructors:
//
//	statecast.NewBuilder(cfg).
//		Sync(statecast.Component("Position", positions)).
//		Sync(statecast.Resource("Clock", clock)).
//		Dial(publisher)
func (b *Builder) Sync(regs ...Registration) *Builder {
	if b.err != nil {
		return b
	}
	for _, reg := range regs {
		if err := b.registry.Register(reg); err != nil {
			b.err = err
			return b
		}
	}
	return b
}

// Registry exposes the accumulating registry, for hosts that mix builder
// sugar with direct registration.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Build finishes setup against an injected transport.
func (b *Builder) Build(tr transport.Transport, publisher logging.Publisher) (*Engine, error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.cfg, b.registry, tr, publisher)
}

// Dial finishes setup with a UDP transport aimed at the configured observer.
func (b *Builder) Dial(publisher logging.Publisher) (*Engine, error) {
	if b.err != nil {
		return nil, b.err
	}
	return Dial(b.cfg, b.registry, publisher)
}
