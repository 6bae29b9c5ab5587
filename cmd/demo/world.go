package main

import (
	"math/rand"
	"sort"

	"statecast"
)

const (
	fieldWidth  = 800.0
	fieldHeight = 600.0
	maxSpeed    = 160.0
)

// Position is an entity's location on the field.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Velocity is an entity's movement vector in units per second.
type Velocity struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Clock is the simulation's global time resource. Scale is writable by the
// observer through the intake channel.
type Clock struct {
	Time  float64 `json:"time"`
	Scale float64 `json:"scale"`
}

// world is the demo's toy state store. A real host would expose its own ECS
// storage through the same registration functions.
type world struct {
	positions  map[uint64]Position
	velocities map[uint64]Velocity
	clock      Clock
}

func newWorld(entities int) *world {
	w := &world{
		positions:  make(map[uint64]Position, entities),
		velocities: make(map[uint64]Velocity, entities),
		clock:      Clock{Scale: 1},
	}
	for id := uint64(1); id <= uint64(entities); id++ {
		w.positions[id] = Position{
			X: rand.Float64() * fieldWidth,
			Y: rand.Float64() * fieldHeight,
		}
		w.velocities[id] = Velocity{
			DX: (rand.Float64()*2 - 1) * maxSpeed,
			DY: (rand.Float64()*2 - 1) * maxSpeed,
		}
	}
	return w
}

// step advances every entity and bounces it off the field edges.
func (w *world) step(dt float64) {
	scaled := dt * w.clock.Scale
	for id, pos := range w.positions {
		vel := w.velocities[id]
		pos.X += vel.DX * scaled
		pos.Y += vel.DY * scaled
		if pos.X < 0 || pos.X > fieldWidth {
			vel.DX = -vel.DX
			pos.X = clamp(pos.X, 0, fieldWidth)
		}
		if pos.Y < 0 || pos.Y > fieldHeight {
			vel.DY = -vel.DY
			pos.Y = clamp(pos.Y, 0, fieldHeight)
		}
		w.positions[id] = pos
		w.velocities[id] = vel
	}
	w.clock.Time += scaled
}

// positionInstances enumerates positions in entity order so frames stay
// deterministic for a given state.
func (w *world) positionInstances() []statecast.Instance[Position] {
	ids := sortedKeys(w.positions)
	instances := make([]statecast.Instance[Position], 0, len(ids))
	for _, id := range ids {
		instances = append(instances, statecast.Instance[Position]{EntityID: id, Value: w.positions[id]})
	}
	return instances
}

func (w *world) velocityInstances() []statecast.Instance[Velocity] {
	ids := sortedKeys(w.velocities)
	instances := make([]statecast.Instance[Velocity], 0, len(ids))
	for _, id := range ids {
		instances = append(instances, statecast.Instance[Velocity]{EntityID: id, Value: w.velocities[id]})
	}
	return instances
}

func (w *world) clockValue() (Clock, bool) {
	return w.clock, true
}

// applyClock accepts observer-issued clock changes. Only the scale is
// writable; time stays owned by the simulation.
func (w *world) applyClock(update Clock) error {
	w.clock.Scale = update.Scale
	return nil
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
