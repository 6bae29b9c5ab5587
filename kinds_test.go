package statecast

import (
	"encoding/json"
	"math"
	"sort"
	"testing"

	"statecast/wire"
)

type testStore struct {
	positions map[uint64]testPosition
	healths   map[uint64]float64
	clock     *testClock
}

type testPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type testClock struct {
	Time float64 `json:"time"`
}

func positionInstances(store *testStore) []Instance[testPosition] {
	ids := make([]uint64, 0, len(store.positions))
	for id := range store.positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	instances := make([]Instance[testPosition], 0, len(ids))
	for _, id := range ids {
		instances = append(instances, Instance[testPosition]{EntityID: id, Value: store.positions[id]})
	}
	return instances
}

func healthInstances(store *testStore) []Instance[float64] {
	ids := make([]uint64, 0, len(store.healths))
	for id := range store.healths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	instances := make([]Instance[float64], 0, len(ids))
	for _, id := range ids {
		instances = append(instances, Instance[float64]{EntityID: id, Value: store.healths[id]})
	}
	return instances
}

func clockValue(store *testStore) (testClock, bool) {
	if store.clock == nil {
		return testClock{}, false
	}
	return *store.clock, true
}

func TestComponentSerializesSparseInstances(t *testing.T) {
	store := &testStore{positions: map[uint64]testPosition{
		1: {X: 1, Y: 2},
		3: {X: 0, Y: 0},
	}}

	reg := Component("Position", positionInstances)
	if reg.Kind != wire.KindEntity {
		t.Fatalf("expected entity kind, got %q", reg.Kind)
	}

	values, drops := reg.Snapshotter.Snapshot(store)
	if len(drops) != 0 {
		t.Fatalf("expected no drops, got %d", len(drops))
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}

	var first wire.EntityValue
	if err := json.Unmarshal(values[0], &first); err != nil {
		t.Fatalf("expected first value to decode, got %v", err)
	}
	if first.EntityID != 1 {
		t.Fatalf("expected entity 1 first, got %d", first.EntityID)
	}
	if string(first.Value) != `{"x":1,"y":2}` {
		t.Fatalf("expected serialized position, got %s", first.Value)
	}
}

func TestComponentDropsOnlyFailingInstances(t *testing.T) {
	store := &testStore{healths: map[uint64]float64{
		1: 100,
		2: math.NaN(),
		3: 50,
	}}

	reg := Component("Health", healthInstances)
	values, drops := reg.Snapshotter.Snapshot(store)
	if len(values) != 2 {
		t.Fatalf("expected 2 surviving values, got %d", len(values))
	}
	if len(drops) != 1 {
		t.Fatalf("expected 1 drop, got %d", len(drops))
	}
	if drops[0].EntityID != 2 {
		t.Fatalf("expected entity 2 to be dropped, got %d", drops[0].EntityID)
	}
	if drops[0].Err == nil {
		t.Fatalf("expected drop to carry its cause")
	}
}

func TestResourceEmitsZeroOrOneValue(t *testing.T) {
	reg := Resource("Clock", clockValue)
	if reg.Kind != wire.KindSingleton {
		t.Fatalf("expected singleton kind, got %q", reg.Kind)
	}

	values, drops := reg.Snapshotter.Snapshot(&testStore{})
	if len(values) != 0 || len(drops) != 0 {
		t.Fatalf("expected empty fragment for absent singleton, got %d values %d drops", len(values), len(drops))
	}

	values, drops = reg.Snapshotter.Snapshot(&testStore{clock: &testClock{Time: 12.5}})
	if len(drops) != 0 {
		t.Fatalf("expected no drops, got %d", len(drops))
	}
	if len(values) != 1 {
		t.Fatalf("expected 1 value, got %d", len(values))
	}
	if string(values[0]) != `{"time":12.5}` {
		t.Fatalf("expected bare clock value, got %s", values[0])
	}
}

func TestSnapshotterRejectsWrongStoreType(t *testing.T) {
	reg := Component("Position", positionInstances)
	values, drops := reg.Snapshotter.Snapshot("not a store")
	if len(values) != 0 {
		t.Fatalf("expected no values for mismatched store, got %d", len(values))
	}
	if len(drops) != 1 {
		t.Fatalf("expected 1 drop for mismatched store, got %d", len(drops))
	}
}
