package statecast

import (
	"encoding/json"
	"fmt"

	"statecast/wire"
)

// Instance pairs an entity identifier with that entity's component value.
type Instance[T any] struct {
	EntityID uint64
	Value    T
}

// ComponentFunc enumerates every entity currently holding an instance of the
// component kind. Entities without the component are simply not listed. The
// enumeration must be read-only and its order determines wire order, so hosts
// that want deterministic frames should enumerate deterministically.
type ComponentFunc[S, T any] func(store S) []Instance[T]

// ResourceFunc reads a global singleton; ok reports whether the value
// currently exists.
type ResourceFunc[S, T any] func(store S) (value T, ok bool)

// Component declares an entity-scoped observable kind backed by fn. The
// concrete store and value types are erased here, once, so the registry and
// everything downstream handle only the Snapshotter interface.
func Component[S, T any](name string, fn ComponentFunc[S, T]) Registration {
	return Registration{
		Name: name,
		Kind: wire.KindEntity,
		Snapshotter: SnapshotterFunc(func(store any) ([]json.RawMessage, []InstanceError) {
			typed, ok := store.(S)
			if !ok {
				return nil, []InstanceError{{Err: fmt.Errorf("store is %T, want %T", store, *new(S))}}
			}
			instances := fn(typed)
			values := make([]json.RawMessage, 0, len(instances))
			var drops []InstanceError
			for _, inst := range instances {
				value, err := json.Marshal(inst.Value)
				if err != nil {
					drops = append(drops, InstanceError{EntityID: inst.EntityID, Err: err})
					continue
				}
				record, err := json.Marshal(wire.EntityValue{EntityID: inst.EntityID, Value: value})
				if err != nil {
					drops = append(drops, InstanceError{EntityID: inst.EntityID, Err: err})
					continue
				}
				values = append(values, record)
			}
			return values, drops
		}),
	}
}

// Resource declares a singleton observable kind backed by fn. An absent
// singleton yields an empty fragment rather than an error.
func Resource[S, T any](name string, fn ResourceFunc[S, T]) Registration {
	return Registration{
		Name: name,
		Kind: wire.KindSingleton,
		Snapshotter: SnapshotterFunc(func(store any) ([]json.RawMessage, []InstanceError) {
			typed, ok := store.(S)
			if !ok {
				return nil, []InstanceError{{Err: fmt.Errorf("store is %T, want %T", store, *new(S))}}
			}
			value, present := fn(typed)
			if !present {
				return []json.RawMessage{}, nil
			}
			raw, err := json.Marshal(value)
			if err != nil {
				return []json.RawMessage{}, []InstanceError{{Err: err}}
			}
			return []json.RawMessage{raw}, nil
		}),
	}
}
