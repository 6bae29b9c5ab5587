package statecast

import (
	"errors"
	"testing"
	"time"
)

func TestBuilderRegistersInOrder(t *testing.T) {
	builder := NewBuilder(DefaultConfig()).
		Sync(Component("Position", positionInstances)).
		Sync(
			Component("Health", healthInstances),
			Resource("Clock", clockValue),
		)

	engine, err := builder.Build(&captureTransport{}, nil)
	if err != nil {
		t.Fatalf("expected build to succeed, got %v", err)
	}

	entries := engine.registry.Entries()
	want := []string{"Position", "Health", "Clock"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Fatalf("expected entry %d to be %q, got %q", i, name, entries[i].Name)
		}
	}
}

func TestBuilderSurfacesFirstError(t *testing.T) {
	builder := NewBuilder(DefaultConfig()).
		Sync(Component("Position", positionInstances)).
		Sync(Component("Position", positionInstances)).
		Sync(Component("Velocity", positionInstances))

	if _, err := builder.Build(&captureTransport{}, nil); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName from build, got %v", err)
	}
}

func TestBuiltEngineTicks(t *testing.T) {
	capture := &captureTransport{}
	engine, err := NewBuilder(DefaultConfig()).
		Sync(Resource("Clock", clockValue)).
		Build(capture, nil)
	if err != nil {
		t.Fatalf("expected build to succeed, got %v", err)
	}

	report := engine.Tick(&testStore{clock: &testClock{Time: 3}}, time.Unix(3, 0))
	if !report.Sent {
		t.Fatalf("expected built engine to broadcast, drop reason %q", report.DropReason)
	}
	if engine.Frame() != 1 {
		t.Fatalf("expected frame counter 1, got %d", engine.Frame())
	}
}
