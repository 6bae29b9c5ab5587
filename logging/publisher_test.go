package logging

import (
	"sync"
	"testing"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingPublisher) Publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMultiFansOutToEveryTarget(t *testing.T) {
	first := &recordingPublisher{}
	second := &recordingPublisher{}

	pub := Multi(first, nil, second)
	pub.Publish(Event{Type: EventSendFailed})

	if first.count() != 1 || second.count() != 1 {
		t.Fatalf("expected both targets to receive the event, got %d and %d", first.count(), second.count())
	}
}

func TestMultiWithNoTargetsDiscards(t *testing.T) {
	pub := Multi(nil, nil)
	pub.Publish(Event{Type: EventSendFailed})
}

func TestWithMinSeverityFilters(t *testing.T) {
	target := &recordingPublisher{}
	pub := WithMinSeverity(target, SeverityWarn)

	pub.Publish(Event{Type: EventSendFailed, Severity: SeverityDebug})
	pub.Publish(Event{Type: EventSendFailed, Severity: SeverityInfo})
	pub.Publish(Event{Type: EventFrameOversized, Severity: SeverityWarn})
	pub.Publish(Event{Type: EventAssembleFailed, Severity: SeverityError})

	if target.count() != 2 {
		t.Fatalf("expected 2 events past the filter, got %d", target.count())
	}
}

func TestWithExtraDoesNotMutateOriginal(t *testing.T) {
	original := Event{Type: EventSendFailed, Extra: map[string]any{"a": 1}}
	annotated := original.WithExtra("b", 2)

	if len(original.Extra) != 1 {
		t.Fatalf("expected original extras untouched, got %d keys", len(original.Extra))
	}
	if len(annotated.Extra) != 2 {
		t.Fatalf("expected annotated copy to carry both keys, got %d", len(annotated.Extra))
	}
}

func TestPublisherFuncNilIsSafe(t *testing.T) {
	var f PublisherFunc
	f.Publish(Event{Type: EventSendFailed})
}
