package statecast

import (
	"encoding/json"
	"runtime"
	"sync"
	"time"

	"statecast/logging"
	"statecast/wire"
)

// fragment is one kind's serialized output for a single tick.
type fragment struct {
	name    string
	kind    wire.KindTag
	values  []json.RawMessage
	dropped []InstanceError
}

// collector runs every registered snapshot capability against the current
// store and returns one fragment per kind. Kinds have no data dependency on
// each other, so serialization fans out across a bounded set of workers; the
// result slice is indexed by registration position, never by completion order.
type collector struct {
	workers int
	serial  bool
}

func newCollector(workers int, serial bool) *collector {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &collector{workers: workers, serial: serial}
}

func (c *collector) collect(entries []Registration, store any) []fragment {
	fragments := make([]fragment, len(entries))
	if c.serial || len(entries) <= 1 {
		for i, entry := range entries {
			fragments[i] = snapshotOne(entry, store)
		}
		return fragments
	}

	workers := c.workers
	if workers > len(entries) {
		workers = len(entries)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, entry := range entries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, entry Registration) {
			defer wg.Done()
			fragments[i] = snapshotOne(entry, store)
			<-sem
		}(i, entry)
	}
	// Barrier: assembly must never observe a partial set of fragments.
	wg.Wait()
	return fragments
}

func snapshotOne(entry Registration, store any) fragment {
	values, drops := entry.Snapshotter.Snapshot(store)
	if values == nil {
		values = []json.RawMessage{}
	}
	return fragment{name: entry.Name, kind: entry.Kind, values: values, dropped: drops}
}

// publishDrops reports every omitted instance; collection itself never fails.
func publishDrops(publisher logging.Publisher, frame uint64, now time.Time, fragments []fragment) int {
	total := 0
	for _, frag := range fragments {
		for _, drop := range frag.dropped {
			total++
			publisher.Publish(logging.Event{
				Type:     logging.EventSerializeDropped,
				Frame:    frame,
				Time:     now,
				Severity: logging.SeverityWarn,
				Kind:     frag.name,
				EntityID: drop.EntityID,
				Message:  drop.Err.Error(),
			})
		}
	}
	return total
}

// assemble merges the ordered fragments with frame metadata into the wire
// message for the tick.
func assemble(frameNumber uint64, now time.Time, fragments []fragment) wire.Frame {
	entries := make([]wire.Entry, len(fragments))
	for i, frag := range fragments {
		entries[i] = wire.Entry{Name: frag.name, Kind: frag.kind, Values: frag.values}
	}
	return wire.Frame{
		Frame:     frameNumber,
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		Entries:   entries,
	}
}
