package transport

import "sync/atomic"

// counters tracks delivery outcomes. All fields are atomics so the send path
// never takes a lock.
type counters struct {
	framesSent       atomic.Uint64
	bytesSent        atomic.Uint64
	lastFrameBytes   atomic.Uint64
	droppedOversize  atomic.Uint64
	droppedSendError atomic.Uint64
}

// Stats is a point-in-time copy of a transport's delivery counters.
type Stats struct {
	FramesSent       uint64 `json:"framesSent"`
	BytesSent        uint64 `json:"bytesSent"`
	LastFrameBytes   uint64 `json:"lastFrameBytes"`
	DroppedOversize  uint64 `json:"droppedOversize"`
	DroppedSendError uint64 `json:"droppedSendError"`
}

func (c *counters) recordSent(bytes int) {
	c.framesSent.Add(1)
	c.bytesSent.Add(uint64(bytes))
	c.lastFrameBytes.Store(uint64(bytes))
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesSent:       c.framesSent.Load(),
		BytesSent:        c.bytesSent.Load(),
		LastFrameBytes:   c.lastFrameBytes.Load(),
		DroppedOversize:  c.droppedOversize.Load(),
		DroppedSendError: c.droppedSendError.Load(),
	}
}
