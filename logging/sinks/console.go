// Package sinks provides ready-made Publisher implementations for the
// diagnostics events emitted by the broadcast pipeline.
package sinks

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"statecast/logging"
)

// ConsoleSink writes one line per event through a standard library logger.
type ConsoleSink struct {
	logger *log.Logger
}

// NewConsoleSink builds a console sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags)}
}

// Publish implements logging.Publisher.
func (s *ConsoleSink) Publish(event logging.Event) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf("[%s] frame=%d severity=%s%s%s", event.Type, event.Frame, formatSeverity(event.Severity), formatSubject(event), formatExtra(event.Extra))
}

func formatSeverity(sev logging.Severity) string {
	switch sev {
	case logging.SeverityDebug:
		return "debug"
	case logging.SeverityInfo:
		return "info"
	case logging.SeverityWarn:
		return "warn"
	case logging.SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func formatSubject(event logging.Event) string {
	var b strings.Builder
	if event.Kind != "" {
		fmt.Fprintf(&b, " kind=%s", event.Kind)
	}
	if event.EntityID != 0 {
		fmt.Fprintf(&b, " entity=%d", event.EntityID)
	}
	if event.Message != "" {
		fmt.Fprintf(&b, " msg=%q", event.Message)
	}
	return b.String()
}

func formatExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, extra[k])
	}
	return b.String()
}
