package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

type NoopSink struct{}

func (NoopSink) Emit(Event) {}

type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(e Event) {
	if s == nil || s.ch == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case s.ch <- e:
	default:
		// Drop on backpressure so an absent/slow UI cannot block the scan.
	}
}

type PlainSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: w}
}

func (s *PlainSink) Emit(e Event) {
	if s == nil || s.w == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	line := formatPlain(e)
	if line == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, line)
}

func formatPlain(e Event) string {
	ts := e.At.Format("15:04:05")
	switch e.Type {
	case EventScanStarted:
		return fmt.Sprintf("[%s] scan %s started files=%d", ts, e.RunID, e.FileCount)
	case EventScanWarning:
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			msg = strings.TrimSpace(e.Error)
		}
		return fmt.Sprintf("[%s] warning: %s", ts, msg)
	case EventFileSkipped:
		return fmt.Sprintf("[%s] skipped %s: %s", ts, e.Path, e.Message)
	case EventDetectorStarted:
		return fmt.Sprintf("[%s] detector %s started", ts, e.RuleID)
	case EventDetectorFinished:
		return fmt.Sprintf("[%s] detector %s finished findings=%d duration=%dms", ts, e.RuleID, e.FindingCount, e.DurationMS)
	case EventScanFinished:
		line := fmt.Sprintf("[%s] scan %s finished findings=%d duration=%dms", ts, e.RunID, e.FindingCount, e.DurationMS)
		if strings.TrimSpace(e.Error) != "" {
			line += " error=" + strings.TrimSpace(e.Error)
		}
		return line
	default:
		return ""
	}
}
