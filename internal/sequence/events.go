package sequence

import (
	"context"
	"image"
	"log/slog"
)

// Event names emitted to a Sink.
const (
	EventFirstFrameReady = "firstFrameReady"
	EventSequenceReady   = "sequenceReady"
	EventLoadFailed      = "loadFailed"
	EventLooped          = "looped"
)

// loopedData is the payload carried by looped events.
const loopedData = "onLooped"

// Event is a notification for an external observer.
type Event struct {
	Name       string      `json:"event"`
	Generation Generation  `json:"generation"`
	Data       string      `json:"data,omitempty"`
	Frames     int         `json:"frames,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Image      image.Image `json:"-"`
}

// Sink receives events. Emit is fire-and-forget and must not block the
// caller for long; it is called from the loader's coordinator goroutine.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ev Event) { f(ev) }

// MultiSink fans each event out to all of its sinks in order.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Log *slog.Logger
}

// Emit implements Sink.
func (s LogSink) Emit(ev Event) {
	level := slog.LevelInfo
	if ev.Name == EventLoadFailed {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("event", ev.Name),
		slog.Uint64("generation", uint64(ev.Generation)),
	}
	if ev.Frames != 0 {
		attrs = append(attrs, slog.Int("frames", ev.Frames))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}
	s.Log.LogAttrs(context.Background(), level, "sequence event", attrs...)
}
