package events

import (
	"encoding/json"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/sagecry/sagebot/internal/logger"
)

// LoggerSink forwards events to the process logger. Failures and fatal
// conditions map to elevated log levels.
type LoggerSink struct {
	log *logger.Logger
}

// NewLoggerSink creates a sink backed by the given logger.
func NewLoggerSink(log *logger.Logger) *LoggerSink {
	return &LoggerSink{log: log}
}

// Emit implements Sink.
func (s *LoggerSink) Emit(event Event) {
	fields := []zap.Field{
		zap.String("category", string(event.Category)),
		zap.Time("event_time", event.Time),
	}

	switch event.Category {
	case CategoryFatalError:
		s.log.Error(event.Message, fields...)
	case CategoryBuyFailure, CategorySellFailure, CategoryScanError:
		s.log.Warn(event.Message, fields...)
	default:
		s.log.Info(event.Message, fields...)
	}
}

// FileSink appends events to a file as JSON lines. It is the persistence
// collaborator for the event stream; the core never writes files itself.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewFileSink opens (or creates) the file at path for appending.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

// Emit implements Sink. Encoding errors are swallowed: event persistence
// must never stall trading.
func (s *FileSink) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.enc.Encode(event)
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.f.Close()
}

// RingSink keeps the most recent events in memory for the read surface.
type RingSink struct {
	mu    sync.Mutex
	buf   []Event
	limit int
}

// NewRingSink creates a ring holding at most limit events.
func NewRingSink(limit int) *RingSink {
	return &RingSink{
		buf:   make([]Event, 0, limit),
		limit: limit,
	}
}

// Emit implements Sink.
func (s *RingSink) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = append(s.buf, event)
	if len(s.buf) > s.limit {
		s.buf = s.buf[len(s.buf)-s.limit:]
	}
}

// Snapshot returns a copy of the retained events, oldest first.
func (s *RingSink) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.buf))
	copy(out, s.buf)

	return out
}

// MultiSink fans an event out to every registered sink.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines the given sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Emit implements Sink.
func (s *MultiSink) Emit(event Event) {
	for _, sink := range s.sinks {
		sink.Emit(event)
	}
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}

var (
	_ Sink = (*LoggerSink)(nil)
	_ Sink = (*FileSink)(nil)
	_ Sink = (*RingSink)(nil)
	_ Sink = (*MultiSink)(nil)
	_ Sink = NopSink{}
)
