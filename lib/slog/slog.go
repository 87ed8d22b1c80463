// Package slog is the dispatcher's logging abstraction.
package slog

import (
	"os"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/rs/zerolog"
)

// LogRecord holds data for a single log record.
type LogRecord struct {
	Msg        string          `json:"msg,omitempty"`        // Msg is an optional log message
	Error      error           `json:"error,omitempty"`      // Error is an optional error
	Details    any             `json:"details,omitempty"`    // Details are optional details
	StackTrace string          `json:"stacktrace,omitempty"` // StackTrace is optional stack trace
	Host       *core.Host      `json:"host,omitempty"`       // Host is the remote host, if known.
	WorkItem   *core.WorkItem  `json:"workitem,omitempty"`   // WorkItem is the item in flight, if known.
}

// Logger is an abstract log interface for the dispatcher.
//
// Multiple goroutines may invoke methods on a Logger simultaneously.
type Logger interface {
	Info(record *LogRecord)
	Warn(record *LogRecord)
	Error(record *LogRecord)
}

// zerologShim adapts LogRecord onto a structured zerolog.Logger.
type zerologShim struct {
	logger zerolog.Logger
}

func (s *zerologShim) event(e *zerolog.Event, record *LogRecord) {
	if record == nil {
		e.Send()
		return
	}
	if record.Error != nil {
		e = e.Err(record.Error)
	}
	if record.Details != nil {
		e = e.Interface("details", record.Details)
	}
	if record.StackTrace != "" {
		e = e.Str("stacktrace", record.StackTrace)
	}
	if record.Host != nil {
		e = e.Str("host", record.Host.Endpoint)
	}
	if record.WorkItem != nil {
		e = e.Str("workitem", record.WorkItem.String())
	}
	e.Msg(record.Msg)
}

func (s *zerologShim) Info(record *LogRecord) {
	s.event(s.logger.Info(), record)
}

func (s *zerologShim) Warn(record *LogRecord) {
	s.event(s.logger.Warn(), record)
}

func (s *zerologShim) Error(record *LogRecord) {
	s.event(s.logger.Error(), record)
}

// GetDefaultLogger returns the default Logger: a zerolog console writer on
// stderr, so the Status Reporter's own stdout telemetry (§6.3 of the spec)
// is never interleaved with log lines.
func GetDefaultLogger() Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return &zerologShim{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// NewJSONLogger returns a Logger that writes newline-delimited JSON to w,
// for operators who pipe dispatcher output into log aggregation.
func NewJSONLogger(w *os.File) Logger {
	return &zerologShim{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// RecordingLogger captures all logged events in memory.
// It is designed for use as a test fixture.
type RecordingLogger struct {
	Events []Event
}

type Event struct {
	Level string
	*LogRecord
}

func (l *RecordingLogger) Info(record *LogRecord) {
	l.Events = append(l.Events, Event{Level: "info", LogRecord: record})
}

func (l *RecordingLogger) Warn(record *LogRecord) {
	l.Events = append(l.Events, Event{Level: "warn", LogRecord: record})
}

func (l *RecordingLogger) Error(record *LogRecord) {
	l.Events = append(l.Events, Event{Level: "error", LogRecord: record})
}

var _ Logger = (*RecordingLogger)(nil) // type check
