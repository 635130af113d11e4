// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/sassembedded/host/internal/protocol"
)

// LogEventKind classifies a LogEvent.
type LogEventKind int

const (
	// LogEventDebug is a @debug rule.
	LogEventDebug LogEventKind = iota
	// LogEventWarning is an ordinary @warn rule.
	LogEventWarning
	// LogEventDeprecationWarning is a warning the compiler emitted about
	// use of a deprecated Sass feature.
	LogEventDeprecationWarning
)

// LogEvent is a @warn or @debug rule encountered during compilation.
type LogEvent struct {
	Kind LogEventKind

	// Message is the raw text passed to @warn/@debug.
	Message string

	// Formatted is Message dressed up the way the compiler would print
	// it to a terminal, including any source span and stack trace.
	Formatted string

	// Span is the primary source span implicated, if any.
	Span *SourceSpan

	// StackTrace is the Sass call stack at the point of the rule,
	// formatted for display. Empty for a LogEventDebug event, which the
	// compiler never attaches a stack trace to.
	StackTrace string
}

// Logger receives @warn and @debug events for a single compilation. Debug
// and Warn are called synchronously on the Dispatcher's reader goroutine
// and must not block on another compilation's progress.
type Logger interface {
	Debug(event LogEvent)
	Warn(event LogEvent)
}

// loggerRegistry routes LogEvent wire messages to the Logger a caller
// registered for one compilation, or to a structured stderr fallback if
// they registered none.
type loggerRegistry struct {
	mu     sync.Mutex
	logger Logger
}

func newLoggerRegistry(logger Logger) *loggerRegistry {
	return &loggerRegistry{logger: logger}
}

func (r *loggerRegistry) dispatch(correlationID uuid.UUID, wire *protocol.LogEvent) {
	event := LogEvent{
		Kind:       LogEventKind(wire.Kind),
		Message:    wire.Message,
		Formatted:  wire.Formatted,
		StackTrace: wire.StackTrace,
	}
	if wire.Span != nil {
		event.Span = &SourceSpan{
			Text:        wire.Span.Text,
			URL:         wire.Span.URL,
			StartLine:   int(wire.Span.StartLine),
			StartColumn: int(wire.Span.StartColumn),
			EndLine:     int(wire.Span.EndLine),
			EndColumn:   int(wire.Span.EndColumn),
			Context:     wire.Span.Context,
		}
	}

	r.mu.Lock()
	logger := r.logger
	r.mu.Unlock()

	if logger == nil {
		r.fallback(correlationID, event)
		return
	}

	if event.Kind == LogEventDebug {
		logger.Debug(event)
	} else {
		logger.Warn(event)
	}
}

// fallback prints events to stderr when the caller registered no
// Logger, matching the compiler's own default behavior for a host that
// never connects one. When debug logging is enabled, the correlation id
// is attached so interleaved concurrent compilations stay distinguishable.
func (r *loggerRegistry) fallback(correlationID uuid.UUID, event LogEvent) {
	if *fEnableDebug {
		getLogger().Printf("connection %s: %s", correlationID, event.Formatted)
		return
	}
	fmt.Fprintln(os.Stderr, event.Formatted)
}
