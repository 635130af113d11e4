package sass

import (
	"testing"

	"github.com/google/uuid"

	"github.com/sassembedded/host/internal/protocol"
)

type recordingLogger struct {
	debugged []LogEvent
	warned   []LogEvent
}

func (l *recordingLogger) Debug(event LogEvent) {
	l.debugged = append(l.debugged, event)
}

func (l *recordingLogger) Warn(event LogEvent) {
	l.warned = append(l.warned, event)
}

func TestLoggerRegistryDebugGoesToDebug(t *testing.T) {
	logger := &recordingLogger{}
	r := newLoggerRegistry(logger)

	r.dispatch(uuid.New(), &protocol.LogEvent{Kind: protocol.LogEventDebug, Message: "hi"})

	if len(logger.debugged) != 1 || len(logger.warned) != 0 {
		t.Fatalf("got debugged=%d warned=%d, want 1 and 0", len(logger.debugged), len(logger.warned))
	}
	if logger.debugged[0].Message != "hi" {
		t.Errorf("Message = %q", logger.debugged[0].Message)
	}
}

func TestLoggerRegistryWarningAndDeprecationGoToWarn(t *testing.T) {
	logger := &recordingLogger{}
	r := newLoggerRegistry(logger)

	r.dispatch(uuid.New(), &protocol.LogEvent{Kind: protocol.LogEventWarning, Message: "careful"})
	r.dispatch(uuid.New(), &protocol.LogEvent{Kind: protocol.LogEventDeprecationWarning, Message: "slash-div"})

	if len(logger.warned) != 2 {
		t.Fatalf("got %d warnings, want 2", len(logger.warned))
	}
	if logger.warned[1].Kind != LogEventDeprecationWarning {
		t.Errorf("Kind = %v, want LogEventDeprecationWarning", logger.warned[1].Kind)
	}
}

func TestLoggerRegistryWithoutLoggerDoesNotPanic(t *testing.T) {
	r := newLoggerRegistry(nil)
	r.dispatch(uuid.New(), &protocol.LogEvent{Kind: protocol.LogEventWarning, Message: "nobody's listening", Formatted: "nobody's listening"})
}

func TestLoggerRegistryCarriesSpan(t *testing.T) {
	logger := &recordingLogger{}
	r := newLoggerRegistry(logger)

	r.dispatch(uuid.New(), &protocol.LogEvent{
		Kind:    protocol.LogEventWarning,
		Message: "m",
		Span:    &protocol.SpanData{URL: "input.scss", StartLine: 3},
	})

	if len(logger.warned) != 1 || logger.warned[0].Span == nil {
		t.Fatal("expected the span to survive translation")
	}
	if logger.warned[0].Span.URL != "input.scss" || logger.warned[0].Span.StartLine != 3 {
		t.Errorf("Span = %+v", logger.warned[0].Span)
	}
}
