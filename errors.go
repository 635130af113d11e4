// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when a connection is requested from a Dispatcher
// that has been poisoned. A Channel recovers from it by respawning the
// compiler, so a Channel method returns it only if the replacement
// Dispatcher is itself poisoned before the connection is made.
var ErrClosed = errors.New("sass: channel closed")

// SourceSpan identifies a range of a Sass source file, as reported by the
// compiler alongside a compile failure or a @warn/@debug event.
type SourceSpan struct {
	Text        string
	URL         string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Context     string
}

// Exception is returned when the compiler reports a Sass-level compile
// failure. It implements error and Unwrap so callers can use errors.As
// and errors.Is against Cause.
type Exception struct {
	// Message is the human-readable failure description, formatted the
	// way the compiler would print it to a terminal.
	Message string

	// SassMessage is the raw message text, without source-span formatting.
	SassMessage string

	// SassStack is the Sass stack trace at the point of failure, formatted
	// the way the compiler would print it to a terminal. Empty if the
	// compiler did not report one.
	SassStack string

	// Span is the primary source span implicated in the failure, if any.
	Span *SourceSpan

	// Cause is the underlying error that produced this Exception, if it
	// wraps one rather than representing an ordinary Sass compile
	// failure (for example a Protocol or Host error that aborted the
	// compilation).
	Cause error
}

func (e *Exception) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.SassMessage
}

func (e *Exception) Unwrap() error {
	return e.Cause
}

// ProtocolError reports a protocol-level failure: an error message the
// compiler sent, or a message from the compiler that the host cannot
// accept. A ProtocolError the compiler sends with GlobalErrorID, or a
// message type the Dispatcher does not route (such as
// FunctionCallRequest), poisons the Dispatcher: no further compilation
// on it can proceed until the Channel respawns.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "sass: protocol error: " + e.Message
}

// HostError indicates a host-supplied callback (Importer or
// FileImporter) returned an error while handling a request from the
// compiler, or a FileImporter returned a URL whose scheme is not file:.
type HostError struct {
	Message string
	Cause   error
}

func (e *HostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sass: host error: %s: %v", e.Message, e.Cause)
	}
	return "sass: host error: " + e.Message
}

func (e *HostError) Unwrap() error {
	return e.Cause
}

// SpawnError indicates the compiler subprocess could not be started.
type SpawnError struct {
	Path  string
	Cause error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("sass: failed to spawn %q: %v", e.Path, e.Cause)
}

func (e *SpawnError) Unwrap() error {
	return e.Cause
}
