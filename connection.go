// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jacobsa/reqtrace"

	"github.com/sassembedded/host/internal/protocol"
)

// connection is one in-flight compilation's view of a shared Dispatcher.
//
// It owns the single-slot mailbox the Dispatcher delivers the matching
// CompileResponse or VersionResponse into, and answers
// CanonicalizeRequest, ImportRequest, FileImportRequest and LogEvent
// messages addressed to its compilation id as they arrive on the
// Dispatcher's reader goroutine.
//
// A connection issues at most one outstanding request at a time: the
// goroutine that calls compileRequest or versionRequest blocks on the
// mailbox until the matching reply arrives, so the mailbox never needs
// more than one slot.
type connection struct {
	id            uint32
	correlationID uuid.UUID

	dispatcher *Dispatcher
	importers  *importerRegistry
	loggers    *loggerRegistry

	mailbox chan mailboxEntry
}

type mailboxEntry struct {
	msg protocol.OutboundMessage
	err error
}

// connect registers a new connection with d, allocating it a
// compilation id. It fails with ErrClosed if d is poisoned.
func connect(d *Dispatcher, importers *importerRegistry, loggers *loggerRegistry) (*connection, error) {
	c := &connection{
		correlationID: uuid.New(),
		dispatcher:    d,
		importers:     importers,
		loggers:       loggers,
		mailbox:       make(chan mailboxEntry, 1),
	}

	id, err := d.subscribe(c)
	if err != nil {
		return nil, err
	}
	c.id = id

	getLogger().Printf("connection %s: subscribed as compilation %d", c.correlationID, c.id)
	return c, nil
}

// disconnect removes c from its Dispatcher's routing table. After this
// call no further message addressed to c's compilation id will be
// delivered to it.
func (c *connection) disconnect() {
	c.dispatcher.unsubscribe(c.id)
	getLogger().Printf("connection %s: unsubscribed", c.correlationID)
}

// deliverResponse is called by the Dispatcher's reader goroutine when it
// routes a CompileResponse or VersionResponse addressed to c.
func (c *connection) deliverResponse(msg protocol.OutboundMessage) {
	c.mailbox <- mailboxEntry{msg: msg}
}

// deliverError unblocks whatever goroutine is waiting in compileRequest
// or versionRequest with err. It is used both for a ProtocolError
// addressed specifically to c and for the Dispatcher telling every
// subscribed connection that it can no longer make progress.
func (c *connection) deliverError(err error) {
	c.mailbox <- mailboxEntry{err: err}
}

// handleCanonicalize answers a CanonicalizeRequest by invoking the
// matching registered Importer and writing the result back to the
// compiler. It runs on the Dispatcher's reader goroutine and must not
// block on c's own mailbox.
func (c *connection) handleCanonicalize(req *protocol.CanonicalizeRequest) {
	resp := &protocol.CanonicalizeResponse{
		ID:            req.ID,
		CompilationID: c.id,
	}

	canonical, err := c.importers.canonicalize(req.ImporterID, req.URL, req.FromImport, req.ContainingURL)
	if err != nil {
		resp.Error = (&HostError{Message: "canonicalize " + req.URL, Cause: err}).Error()
	} else {
		resp.URL = canonical
	}

	c.reply(resp)
}

// handleImport answers an ImportRequest the same way handleCanonicalize
// answers a CanonicalizeRequest.
func (c *connection) handleImport(req *protocol.ImportRequest) {
	resp := &protocol.ImportResponse{
		ID:            req.ID,
		CompilationID: c.id,
	}

	result, err := c.importers.load(req.ImporterID, req.URL)
	if err != nil {
		resp.Error = (&HostError{Message: "import " + req.URL, Cause: err}).Error()
	} else {
		resp.Contents = result.Contents
		resp.Syntax = string(result.Syntax)
		if result.SourceMapURL != nil {
			resp.SourceMapURL = result.SourceMapURL.String()
		}
	}

	c.reply(resp)
}

// handleFileImport answers a FileImportRequest. A FileImporter that
// returns a non-"file:" URL is a host error: the compiler has no other
// way to read the stylesheet's contents.
func (c *connection) handleFileImport(req *protocol.FileImportRequest) {
	resp := &protocol.FileImportResponse{
		ID:            req.ID,
		CompilationID: c.id,
	}

	fileURL, err := c.importers.findFileURL(req.ImporterID, req.URL, req.FromImport, req.ContainingURL)
	switch {
	case err != nil:
		resp.Error = (&HostError{Message: "file_import " + req.URL, Cause: err}).Error()
	case fileURL.Scheme != "file":
		resp.Error = (&HostError{Message: fmt.Sprintf("FileImporter returned non-file: URL %q", fileURL)}).Error()
	default:
		resp.FileURL = fileURL.String()
	}

	c.reply(resp)
}

// handleLogEvent forwards a LogEvent to c's Logger, or to the fallback
// stderr writer if the caller registered none.
func (c *connection) handleLogEvent(event *protocol.LogEvent) {
	c.loggers.dispatch(c.correlationID, event)
}

func (c *connection) reply(msg protocol.InboundMessage) {
	if err := c.dispatcher.send(msg); err != nil {
		getLogger().Printf("connection %s: failed to send %T: %v", c.correlationID, msg, err)
	}
}

// compileRequest sends req, stamped with c's compilation id, and blocks
// for the matching CompileResponse.
func (c *connection) compileRequest(req *protocol.CompileRequest) (resp *protocol.CompileResponse, err error) {
	req.ID = c.id

	var report func(error)
	if reqtrace.Enabled() {
		_, report = reqtrace.StartSpan(context.Background(), "sass.CompileRequest")
		defer func() { report(err) }()
	}

	if err = c.dispatcher.send(req); err != nil {
		return nil, err
	}

	entry := <-c.mailbox
	if entry.err != nil {
		err = entry.err
		return nil, err
	}

	r, ok := entry.msg.(*protocol.CompileResponse)
	if !ok {
		err = &ProtocolError{Message: fmt.Sprintf("expected CompileResponse, got %T", entry.msg)}
		return nil, err
	}
	return r, nil
}

// versionRequest sends a VersionRequest and blocks for the matching
// VersionResponse.
func (c *connection) versionRequest() (resp *protocol.VersionResponse, err error) {
	req := &protocol.VersionRequest{ID: c.id}

	var report func(error)
	if reqtrace.Enabled() {
		_, report = reqtrace.StartSpan(context.Background(), "sass.VersionRequest")
		defer func() { report(err) }()
	}

	if err = c.dispatcher.send(req); err != nil {
		return nil, err
	}

	entry := <-c.mailbox
	if entry.err != nil {
		err = entry.err
		return nil, err
	}

	r, ok := entry.msg.(*protocol.VersionResponse)
	if !ok {
		err = &ProtocolError{Message: fmt.Sprintf("expected VersionResponse, got %T", entry.msg)}
		return nil, err
	}
	return r, nil
}
