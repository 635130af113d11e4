// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"context"
	"fmt"
	"sync"

	"github.com/jacobsa/reqtrace"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"github.com/sassembedded/host/internal/protocol"
)

// Dispatcher owns the compiler process and multiplexes its stdout
// stream across every connection subscribed to it. There is exactly one
// reader goroutine per Dispatcher, started in newDispatcher and running
// for the Dispatcher's entire lifetime; it is the only goroutine that
// ever reads proc's stdout or routes a message to a connection.
//
// The compilation id counter is 32 bits wide and increases
// monotonically. 0xFFFFFFFF is reserved: once the counter would have to
// allocate that value, the Dispatcher is poisoned and no further
// subscribe call can succeed. Only a Channel can recover from that by
// building a new process and a new Dispatcher.
type Dispatcher struct {
	proc  *process
	clock timeutil.Clock

	// mu guards nextID and poisoned. Its invariant is checked on every
	// Lock/Unlock: once poisoned is true, nextID must be pinned at
	// protocol.GlobalErrorID, and it must never be observed to move away
	// from that value again.
	mu       syncutil.InvariantMutex
	nextID   uint32
	poisoned bool

	connsMu sync.Mutex
	conns   map[uint32]*connection

	done chan struct{}
}

func newDispatcher(proc *process, clock timeutil.Clock) *Dispatcher {
	d := &Dispatcher{
		proc:  proc,
		clock: clock,
		conns: make(map[uint32]*connection),
		done:  make(chan struct{}),
	}
	d.mu = syncutil.NewInvariantMutex(d.checkInvariants)

	go d.readLoop()

	return d
}

func (d *Dispatcher) checkInvariants() {
	if d.poisoned && d.nextID != protocol.GlobalErrorID {
		panic("sass: dispatcher poisoned but id counter is not pinned at the protocol error id")
	}
}

// subscribe allocates a fresh compilation id for c and registers it in
// the routing table. It returns ErrClosed if the Dispatcher is already
// poisoned, or if this allocation would have to hand out the reserved
// protocol-error id.
func (d *Dispatcher) subscribe(c *connection) (uint32, error) {
	d.mu.Lock()

	if d.poisoned {
		d.mu.Unlock()
		return 0, ErrClosed
	}

	if d.nextID == protocol.GlobalErrorID {
		d.poisoned = true
		d.mu.Unlock()
		return 0, ErrClosed
	}

	id := d.nextID
	d.nextID++
	d.mu.Unlock()

	d.connsMu.Lock()
	d.conns[id] = c
	d.connsMu.Unlock()
	activeConnections.Inc()

	return id, nil
}

// unsubscribe removes id from the routing table. It is a no-op if id is
// not present, which happens when the Dispatcher already poisoned
// itself and cleared the table out from under every connection.
func (d *Dispatcher) unsubscribe(id uint32) {
	d.connsMu.Lock()
	_, ok := d.conns[id]
	delete(d.conns, id)
	d.connsMu.Unlock()

	if ok {
		activeConnections.Dec()
	}
}

func (d *Dispatcher) lookup(id uint32) *connection {
	d.connsMu.Lock()
	defer d.connsMu.Unlock()
	return d.conns[id]
}

// send encodes msg and writes it to the compiler's stdin.
func (d *Dispatcher) send(msg protocol.InboundMessage) error {
	body, err := protocol.MarshalInbound(msg)
	if err != nil {
		return fmt.Errorf("sass: encoding %T: %w", msg, err)
	}
	if err := d.proc.writeFrame(body); err != nil {
		return fmt.Errorf("sass: writing %T to compiler: %w", msg, err)
	}
	return nil
}

// readLoop is the Dispatcher's single reader goroutine. It runs until
// the compiler's stdout closes or a message cannot be decoded, at which
// point it poisons the Dispatcher and exits for good: a Dispatcher never
// restarts its own reader loop, only a Channel respawning a fresh one
// does.
func (d *Dispatcher) readLoop() {
	defer close(d.done)

	for {
		body, err := d.proc.readFrame()
		if err != nil {
			d.poison(fmt.Errorf("sass: reading from compiler: %w", err))
			return
		}

		msg, err := protocol.UnmarshalOutbound(body)
		if err != nil {
			d.poison(fmt.Errorf("sass: decoding message from compiler: %w", err))
			return
		}

		start := d.clock.Now()
		d.route(msg)
		dispatchDuration.Observe(d.clock.Now().Sub(start).Seconds())
	}
}

func (d *Dispatcher) route(msg protocol.OutboundMessage) {
	switch m := msg.(type) {
	case *protocol.CompileResponse:
		dispatchedTotal.WithLabelValues("compile_response").Inc()
		d.deliver(m.ID, m)

	case *protocol.VersionResponse:
		dispatchedTotal.WithLabelValues("version_response").Inc()
		d.deliver(m.ID, m)

	case *protocol.CanonicalizeRequest:
		dispatchedTotal.WithLabelValues("canonicalize_request").Inc()
		if c := d.lookup(m.CompilationID); c != nil {
			d.traceCallback("sass.CanonicalizeRequest", func() { c.handleCanonicalize(m) })
		}

	case *protocol.ImportRequest:
		dispatchedTotal.WithLabelValues("import_request").Inc()
		if c := d.lookup(m.CompilationID); c != nil {
			d.traceCallback("sass.ImportRequest", func() { c.handleImport(m) })
		}

	case *protocol.FileImportRequest:
		dispatchedTotal.WithLabelValues("file_import_request").Inc()
		if c := d.lookup(m.CompilationID); c != nil {
			d.traceCallback("sass.FileImportRequest", func() { c.handleFileImport(m) })
		}

	case *protocol.LogEvent:
		dispatchedTotal.WithLabelValues("log_event").Inc()
		if c := d.lookup(m.CompilationID); c != nil {
			d.traceCallback("sass.LogEvent", func() { c.handleLogEvent(m) })
		}

	case *protocol.FunctionCallRequest:
		// Global custom-function callbacks are out of scope for this
		// host; the compiler should never send one, and if it does the
		// protocol is in a state we cannot continue.
		dispatchedTotal.WithLabelValues("function_call_request").Inc()
		d.poison(&ProtocolError{Message: "received FunctionCallRequest, which this host does not support"})

	case *protocol.ProtocolError:
		dispatchedTotal.WithLabelValues("error").Inc()
		d.handleProtocolError(m)

	default:
		d.poison(&ProtocolError{Message: fmt.Sprintf("unexpected message type %T from compiler", msg)})
	}
}

func (d *Dispatcher) deliver(id uint32, msg protocol.OutboundMessage) {
	c := d.lookup(id)
	if c == nil {
		getLogger().Printf("dispatcher: no connection subscribed for compilation %d, dropping %T", id, msg)
		return
	}
	c.deliverResponse(msg)
}

func (d *Dispatcher) handleProtocolError(m *protocol.ProtocolError) {
	err := &ProtocolError{Message: m.Message}

	if m.ID == protocol.GlobalErrorID {
		d.poison(err)
		return
	}

	if c := d.lookup(m.ID); c != nil {
		c.deliverError(err)
		d.unsubscribe(m.ID)
	}
}

// poison marks the Dispatcher permanently unusable, unblocks every
// subscribed connection with err, and tears down the compiler process.
// A poisoned Dispatcher is never revived; a Channel builds a new one in
// its place.
func (d *Dispatcher) poison(err error) {
	d.mu.Lock()
	alreadyPoisoned := d.poisoned
	d.nextID = protocol.GlobalErrorID
	d.poisoned = true
	d.mu.Unlock()

	if alreadyPoisoned {
		return
	}

	d.connsMu.Lock()
	conns := make([]*connection, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	d.conns = make(map[uint32]*connection)
	d.connsMu.Unlock()

	activeConnections.Sub(float64(len(conns)))

	for _, c := range conns {
		c.deliverError(err)
	}

	_ = d.proc.close()
}

func (d *Dispatcher) traceCallback(name string, fn func()) {
	if !reqtrace.Enabled() {
		fn()
		return
	}

	_, report := reqtrace.StartSpan(context.Background(), name)
	fn()
	report(nil)
}
