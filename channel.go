// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"fmt"
	"sync"

	"github.com/jacobsa/timeutil"
	"golang.org/x/sync/singleflight"
)

// Channel owns a compiler subprocess and the Dispatcher multiplexing it,
// and transparently respawns both if the Dispatcher is ever poisoned.
// A Channel is safe for concurrent use: every exported method may be
// called from multiple goroutines at once, each compiling independently
// against the current Dispatcher.
type Channel struct {
	path string
	args []string
	clock timeutil.Clock

	// spawnFn builds a fresh Dispatcher over a fresh compiler process.
	// It is a field, not a direct call to startProcess, so tests can
	// substitute a fake compiler without spawning a real subprocess.
	spawnFn func() (*Dispatcher, error)

	mu         sync.RWMutex
	dispatcher *Dispatcher

	respawn singleflight.Group
}

// NewChannel spawns path (with args, if any) and returns a Channel ready
// to compile against it. The subprocess is killed when the Channel's
// current Dispatcher is poisoned and a new one takes its place, and
// whenever Close is called.
func NewChannel(path string, args ...string) (*Channel, error) {
	ch := &Channel{
		path:  path,
		args:  args,
		clock: timeutil.RealClock(),
	}
	ch.spawnFn = ch.spawnProcess

	d, err := ch.spawnFn()
	if err != nil {
		return nil, err
	}
	ch.dispatcher = d

	return ch, nil
}

func (ch *Channel) spawnProcess() (*Dispatcher, error) {
	proc, err := startProcess(ch.path, ch.args)
	if err != nil {
		return nil, err
	}
	return newDispatcher(proc, ch.clock), nil
}

func (ch *Channel) current() *Dispatcher {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.dispatcher
}

// connect returns a connection against a live Dispatcher, respawning the
// compiler process exactly once if the current Dispatcher turns out to
// be poisoned. Concurrent callers that all observe a poisoned
// Dispatcher share a single respawn via ch.respawn; each still gets its
// own connection once the new Dispatcher is in place.
func (ch *Channel) connect(importers *importerRegistry, loggers *loggerRegistry) (*connection, error) {
	d := ch.current()

	c, err := connect(d, importers, loggers)
	if err == nil {
		return c, nil
	}
	if err != ErrClosed {
		return nil, err
	}

	newDispatcher, respawnErr, _ := ch.respawn.Do(ch.path, func() (any, error) {
		ch.mu.Lock()
		defer ch.mu.Unlock()

		// Another goroutine may have already respawned while we were
		// waiting to acquire the lock.
		if ch.dispatcher != d {
			return ch.dispatcher, nil
		}

		respawned, spawnErr := ch.spawnFn()
		if spawnErr != nil {
			return nil, fmt.Errorf("sass: respawning compiler: %w", spawnErr)
		}

		ch.dispatcher = respawned
		respawnsTotal.Inc()
		getLogger().Print("channel: respawned compiler after a poisoned dispatcher")

		return respawned, nil
	})
	if respawnErr != nil {
		return nil, respawnErr
	}

	return connect(newDispatcher.(*Dispatcher), importers, loggers)
}

// Close terminates the compiler subprocess backing ch. ch must not be
// used afterward.
func (ch *Channel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.dispatcher.proc.close()
}
