package sass

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jacobsa/timeutil"

	"github.com/sassembedded/host/internal/protocol"
)

func TestChannelRespawnsAfterPoisonedDispatcher(t *testing.T) {
	var spawnCount int32

	ch := &Channel{path: "fake-compiler"}
	ch.spawnFn = func() (*Dispatcher, error) {
		atomic.AddInt32(&spawnCount, 1)
		d, _ := newTestDispatcher()
		return d, nil
	}

	d, err := ch.spawnFn()
	if err != nil {
		t.Fatalf("initial spawn: %v", err)
	}
	ch.dispatcher = d

	// Poison the current dispatcher directly, as a global ProtocolError
	// would.
	ch.dispatcher.poison(&ProtocolError{Message: "boom"})

	c, err := ch.connect(mustImporterRegistry(t), newLoggerRegistry(nil))
	if err != nil {
		t.Fatalf("connect after poisoning: %v", err)
	}
	if c == nil {
		t.Fatal("expected a connection against the respawned dispatcher")
	}

	if got := atomic.LoadInt32(&spawnCount); got != 2 {
		t.Errorf("spawnFn called %d times (1 initial + 1 respawn), want 2", got)
	}
}

func TestChannelRespawnDedupesConcurrentCallers(t *testing.T) {
	var spawnCount int32

	ch := &Channel{path: "fake-compiler"}
	ch.spawnFn = func() (*Dispatcher, error) {
		atomic.AddInt32(&spawnCount, 1)
		d, _ := newTestDispatcher()
		return d, nil
	}

	d, _ := ch.spawnFn()
	ch.dispatcher = d
	ch.dispatcher.poison(&ProtocolError{Message: "boom"})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ch.connect(mustImporterRegistry(t), newLoggerRegistry(nil))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("connect %d: %v", i, err)
		}
	}

	if got := atomic.LoadInt32(&spawnCount); got != 2 {
		t.Errorf("spawnFn called %d times (1 initial + respawns), want 2", got)
	}
}

func TestChannelCompileEndToEnd(t *testing.T) {
	proc, fc := newFakeProcess()
	ch := &Channel{path: "fake-compiler"}
	ch.dispatcher = newDispatcher(proc, timeutil.RealClock())

	go func() {
		req, err := fc.recv()
		if err != nil {
			return
		}
		cr := req.(*protocol.CompileRequest)
		_ = fc.send(&protocol.CompileResponse{
			ID:         cr.ID,
			CSS:        "a{b:c}",
			LoadedURLs: []string{"file:///input.scss"},
		})
	}()

	result, err := ch.Compile("input.scss", DefaultOptions())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if result.CSS != "a{b:c}" {
		t.Errorf("CSS = %q", result.CSS)
	}
	if len(result.LoadedURLs) != 1 || result.LoadedURLs[0].String() != "file:///input.scss" {
		t.Errorf("LoadedURLs = %v", result.LoadedURLs)
	}
}

func TestChannelCompileFailureReturnsException(t *testing.T) {
	proc, fc := newFakeProcess()
	ch := &Channel{path: "fake-compiler"}
	ch.dispatcher = newDispatcher(proc, timeutil.RealClock())

	go func() {
		req, err := fc.recv()
		if err != nil {
			return
		}
		cr := req.(*protocol.CompileRequest)
		_ = fc.send(&protocol.CompileResponse{
			ID: cr.ID,
			Failure: &protocol.CompileFailure{
				Message:          "Undefined variable.",
				FormattedMessage: "Error: Undefined variable.",
			},
		})
	}()

	_, err := ch.Compile("input.scss", DefaultOptions())
	if err == nil {
		t.Fatal("expected a compile failure")
	}

	var exc *Exception
	if !errors.As(err, &exc) {
		t.Fatalf("got %T, want *Exception", err)
	}
	if exc.SassMessage != "Undefined variable." {
		t.Errorf("SassMessage = %q", exc.SassMessage)
	}
}
