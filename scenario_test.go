package sass

import (
	"net/url"
	"runtime"
	"sync"
	"testing"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
	"github.com/jacobsa/timeutil"
	"github.com/kylelemons/godebug/pretty"

	"github.com/sassembedded/host/internal/protocol"
)

func TestScenarios(t *testing.T) { RunTests(t) }

type ScenarioTest struct {
	channel *Channel
	fake    *fakeCompiler
}

func init() { RegisterTestSuite(&ScenarioTest{}) }

func (t *ScenarioTest) SetUp(ti *TestInfo) {
	proc, fc := newFakeProcess()
	t.fake = fc
	t.channel = &Channel{path: "fake-compiler", clock: timeutil.RealClock()}
	t.channel.spawnFn = func() (*Dispatcher, error) {
		p, fc2 := newFakeProcess()
		t.fake = fc2
		return newDispatcher(p, t.channel.clock), nil
	}
	t.channel.dispatcher = newDispatcher(proc, t.channel.clock)
}

func (t *ScenarioTest) TearDown() {
}

func (t *ScenarioTest) ConcurrentCompilationsAreMultiplexedOnOneChannel() {
	const n = 5

	var wg sync.WaitGroup
	results := make([]CompileResult, n)
	errs := make([]error, n)

	// Answer every CompileRequest the compiler receives, echoing its
	// source URL back in the generated CSS so each caller can check it got its own
	// response rather than another compilation's.
	go func() {
		for i := 0; i < n; i++ {
			req, err := t.fake.recv()
			if err != nil {
				return
			}
			cr := req.(*protocol.CompileRequest)
			_ = t.fake.send(&protocol.CompileResponse{
				ID:  cr.ID,
				CSS: cr.SourceURL,
			})
		}
	}()

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opts := DefaultStringOptions()
			opts.URL = sourceURLForIndex(i)
			results[i], errs[i] = t.channel.CompileString("a{b:c}", opts)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		AssertEq(nil, errs[i])
		ExpectEq(sourceURLForIndex(i), results[i].CSS)
	}
}

func (t *ScenarioTest) PoisonedDispatcherIsTransparentlyRespawned() {
	// First compile succeeds normally.
	go func() {
		req, err := t.fake.recv()
		if err != nil {
			return
		}
		cr := req.(*protocol.CompileRequest)
		_ = t.fake.send(&protocol.CompileResponse{ID: cr.ID, CSS: "first"})
	}()

	result, err := t.channel.Compile("a.scss", DefaultOptions())
	AssertEq(nil, err)
	ExpectEq("first", result.CSS)

	// The compiler now reports a global protocol error, poisoning the
	// dispatcher this Channel was using.
	AssertEq(nil, t.fake.send(&protocol.ProtocolError{ID: protocol.GlobalErrorID, Message: "fatal"}))

	// Give the reader loop a moment to observe it and poison the
	// dispatcher before the next Compile call races it.
	waitForPoison(t.channel)

	old := t.channel.current()
	go func() {
		// The fake compiler behind the respawned dispatcher only exists
		// once the next Compile call has made the Channel respawn.
		for t.channel.current() == old {
			runtime.Gosched()
		}
		fake2 := t.fake
		req, err := fake2.recv()
		if err != nil {
			return
		}
		cr := req.(*protocol.CompileRequest)
		_ = fake2.send(&protocol.CompileResponse{ID: cr.ID, CSS: "second"})
	}()

	result, err = t.channel.Compile("a.scss", DefaultOptions())
	AssertEq(nil, err)
	ExpectEq("second", result.CSS)
}

func (t *ScenarioTest) CompileResultMatchesCompilerResponseStructurally() {
	go func() {
		req, err := t.fake.recv()
		if err != nil {
			return
		}
		cr := req.(*protocol.CompileRequest)
		_ = t.fake.send(&protocol.CompileResponse{
			ID:  cr.ID,
			CSS: "a{b:c}",
			LoadedURLs: []string{
				"file:///entry.scss",
				"file:///_partial.scss",
			},
			SourceMap: `{"version":3}`,
		})
	}()

	opts := DefaultOptions()
	opts.SourceMap = true
	result, err := t.channel.Compile("entry.scss", opts)
	AssertEq(nil, err)

	want := CompileResult{
		CSS:        "a{b:c}",
		LoadedURLs: mustParseURLs("file:///entry.scss", "file:///_partial.scss"),
		SourceMap:  `{"version":3}`,
	}

	if diff := pretty.Compare(want, result); diff != "" {
		AddFailure("CompileResult differs (-want +got):\n%s", diff)
	}
}

func sourceURLForIndex(i int) string {
	return "stdin:" + string(rune('a'+i))
}

func mustParseURLs(raw ...string) []*url.URL {
	out := make([]*url.URL, len(raw))
	for i, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			panic(err)
		}
		out[i] = u
	}
	return out
}

func waitForPoison(ch *Channel) {
	for {
		d := ch.current()
		d.mu.Lock()
		poisoned := d.poisoned
		d.mu.Unlock()
		if poisoned {
			return
		}
	}
}
