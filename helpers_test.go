package sass

import (
	"bufio"
	"io"

	"github.com/jacobsa/timeutil"

	"github.com/sassembedded/host/internal/protocol"
	"github.com/sassembedded/host/varint"
)

// fakeCompiler is an in-process stand-in for the real compiler
// subprocess, wired to a process handle over in-memory pipes instead of
// a child's stdin/stdout. It lets tests drive the wire protocol exactly
// as a real compiler would, without spawning one.
type fakeCompiler struct {
	toHost   *io.PipeWriter
	fromHost *bufio.Reader
}

// newFakeProcess returns a *process whose other end is controlled by
// the returned fakeCompiler.
func newFakeProcess() (*process, *fakeCompiler) {
	hostReadR, hostReadW := io.Pipe()   // compiler writes, host reads
	hostWriteR, hostWriteW := io.Pipe() // host writes, compiler reads

	proc := &process{
		stdin:  hostWriteW,
		stdout: bufio.NewReader(hostReadR),
	}

	fc := &fakeCompiler{
		toHost:   hostReadW,
		fromHost: bufio.NewReader(hostWriteR),
	}

	return proc, fc
}

func (fc *fakeCompiler) send(msg protocol.OutboundMessage) error {
	body, err := protocol.MarshalOutbound(msg)
	if err != nil {
		return err
	}
	return varint.WriteFrame(fc.toHost, body)
}

func (fc *fakeCompiler) recv() (protocol.InboundMessage, error) {
	body, err := varint.ReadFrame(fc.fromHost)
	if err != nil {
		return nil, err
	}
	return protocol.UnmarshalInbound(body)
}

func newTestDispatcher() (*Dispatcher, *fakeCompiler) {
	proc, fc := newFakeProcess()
	return newDispatcher(proc, timeutil.RealClock()), fc
}
