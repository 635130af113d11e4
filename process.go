// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/sassembedded/host/internal/procutil"
	"github.com/sassembedded/host/varint"
)

// process is a handle on the running compiler subprocess: its stdin and
// stdout, framed according to the varint length-prefix convention the
// Embedded Sass Protocol uses on both streams.
//
// Writes are serialized with writeMu so that concurrent compilations
// sharing a Dispatcher never interleave two messages' bytes on the wire.
// Reads are not serialized; only the Dispatcher's single reader goroutine
// ever calls readFrame.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	writeMu sync.Mutex
}

// startProcess spawns the compiler executable at path with args, wiring
// its stdin and stdout for framed protocol traffic and its stderr to the
// ambient debug logger.
func startProcess(path string, args []string) (*process, error) {
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Cause: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Cause: fmt.Errorf("stdout pipe: %w", err)}
	}

	cmd.Stderr = &debugWriter{}

	procutil.Prepare(cmd)

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: path, Cause: err}
	}

	getLogger().Printf("spawned compiler %q (pid %d)", path, cmd.Process.Pid)

	return &process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// writeFrame sends payload to the compiler's stdin, length-prefixed.
func (p *process) writeFrame(payload []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return varint.WriteFrame(p.stdin, payload)
}

// readFrame blocks until a complete message has arrived on the
// compiler's stdout, or the stream closes.
func (p *process) readFrame() ([]byte, error) {
	return varint.ReadFrame(p.stdout)
}

// close terminates the compiler subprocess and releases its pipes. It is
// safe to call more than once.
func (p *process) close() error {
	stdinErr := p.stdin.Close()

	if p.cmd == nil {
		// Only ever nil in tests driving a process against in-memory
		// pipes rather than a real subprocess.
		return stdinErr
	}

	killErr := procutil.Kill(p.cmd)
	_ = p.cmd.Wait()

	if killErr != nil {
		return fmt.Errorf("sass: killing compiler process: %w", killErr)
	}
	if stdinErr != nil {
		return fmt.Errorf("sass: closing compiler stdin: %w", stdinErr)
	}
	return nil
}

// debugWriter forwards the compiler's stderr to the ambient debug
// logger one Write call at a time (a chunk may hold part of a line or
// several lines), prefixed to distinguish it from this host's own debug
// output.
type debugWriter struct{}

func (debugWriter) Write(p []byte) (int, error) {
	getLogger().Printf("compiler stderr: %s", p)
	return len(p), nil
}
