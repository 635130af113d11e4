// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package procutil provides platform-aware helpers for spawning and
// tearing down the compiler subprocess. A Channel respawn needs to be
// able to kill a wedged compiler without taking down the host process's
// own process group, which requires placing the child in its own group
// at spawn time.
package procutil

import "os/exec"

// Prepare configures cmd so that Kill can later terminate it and any
// children it spawned without signalling the host process group. It
// must be called before cmd.Start.
func Prepare(cmd *exec.Cmd) {
	prepare(cmd)
}

// Kill terminates cmd's process group. It is safe to call even if cmd
// has already exited; ProcessState is checked first.
func Kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if cmd.ProcessState != nil {
		return nil
	}
	return kill(cmd)
}
