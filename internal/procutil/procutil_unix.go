// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

//go:build unix

package procutil

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func kill(cmd *exec.Cmd) error {
	pid := cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		// The group may already be gone, or this process may never have
		// made it into its own group (e.g. Prepare was not called before
		// Start); fall back to killing just the one process.
		if err2 := cmd.Process.Kill(); err2 != nil {
			return fmt.Errorf("procutil: kill process group %d: %w (and kill pid %d: %v)", pid, err, pid, err2)
		}
	}
	return nil
}
