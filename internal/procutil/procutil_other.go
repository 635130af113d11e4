// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

//go:build !unix

package procutil

import "os/exec"

func prepare(cmd *exec.Cmd) {
	// No process-group support on this platform; the child is killed
	// directly in kill.
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
