// Package procutil provides the subprocess lifecycle primitives shared by
// every component that owns a long-running external process (Xvfb,
// ffmpeg): process-group isolation on spawn, and a soft-terminate-then-
// hard-kill stop sequence so a stuck child never outlives its handle.
package procutil

import (
	"os/exec"
	"time"
)

// Prepare configures cmd to run in its own process group so that killing it
// also kills any children it spawns, and so a daemon restart never leaves
// orphaned renderer/encoder processes behind.
func Prepare(cmd *exec.Cmd) {
	setProcessGroup(cmd)
}

// Stop sends a graceful termination signal to cmd's process group and waits
// up to grace for it to exit. If it hasn't exited by then, the process group
// is killed outright. done must be a channel that is closed (or receives)
// when cmd.Wait has returned, typically obtained by running cmd.Wait() in a
// goroutine that closes a channel afterward.
func Stop(cmd *exec.Cmd, done <-chan struct{}, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := terminateProcessGroup(cmd); err != nil {
		return killProcessGroup(cmd)
	}

	select {
	case <-done:
		return nil
	case <-time.After(grace):
		return killProcessGroup(cmd)
	}
}

// Kill forcibly kills cmd's process group without attempting a graceful
// termination first.
func Kill(cmd *exec.Cmd) error {
	return killProcessGroup(cmd)
}
