// Package display manages the headless X server each session renders into.
package display

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/webcast/webcastd/internal/logging"
	"github.com/webcast/webcastd/internal/procutil"
)

var log = logging.L("display")

const stopGrace = 3 * time.Second

// Handle owns a single Xvfb process bound to one display identifier. It is
// idempotent on Start and safe to Stop multiple times.
type Handle struct {
	Display string // e.g. ":117"
	Width   int
	Height  int
	Depth   int

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New returns a display handle for the given allocated identifier.
func New(displayID string, width, height int) *Handle {
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	return &Handle{
		Display: displayID,
		Width:   width,
		Height:  height,
		Depth:   24,
	}
}

// Start launches Xvfb for this handle's display identifier. Calling Start on
// an already-running handle is a no-op.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd != nil {
		return nil
	}

	args := []string{
		h.Display,
		"-screen", "0",
		fmt.Sprintf("%dx%dx%d", h.Width, h.Height, h.Depth),
		"-nolisten", "tcp",
	}

	cmd := exec.CommandContext(context.Background(), "Xvfb", args...)
	procutil.Prepare(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("display: spawn Xvfb on %s: %w", h.Display, err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	h.cmd = cmd
	h.done = done

	log.Info("display started", "display", h.Display, "width", h.Width, "height", h.Height)
	return nil
}

// Stop terminates Xvfb, first with SIGTERM and a grace period, then SIGKILL.
// Stop is safe to call on a handle that never started or already stopped.
func (h *Handle) Stop() error {
	h.mu.Lock()
	cmd, done := h.cmd, h.done
	h.cmd, h.done = nil, nil
	h.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if err := procutil.Stop(cmd, done, stopGrace); err != nil {
		log.Warn("display stop fell back to kill", "display", h.Display, "error", err)
		return err
	}
	log.Info("display stopped", "display", h.Display)
	return nil
}

// Running reports whether the Xvfb process is currently tracked as started.
func (h *Handle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cmd != nil
}
