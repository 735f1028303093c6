// Package encoder drives the ffmpeg process that captures a display into an
// adaptive HLS segment set.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/webcast/webcastd/internal/logging"
	"github.com/webcast/webcastd/internal/procutil"
)

var log = logging.L("encoder")

var (
	// ErrAlreadyRunning is returned by Start on a handle that is already
	// capturing.
	ErrAlreadyRunning = errors.New("encoder: already running")
	// ErrInvalidBitrate is returned by SetBitrate for non-positive values.
	ErrInvalidBitrate = errors.New("encoder: bitrate must be positive")
	// ErrInvalidFPS is returned by SetFPS for out-of-range values.
	ErrInvalidFPS = errors.New("encoder: fps must be between 1 and 60")
)

const stopGrace = 5 * time.Second

// Handle owns one ffmpeg process capturing a single display into an HLS
// output directory. Mutable profile fields may only be changed before
// Start; once running they describe the encode currently in flight.
type Handle struct {
	Display string
	OutDir  string

	mu      sync.Mutex
	profile Profile
	cmd     *exec.Cmd
	done    chan struct{}
}

// New returns an encoder handle bound to one display and output directory.
func New(displayID, outDir string, profile Profile) *Handle {
	return &Handle{
		Display: displayID,
		OutDir:  outDir,
		profile: profile,
	}
}

// SetBitrate updates the target video bitrate for the next Start call.
func (h *Handle) SetBitrate(kbps int) error {
	if kbps <= 0 {
		return ErrInvalidBitrate
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.profile.BitrateKbps = kbps
	return nil
}

// SetFPS updates the target frame rate for the next Start call.
func (h *Handle) SetFPS(fps int) error {
	if fps < 1 || fps > 60 {
		return ErrInvalidFPS
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.profile.FPS = fps
	return nil
}

// Profile returns a copy of the handle's current encode profile.
func (h *Handle) Profile() Profile {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.profile
}

// Start launches ffmpeg against the handle's display and output directory.
// Calling Start twice without an intervening Stop returns ErrAlreadyRunning.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd != nil {
		return ErrAlreadyRunning
	}

	if err := os.MkdirAll(h.OutDir, 0755); err != nil {
		return fmt.Errorf("encoder: create output dir: %w", err)
	}

	args := BuildCommand(h.Display, h.OutDir, h.profile)
	cmd := exec.CommandContext(context.Background(), "ffmpeg", args...)
	procutil.Prepare(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("encoder: spawn ffmpeg: %w", err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	h.cmd = cmd
	h.done = done

	log.Info("encoder started", "display", h.Display, "bitrateKbps", h.profile.BitrateKbps, "fps", h.profile.FPS)
	return nil
}

// Stop terminates ffmpeg gracefully so the HLS playlist is finalized, falling
// back to a hard kill if it does not exit within the grace period.
func (h *Handle) Stop() error {
	h.mu.Lock()
	cmd, done := h.cmd, h.done
	h.cmd, h.done = nil, nil
	h.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if err := procutil.Stop(cmd, done, stopGrace); err != nil {
		log.Warn("encoder stop fell back to kill", "display", h.Display, "error", err)
		return err
	}
	log.Info("encoder stopped", "display", h.Display)
	return nil
}

// Running reports whether ffmpeg is currently tracked as started.
func (h *Handle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cmd != nil
}
