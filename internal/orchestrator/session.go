// Package orchestrator owns session identity, the start/stop protocol, the
// watchdog loop, and the receiver binding registry that together form a cast
// session's lifecycle.
package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is one of the five lifecycle states a Session may occupy.
type State string

const (
	StateStarting State = "starting"
	StatePlaying  State = "playing"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

// StartRequest captures everything a caller supplies to create a session.
type StartRequest struct {
	URL            string
	ReceiverName   string
	ReceiverHost   string
	ReceiverPort   int
	Width, Height  int
	FPS            int
	VideoBitrate   string // e.g. "3500k"
	Audio          bool
	AudioDevice    string
	AudioBitrate   string
	CookiesPath    string
	UserDataDir    string
	Title          string
	HideBrowserUI  bool
}

// Session is the persisted, queryable lifecycle record. Its mutable fields
// (State, LastOkAt) are written only by the orchestration task and, for the
// move to StateStopping, by the stop path; everything else is immutable
// after New.
type Session struct {
	mu sync.RWMutex

	ID        string
	Dir       string
	State     State
	Display   string
	StartedAt time.Time
	LastOkAt  time.Time
	HasOk     bool

	Req StartRequest
}

// newSessionID mirrors the 32-lowercase-hex-character token the system this
// was distilled from produces: a v4 UUID with hyphens stripped.
func newSessionID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// New creates a session record, its on-disk directory, and leaves state at
// StateStarting. Satisfies invariant I1: the directory is created here and
// exists for the session's entire life.
func New(sessionsDir, displayID string, req StartRequest) (*Session, error) {
	id := newSessionID()
	dir := filepath.Join(sessionsDir, id)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		Dir:       dir,
		State:     StateStarting,
		Display:   displayID,
		StartedAt: time.Now().UTC(),
		Req:       req,
	}, nil
}

// HlsPath is the absolute path of the master playlist once the encoder has
// written one.
func (s *Session) HlsPath() string {
	return filepath.Join(s.Dir, "index.m3u8")
}

// HlsURLPath is the path clients fetch the master playlist from.
func (s *Session) HlsURLPath() string {
	return "/cast/" + s.ID + "/index.m3u8"
}

// HasPlaylist reports whether the master playlist has been written yet.
func (s *Session) HasPlaylist() bool {
	_, err := os.Stat(s.HlsPath())
	return err == nil
}

func (s *Session) getState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// setState transitions the session to next. Callers are responsible for
// only requesting transitions along the edges in the lifecycle table; this
// method does not itself validate the edge (the orchestration task and the
// stop path are its only callers and already only call it at the right
// points).
func (s *Session) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = next
}

// markOK records a successful freshness probe. LastOkAt is monotonically
// non-decreasing (invariant I4): a wall-clock reading earlier than the stored
// one leaves it unchanged.
func (s *Session) markOK() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now := time.Now().UTC(); now.After(s.LastOkAt) {
		s.LastOkAt = now
	}
	s.HasOk = true
}

// Cleanup removes the session's directory and everything in it. It is
// idempotent and tolerates partial removal (e.g. a file still being
// written by a slow-to-exit encoder).
func (s *Session) Cleanup() {
	os.RemoveAll(s.Dir)
}

// Snapshot is the immutable view returned to status/list callers; it never
// blocks on orchestration task state.
type Snapshot struct {
	ID                  string
	State               State
	HlsURL              string
	HasHlsURL           bool
	LastSegmentAgeMS    int64
	HasLastSegmentAgeMS bool
}

// Status builds the read-only snapshot the control plane serializes for
// status/list/event responses.
func (s *Session) Status() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{ID: s.ID, State: s.State}
	if s.HasPlaylist() {
		snap.HlsURL = s.HlsURLPath()
		snap.HasHlsURL = true
	}
	if s.HasOk {
		snap.LastSegmentAgeMS = time.Since(s.LastOkAt).Milliseconds()
		snap.HasLastSegmentAgeMS = true
	}
	return snap
}
