package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/webcast/webcastd/internal/browser"
	"github.com/webcast/webcastd/internal/display"
	"github.com/webcast/webcastd/internal/encoder"
	"github.com/webcast/webcastd/internal/freshness"
	"github.com/webcast/webcastd/internal/logging"
	"github.com/webcast/webcastd/internal/metrics"
	"github.com/webcast/webcastd/internal/receiver"
)

var log = logging.L("orchestrator")

// ErrNotFound is returned by Stop for an unknown session id.
var ErrNotFound = errors.New("orchestrator: session not found")

const (
	warmupDeadline     = 15 * time.Second
	warmupPollInterval = 500 * time.Millisecond
	watchdogInterval   = 1 * time.Second
	stopJoinTimeout    = 10 * time.Second
)

// DisplayHandle is the subset of display.Handle the orchestrator depends on;
// stubbed in tests so the start protocol can run without spawning Xvfb.
type DisplayHandle interface {
	Start(ctx context.Context) error
	Stop() error
}

// BrowserHandle is the subset of browser.Controller the orchestrator
// depends on.
type BrowserHandle interface {
	Launch(opts browser.LaunchOptions) error
	Close()
}

// EncoderHandle is the subset of encoder.Handle the orchestrator depends on.
type EncoderHandle interface {
	Start(ctx context.Context) error
	Stop() error
}

// Factories builds the three process-backed collaborator handles for one
// session. Production wiring uses the real display/browser/encoder
// packages; tests substitute fakes.
type Factories struct {
	NewDisplay func(displayID string, width, height int) DisplayHandle
	NewBrowser func(displayID string) BrowserHandle
	NewEncoder func(displayID, outDir string, profile encoder.Profile) EncoderHandle
}

// DefaultFactories wires the real process-backed collaborators.
func DefaultFactories() Factories {
	return Factories{
		NewDisplay: func(displayID string, width, height int) DisplayHandle {
			return display.New(displayID, width, height)
		},
		NewBrowser: func(displayID string) BrowserHandle {
			return browser.New(displayID)
		},
		NewEncoder: func(displayID, outDir string, profile encoder.Profile) EncoderHandle {
			return encoder.New(displayID, outDir, profile)
		},
	}
}

// Options configures an Orchestrator.
type Options struct {
	SessionsDir     string
	HostnameOverride string
	HostPort        int
	WarmupStaleAfter time.Duration
	SteadyStaleAfter time.Duration
}

// Orchestrator owns every live session's background task, the receiver
// binding registry, and the display allocator. It is the single writer of
// session state.
type Orchestrator struct {
	opts      Options
	registry  *Registry
	displays  *display.Allocator
	bindings  *receiver.Bindings
	sender    receiver.Sender
	factories Factories
	metrics   *metrics.Metrics
}

// New builds an Orchestrator. sender may be receiver.Unavailable{} when no
// receiver transport is configured. m may be nil to disable instrumentation
// (e.g. in unit tests that construct many short-lived orchestrators).
func New(opts Options, registry *Registry, displays *display.Allocator, bindings *receiver.Bindings, sender receiver.Sender, factories Factories, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		opts:      opts,
		registry:  registry,
		displays:  displays,
		bindings:  bindings,
		sender:    sender,
		factories: factories,
		metrics:   m,
	}
}

// Registry exposes the session registry for status/list handlers.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Start allocates a session and dispatches its orchestration task. It never
// blocks on the start protocol: the returned session is always in
// StateStarting.
func (o *Orchestrator) Start(req StartRequest) (*Session, error) {
	displayID, err := o.displays.Acquire()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	session, err := New(o.opts.SessionsDir, displayID, req)
	if err != nil {
		o.displays.Release(displayID)
		return nil, fmt.Errorf("orchestrator: create session: %w", err)
	}

	rt := &runtime{
		session: session,
		stop:    newStopSignal(),
		done:    make(chan struct{}),
	}
	o.registry.put(rt)

	if o.metrics != nil {
		o.metrics.SessionsCreated.Inc()
		o.metrics.ActiveSessions.Inc()
	}

	go o.run(rt)

	log.Info("session created", "sessionId", session.ID, "display", displayID, "receiver", req.ReceiverName)
	return session, nil
}

// run executes the start protocol followed by the watchdog loop, then
// unconditionally tears down every collaborator the session acquired.
func (o *Orchestrator) run(rt *runtime) {
	defer close(rt.done)
	defer o.teardown(rt)

	session := rt.session
	ctx := context.Background()

	// 2. Start the display handle.
	disp := o.factories.NewDisplay(session.Display, session.Req.Width, session.Req.Height)
	if err := disp.Start(ctx); err != nil {
		log.Error("display start failed", "sessionId", session.ID, "error", err)
		session.setState(StateError)
		return
	}
	rt.display = disp

	// 3. Launch the browser onto that display.
	browserCtrl := o.factories.NewBrowser(session.Display)
	launchErr := browserCtrl.Launch(browser.LaunchOptions{
		URL:         session.Req.URL,
		Width:       session.Req.Width,
		Height:      session.Req.Height,
		CookiesPath: session.Req.CookiesPath,
		UserDataDir: session.Req.UserDataDir,
		WaitUntil:   "networkidle",
	})
	if launchErr != nil {
		log.Error("browser launch failed", "sessionId", session.ID, "error", launchErr)
		session.setState(StateError)
		return
	}
	rt.browser = browserCtrl

	// 4. Start the encoder.
	profile := encoder.Profile{
		Width:       session.Req.Width,
		Height:      session.Req.Height,
		FPS:         session.Req.FPS,
		BitrateKbps: parseKbps(session.Req.VideoBitrate),
		SegmentSecs: 2,
		WindowSize:  6,
		Audio:       session.Req.Audio,
	}
	enc := o.factories.NewEncoder(session.Display, session.Dir, profile)
	if err := enc.Start(ctx); err != nil {
		log.Error("encoder start failed", "sessionId", session.ID, "error", err)
		session.setState(StateError)
		return
	}
	rt.encoder = enc

	// 5. Warmup.
	if !o.warmup(rt) {
		return
	}

	// 6. Claim the receiver binding, ask the receiver to play, keep the
	// binding only if play succeeded, transition to playing.
	mediaURL := o.mediaURL(session)
	if err := o.bindings.Acquire(session.Req.ReceiverName, session.ID); err != nil {
		log.Warn("receiver binding conflict", "sessionId", session.ID, "receiver", session.Req.ReceiverName, "error", err)
		if o.metrics != nil {
			o.metrics.ReceiverBindFail.Inc()
		}
	} else if o.sender.Play(ctx, session.Req.ReceiverName, mediaURL, session.Req.Title, session.Req.ReceiverHost, session.Req.ReceiverPort) {
		rt.boundReceiver = session.Req.ReceiverName
		if o.metrics != nil {
			o.metrics.ReceiverBindOK.Inc()
		}
	} else {
		o.bindings.Release(session.Req.ReceiverName, session.ID)
	}
	session.setState(StatePlaying)
	session.markOK()
	log.Info("session playing", "sessionId", session.ID, "mediaUrl", mediaURL)

	// 7. Watchdog loop.
	o.watchdog(rt)
}

// warmup polls the session directory until the playlist exists with fresh
// output, the deadline elapses, or the stop signal fires. Returns true iff
// warmup succeeded and the caller should proceed to StatePlaying.
func (o *Orchestrator) warmup(rt *runtime) bool {
	session := rt.session
	deadline := time.Now().Add(warmupDeadline)
	staleAfter := o.opts.WarmupStaleAfter
	if staleAfter <= 0 {
		staleAfter = 8 * time.Second
	}

	for {
		if session.HasPlaylist() {
			report := freshness.Evaluate(session.Dir, staleAfter, time.Now())
			if !report.Stale {
				return true
			}
		}

		if time.Now().After(deadline) {
			log.Warn("warmup timed out", "sessionId", session.ID)
			session.setState(StateError)
			return false
		}

		if rt.stop.Wait(warmupPollInterval) {
			// Stop requested mid-warmup: abort without an error transition.
			return false
		}
	}
}

// watchdog runs until the stop signal fires or steady-state stale output is
// detected, in which case it transitions the session to StateError.
func (o *Orchestrator) watchdog(rt *runtime) {
	session := rt.session
	staleAfter := o.opts.SteadyStaleAfter
	if staleAfter <= 0 {
		staleAfter = 5 * time.Second
	}

	for {
		if rt.stop.Wait(watchdogInterval) {
			return
		}

		report := freshness.Evaluate(session.Dir, staleAfter, time.Now())
		if report.Stale && (report.HasSegment || session.HasPlaylist()) {
			log.Error("steady-state stale output detected", "sessionId", session.ID)
			if o.metrics != nil {
				o.metrics.WatchdogStaleHits.Inc()
			}
			session.setState(StateError)
			return
		}
		if !report.Stale {
			session.markOK()
		}
	}
}

// teardown runs the eight-step best-effort shutdown sequence. Every step
// swallows its own error and proceeds to the next: a failure never skips a
// subsequent step.
func (o *Orchestrator) teardown(rt *runtime) {
	session := rt.session
	ctx := context.Background()

	if rt.encoder != nil {
		if err := rt.encoder.Stop(); err != nil {
			log.Warn("teardown: encoder stop failed", "sessionId", session.ID, "error", err)
		}
	}
	if rt.browser != nil {
		rt.browser.Close()
	}
	if rt.display != nil {
		if err := rt.display.Stop(); err != nil {
			log.Warn("teardown: display stop failed", "sessionId", session.ID, "error", err)
		}
	}
	o.displays.Release(session.Display)

	if rt.boundReceiver != "" {
		o.sender.Stop(ctx, rt.boundReceiver, session.Req.ReceiverHost, session.Req.ReceiverPort)
		o.bindings.Release(rt.boundReceiver, session.ID)
	}

	switch session.getState() {
	case StateStopped, StateError:
	default:
		session.setState(StateStopped)
	}

	if o.metrics != nil {
		o.metrics.SessionsByState.WithLabelValues(string(session.getState())).Inc()
		o.metrics.ActiveSessions.Dec()
	}

	o.registry.remove(session.ID)
}

// Stop executes the control-plane stop protocol: it is idempotent and
// bounded, returning once teardown completes or after a 10s join timeout,
// whichever comes first.
func (o *Orchestrator) Stop(id string) error {
	rt, ok := o.registry.get(id)
	if !ok {
		return ErrNotFound
	}

	session := rt.session
	if session.getState() == StateStarting || session.getState() == StatePlaying {
		session.setState(StateStopping)
	}

	rt.stop.Raise()

	if rt.boundReceiver != "" {
		o.sender.Stop(context.Background(), rt.boundReceiver, session.Req.ReceiverHost, session.Req.ReceiverPort)
	}

	select {
	case <-rt.done:
	case <-time.After(stopJoinTimeout):
		log.Warn("stop: orchestration task join timed out, proceeding", "sessionId", id)
	}

	session.Cleanup()
	o.registry.remove(id)
	return nil
}

func (o *Orchestrator) mediaURL(session *Session) string {
	host := o.opts.HostnameOverride
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d%s", host, o.opts.HostPort, session.HlsURLPath())
}

// parseKbps converts a bitrate string like "3500k" into kbps. Unparseable or
// empty values fall back to a sane default.
func parseKbps(bitrate string) int {
	n := 0
	for _, r := range bitrate {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return 3500
	}
	return n
}
