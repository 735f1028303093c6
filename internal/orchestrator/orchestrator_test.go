package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/webcast/webcastd/internal/browser"
	"github.com/webcast/webcastd/internal/display"
	"github.com/webcast/webcastd/internal/encoder"
	"github.com/webcast/webcastd/internal/receiver"
)

type fakeDisplay struct{ startErr error }

func (f *fakeDisplay) Start(ctx context.Context) error { return f.startErr }
func (f *fakeDisplay) Stop() error                     { return nil }

type fakeBrowser struct{ launchErr error }

func (f *fakeBrowser) Launch(opts browser.LaunchOptions) error { return f.launchErr }
func (f *fakeBrowser) Close()                                  {}

// fakeEncoder simulates ffmpeg's effect on the session directory without
// spawning a process: Start optionally writes a playlist and one fresh
// segment, matching how the real encoder would look moments after launch.
type fakeEncoder struct {
	startErr     error
	writeOutput  bool
	outDir       string
}

func (f *fakeEncoder) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	if f.writeOutput {
		os.WriteFile(filepath.Join(f.outDir, "index.m3u8"), []byte("#EXTM3U\n"), 0644)
		os.WriteFile(filepath.Join(f.outDir, "seg0.ts"), []byte("data"), 0644)
	}
	return nil
}
func (f *fakeEncoder) Stop() error { return nil }

type fakeSender struct {
	playResult bool
	playedHost string
	playedPort int
	plays      []string
}

func (f *fakeSender) Discover(ctx context.Context, timeout time.Duration) []receiver.Device {
	return nil
}
func (f *fakeSender) Play(ctx context.Context, receiverName, mediaURL, title, host string, port int) bool {
	f.plays = append(f.plays, receiverName)
	f.playedHost = host
	f.playedPort = port
	return f.playResult
}
func (f *fakeSender) Stop(ctx context.Context, receiverName, host string, port int) bool { return true }

func testFactories(t *testing.T, writeOutput bool) Factories {
	t.Helper()
	return Factories{
		NewDisplay: func(displayID string, width, height int) DisplayHandle {
			return &fakeDisplay{}
		},
		NewBrowser: func(displayID string) BrowserHandle {
			return &fakeBrowser{}
		},
		NewEncoder: func(displayID, outDir string, profile encoder.Profile) EncoderHandle {
			return &fakeEncoder{writeOutput: writeOutput, outDir: outDir}
		},
	}
}

func newTestOrchestrator(t *testing.T, factories Factories, sender receiver.Sender) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	opts := Options{
		SessionsDir:      dir,
		HostnameOverride: "example.invalid",
		HostPort:         8080,
		WarmupStaleAfter: 8 * time.Second,
		SteadyStaleAfter: 5 * time.Second,
	}
	o := New(opts, NewRegistry(), display.NewAllocator(100, 199), receiver.NewBindings(), sender, factories, nil)
	return o, dir
}

func basicRequest() StartRequest {
	return StartRequest{
		URL:          "http://example.com",
		ReceiverName: "Dummy",
		Width:        1280,
		Height:       720,
		FPS:          15,
		VideoBitrate: "1500k",
	}
}

func TestSmokeCreateStatusDelete(t *testing.T) {
	o, _ := newTestOrchestrator(t, testFactories(t, true), &fakeSender{playResult: true})

	session, err := o.Start(basicRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, ok := o.Registry().Get(session.ID); !ok {
		t.Fatal("expected session to be registered immediately")
	}

	if err := o.Stop(session.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, ok := o.Registry().Get(session.ID); ok {
		t.Fatal("expected session removed from registry after stop")
	}

	if err := o.Stop(session.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}

func TestWarmupSuccessReachesPlaying(t *testing.T) {
	o, _ := newTestOrchestrator(t, testFactories(t, true), &fakeSender{playResult: true})

	session, err := o.Start(basicRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if session.getState() == StatePlaying {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if got := session.getState(); got != StatePlaying {
		t.Fatalf("expected state=playing within 3s, got %s", got)
	}

	o.Stop(session.ID)
}

func TestWarmupWithoutOutputStaysStartingUntilStopped(t *testing.T) {
	o, _ := newTestOrchestrator(t, testFactories(t, false), &fakeSender{playResult: true})
	o.opts.WarmupStaleAfter = 8 * time.Second

	// The 15s warmup deadline is a constant tests cannot shorten, so this
	// test does not wait for the timeout-to-error transition. It checks that
	// a session whose encoder never produces output is still starting well
	// before the deadline, and that a stop during warmup succeeds.
	session, err := o.Start(basicRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := session.getState(); got != StateStarting {
		t.Fatalf("expected state still starting shortly after launch with no output, got %s", got)
	}

	if err := o.Stop(session.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestReceiverExclusivity(t *testing.T) {
	sender := &fakeSender{playResult: true}
	o, _ := newTestOrchestrator(t, testFactories(t, true), sender)

	req := basicRequest()
	req.ReceiverName = "A"

	s1, err := o.Start(req)
	if err != nil {
		t.Fatalf("Start s1: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s1.getState() != StatePlaying {
		time.Sleep(20 * time.Millisecond)
	}

	if _, ok := o.bindings.Owner("A"); !ok {
		t.Fatal("expected receiver A to be bound after first session plays")
	}

	s2, err := o.Start(req)
	if err != nil {
		t.Fatalf("Start s2: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s2.getState() != StatePlaying {
		time.Sleep(20 * time.Millisecond)
	}

	owner, ok := o.bindings.Owner("A")
	if !ok || owner != s1.ID {
		t.Fatalf("expected receiver A to remain bound to first session %s, got %q (ok=%v)", s1.ID, owner, ok)
	}

	o.Stop(s1.ID)
	o.Stop(s2.ID)
}

func TestDirectHostSendUsesFakeSenderRegardlessOfDiscovery(t *testing.T) {
	sender := &fakeSender{playResult: true}
	o, _ := newTestOrchestrator(t, testFactories(t, true), sender)

	req := basicRequest()
	req.ReceiverHost = "192.0.2.10"
	req.ReceiverPort = 46899

	session, err := o.Start(req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && session.getState() != StatePlaying {
		time.Sleep(20 * time.Millisecond)
	}

	if len(sender.plays) == 0 || sender.plays[0] != "Dummy" {
		t.Fatalf("expected sender.Play invoked with the requested receiver name, got %v", sender.plays)
	}
	if sender.playedHost != "192.0.2.10" || sender.playedPort != 46899 {
		t.Fatalf("expected sender.Play invoked with host=192.0.2.10 port=46899, got host=%q port=%d", sender.playedHost, sender.playedPort)
	}

	o.Stop(session.ID)
}
