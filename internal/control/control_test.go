package control

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/webcast/webcastd/internal/browser"
	"github.com/webcast/webcastd/internal/display"
	"github.com/webcast/webcastd/internal/encoder"
	"github.com/webcast/webcastd/internal/orchestrator"
	"github.com/webcast/webcastd/internal/receiver"
)

type fakeDisplay struct{}

func (fakeDisplay) Start(ctx context.Context) error { return nil }
func (fakeDisplay) Stop() error                     { return nil }

type fakeBrowser struct{}

func (fakeBrowser) Launch(opts browser.LaunchOptions) error { return nil }
func (fakeBrowser) Close()                                  {}

type fakeEncoder struct{ outDir string }

func (f fakeEncoder) Start(ctx context.Context) error {
	_ = os.WriteFile(filepath.Join(f.outDir, "index.m3u8"), []byte("#EXTM3U\n"), 0644)
	_ = os.WriteFile(filepath.Join(f.outDir, "seg0.ts"), []byte("data"), 0644)
	return nil
}
func (fakeEncoder) Stop() error { return nil }

type fakeSender struct{ devices []receiver.Device }

func (f *fakeSender) Discover(ctx context.Context, timeout time.Duration) []receiver.Device {
	return f.devices
}
func (f *fakeSender) Play(ctx context.Context, receiverName, mediaURL, title, host string, port int) bool {
	return true
}
func (f *fakeSender) Stop(ctx context.Context, receiverName, host string, port int) bool { return true }

func newTestServer(t *testing.T) (*Server, *orchestrator.Orchestrator) {
	t.Helper()
	dir := t.TempDir()

	factories := orchestrator.Factories{
		NewDisplay: func(displayID string, width, height int) orchestrator.DisplayHandle { return fakeDisplay{} },
		NewBrowser: func(displayID string) orchestrator.BrowserHandle { return fakeBrowser{} },
		NewEncoder: func(displayID, outDir string, profile encoder.Profile) orchestrator.EncoderHandle {
			return fakeEncoder{outDir: outDir}
		},
	}

	sender := &fakeSender{devices: []receiver.Device{{Name: "Living Room", Host: "192.0.2.1", Port: 46899}}}

	opts := orchestrator.Options{
		SessionsDir:      dir,
		HostnameOverride: "example.invalid",
		HostPort:         8080,
		WarmupStaleAfter: 8 * time.Second,
		SteadyStaleAfter: 5 * time.Second,
	}
	orch := orchestrator.New(opts, orchestrator.NewRegistry(), display.NewAllocator(100, 199), receiver.NewBindings(), sender, factories, nil)

	return New(orch, sender, dir, nil), orch
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateStatusListDeleteSession(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"url":           "http://example.com",
		"receiver_name": "Dummy",
		"width":         1280,
		"height":        720,
		"fps":           15,
		"video_bitrate": "1500k",
	})
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var created sessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected non-empty session id")
	}

	listRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(listRec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if listRec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", listRec.Code)
	}

	statusRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/sessions/"+created.ID+"/status", nil))
	if statusRec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", statusRec.Code)
	}

	deleteRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(deleteRec, httptest.NewRequest(http.MethodDelete, "/sessions/"+created.ID, nil))
	if deleteRec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", deleteRec.Code, deleteRec.Body.String())
	}

	notFoundRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(notFoundRec, httptest.NewRequest(http.MethodGet, "/sessions/"+created.ID+"/status", nil))
	if notFoundRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", notFoundRec.Code)
	}
}

func TestCreateSessionRejectsMissingURL(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"receiver_name": "Dummy"})
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", rec.Code)
	}
}

func TestCreateSessionRejectsCookieSourceConflict(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"url":           "http://example.com",
		"receiver_name": "Dummy",
		"cookies_path":  "/tmp/cookies.json",
		"user_data_dir": "/tmp/profile",
	})
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for cookie/user-data-dir conflict, got %d", rec.Code)
	}
}

func TestListReceivers(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receivers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Receivers []receiverEntry `json:"receivers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, r := range body.Receivers {
		if r.Name == "Living Room" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Living Room in receivers list, got %v", body.Receivers)
	}
}
