package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("control")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("connected", "server", "http://localhost:8080")

	out := buf.String()
	if strings.Contains(out, `msg="INFO connected`) {
		t.Fatalf("unexpected nested severity prefix in message: %s", out)
	}
	if !strings.Contains(out, "msg=connected") {
		t.Fatalf("expected plain connected message, got: %s", out)
	}
	if !strings.Contains(out, "component=control") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "server=http://localhost:8080") {
		t.Fatalf("expected server field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("control")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestPreInitLoggerSwitchesToJSONFormat(t *testing.T) {
	logger := L("orchestrator")

	var buf bytes.Buffer
	Init("json", "info", &buf)

	logger.Info("session playing", slog.String(KeySessionID, "abc123"))

	out := buf.String()
	if !strings.Contains(out, `"component":"orchestrator"`) {
		t.Fatalf("expected JSON component field, got: %s", out)
	}
	if !strings.Contains(out, `"sessionId":"abc123"`) {
		t.Fatalf("expected JSON sessionId field, got: %s", out)
	}
}

func TestWithSessionAttachesSessionID(t *testing.T) {
	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger := WithSession(L("orchestrator"), "session-xyz")
	logger.Info("state transition")

	out := buf.String()
	if !strings.Contains(out, "sessionId=session-xyz") {
		t.Fatalf("expected sessionId field, got: %s", out)
	}
}
