package encoder

import "testing"

func TestBuildCommandDeterministic(t *testing.T) {
	p := Profile{Width: 1280, Height: 720, FPS: 24, BitrateKbps: 2500, SegmentSecs: 2, WindowSize: 6}

	a := BuildCommand(":100", "/tmp/sess1", p)
	b := BuildCommand(":100", "/tmp/sess1", p)

	if len(a) != len(b) {
		t.Fatalf("expected deterministic argument count, got %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("argument %d differs between calls: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestBuildCommandGopAndBufsize(t *testing.T) {
	p := Profile{Width: 1920, Height: 1080, FPS: 30, BitrateKbps: 4000, SegmentSecs: 2, WindowSize: 6}
	args := BuildCommand(":100", "/tmp/sess1", p)

	wantGOP := "60" // 2x fps
	wantBufsize := "8000k" // 2x bitrate

	if !containsPair(args, "-g", wantGOP) {
		t.Fatalf("expected -g %s in %v", wantGOP, args)
	}
	if !containsPair(args, "-keyint_min", wantGOP) {
		t.Fatalf("expected -keyint_min %s in %v", wantGOP, args)
	}
	if !containsPair(args, "-bufsize", wantBufsize) {
		t.Fatalf("expected -bufsize %s in %v", wantBufsize, args)
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
