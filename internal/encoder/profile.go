package encoder

import "fmt"

// Profile describes the encode parameters for one session's HLS output.
type Profile struct {
	Width        int
	Height       int
	FPS          int
	BitrateKbps  int
	SegmentSecs  int
	WindowSize   int
	Audio        bool
}

// DefaultProfile returns sane defaults matching the daemon's configured
// fallbacks; callers override fields as the start request specifies.
func DefaultProfile() Profile {
	return Profile{
		Width:       1920,
		Height:      1080,
		FPS:         30,
		BitrateKbps: 4000,
		SegmentSecs: 2,
		WindowSize:  6,
	}
}

// BuildCommand returns the ffmpeg argument vector for capturing `display`
// into `outDir` per this profile. It is a pure function of its inputs so it
// can be tested without spawning a process: the same profile always yields
// the same argument vector (GOP = 2x fps, bufsize = 2x bitrate).
func BuildCommand(display, outDir string, p Profile) []string {
	variant := outDir + "/variant.m3u8"
	master := "index.m3u8"

	gop := fmt.Sprintf("%d", p.FPS*2)
	bitrate := fmt.Sprintf("%dk", p.BitrateKbps)
	bufsize := fmt.Sprintf("%dk", p.BitrateKbps*2)

	args := []string{
		"-loglevel", "warning",
		"-nostdin",
		"-y",
		"-f", "x11grab",
		"-framerate", fmt.Sprintf("%d", p.FPS),
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-i", display,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-tune", "zerolatency",
		"-b:v", bitrate,
		"-maxrate", bitrate,
		"-bufsize", bufsize,
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-hls_time", fmt.Sprintf("%d", p.SegmentSecs),
		"-hls_list_size", fmt.Sprintf("%d", p.WindowSize),
		"-hls_flags", "delete_segments+independent_segments",
		"-master_pl_name", master,
		"-f", "hls",
		variant,
	}

	return args
}
