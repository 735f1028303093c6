package control

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/webcast/webcastd/internal/orchestrator"
)

// startRequest is the JSON body accepted by POST /sessions. Fields mirror
// orchestrator.StartRequest but carry JSON tags and the request-level
// defaults the original system applies before orchestration ever sees them.
type startRequest struct {
	URL           string `json:"url"`
	ReceiverName  string `json:"receiver_name"`
	ReceiverHost  string `json:"receiver_host,omitempty"`
	ReceiverPort  int    `json:"receiver_port,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	FPS           int    `json:"fps,omitempty"`
	VideoBitrate  string `json:"video_bitrate,omitempty"`
	Audio         bool   `json:"audio,omitempty"`
	AudioDevice   string `json:"audio_device,omitempty"`
	AudioBitrate  string `json:"audio_bitrate,omitempty"`
	CookiesPath   string `json:"cookies_path,omitempty"`
	UserDataDir   string `json:"user_data_dir,omitempty"`
	Title         string `json:"title,omitempty"`
	HideBrowserUI *bool  `json:"hide_browser_ui,omitempty"`
}

// errValidation marks a startRequest rejection; handlers translate it to a
// 4xx response rather than a 500.
var errValidation = errors.New("control: validation error")

// validateAndFill applies spec defaults and rejects malformed requests,
// matching StartRequest's documented defaults: receiver_port=46899,
// width=1920, height=1080, fps=15, video_bitrate="3500k",
// hide_browser_ui=true.
func (r *startRequest) validateAndFill() error {
	if r.URL == "" {
		return fmt.Errorf("%w: url is required", errValidation)
	}
	u, err := url.Parse(r.URL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", errValidation)
	}
	if r.ReceiverName == "" {
		return fmt.Errorf("%w: receiver_name is required", errValidation)
	}
	if r.CookiesPath != "" && r.UserDataDir != "" {
		return fmt.Errorf("%w: cookies_path and user_data_dir are mutually exclusive", errValidation)
	}

	if r.ReceiverPort == 0 {
		r.ReceiverPort = 46899
	}
	if r.Width == 0 {
		r.Width = 1920
	}
	if r.Height == 0 {
		r.Height = 1080
	}
	if r.FPS == 0 {
		r.FPS = 15
	}
	if r.VideoBitrate == "" {
		r.VideoBitrate = "3500k"
	}
	if r.HideBrowserUI == nil {
		t := true
		r.HideBrowserUI = &t
	}
	return nil
}

func (r *startRequest) toOrchestratorRequest() orchestrator.StartRequest {
	return orchestrator.StartRequest{
		URL:           r.URL,
		ReceiverName:  r.ReceiverName,
		ReceiverHost:  r.ReceiverHost,
		ReceiverPort:  r.ReceiverPort,
		Width:         r.Width,
		Height:        r.Height,
		FPS:           r.FPS,
		VideoBitrate:  r.VideoBitrate,
		Audio:         r.Audio,
		AudioDevice:   r.AudioDevice,
		AudioBitrate:  r.AudioBitrate,
		CookiesPath:   r.CookiesPath,
		UserDataDir:   r.UserDataDir,
		Title:         r.Title,
		HideBrowserUI: *r.HideBrowserUI,
	}
}

// sessionStatus is the JSON response shape for session create/status/list.
type sessionStatus struct {
	ID               string `json:"id"`
	State            string `json:"state"`
	HlsURL           string `json:"hls_url,omitempty"`
	LastSegmentAgeMS *int64 `json:"last_segment_age_ms,omitempty"`
}

func toSessionStatus(snap orchestrator.Snapshot) sessionStatus {
	out := sessionStatus{ID: snap.ID, State: string(snap.State)}
	if snap.HasHlsURL {
		out.HlsURL = snap.HlsURL
	}
	if snap.HasLastSegmentAgeMS {
		age := snap.LastSegmentAgeMS
		out.LastSegmentAgeMS = &age
	}
	return out
}

// receiverEntry is one element of GET /receivers' "receivers" array.
type receiverEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// errorBody is the JSON shape every non-2xx response carries.
type errorBody struct {
	Detail string `json:"detail"`
}
