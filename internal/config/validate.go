package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/webcast/webcastd/internal/logging"
)

var log = logging.L("config")

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// ValidationResult splits errors into Fatals (block startup) and Warnings
// (logged and clamped to a safe value so the daemon still starts).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r *ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

func (r *ValidationResult) fatal(err error)   { r.Fatals = append(r.Fatals, err) }
func (r *ValidationResult) warning(err error) { r.Warnings = append(r.Warnings, err) }

// ValidateTiered checks the config for invalid values. Malformed addresses,
// ports that cannot possibly bind, and an empty sessions_dir are fatal;
// everything else is clamped to a safe default and reported as a warning.
func (c *Config) ValidateTiered() *ValidationResult {
	r := &ValidationResult{}

	if c.HostAddr != "" && c.HostAddr != "0.0.0.0" && c.HostAddr != "::" {
		if net.ParseIP(c.HostAddr) == nil {
			r.fatal(fmt.Errorf("host_addr %q is not a valid IP address", c.HostAddr))
		}
	}

	if c.HostPort < 1 || c.HostPort > 65535 {
		r.fatal(fmt.Errorf("host_port %d is out of range 1-65535", c.HostPort))
	}

	if c.SessionsDir == "" {
		r.fatal(fmt.Errorf("sessions_dir must not be empty"))
	}

	if c.ReceiverHost != "" {
		if _, err := strconv.Atoi(strconv.Itoa(c.ReceiverPort)); err != nil || c.ReceiverPort < 1 || c.ReceiverPort > 65535 {
			r.fatal(fmt.Errorf("receiver_port %d is out of range 1-65535 while receiver_host is set", c.ReceiverPort))
		}
	}

	if c.DisplayRangeStart < 1 {
		r.warning(fmt.Errorf("display_range_start %d is below minimum 1, clamping", c.DisplayRangeStart))
		c.DisplayRangeStart = 1
	}
	if c.DisplayRangeEnd < c.DisplayRangeStart {
		r.warning(fmt.Errorf("display_range_end %d is below display_range_start, widening", c.DisplayRangeEnd))
		c.DisplayRangeEnd = c.DisplayRangeStart + 99
	}

	if c.WarmupStaleAfterMS < 1000 {
		r.warning(fmt.Errorf("warmup_stale_after_ms %d is below minimum 1000, clamping", c.WarmupStaleAfterMS))
		c.WarmupStaleAfterMS = 1000
	}
	if c.SteadyStaleAfterMS < 1000 {
		r.warning(fmt.Errorf("steady_stale_after_ms %d is below minimum 1000, clamping", c.SteadyStaleAfterMS))
		c.SteadyStaleAfterMS = 1000
	}
	if c.WatchdogIntervalMS < 100 {
		r.warning(fmt.Errorf("watchdog_interval_ms %d is below minimum 100, clamping", c.WatchdogIntervalMS))
		c.WatchdogIntervalMS = 100
	}

	if c.DefaultBitrateKbps < 200 || c.DefaultBitrateKbps > 50000 {
		r.warning(fmt.Errorf("default_bitrate_kbps %d out of sane range, clamping to 4000", c.DefaultBitrateKbps))
		c.DefaultBitrateKbps = 4000
	}
	if c.DefaultFPS < 1 || c.DefaultFPS > 60 {
		r.warning(fmt.Errorf("default_fps %d out of sane range, clamping to 30", c.DefaultFPS))
		c.DefaultFPS = 30
	}
	if c.HlsSegmentSeconds < 1 {
		r.warning(fmt.Errorf("hls_segment_seconds %d below minimum 1, clamping", c.HlsSegmentSeconds))
		c.HlsSegmentSeconds = 2
	}
	if c.HlsWindowSize < 2 {
		r.warning(fmt.Errorf("hls_window_size %d below minimum 2, clamping", c.HlsWindowSize))
		c.HlsWindowSize = 6
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.warning(fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
		c.LogLevel = "info"
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.warning(fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
		c.LogFormat = "text"
	}

	if c.MaxConcurrentSessions < 1 {
		r.warning(fmt.Errorf("max_concurrent_sessions %d below minimum 1, clamping", c.MaxConcurrentSessions))
		c.MaxConcurrentSessions = 1
	} else if c.MaxConcurrentSessions > 64 {
		r.warning(fmt.Errorf("max_concurrent_sessions %d exceeds maximum 64, clamping", c.MaxConcurrentSessions))
		c.MaxConcurrentSessions = 64
	}

	return r
}
