// Package config loads and validates the daemon's runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds every tunable of the webcast daemon.
type Config struct {
	// Control plane
	HostAddr string `mapstructure:"host_addr"`
	HostPort int    `mapstructure:"host_port"`

	// Session storage
	SessionsDir string `mapstructure:"sessions_dir"`

	// Receiver discovery / direct addressing
	HostnameOverride string `mapstructure:"fc_hostname_override"`
	ReceiverHost     string `mapstructure:"receiver_host"`
	ReceiverPort     int    `mapstructure:"receiver_port"`
	DiscoveryEnabled bool   `mapstructure:"discovery_enabled"`

	// Display allocation
	DisplayRangeStart int `mapstructure:"display_range_start"`
	DisplayRangeEnd   int `mapstructure:"display_range_end"`

	// Warmup / watchdog thresholds
	WarmupTimeoutMS    int `mapstructure:"warmup_timeout_ms"`
	WarmupStaleAfterMS int `mapstructure:"warmup_stale_after_ms"`
	SteadyStaleAfterMS int `mapstructure:"steady_stale_after_ms"`
	WatchdogIntervalMS int `mapstructure:"watchdog_interval_ms"`

	// Encoder defaults
	DefaultBitrateKbps int `mapstructure:"default_bitrate_kbps"`
	DefaultFPS         int `mapstructure:"default_fps"`
	DefaultWidth       int `mapstructure:"default_width"`
	DefaultHeight      int `mapstructure:"default_height"`
	HlsSegmentSeconds  int `mapstructure:"hls_segment_seconds"`
	HlsWindowSize      int `mapstructure:"hls_window_size"`

	// Logging
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	// Concurrency
	MaxConcurrentSessions int `mapstructure:"max_concurrent_sessions"`
}

func Default() *Config {
	return &Config{
		HostAddr:              "0.0.0.0",
		HostPort:              8080,
		SessionsDir:           "/var/lib/webcast/sessions",
		DiscoveryEnabled:      true,
		DisplayRangeStart:     100,
		DisplayRangeEnd:       199,
		WarmupTimeoutMS:       15000,
		WarmupStaleAfterMS:    8000,
		SteadyStaleAfterMS:    5000,
		WatchdogIntervalMS:    1000,
		DefaultBitrateKbps:    4000,
		DefaultFPS:            30,
		DefaultWidth:          1920,
		DefaultHeight:         1080,
		HlsSegmentSeconds:     2,
		HlsWindowSize:         6,
		LogLevel:              "info",
		LogFormat:             "text",
		LogMaxSizeMB:          50,
		LogMaxBackups:         3,
		MaxConcurrentSessions: 4,
	}
}

// Load reads configuration from an optional file, then environment
// variables prefixed WEBCAST_, layered over Default().
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("webcast")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("WEBCAST")

	// Unmarshal only sees keys viper already knows, so bind every field's
	// key to its WEBCAST_ environment variable explicitly.
	t := reflect.TypeOf(*cfg)
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("mapstructure"); key != "" {
			if err := v.BindEnv(key); err != nil {
				return nil, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

// GetDataDir returns the platform-specific data directory for session state.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "webcast", "data")
	case "darwin":
		return "/Library/Application Support/webcast/data"
	default:
		return "/var/lib/webcast"
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "webcast")
	case "darwin":
		return "/Library/Application Support/webcast"
	default:
		return "/etc/webcast"
	}
}
