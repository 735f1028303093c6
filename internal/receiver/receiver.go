// Package receiver addresses the network media receiver a session casts to.
// It mirrors the optional-dependency pattern of its source: when no receiver
// transport is configured, Sender degrades to a no-op implementation rather
// than failing session start.
package receiver

import (
	"context"
	"time"

	"github.com/webcast/webcastd/internal/logging"
)

var log = logging.L("receiver")

// defaultDirectPort is the port assumed when a caller supplies a host
// without an explicit port.
const defaultDirectPort = 46899

// Device describes one discovered receiver.
type Device struct {
	Name string
	Host string
	Port int
}

// Sender issues playback commands to a named receiver. Implementations must
// be safe for concurrent use. Play and Stop take an optional host/port: when
// host is non-empty, the implementation addresses it directly instead of
// resolving receiverName through discovery.
type Sender interface {
	// Discover returns receivers currently reachable on the network.
	// Implementations that cannot discover return an empty slice, never an
	// error.
	Discover(ctx context.Context, timeout time.Duration) []Device

	// Play instructs receiverName to start playing mediaURL. If host is
	// non-empty, it is addressed directly at host:port (port defaults to
	// 46899 when zero) instead of being resolved via discovery. Returns
	// false (not an error) when no matching receiver could be addressed,
	// matching the capability's degrade-gracefully contract.
	Play(ctx context.Context, receiverName, mediaURL, title, host string, port int) bool

	// Stop instructs receiverName to stop playback, with the same
	// direct-vs-discovery addressing rule as Play.
	Stop(ctx context.Context, receiverName, host string, port int) bool
}

// Available wraps a live mDNS discovery transport.
type Available struct {
	discoverer *Discoverer
}

// NewAvailable builds a Sender backed by mDNS discovery.
func NewAvailable(discoverer *Discoverer) *Available {
	return &Available{discoverer: discoverer}
}

func (a *Available) Discover(ctx context.Context, timeout time.Duration) []Device {
	if a.discoverer == nil {
		return nil
	}
	devices, err := a.discoverer.Browse(ctx, timeout)
	if err != nil {
		log.Warn("receiver discovery failed", "error", err)
		return nil
	}
	return devices
}

func (a *Available) resolve(ctx context.Context, receiverName string) (Device, bool) {
	for _, d := range a.Discover(ctx, 3*time.Second) {
		if d.Name == receiverName {
			return d, true
		}
	}
	return Device{}, false
}

func (a *Available) Play(ctx context.Context, receiverName, mediaURL, title, host string, port int) bool {
	target, ok := a.target(ctx, receiverName, host, port)
	if !ok {
		log.Error("receiver not found", "receiver", receiverName)
		return false
	}
	if err := Play(ctx, target.Host, target.Port, mediaURL, title); err != nil {
		log.Error("receiver play failed", "receiver", receiverName, "error", err)
		return false
	}
	return true
}

func (a *Available) Stop(ctx context.Context, receiverName, host string, port int) bool {
	target, ok := a.target(ctx, receiverName, host, port)
	if !ok {
		return false
	}
	if err := StopPlayback(ctx, target.Host, target.Port); err != nil {
		log.Warn("receiver stop failed", "receiver", receiverName, "error", err)
		return false
	}
	return true
}

// target resolves the effective host:port for one command: a supplied host
// bypasses discovery entirely, per spec.md's "host? / port=46899" contract.
func (a *Available) target(ctx context.Context, receiverName, host string, port int) (Device, bool) {
	if host != "" {
		if port == 0 {
			port = defaultDirectPort
		}
		return Device{Name: receiverName, Host: host, Port: port}, true
	}
	return a.resolve(ctx, receiverName)
}

// Unavailable is a Sender that always reports no receivers and declines to
// play, for deployments without a configured receiver transport.
type Unavailable struct{}

func (Unavailable) Discover(ctx context.Context, timeout time.Duration) []Device { return nil }
func (Unavailable) Play(ctx context.Context, receiverName, mediaURL, title, host string, port int) bool {
	log.Warn("no receiver transport configured; cannot play", "receiver", receiverName)
	return false
}
func (Unavailable) Stop(ctx context.Context, receiverName, host string, port int) bool { return false }
