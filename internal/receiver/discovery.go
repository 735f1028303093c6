package receiver

import (
	"context"
	"time"

	"github.com/libp2p/zeroconf/v2"

	"github.com/webcast/webcastd/internal/logging"
)

var discoveryLog = logging.L("receiver.discovery")

// serviceType is the mDNS service type receivers are expected to advertise.
const serviceType = "_fcast._tcp"

// Discoverer browses the LAN for receivers via mDNS/DNS-SD. Discover is a
// best-effort operation: a failed or empty browse is never treated as fatal
// by callers, per the capability pattern in Sender.
type Discoverer struct{}

// NewDiscoverer returns an mDNS-backed receiver discoverer.
func NewDiscoverer() *Discoverer {
	return &Discoverer{}
}

// Browse searches for receivers for up to timeout and returns whatever was
// found before the search window closed.
func (d *Discoverer) Browse(ctx context.Context, timeout time.Duration) ([]Device, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	var devices []Device
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if len(entry.AddrIPv4) == 0 {
				continue
			}
			devices = append(devices, Device{
				Name: entry.Instance,
				Host: entry.AddrIPv4[0].String(),
				Port: entry.Port,
			})
		}
	}()

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := resolver.Browse(browseCtx, serviceType, "local.", entries); err != nil {
		return nil, err
	}

	<-browseCtx.Done()
	<-done

	discoveryLog.Info("receiver discovery complete", "found", len(devices))
	return devices, nil
}
