package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// frame is the wire message sent to a receiver: a newline-delimited JSON
// object naming the requested opcode and its payload.
type frame struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

const dialTimeout = 3 * time.Second

// Play opens a TCP connection to host:port and sends a play command for
// mediaURL.
func Play(ctx context.Context, host string, port int, mediaURL, title string) error {
	return send(ctx, host, port, frame{Type: "play", URL: mediaURL, Title: title})
}

// StopPlayback opens a TCP connection to host:port and sends a stop command.
func StopPlayback(ctx context.Context, host string, port int) error {
	return send(ctx, host, port, frame{Type: "stop"})
}

func send(ctx context.Context, host string, port int, f frame) error {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("receiver: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	}

	enc := json.NewEncoder(conn)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("receiver: send %s frame: %w", f.Type, err)
	}
	return nil
}
