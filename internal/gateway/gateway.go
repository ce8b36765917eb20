// Package gateway controls the captive-portal daemon on the target
// device: init-system service state plus the listening check the
// verifier uses.
package gateway

import (
	"context"
	"net"
	"strconv"
	"time"
)

const (
	// DaemonName is the service name of the captive-portal daemon.
	DaemonName = "nodogsplash"

	// ListenPort is the HTTP port the daemon serves the splash page on.
	ListenPort = 2050
)

// Service abstracts daemon control across init systems.
type Service interface {
	// Name returns the init system name (e.g., "procd", "systemd").
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	// Enable marks the service to start at boot; Disable clears it.
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// Listening reports whether something accepts TCP connections on
// host:port within timeout. Good enough to tell "daemon up" from
// "daemon down" without speaking its protocol.
func Listening(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
