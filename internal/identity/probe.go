package identity

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/zonenet/splashgate/pkg/models"
)

// Prober forces neighbor-table population by reaching out to a host.
type Prober interface {
	Probe(ctx context.Context, ip string) error
}

// ICMPProber pings targets via pro-bing.
type ICMPProber struct {
	timeout time.Duration
	count   int
}

var _ Prober = (*ICMPProber)(nil)

// NewICMPProber creates a prober with the given per-probe timeout and
// packet count.
func NewICMPProber(timeout time.Duration, count int) *ICMPProber {
	return &ICMPProber{timeout: timeout, count: count}
}

// Probe pings ip. A response is not required to succeed fully; the point is
// making the kernel resolve the neighbor entry. Returns an error only when
// no packet came back at all.
func (p *ICMPProber) Probe(ctx context.Context, ip string) error {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return fmt.Errorf("create pinger: %w", err)
	}
	pinger.Count = p.count
	pinger.Timeout = p.timeout

	// Run pinger in a goroutine for context cancellation.
	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case runErr := <-done:
		if runErr != nil {
			return fmt.Errorf("probe %s: %w", ip, runErr)
		}
		if pinger.Statistics().PacketsRecv == 0 {
			return fmt.Errorf("probe %s: no reply", ip)
		}
		return nil
	case <-ctx.Done():
		pinger.Stop()
		return ctx.Err()
	}
}

// probeStrategy pings the target to force a neighbor-table entry, then
// re-reads the table. Covers admin devices that were quiet long enough for
// their entry to expire.
type probeStrategy struct {
	prober   Prober
	neighbor *neighborStrategy
}

var _ MACStrategy = (*probeStrategy)(nil)

func (s *probeStrategy) Source() models.MACSource { return models.MACFromProbe }

func (s *probeStrategy) Lookup(ctx context.Context, ip string) (string, error) {
	if err := s.prober.Probe(ctx, ip); err != nil {
		// An unreachable host cannot be whitelisted anyway.
		return "", nil
	}
	return s.neighbor.Lookup(ctx, ip)
}
