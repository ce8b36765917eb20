package identity

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/pkg/models"
)

// MACStrategy is one step in the admin-device resolution chain. Lookup
// returns ("", nil) when the strategy simply found nothing; errors are
// reserved for faults worth logging.
type MACStrategy interface {
	Source() models.MACSource
	Lookup(ctx context.Context, ip string) (string, error)
}

// Resolver runs the admin-device strategy chain in order until one step
// yields a valid MAC.
type Resolver struct {
	log        *zap.Logger
	strategies []MACStrategy
}

// NewResolver builds the production chain: neighbor table, ICMP probe with
// table re-check, DHCP leases.
func NewResolver(log *zap.Logger) *Resolver {
	neighbor := &neighborStrategy{path: procNetARP}
	return &Resolver{
		log: log,
		strategies: []MACStrategy{
			neighbor,
			&probeStrategy{prober: NewICMPProber(3*time.Second, 2), neighbor: neighbor},
			&leaseStrategy{path: dhcpLeases},
		},
	}
}

// NewResolverWithStrategies builds a Resolver over a caller-supplied chain.
// Used by tests.
func NewResolverWithStrategies(log *zap.Logger, strategies ...MACStrategy) *Resolver {
	return &Resolver{log: log, strategies: strategies}
}

// ResolveAdmin finds the operator's device. ipHint, when non-empty,
// overrides autodetection from the SSH session. An unresolved device is a
// legitimate outcome; the zero AdminDevice is returned rather than an error.
func (r *Resolver) ResolveAdmin(ctx context.Context, ipHint string) models.AdminDevice {
	ip := ipHint
	if ip == "" {
		ip = SessionIP()
	}
	if ip == "" {
		r.log.Warn("no admin IP available, skipping MAC resolution")
		return models.AdminDevice{}
	}

	for _, s := range r.strategies {
		mac, err := s.Lookup(ctx, ip)
		if err != nil {
			r.log.Warn("admin MAC lookup failed",
				zap.String("strategy", string(s.Source())),
				zap.Error(err))
			continue
		}
		if mac == "" {
			continue
		}
		canon, ok := CanonicalMAC(mac)
		if !ok {
			r.log.Warn("admin MAC candidate rejected",
				zap.String("strategy", string(s.Source())),
				zap.String("candidate", mac))
			continue
		}
		r.log.Info("admin device resolved",
			zap.String("ip", ip),
			zap.String("mac", canon),
			zap.String("strategy", string(s.Source())))
		return models.AdminDevice{IP: ip, MAC: canon, Source: s.Source()}
	}

	r.log.Warn("admin MAC could not be resolved automatically", zap.String("ip", ip))
	return models.AdminDevice{IP: ip}
}

// ManualAdmin validates an operator-entered MAC and returns the resulting
// device. Used when the automatic chain comes up empty.
func ManualAdmin(input string) (models.AdminDevice, error) {
	mac, ok := CanonicalMAC(input)
	if !ok {
		return models.AdminDevice{}, fmt.Errorf("invalid MAC address %q", input)
	}
	return models.AdminDevice{MAC: mac, Source: models.MACFromManual}, nil
}

// SessionIP extracts the client IP of the current SSH session from
// SSH_CONNECTION or SSH_CLIENT. Empty when not running over SSH.
func SessionIP() string {
	for _, env := range []string{"SSH_CONNECTION", "SSH_CLIENT"} {
		if v := os.Getenv(env); v != "" {
			if fields := strings.Fields(v); len(fields) > 0 {
				return fields[0]
			}
		}
	}
	return ""
}
