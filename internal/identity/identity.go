// Package identity derives the router's stable identifier and resolves the
// administrator's device MAC through a chain of lookup strategies.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/pkg/models"
)

// idHexLen is the digest prefix length used in router identifiers.
const idHexLen = 12

// DeriveID hashes an identity source into the router's identifier:
// ZN- followed by the first 12 hex characters of its SHA-256 digest,
// upper-cased. Deterministic for a given source.
func DeriveID(source string) string {
	sum := sha256.Sum256([]byte(source))
	return models.IDPrefix + strings.ToUpper(hex.EncodeToString(sum[:])[:idHexLen])
}

// ResolveRouter produces the router's identity. It prefers the hardware
// address of the first usable network interface, falls back to the host
// name, and as a last resort derives from the current time. It never fails;
// every device gets some identifier.
func ResolveRouter(log *zap.Logger) models.RouterIdentity {
	if mac := firstHardwareAddr(); mac != "" {
		return models.RouterIdentity{
			ID:            DeriveID(mac),
			SourceAddress: mac,
			Source:        models.IdentityFromInterface,
		}
	}

	if host, err := os.Hostname(); err == nil && host != "" {
		log.Warn("no usable network interface, deriving identity from hostname",
			zap.String("hostname", host))
		return models.RouterIdentity{
			ID:            DeriveID(host),
			SourceAddress: host,
			Source:        models.IdentityFromHostname,
		}
	}

	// Last resort. Not stable across runs, but provisioning cannot proceed
	// without an identifier at all.
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	log.Warn("no interface or hostname available, deriving identity from clock")
	return models.RouterIdentity{
		ID:            DeriveID(ts),
		SourceAddress: ts,
		Source:        models.IdentityFromClock,
	}
}

// firstHardwareAddr returns the canonical MAC of the first up, non-loopback
// interface that has one, or "" when none qualifies. Interface order is
// stable on an unchanged system, which keeps the derived id stable too.
func firstHardwareAddr() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		if mac, ok := CanonicalMAC(iface.HardwareAddr.String()); ok {
			return mac
		}
	}
	return ""
}
