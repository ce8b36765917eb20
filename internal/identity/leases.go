package identity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zonenet/splashgate/pkg/models"
)

// dhcpLeases is dnsmasq's lease database on OpenWrt.
const dhcpLeases = "/tmp/dhcp.leases"

// ParseLeases scans a dnsmasq lease file for the entry bound to ip and
// returns its canonical MAC. Lease lines are
// "<expiry> <mac> <ip> <hostname> <client-id>".
func ParseLeases(r io.Reader, ip string) (string, bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[2] != ip {
			continue
		}
		if mac, ok := CanonicalMAC(fields[1]); ok {
			return mac, true
		}
	}
	return "", false
}

// leaseStrategy searches DHCP lease records for the target IP. Useful when
// the admin device has a lease but has aged out of the neighbor table.
type leaseStrategy struct {
	path string
}

var _ MACStrategy = (*leaseStrategy)(nil)

func (s *leaseStrategy) Source() models.MACSource { return models.MACFromLeases }

func (s *leaseStrategy) Lookup(_ context.Context, ip string) (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open lease file: %w", err)
	}
	defer f.Close()

	mac, ok := ParseLeases(f, ip)
	if !ok {
		return "", nil
	}
	return mac, nil
}
