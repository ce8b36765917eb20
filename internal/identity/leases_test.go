package identity

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const leaseFixture = `1756100000 AA:BB:CC:DD:EE:11 192.168.8.40 laptop 01:aa:bb:cc:dd:ee:11
1756100500 aa:bb:cc:dd:ee:22 192.168.8.50 phone *
1756101000 aa:bb:cc:dd:ee:33 192.168.8.60 * *
`

func TestParseLeases(t *testing.T) {
	mac, ok := ParseLeases(strings.NewReader(leaseFixture), "192.168.8.50")
	if !ok {
		t.Fatal("ParseLeases() found nothing, want a match")
	}
	if mac != "aa:bb:cc:dd:ee:22" {
		t.Errorf("ParseLeases() = %q, want aa:bb:cc:dd:ee:22", mac)
	}
}

func TestParseLeasesUppercaseEntryLowered(t *testing.T) {
	mac, ok := ParseLeases(strings.NewReader(leaseFixture), "192.168.8.40")
	if !ok {
		t.Fatal("ParseLeases() found nothing, want a match")
	}
	if mac != "aa:bb:cc:dd:ee:11" {
		t.Errorf("ParseLeases() = %q, want lower-cased aa:bb:cc:dd:ee:11", mac)
	}
}

func TestParseLeasesNoMatch(t *testing.T) {
	if mac, ok := ParseLeases(strings.NewReader(leaseFixture), "10.0.0.1"); ok {
		t.Errorf("ParseLeases() = %q for unknown IP, want no match", mac)
	}
}

func TestLeaseStrategyLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhcp.leases")
	if err := os.WriteFile(path, []byte(leaseFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s := &leaseStrategy{path: path}

	mac, err := s.Lookup(context.Background(), "192.168.8.50")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if mac != "aa:bb:cc:dd:ee:22" {
		t.Errorf("Lookup() = %q, want aa:bb:cc:dd:ee:22", mac)
	}
}

func TestLeaseStrategyMissingFile(t *testing.T) {
	s := &leaseStrategy{path: filepath.Join(t.TempDir(), "nope")}
	mac, err := s.Lookup(context.Background(), "192.168.8.50")
	if err != nil {
		t.Errorf("Lookup() on missing file error = %v, want nil", err)
	}
	if mac != "" {
		t.Errorf("Lookup() on missing file = %q, want empty", mac)
	}
}
