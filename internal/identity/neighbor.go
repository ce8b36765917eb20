package identity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zonenet/splashgate/pkg/models"
)

// procNetARP is the kernel's neighbor table.
const procNetARP = "/proc/net/arp"

// atfComplete is the neighbor-entry flag bit for a resolved entry.
const atfComplete = 0x2

// ParseNeighbors reads a /proc/net/arp style table and returns IP to
// canonical MAC. Incomplete entries and all-zero MACs are skipped.
func ParseNeighbors(r io.Reader) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false // header row
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		flags, err := strconv.ParseUint(strings.TrimPrefix(fields[2], "0x"), 16, 32)
		if err != nil || flags&atfComplete == 0 {
			continue
		}
		mac, ok := CanonicalMAC(fields[3])
		if !ok {
			continue
		}
		table[fields[0]] = mac
	}
	return table
}

// neighborStrategy reads the kernel neighbor table for a MAC already bound
// to the target IP.
type neighborStrategy struct {
	path string
}

var _ MACStrategy = (*neighborStrategy)(nil)

func (s *neighborStrategy) Source() models.MACSource { return models.MACFromNeighbor }

func (s *neighborStrategy) Lookup(_ context.Context, ip string) (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open neighbor table: %w", err)
	}
	defer f.Close()
	return ParseNeighbors(f)[ip], nil
}
