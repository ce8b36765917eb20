// Package usage collects per-client traffic counters from the gateway
// daemon's client table and ships them to the backend metrics endpoint.
// Records are spooled in the state database between runs, so an upload
// failure keeps the interval's data for the next attempt.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/identity"
	"github.com/zonenet/splashgate/pkg/models"
)

// Runner executes a single ndsctl invocation and returns its combined
// output. Tests substitute a fake; production uses the real binary.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

type execRunner struct {
	bin string
}

func (r execRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.bin, args...)
	return cmd.CombinedOutput()
}

// counter is an int64 that tolerates both numeric and quoted encodings;
// ndsctl emits its counters as strings.
type counter int64

func (c *counter) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("counter %q: %w", s, err)
	}
	*c = counter(n)
	return nil
}

type clientEntry struct {
	IP         string  `json:"ip"`
	Uploaded   counter `json:"uploaded"`
	Downloaded counter `json:"downloaded"`
	Duration   counter `json:"duration"`
}

type clientTable struct {
	Clients map[string]clientEntry `json:"clients"`
}

// ParseClients decodes an `ndsctl json` client table into usage records.
// Entries whose MAC key does not canonicalize are skipped. Records come
// back in MAC order so repeated parses of the same table are identical.
func ParseClients(data []byte, capturedAt time.Time) ([]models.UsageRecord, error) {
	var table clientTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse client table: %w", err)
	}

	macs := make([]string, 0, len(table.Clients))
	for mac := range table.Clients {
		macs = append(macs, mac)
	}
	sort.Strings(macs)

	records := make([]models.UsageRecord, 0, len(macs))
	for _, mac := range macs {
		canonical, _ := identity.CanonicalMAC(mac)
		if canonical == "" {
			continue
		}
		entry := table.Clients[mac]
		records = append(records, models.UsageRecord{
			ClientMAC:      canonical,
			ClientIP:       entry.IP,
			BytesUp:        int64(entry.Uploaded),
			BytesDown:      int64(entry.Downloaded),
			SessionSeconds: int64(entry.Duration),
			CapturedAt:     capturedAt,
		})
	}
	return records, nil
}

// Collector reads the gateway daemon's live client table.
type Collector struct {
	runner Runner
	now    func() time.Time
	log    *zap.Logger
}

// NewCollector returns a Collector driving the system ndsctl binary.
func NewCollector(log *zap.Logger) *Collector {
	return &Collector{runner: execRunner{bin: "ndsctl"}, now: time.Now, log: log}
}

// NewCollectorWithRunner is like NewCollector but with a caller-supplied
// Runner and clock. Used by tests.
func NewCollectorWithRunner(log *zap.Logger, r Runner, now func() time.Time) *Collector {
	return &Collector{runner: r, now: now, log: log}
}

// Collect snapshots the current client table. Counters are taken exactly
// as the daemon reports them.
func (c *Collector) Collect(ctx context.Context) ([]models.UsageRecord, error) {
	out, err := c.runner.Run(ctx, "json")
	if err != nil {
		return nil, fmt.Errorf("ndsctl json: %w: %s", err, strings.TrimSpace(string(out)))
	}
	records, err := ParseClients(out, c.now())
	if err != nil {
		return nil, err
	}
	c.log.Debug("client table collected", zap.Int("clients", len(records)))
	return records, nil
}
