// Package verify runs the post-install consistency checks: template
// assets on disk, committed configuration keys, and the daemon's
// listening state. Checks never mutate anything and never short-circuit;
// every result lands in the report and, through the logger, in the
// durable install log.
package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/assets"
	"github.com/zonenet/splashgate/internal/uci"
)

// Report is the result of one verification pass.
type Report struct {
	Timestamp string       `json:"timestamp"`
	Summary   CheckSummary `json:"summary"`
	Checks    Checks       `json:"checks"`
}

// CheckSummary counts results by status.
type CheckSummary struct {
	Pass int `json:"pass"`
	Fail int `json:"fail"`
	Warn int `json:"warn"`
}

// Checks groups the three check categories.
type Checks struct {
	Assets  []CheckItem `json:"assets"`
	Config  []CheckItem `json:"config"`
	Service []CheckItem `json:"service"`
}

// CheckItem is a single check result.
type CheckItem struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "fail", "warn"
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Passed reports whether the pass went clean. Warnings do not count
// against it.
func (r Report) Passed() bool { return r.Summary.Fail == 0 }

// KeyCheck is one configuration expectation: the committed value at Key
// must equal Want; an empty Want only requires the key to exist.
type KeyCheck struct {
	Key  string
	Want string
}

// Getter is the slice of the configuration store the verifier needs.
type Getter interface {
	Get(ctx context.Context, key string) (string, error)
	ArtifactPath(config string) string
}

// ListenProbe reports whether host:port accepts TCP connections.
type ListenProbe func(host string, port int, timeout time.Duration) bool

const probeTimeout = 3 * time.Second

// Verifier checks a finished deployment against what the install was
// supposed to leave behind.
type Verifier struct {
	store   Getter
	webroot string
	entries []assets.Entry
	keys    []KeyCheck
	host    string
	port    int
	probe   ListenProbe
	log     *zap.Logger
}

// New builds a Verifier probing host:port with the given probe. Pass
// gateway.Listening in production.
func New(log *zap.Logger, store Getter, webroot string, entries []assets.Entry,
	keys []KeyCheck, host string, port int, probe ListenProbe) *Verifier {
	return &Verifier{
		store:   store,
		webroot: webroot,
		entries: entries,
		keys:    keys,
		host:    host,
		port:    port,
		probe:   probe,
		log:     log,
	}
}

// Run executes every check and tallies the report.
func (v *Verifier) Run(ctx context.Context) Report {
	report := Report{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	report.Checks.Assets = v.checkAssets()
	report.Checks.Config = v.checkConfig(ctx)
	report.Checks.Service = v.checkService()

	for _, items := range [][]CheckItem{
		report.Checks.Assets,
		report.Checks.Config,
		report.Checks.Service,
	} {
		for _, item := range items {
			switch item.Status {
			case "pass":
				report.Summary.Pass++
			case "fail":
				report.Summary.Fail++
				v.log.Warn("verification failed",
					zap.String("check", item.Name), zap.String("message", item.Message))
			case "warn":
				report.Summary.Warn++
				v.log.Warn("verification warning",
					zap.String("check", item.Name), zap.String("message", item.Message))
			}
		}
	}

	if report.Passed() {
		v.log.Info("deployment verified",
			zap.Int("pass", report.Summary.Pass), zap.Int("warn", report.Summary.Warn))
	} else {
		v.log.Error("deployment verification failed",
			zap.Int("fail", report.Summary.Fail), zap.Int("pass", report.Summary.Pass))
	}
	return report
}

// checkAssets verifies every manifest file is on disk, non-empty for
// required entries.
func (v *Verifier) checkAssets() []CheckItem {
	var items []CheckItem
	for _, entry := range v.entries {
		name := "asset/" + entry.Name
		path := filepath.Join(v.webroot, entry.Name)
		info, err := os.Stat(path)
		switch {
		case err != nil && entry.Required:
			items = append(items, CheckItem{
				Name:    name,
				Status:  "fail",
				Message: "required file missing",
				Details: path,
			})
		case err != nil:
			items = append(items, CheckItem{
				Name:    name,
				Status:  "warn",
				Message: "optional file missing",
				Details: path,
			})
		case info.Size() == 0 && entry.Required:
			items = append(items, CheckItem{
				Name:    name,
				Status:  "fail",
				Message: "required file is empty",
				Details: path,
			})
		case info.Size() == 0:
			items = append(items, CheckItem{
				Name:    name,
				Status:  "warn",
				Message: "optional file is empty",
				Details: path,
			})
		default:
			items = append(items, CheckItem{
				Name:    name,
				Status:  "pass",
				Message: "present",
				Details: fmt.Sprintf("%d bytes", info.Size()),
			})
		}
	}
	return items
}

// checkConfig verifies committed store keys and the artifact files
// behind them.
func (v *Verifier) checkConfig(ctx context.Context) []CheckItem {
	var items []CheckItem
	seenConfigs := make(map[string]bool)

	for _, kc := range v.keys {
		name := "config/" + kc.Key
		got, err := v.store.Get(ctx, kc.Key)
		switch {
		case err != nil:
			items = append(items, CheckItem{
				Name:    name,
				Status:  "fail",
				Message: fmt.Sprintf("key unreadable: %v", err),
			})
		case kc.Want != "" && got != kc.Want:
			items = append(items, CheckItem{
				Name:    name,
				Status:  "fail",
				Message: "value mismatch",
				Details: fmt.Sprintf("want=%s got=%s", kc.Want, got),
			})
		default:
			items = append(items, CheckItem{
				Name:    name,
				Status:  "pass",
				Message: "committed",
				Details: got,
			})
		}

		if config := uci.ConfigOf(kc.Key); config != "" && !seenConfigs[config] {
			seenConfigs[config] = true
			artifact := v.store.ArtifactPath(config)
			if _, err := os.Stat(artifact); err != nil {
				items = append(items, CheckItem{
					Name:    "artifact/" + config,
					Status:  "fail",
					Message: "configuration artifact missing",
					Details: artifact,
				})
			} else {
				items = append(items, CheckItem{
					Name:    "artifact/" + config,
					Status:  "pass",
					Message: "artifact present",
					Details: artifact,
				})
			}
		}
	}
	return items
}

func (v *Verifier) checkService() []CheckItem {
	name := fmt.Sprintf("service/%s:%d", v.host, v.port)
	if v.probe(v.host, v.port, probeTimeout) {
		return []CheckItem{{Name: name, Status: "pass", Message: "daemon accepting connections"}}
	}
	return []CheckItem{{Name: name, Status: "fail", Message: "daemon not accepting connections"}}
}
