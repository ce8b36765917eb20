package provision

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/zonenet/splashgate/internal/gateway"
)

// MinFreeBytes is the floor of free space under the data directory below
// which provisioning refuses to start.
const MinFreeBytes = 10 << 20

const connectTimeout = 5 * time.Second

// Environment errors abort the pipeline before any mutation.
var (
	ErrNotRoot           = errors.New("must run as root")
	ErrNoConnectivity    = errors.New("backend unreachable")
	ErrInsufficientSpace = errors.New("insufficient free space")
)

// Preflight checks the environment before the first mutation: effective
// uid, free space under the data dir, and a TCP reach check against the
// backend. Any failure is fatal per the error policy.
type Preflight struct {
	dataDir   string
	serverURL string
	minFree   uint64
	euid      func() int
	freeBytes func(path string) (uint64, error)
	dial      func(host string, port int, timeout time.Duration) bool
	log       *zap.Logger
}

// NewPreflight builds the production preflight for the given data dir
// and backend URL.
func NewPreflight(log *zap.Logger, dataDir, serverURL string) *Preflight {
	return &Preflight{
		dataDir:   dataDir,
		serverURL: serverURL,
		minFree:   MinFreeBytes,
		euid:      unix.Geteuid,
		freeBytes: statfsFree,
		dial:      gateway.Listening,
		log:       log,
	}
}

func statfsFree(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// Run performs the checks in order and returns the first failure.
func (p *Preflight) Run(ctx context.Context) error {
	if uid := p.euid(); uid != 0 {
		return fmt.Errorf("%w (euid %d)", ErrNotRoot, uid)
	}

	// The data dir is ours; creating it is not a gateway mutation.
	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", p.dataDir, err)
	}
	free, err := p.freeBytes(p.dataDir)
	if err != nil {
		return fmt.Errorf("statfs %s: %w", p.dataDir, err)
	}
	if free < p.minFree {
		return fmt.Errorf("%w: %d bytes free under %s, need %d",
			ErrInsufficientSpace, free, p.dataDir, p.minFree)
	}

	host, port, err := serverHostPort(p.serverURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoConnectivity, err)
	}
	if !p.dial(host, port, connectTimeout) {
		return fmt.Errorf("%w: %s:%d not reachable", ErrNoConnectivity, host, port)
	}

	p.log.Info("preflight passed",
		zap.Uint64("free_bytes", free), zap.String("backend", p.serverURL))
	return nil
}

func serverHostPort(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, err
	}
	host := u.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("no host in %q", raw)
	}
	switch {
	case u.Port() != "":
		var port int
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return "", 0, fmt.Errorf("bad port in %q", raw)
		}
		return host, port, nil
	case u.Scheme == "https":
		return host, 443, nil
	default:
		return host, 80, nil
	}
}
