// Package wireless babysits the radio reload. The reload command is
// long-running and occasionally wedges, so it is started detached and
// watched: the watchdog polls for the wireless interface to come back
// and kills the reload if a hard timeout passes. A timeout is a
// warning, never a fatal error, because the configuration change
// behind it is already committed.
package wireless

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/mdlayher/wifi"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds how long a reload may take before it is
	// forcibly terminated.
	DefaultTimeout = 45 * time.Second

	defaultPollInterval = 2 * time.Second
)

// Outcome reports how a reload attempt ended.
type Outcome int

const (
	// Confirmed means the wireless interface was observed back up.
	Confirmed Outcome = iota
	// TimedOut means the reload was killed after the hard timeout.
	TimedOut
	// Failed means the reload process itself reported an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case TimedOut:
		return "timed out"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// InterfaceLister enumerates WiFi interfaces. *wifi.Client satisfies it;
// tests substitute a fake.
type InterfaceLister interface {
	Interfaces() ([]*wifi.Interface, error)
	Close() error
}

// reloadProc is a started reload command.
type reloadProc interface {
	Wait() error
	Kill() error
}

type execProc struct{ cmd *exec.Cmd }

func (p execProc) Wait() error { return p.cmd.Wait() }
func (p execProc) Kill() error { return p.cmd.Process.Kill() }

func startReload(ctx context.Context) (reloadProc, error) {
	cmd := exec.CommandContext(ctx, "wifi", "reload")
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProc{cmd: cmd}, nil
}

// Watchdog runs one bounded radio reload.
type Watchdog struct {
	iface    string
	timeout  time.Duration
	interval time.Duration
	start    func(ctx context.Context) (reloadProc, error)
	listWifi func() (InterfaceLister, error)
	log      *zap.Logger
}

// NewWatchdog watches for iface to come back after `wifi reload`.
func NewWatchdog(log *zap.Logger, iface string) *Watchdog {
	return newWatchdog(log, iface, DefaultTimeout, defaultPollInterval, startReload,
		func() (InterfaceLister, error) { return wifi.New() })
}

func newWatchdog(log *zap.Logger, iface string, timeout, interval time.Duration,
	start func(ctx context.Context) (reloadProc, error),
	listWifi func() (InterfaceLister, error)) *Watchdog {
	return &Watchdog{
		iface:    iface,
		timeout:  timeout,
		interval: interval,
		start:    start,
		listWifi: listWifi,
		log:      log,
	}
}

// Reload starts the radio reload detached and waits for the interface to
// reappear. The returned error is non-nil only for Failed outcomes and
// for start failures; TimedOut comes back with a nil error so callers
// treat it as the warning it is.
func (w *Watchdog) Reload(ctx context.Context) (Outcome, error) {
	proc, err := w.start(ctx)
	if err != nil {
		return Failed, fmt.Errorf("start wifi reload: %w", err)
	}

	lister, err := w.listWifi()
	if err != nil {
		// No nl80211 access: fall back to trusting a clean process exit.
		w.log.Warn("wifi interface polling unavailable", zap.Error(err))
		lister = nil
	}
	if lister != nil {
		defer lister.Close()
	}

	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	exited := false
	for {
		select {
		case <-ctx.Done():
			if !exited {
				proc.Kill()
			}
			return TimedOut, ctx.Err()

		case err := <-done:
			done = nil
			exited = true
			if err != nil {
				return Failed, fmt.Errorf("wifi reload: %w", err)
			}
			if lister == nil || interfaceUp(lister, w.iface) {
				w.log.Info("wireless reload finished", zap.String("iface", w.iface))
				return Confirmed, nil
			}
			// Radio can lag the command; keep polling until the deadline.

		case <-ticker.C:
			if lister != nil && interfaceUp(lister, w.iface) {
				w.log.Info("wireless interface back up", zap.String("iface", w.iface))
				return Confirmed, nil
			}

		case <-deadline.C:
			if !exited {
				proc.Kill()
			}
			w.log.Warn("wireless reload timed out",
				zap.String("iface", w.iface), zap.Duration("timeout", w.timeout))
			return TimedOut, nil
		}
	}
}

func interfaceUp(lister InterfaceLister, name string) bool {
	ifis, err := lister.Interfaces()
	if err != nil {
		return false
	}
	for _, ifi := range ifis {
		if ifi.Name == name {
			return true
		}
	}
	return false
}
