package gateway

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Runner executes one service-control command and returns its combined
// output. Tests substitute a fake; production runs the real commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Detect returns a Service appropriate for the current environment, or
// nil when no supported init system is present.
func Detect(log *zap.Logger) Service {
	// procd: OpenWrt ships a plain init script per service.
	script := filepath.Join("/etc/init.d", DaemonName)
	if _, err := os.Stat(script); err == nil {
		return NewProcdService(log, script, execRunner{})
	}
	// systemd: check for /run/systemd/system.
	if _, err := os.Stat("/run/systemd/system"); err == nil {
		return NewSystemdService(log, execRunner{})
	}
	return nil
}

// ProcdService drives an OpenWrt init script directly.
type ProcdService struct {
	script string
	runner Runner
	log    *zap.Logger
}

var _ Service = (*ProcdService)(nil)

// NewProcdService controls the daemon through the given init script.
func NewProcdService(log *zap.Logger, script string, r Runner) *ProcdService {
	return &ProcdService{script: script, runner: r, log: log}
}

func (s *ProcdService) Name() string { return "procd" }

func (s *ProcdService) Start(ctx context.Context) error   { return s.action(ctx, "start") }
func (s *ProcdService) Stop(ctx context.Context) error    { return s.action(ctx, "stop") }
func (s *ProcdService) Restart(ctx context.Context) error { return s.action(ctx, "restart") }
func (s *ProcdService) Enable(ctx context.Context) error  { return s.action(ctx, "enable") }
func (s *ProcdService) Disable(ctx context.Context) error { return s.action(ctx, "disable") }

func (s *ProcdService) action(ctx context.Context, verb string) error {
	out, err := s.runner.Run(ctx, s.script, verb)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", s.script, verb, err, strings.TrimSpace(string(out)))
	}
	s.log.Debug("service action", zap.String("init", "procd"), zap.String("verb", verb))
	return nil
}

// SystemdService drives systemctl for non-OpenWrt test boxes.
type SystemdService struct {
	runner Runner
	log    *zap.Logger
}

var _ Service = (*SystemdService)(nil)

// NewSystemdService controls the daemon through systemctl.
func NewSystemdService(log *zap.Logger, r Runner) *SystemdService {
	return &SystemdService{runner: r, log: log}
}

func (s *SystemdService) Name() string { return "systemd" }

func (s *SystemdService) Start(ctx context.Context) error   { return s.action(ctx, "start") }
func (s *SystemdService) Stop(ctx context.Context) error    { return s.action(ctx, "stop") }
func (s *SystemdService) Restart(ctx context.Context) error { return s.action(ctx, "restart") }
func (s *SystemdService) Enable(ctx context.Context) error  { return s.action(ctx, "enable") }
func (s *SystemdService) Disable(ctx context.Context) error { return s.action(ctx, "disable") }

func (s *SystemdService) action(ctx context.Context, verb string) error {
	out, err := s.runner.Run(ctx, "systemctl", verb, DaemonName)
	if err != nil {
		return fmt.Errorf("systemctl %s %s: %w: %s", verb, DaemonName, err, strings.TrimSpace(string(out)))
	}
	s.log.Debug("service action", zap.String("init", "systemd"), zap.String("verb", verb))
	return nil
}
