package uci

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Runner executes a single uci invocation and returns its combined output.
// Tests substitute a fake; production uses the real binary.
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

// ExecStore drives the system uci binary. It is the production Store on
// OpenWrt targets.
type ExecStore struct {
	runner    Runner
	configDir string
	log       *zap.Logger
}

var _ Store = (*ExecStore)(nil)

// NewExecStore returns a Store backed by the uci CLI. configDir is the
// directory holding committed artifacts, normally /etc/config.
func NewExecStore(log *zap.Logger, configDir string) *ExecStore {
	return &ExecStore{
		runner:    execRunner{bin: "uci"},
		configDir: configDir,
		log:       log,
	}
}

// NewExecStoreWithRunner is like NewExecStore but with a caller-supplied
// Runner. Used by tests.
func NewExecStoreWithRunner(log *zap.Logger, configDir string, r Runner) *ExecStore {
	return &ExecStore{runner: r, configDir: configDir, log: log}
}

func (s *ExecStore) Get(ctx context.Context, key string) (string, error) {
	out, err := s.runner.Run(ctx, "get", key)
	if err != nil {
		if bytes.Contains(out, []byte("Entry not found")) {
			return "", fmt.Errorf("%w: %s", ErrEntryNotFound, key)
		}
		return "", fmt.Errorf("uci get %s: %w: %s", key, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

func (s *ExecStore) Set(ctx context.Context, key, value string) error {
	return s.mutate(ctx, "set", key+"="+value)
}

func (s *ExecStore) AddList(ctx context.Context, key, value string) error {
	return s.mutate(ctx, "add_list", key+"="+value)
}

func (s *ExecStore) DelList(ctx context.Context, key, value string) error {
	return s.mutate(ctx, "del_list", key+"="+value)
}

func (s *ExecStore) Delete(ctx context.Context, key string) error {
	// Deleting a key that was never set is not an error for our callers;
	// uci disagrees, so swallow its "Entry not found".
	out, err := s.runner.Run(ctx, "delete", key)
	if err != nil && !bytes.Contains(out, []byte("Entry not found")) {
		return fmt.Errorf("uci delete %s: %w: %s", key, err, strings.TrimSpace(string(out)))
	}
	s.log.Debug("uci delete", zap.String("key", key))
	return nil
}

func (s *ExecStore) Commit(ctx context.Context, config string) error {
	out, err := s.runner.Run(ctx, "commit", config)
	if err != nil {
		return fmt.Errorf("uci commit %s: %w: %s", config, err, strings.TrimSpace(string(out)))
	}
	s.log.Debug("uci commit", zap.String("config", config))
	return nil
}

func (s *ExecStore) Revert(ctx context.Context, config string) error {
	out, err := s.runner.Run(ctx, "revert", config)
	if err != nil {
		return fmt.Errorf("uci revert %s: %w: %s", config, err, strings.TrimSpace(string(out)))
	}
	s.log.Debug("uci revert", zap.String("config", config))
	return nil
}

func (s *ExecStore) ArtifactPath(config string) string {
	return filepath.Join(s.configDir, config)
}

func (s *ExecStore) mutate(ctx context.Context, op, arg string) error {
	out, err := s.runner.Run(ctx, op, arg)
	if err != nil {
		return fmt.Errorf("uci %s %s: %w: %s", op, arg, err, strings.TrimSpace(string(out)))
	}
	s.log.Debug("uci "+op, zap.String("arg", arg))
	return nil
}
