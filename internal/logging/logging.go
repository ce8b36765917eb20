// Package logging builds the provisioner's zap logger. Console output goes
// to stderr for the operator; everything at info and above is also appended
// to the durable install log so failed runs can be reconstructed after the
// fact.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger teeing console output and the append-only install
// log at logPath. The file is created on first use and never truncated.
// Passing an empty logPath yields a console-only logger (used by tests and
// read-only subcommands).
func New(logPath string, verbose bool) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	if logPath == "" {
		logger := zap.New(consoleCore)
		return logger, func() { _ = logger.Sync() }, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open install log %q: %w", logPath, err)
	}

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileCfg),
		zapcore.Lock(zapcore.AddSync(f)),
		zapcore.InfoLevel,
	)

	logger := zap.New(zapcore.NewTee(consoleCore, fileCore))
	closer := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return logger, closer, nil
}
