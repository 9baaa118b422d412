package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"drq/internal/config"
	"drq/internal/daemon"
	"drq/internal/logging"
)

// PIDFileName is written under the data directory while the daemon runs.
const PIDFileName = "drq.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
}

// Run starts the drq daemon and blocks until ctx is cancelled or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runID := uuid.NewString()
	logger = logger.With(logging.String("run_id", runID))

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	pidPath := filepath.Join(cfg.Paths.DataDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.Open(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open daemon", logging.Error(err))
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check the data directory and whether another drq daemon holds the lock"),
		)
		return err
	}

	logger.Info("drq daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("api", d.APIAddr()),
		logging.String("pid_file", pidPath),
	)

	<-signalCtx.Done()
	logger.Info("drq daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded in the data directory, or 0 when the
// daemon is not running.
func ReadPID(cfg *config.Config) int {
	data, err := os.ReadFile(filepath.Join(cfg.Paths.DataDir, PIDFileName))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
