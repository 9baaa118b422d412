package main

import (
	"path/filepath"
	"testing"

	"drq/internal/testsupport"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Music queue ==")
	requireContains(t, out, "running (pid")
	requireContains(t, out, "Pending venues")
}

func TestStatusCommandDaemonDown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = "127.0.0.1:1"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[ERROR] not running")

	if _, _, err := runCLI(t, []string{"music", "songs"}, configPath); err == nil {
		t.Fatal("expected error when daemon is unreachable")
	}
}
