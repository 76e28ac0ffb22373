//go:build !windows

package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/aegis-recorder/internal/config"
)

func TestResolveConfigPath(t *testing.T) {
	orig := cfgPath
	defer func() { cfgPath = orig }()

	cfgPath = "/etc/aegis/recorder.yaml"
	if got := resolveConfigPath(); got != "/etc/aegis/recorder.yaml" {
		t.Errorf("resolveConfigPath() = %q, want the flag value", got)
	}

	cfgPath = ""
	if got := resolveConfigPath(); got != config.DefaultConfigPath() {
		t.Errorf("resolveConfigPath() = %q, want %q", got, config.DefaultConfigPath())
	}
}

func TestRecordExitCodeReachesMain(t *testing.T) {
	origPath := cfgPath
	defer func() {
		cfgPath = origPath
		exitCode = 0
	}()

	cfgFile := filepath.Join(t.TempDir(), "recorder.yaml")
	if err := os.WriteFile(cfgFile, []byte("recording:\n  enabled: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", cfgFile, "--no-record", "--", "sh", "-c", "exit 4"})

	// Execute must return normally so deferred cleanup (config watcher,
	// cobra teardown) runs; the child's status travels via exitCode.
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if exitCode != 4 {
		t.Errorf("exitCode = %d, want 4", exitCode)
	}
}
