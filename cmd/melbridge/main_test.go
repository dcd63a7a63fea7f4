package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/api"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func minimalConfig(dbPath string) string {
	return `
accounts:
  - name: home
    user: someone@example.com
    password: hunter2
database:
  path: "` + dbPath + `"
mqtt:
  enabled: false
api:
  enabled: false
  auth:
    jwt_secret: "` + testSecret + `"
logging:
  level: error
  format: text
  output: stdout
`
}

// TestParseFlags_Defaults verifies flag defaults.
func TestParseFlags_Defaults(t *testing.T) {
	opts, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != defaultConfigPath {
		t.Errorf("configPath = %q, want %q", opts.configPath, defaultConfigPath)
	}
	if opts.showVersion || opts.printToken != "" {
		t.Errorf("opts = %+v, want zero flags", opts)
	}
}

// TestParseFlags_Env verifies MELBRIDGE_ environment variables set flags.
func TestParseFlags_Env(t *testing.T) {
	t.Setenv("MELBRIDGE_CONFIG", "/etc/melbridge/config.yaml")

	opts, err := parseFlags([]string{"-print-token", "node-red"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "/etc/melbridge/config.yaml" {
		t.Errorf("configPath = %q, want env value", opts.configPath)
	}
	if opts.printToken != "node-red" {
		t.Errorf("printToken = %q, want node-red", opts.printToken)
	}
}

// TestParseFlags_Unknown verifies unknown flags are rejected.
func TestParseFlags_Unknown(t *testing.T) {
	if _, err := parseFlags([]string{"-bogus"}); err == nil {
		t.Error("parseFlags() should fail on an unknown flag")
	}
}

// TestRun_Version verifies -version prints and exits without a config.
func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-version", "-config", "/nonexistent.yaml"}, &out); err != nil {
		t.Fatalf("run(-version) error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "melbridge dev") {
		t.Errorf("output = %q, want melbridge dev prefix", out.String())
	}
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, []string{"-config", "/nonexistent/path/config.yaml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_PrintToken verifies the printed token validates against the
// configured secret.
func TestRun_PrintToken(t *testing.T) {
	path := writeConfig(t, minimalConfig(filepath.Join(t.TempDir(), "melbridge.db")))

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-config", path, "-print-token", "home-assistant"}, &out); err != nil {
		t.Fatalf("run(-print-token) error = %v", err)
	}

	subject, err := api.ParseToken(testSecret, strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if subject != "home-assistant" {
		t.Errorf("subject = %q, want home-assistant", subject)
	}
}

// TestRun_CleanShutdown verifies the lifecycle with every optional relay
// disabled. Login fails against the unreachable cloud, which the session
// retries until shutdown.
func TestRun_CleanShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping lifecycle test in short mode")
	}
	t.Setenv("MELBRIDGE_MELCLOUD_BASE_URL", "http://127.0.0.1:1")

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "melbridge.db")
	path := writeConfig(t, minimalConfig(dbPath))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx, []string{"-config", path}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
