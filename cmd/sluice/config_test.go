package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sluice/internal/model"
)

func newTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	registerRunFlags(cmd.Flags())
	return cmd
}

func withConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sluice.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := loadConfig(newTestCmd(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogType != "all" {
		t.Fatalf("LogType = %q, want all", cfg.LogType)
	}
	if cfg.Interval != defaultPollInterval {
		t.Fatalf("Interval = %s, want %s", cfg.Interval, defaultPollInterval)
	}
	if cfg.Timeout != defaultPollTimeout {
		t.Fatalf("Timeout = %s, want %s", cfg.Timeout, defaultPollTimeout)
	}
	if cfg.LogDir != defaultLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, defaultLogDir)
	}
	if cfg.LogsDB {
		t.Fatal("LogsDB should default to false")
	}
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	t.Chdir(t.TempDir())
	withConfigFile(t, "log-type: linux\nlogsdb: true\ninterval: 10s\ntimeout: 2m\n")

	cfg, err := loadConfig(newTestCmd(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogType != "linux" {
		t.Fatalf("LogType = %q, want linux", cfg.LogType)
	}
	if !cfg.LogsDB {
		t.Fatal("LogsDB should come from the config file")
	}
	if cfg.Interval != 10*time.Second || cfg.Timeout != 2*time.Minute {
		t.Fatalf("interval/timeout = %s/%s, want 10s/2m", cfg.Interval, cfg.Timeout)
	}
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	envFile := "ES_ENDPOINT=es.internal\nELASTIC_ADMIN_API_KEY=dotenv-key\nLOG_TYPE=mac\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := loadConfig(newTestCmd(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIKey != "dotenv-key" {
		t.Fatalf("APIKey = %q, want dotenv-key", cfg.APIKey)
	}
	if cfg.LogType != "mac" {
		t.Fatalf("LogType = %q, want mac", cfg.LogType)
	}
	if cfg.Endpoint != "https://es.internal:443" {
		t.Fatalf("Endpoint = %q, want normalized https URL", cfg.Endpoint)
	}
}

func TestLoadConfig_EnvironmentBeatsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_TYPE=mac\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("LOG_TYPE", "ssh")

	cfg, err := loadConfig(newTestCmd(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogType != "ssh" {
		t.Fatalf("LogType = %q, want ssh from the environment", cfg.LogType)
	}
}

func TestLoadConfig_FlagBeatsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_TYPE", "ssh")

	cmd := newTestCmd(t)
	if err := cmd.Flags().Set("log-type", "apache"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogType != "apache" {
		t.Fatalf("LogType = %q, want apache from the flag", cfg.LogType)
	}
}

func TestLoadConfig_SchemeDecidesDefaultPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ES_ENDPOINT", "http://es.internal")

	cfg, err := loadConfig(newTestCmd(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Endpoint != "http://es.internal:9200" {
		t.Fatalf("Endpoint = %q, want http scheme default 9200", cfg.Endpoint)
	}

	t.Setenv("ES_ENDPOINT", "https://es.internal")
	cfg, err = loadConfig(newTestCmd(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Endpoint != "https://es.internal:443" {
		t.Fatalf("Endpoint = %q, want https scheme default 443", cfg.Endpoint)
	}
}

func TestLoadConfig_EndpointNormalization(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ES_ENDPOINT", "http://es.example.com/")
	t.Setenv("ES_PORT", "9201")

	cfg, err := loadConfig(newTestCmd(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Endpoint != "http://es.example.com:9201" {
		t.Fatalf("Endpoint = %q, want configured port applied", cfg.Endpoint)
	}
}

func TestRunConfig_RejectsBadValues(t *testing.T) {
	t.Parallel()

	base := appConfig{
		LogType:  "linux",
		Interval: 5 * time.Second,
		Timeout:  time.Minute,
	}

	bad := base
	bad.LogType = "solaris"
	if _, err := bad.runConfig(); err == nil {
		t.Fatal("unknown log type should be rejected")
	}

	bad = base
	bad.Timeout = time.Second
	if _, err := bad.runConfig(); err == nil {
		t.Fatal("timeout below interval should be rejected")
	}
}

func TestRunConfig_CarriesNamespaceOverride(t *testing.T) {
	t.Parallel()

	cfg := appConfig{
		LogType:   "linux",
		Namespace: "custom-ns",
		Interval:  5 * time.Second,
		Timeout:   time.Minute,
	}
	rc, err := cfg.runConfig()
	if err != nil {
		t.Fatalf("runConfig: %v", err)
	}
	if rc.NamespaceOverride != "custom-ns" {
		t.Fatalf("NamespaceOverride = %q, want custom-ns", rc.NamespaceOverride)
	}
	if rc.StreamType != model.DefaultStreamType || rc.Dataset != model.DefaultDataset {
		t.Fatal("stream type and dataset should use the fixed defaults")
	}
}
