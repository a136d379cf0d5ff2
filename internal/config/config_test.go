package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	settings, err := Load(GlobalFlags{Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OutputMode != "text" {
		t.Fatalf("default output mode = %q", settings.OutputMode)
	}
	if settings.Timeout != 15*time.Second {
		t.Fatalf("default timeout = %v", settings.Timeout)
	}
	if settings.Retries != 2 {
		t.Fatalf("default retries = %d", settings.Retries)
	}
	if settings.RPCURL == "" || settings.AggregatorURL == "" {
		t.Fatalf("default endpoints missing: %+v", settings)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
rpc_url: https://rpc.example.test
timeout: 30s
retries: 5
swap:
  aggregator_url: https://agg.example.test
ledger:
  path: /tmp/ledger.db
`)
	settings, err := Load(GlobalFlags{ConfigPath: path, Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.RPCURL != "https://rpc.example.test" {
		t.Fatalf("rpc url = %q", settings.RPCURL)
	}
	if settings.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", settings.Timeout)
	}
	if settings.Retries != 5 {
		t.Fatalf("retries = %d", settings.Retries)
	}
	if settings.AggregatorURL != "https://agg.example.test" {
		t.Fatalf("aggregator url = %q", settings.AggregatorURL)
	}
	if settings.LedgerPath != "/tmp/ledger.db" {
		t.Fatalf("ledger path = %q", settings.LedgerPath)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "rpc_url: https://file.example.test\n")
	t.Setenv("SOLTERM_RPC_URL", "https://env.example.test")
	t.Setenv("SOLTERM_RETRIES", "7")

	settings, err := Load(GlobalFlags{ConfigPath: path, Retries: -1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.RPCURL != "https://env.example.test" {
		t.Fatalf("env should beat file: %q", settings.RPCURL)
	}
	if settings.Retries != 7 {
		t.Fatalf("retries = %d", settings.Retries)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SOLTERM_RPC_URL", "https://env.example.test")

	settings, err := Load(GlobalFlags{RPCURL: "https://flag.example.test", JSON: true, Timeout: "5s", Retries: 0})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.RPCURL != "https://flag.example.test" {
		t.Fatalf("flag should beat env: %q", settings.RPCURL)
	}
	if settings.OutputMode != "json" {
		t.Fatalf("json flag ignored: %q", settings.OutputMode)
	}
	if settings.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v", settings.Timeout)
	}
	if settings.Retries != 0 {
		t.Fatalf("explicit zero retries ignored: %d", settings.Retries)
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	if _, err := Load(GlobalFlags{Timeout: "soon", Retries: -1}); err == nil {
		t.Fatalf("bad timeout accepted")
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	if _, err := Load(GlobalFlags{ConfigPath: "/nope/absent.yaml", Retries: -1}); err == nil {
		t.Fatalf("missing config file accepted")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "rpc_url: [unclosed\n")
	if _, err := Load(GlobalFlags{ConfigPath: path, Retries: -1}); err == nil {
		t.Fatalf("bad yaml accepted")
	}
}
