package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"personabot/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
  admin_id: 42
providers:
  - name: primary
    kind: openai
    base_url: "https://api.example.com/v1"
    api_key: "key"
    model: "some-model"
    priority: 100
    enabled: true
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Ledger.DefaultTokens != config.DefaultLedgerTokens {
		t.Errorf("DefaultTokens = %d, want %d", cfg.Ledger.DefaultTokens, config.DefaultLedgerTokens)
	}
	if cfg.Dispatch.AttemptsPerProvider != config.DefaultDispatchAttempts {
		t.Errorf("AttemptsPerProvider = %d, want %d",
			cfg.Dispatch.AttemptsPerProvider, config.DefaultDispatchAttempts)
	}
	if cfg.Dispatch.RetryDelay != config.DefaultDispatchRetryDelay {
		t.Errorf("RetryDelay = %v, want %v", cfg.Dispatch.RetryDelay, config.DefaultDispatchRetryDelay)
	}
	if cfg.Providers[0].Timeout != config.DefaultProviderTimeout {
		t.Errorf("provider Timeout = %v, want filled default %v",
			cfg.Providers[0].Timeout, config.DefaultProviderTimeout)
	}
	if cfg.Messages.BalanceExhausted == "" {
		t.Error("BalanceExhausted message should have a default")
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
providers:
  - name: primary
    kind: openai
    base_url: "https://api.example.com/v1"
    api_key: "key"
    model: "some-model"
`))
	if err == nil {
		t.Fatal("Load should fail without a telegram token")
	}
}

func TestLoadRejectsUnknownProviderKind(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
providers:
  - name: primary
    kind: carrier-pigeon
    api_key: "key"
    model: "some-model"
`))
	if err == nil {
		t.Fatal("Load should reject an unknown provider kind")
	}
}

func TestLoadRejectsEmptyProviderList(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
`))
	if err == nil {
		t.Fatal("Load should fail without providers")
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalConfig+`
ledger:
  default_tokens: 99
dispatch:
  retry_delay: 2s
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.DefaultTokens != 99 {
		t.Errorf("DefaultTokens = %d, want 99", cfg.Ledger.DefaultTokens)
	}
	if cfg.Dispatch.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.Dispatch.RetryDelay)
	}
}
