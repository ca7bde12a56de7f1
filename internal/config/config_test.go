package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const testProgramID = "Vote111111111111111111111111111111111111111"

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{"SAVINGS_PROGRAM_ID": testProgramID})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 || cfg.Addr() != ":8080" {
		t.Errorf("Port = %d, Addr = %q; want 8080 and :8080", cfg.Port, cfg.Addr())
	}
	if cfg.Commitment != "confirmed" {
		t.Errorf("Commitment = %q, want confirmed", cfg.Commitment)
	}
	if cfg.RPCTimeout != 30*time.Second {
		t.Errorf("RPCTimeout = %v, want 30s", cfg.RPCTimeout)
	}
	if cfg.SimplifiedAuth {
		t.Error("SimplifiedAuth defaults to true")
	}
	if got := cfg.AllowedOrigins(); !reflect.DeepEqual(got, []string{"*"}) {
		t.Errorf("AllowedOrigins() = %v, want [*]", got)
	}
	if cfg.Currencies[0].Symbol != "USDC" {
		t.Errorf("currency 0 symbol = %q, want USDC", cfg.Currencies[0].Symbol)
	}
	if got := cfg.ProgramKey().String(); got != testProgramID {
		t.Errorf("ProgramKey() = %s, want %s", got, testProgramID)
	}
}

func TestLoadEnvFileAndOverlay(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	yamlFile := filepath.Join(dir, "gateway.yaml")

	writeFile(t, envFile, "PORT=9090\nFAUCET_ENABLED=true\n")
	writeFile(t, yamlFile, `
cors_origins:
  - https://app.nestfund.io
  - .nestfund.dev
currencies:
  0:
    symbol: USDT
    name: Tether
    decimals: 6
rate_limit:
  rps: 5
`)

	setEnv(t, map[string]string{
		"SAVINGS_PROGRAM_ID": testProgramID,
		"CONFIG_FILE":        yamlFile,
	})
	// godotenv never overrides variables that are already set.
	for _, key := range []string{"PORT", "FAUCET_ENABLED"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	cfg, err := Load(envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if !cfg.FaucetEnabled {
		t.Error("FaucetEnabled = false, want true from the env file")
	}
	if got, want := cfg.AllowedOrigins(), []string{"https://app.nestfund.io", ".nestfund.dev"}; !reflect.DeepEqual(got, want) {
		t.Errorf("AllowedOrigins() = %v, want %v", got, want)
	}
	if cfg.Currencies[0].Symbol != "USDT" {
		t.Errorf("currency 0 symbol = %q, want USDT", cfg.Currencies[0].Symbol)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 40 {
		t.Errorf("rate limit = %v/%d, want 5/40", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:           8080,
			Environment:    "development",
			SolanaRPCURL:   "http://localhost:8899",
			Commitment:     "finalized",
			RPCTimeout:     time.Second,
			ProgramID:      testProgramID,
			RateLimitRPS:   1,
			RateLimitBurst: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing program", func(c *Config) { c.ProgramID = "" }, true},
		{"bad program", func(c *Config) { c.ProgramID = "not-a-key" }, true},
		{"short program", func(c *Config) { c.ProgramID = "11111111" }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"ws rpc url", func(c *Config) { c.SolanaRPCURL = "ws://localhost:8900" }, true},
		{"bad commitment", func(c *Config) { c.Commitment = "max" }, true},
		{"zero timeout", func(c *Config) { c.RPCTimeout = 0 }, true},
		{"simplified auth in production", func(c *Config) {
			c.Environment = "Production"
			c.SimplifiedAuth = true
		}, true},
		{"simplified auth in development", func(c *Config) { c.SimplifiedAuth = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsBadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "cors_origins: [unterminated")
	setEnv(t, map[string]string{
		"SAVINGS_PROGRAM_ID": testProgramID,
		"CONFIG_FILE":        path,
	})

	if _, err := Load(); err == nil {
		t.Error("Load succeeded with a malformed overlay")
	}
}
