package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  grpc_addr: ":6000"
store:
  driver: memory
  ledger: lmax
  wal_path: /tmp/nox.wal
auth:
  session_ttl: 2h
mysql:
  conn_max_lifetime: 30m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.GRPCAddr != ":6000" || cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Store.Ledger != LedgerLMAX || cfg.Store.LMAXBuffer != 4096 {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Auth.SessionTTL != 2*time.Hour || cfg.MySQL.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("durations not parsed: %+v %+v", cfg.Auth, cfg.MySQL)
	}
	if cfg.Notifications.Feed != FeedMemory || cfg.Notifications.QueueSize != 1024 {
		t.Fatalf("unexpected notification defaults %+v", cfg.Notifications)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != DriverMemory || cfg.Store.Ledger != LedgerMutex {
		t.Fatalf("unexpected defaults %+v", cfg.Store)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\n")
	t.Setenv("NOX_STORE_DRIVER", "postgres")
	t.Setenv("NOX_POSTGRES_DSN", "postgres://nox@localhost/nox")
	t.Setenv("NOX_SESSION_TTL", "15m")
	t.Setenv("NOX_BCRYPT_COST", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != DriverPostgres || cfg.Postgres.DSN == "" {
		t.Fatalf("env override not applied: %+v", cfg.Store)
	}
	if cfg.Auth.SessionTTL != 15*time.Minute || cfg.Auth.BcryptCost != 4 {
		t.Fatalf("unexpected auth %+v", cfg.Auth)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	env := map[string]string{"NOX_MYSQL_PORT": "abc", "NOX_SESSION_TTL": "forever"}
	var cfg Config
	err := applyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"NOX_MYSQL_PORT", "NOX_SESSION_TTL"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, false},
		{"unknown ledger", func(c *Config) { c.Store.Ledger = "disruptor" }, false},
		{"mysql without host", func(c *Config) { c.Store.Driver = DriverMySQL }, false},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }, false},
		{"nats without url", func(c *Config) { c.Notifications.Feed = FeedNATS }, false},
		{"bolt auth", func(c *Config) { c.Auth.Store = AuthStoreBolt }, true},
		{"unknown auth", func(c *Config) { c.Auth.Store = "redis" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}.withDefaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
