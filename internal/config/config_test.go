package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWritesTemplates(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, name := range []string{"config.toml", "credentials.toml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
	info, _ := os.Stat(filepath.Join(dir, "credentials.toml"))
	if info != nil && info.Mode().Perm() != 0600 {
		t.Errorf("credentials.toml mode = %v, want 0600", info.Mode().Perm())
	}

	if cfg.Server.Port != 8080 || cfg.Cache.Backend != "memory" || cfg.Report.CacheTTL != 10*time.Minute {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Database.Path != filepath.Join(dir, "journal.db") {
		t.Errorf("database path = %s", cfg.Database.Path)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
port = 9090

[report]
timezone = "UTC"
cache_ttl = "2m"

[events]
strict_types = true
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte(`jwt_secret = "from-file"`), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JOURNAL_DB_PATH", "/tmp/override.db")
	t.Setenv("JOURNAL_REDIS_ADDR", "redis:6379")
	t.Setenv("JOURNAL_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || !cfg.Events.StrictTypes || cfg.Report.CacheTTL != 2*time.Minute {
		t.Errorf("file values not read: %+v", cfg)
	}
	if cfg.Credentials.JWTSecret != "from-file" {
		t.Errorf("jwt secret = %q", cfg.Credentials.JWTSecret)
	}
	if cfg.Database.Path != "/tmp/override.db" || cfg.Cache.Backend != "redis" || cfg.Logging.Level != "debug" {
		t.Errorf("env overrides not applied: db=%s cache=%s level=%s", cfg.Database.Path, cfg.Cache.Backend, cfg.Logging.Level)
	}

	t.Setenv("JOURNAL_JWT_SECRET", "from-env")
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Credentials.JWTSecret != "from-env" {
		t.Errorf("env secret did not win: %q", cfg.Credentials.JWTSecret)
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "journal.db"},
		Logging:  LoggingConfig{Level: "info"},
		Report:   ReportConfig{Timezone: "UTC"},
		Cache:    CacheConfig{Backend: "memory"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database path"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad cache", func(c *Config) { c.Cache.Backend = "memcached" }, "invalid cache backend"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }, "redis_addr"},
		{"bad timezone", func(c *Config) { c.Report.Timezone = "Mars/Olympus" }, "invalid report timezone"},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateServe(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateServe(); err == nil {
		t.Error("empty secret accepted")
	}
	cfg.Credentials.JWTSecret = "s3cret"
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe() error = %v", err)
	}
}
