package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Env != "local" {
		t.Errorf("env: got %q", cfg.App.Env)
	}
	if cfg.App.HTTPAddr != ":8000" {
		t.Errorf("http addr: got %q", cfg.App.HTTPAddr)
	}
	if cfg.App.AccessTokenTTL != 30*time.Second {
		t.Errorf("access ttl: got %v", cfg.App.AccessTokenTTL)
	}
	if cfg.App.SessionTokenTTL != 10*time.Hour {
		t.Errorf("session ttl: got %v", cfg.App.SessionTokenTTL)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("redis must default to disabled, got %q", cfg.Redis.Addr)
	}
	if cfg.Security.JWTSecret == "" {
		t.Errorf("dev secret must be set by default")
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `{
  "app": {
    "env": "local",
    "log_level": "debug",
    "http_addr": ":9000",
    "access_token_ttl": "45s",
    "session_token_ttl": "2h"
  },
  "mysql": {
    "dsn": "user:pass@tcp(db:3306)/helpdesk?parseTime=true"
  },
  "security": {
    "jwt_secret": "file-secret"
  }
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.LogLevel != "debug" {
		t.Errorf("log level: got %q", cfg.App.LogLevel)
	}
	if cfg.App.HTTPAddr != ":9000" {
		t.Errorf("http addr: got %q", cfg.App.HTTPAddr)
	}
	if cfg.App.AccessTokenTTL != 45*time.Second {
		t.Errorf("access ttl: got %v", cfg.App.AccessTokenTTL)
	}
	if cfg.App.SessionTokenTTL != 2*time.Hour {
		t.Errorf("session ttl: got %v", cfg.App.SessionTokenTTL)
	}
	if cfg.MySQL.DSN != "user:pass@tcp(db:3306)/helpdesk?parseTime=true" {
		t.Errorf("dsn: got %q", cfg.MySQL.DSN)
	}
	if cfg.Security.JWTSecret != "file-secret" {
		t.Errorf("secret: got %q", cfg.Security.JWTSecret)
	}
	// Fields absent from the file keep their defaults.
	if cfg.App.RateLimit != 3 {
		t.Errorf("rate limit default: got %v", cfg.App.RateLimit)
	}
	if cfg.Email.SMTPPort != 587 {
		t.Errorf("smtp port default: got %d", cfg.Email.SMTPPort)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfigFile(t, `{"app": {"access_token_ttl": "soon"}}`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for bad duration string")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "env-secret")
	t.Setenv("PORT", "3500")
	t.Setenv("APP_SESSION_TOKEN_TTL", "1h")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Security.JWTSecret != "env-secret" {
		t.Errorf("secret: got %q", cfg.Security.JWTSecret)
	}
	if cfg.App.HTTPAddr != ":3500" {
		t.Errorf("http addr: got %q", cfg.App.HTTPAddr)
	}
	if cfg.App.SessionTokenTTL != time.Hour {
		t.Errorf("session ttl: got %v", cfg.App.SessionTokenTTL)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Errorf("redis addr: got %q", cfg.Redis.Addr)
	}
}

func TestLoad_DBEnvRecomposesDSN(t *testing.T) {
	t.Setenv("DB_HOST", "mysql.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USER", "helpdesk")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_NAME", "helpdesk_prod")
	t.Setenv("ACCESS_TOKEN_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	dsn := cfg.MySQL.DSN
	for _, want := range []string{"mysql.internal:3307", "helpdesk:s3cret@", "/helpdesk_prod"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestLoad_ProdRejectsDefaultSecret(t *testing.T) {
	t.Setenv("APP_ENV", "prod")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error: prod must not run on the dev secret")
	}
}

func TestAppConfig_MarshalRoundtrip(t *testing.T) {
	in := AppConfig{
		Env:             "local",
		LogLevel:        "info",
		HTTPAddr:        ":8000",
		AccessTokenTTL:  30 * time.Second,
		SessionTokenTTL: 10 * time.Hour,
	}
	data, err := in.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out AppConfig
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.AccessTokenTTL != in.AccessTokenTTL || out.SessionTokenTTL != in.SessionTokenTTL {
		t.Fatalf("ttl mismatch: %+v", out)
	}
}
