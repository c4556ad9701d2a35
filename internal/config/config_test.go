package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.App.Env != "dev" || c.Server.Addr != ":8080" || c.Storage.Driver != "memory" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.JWT.Issuer != "uinbox" || c.JWT.AccessTTL.Std() != 15*time.Minute {
		t.Fatalf("jwt defaults: %+v", c.JWT)
	}
	if c.Rate.Login.Limit != 10 || c.Rate.Login.Window.Std() != time.Minute {
		t.Fatalf("rate defaults: %+v", c.Rate.Login)
	}
	if c.SMTP.Port != 587 || c.SMTP.TLS != "auto" {
		t.Fatalf("smtp defaults: %+v", c.SMTP)
	}
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  env: staging
server:
  addr: ":9090"
storage:
  driver: postgres
  dsn: postgres://yaml-dsn/uinbox
jwt:
  seed: una-seed-de-yaml-con-32-bytes-o-mas!
  access_ttl: 30m
rate:
  enabled: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	// el env pisa al yaml
	t.Setenv("UINBOX_ADDR", ":7070")
	t.Setenv("UINBOX_DATABASE_URL", "postgres://env-dsn/uinbox")
	t.Setenv("UINBOX_JWT_ACCESS_TTL", "45m")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.App.Env != "staging" {
		t.Errorf("env = %q", c.App.Env)
	}
	if c.Server.Addr != ":7070" {
		t.Errorf("addr = %q, env should win over yaml", c.Server.Addr)
	}
	if c.Storage.DSN != "postgres://env-dsn/uinbox" {
		t.Errorf("dsn = %q", c.Storage.DSN)
	}
	if c.JWT.AccessTTL.Std() != 45*time.Minute {
		t.Errorf("access_ttl = %v", c.JWT.AccessTTL)
	}
	if !c.Rate.Enabled {
		t.Error("rate.enabled lost")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		c.JWT.Seed = "una-seed-valida-de-al-menos-32-bytes"
		return c
	}

	if err := base().Validate(); err != nil {
		t.Errorf("memory driver should validate: %v", err)
	}

	c := base()
	c.Storage.Driver = "postgres"
	if err := c.Validate(); err == nil {
		t.Error("postgres without dsn should fail")
	}
	c.Storage.DSN = "postgres://localhost/uinbox"
	if err := c.Validate(); err != nil {
		t.Errorf("postgres with dsn: %v", err)
	}

	c = base()
	c.Storage.Driver = "cassandra"
	if err := c.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}

	c = base()
	c.JWT.Seed = ""
	if err := c.Validate(); err == nil {
		t.Error("empty seed should fail")
	}
	c.JWT.Seed = "corta"
	if err := c.Validate(); err == nil {
		t.Error("short seed should fail")
	}
}
