package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matgreaves/sitectl/internal/spec"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitectl.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
site:
  name: crm.example.com
  config:
    cache_endpoint: redis://cache:6379
    queue_endpoint: redis://queue:6379
    realtime_endpoint: ws://realtime:9000
    database_host: db
    database_port: "5432"
credentials:
  db_root_password: root-pw
  admin_password: admin-pw
stack:
  project: crm
readiness:
  timeout: 30s
  interval: 500ms
  targets:
    database: postgres://db:5432
    cache: redis://cache:6379
    backend: http://backend:8000
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Site.Name != "crm.example.com" {
		t.Errorf("site name = %q", cfg.Site.Name)
	}
	if got := cfg.Site.Config[spec.KeyCacheEndpoint]; got != "redis://cache:6379" {
		t.Errorf("cache_endpoint = %q", got)
	}
	if cfg.Credentials.DBRootPassword.Reveal() != "root-pw" {
		t.Error("db root password not loaded")
	}
	if cfg.Stack.Project != "crm" {
		t.Errorf("project = %q", cfg.Stack.Project)
	}
	if cfg.Stack.AdminBin != "bench" {
		t.Errorf("admin_bin default = %q", cfg.Stack.AdminBin)
	}
	if cfg.Readiness.Timeout != 30*time.Second || cfg.Readiness.Interval != 500*time.Millisecond {
		t.Errorf("readiness timing = %v / %v", cfg.Readiness.Timeout, cfg.Readiness.Interval)
	}

	// Targets are sorted by service name.
	var services []string
	for _, tgt := range cfg.Readiness.Targets {
		services = append(services, tgt.Service)
	}
	if strings.Join(services, ",") != "backend,cache,database" {
		t.Errorf("target order = %v", services)
	}
	if cfg.Readiness.Targets[2].Endpoint.Scheme != spec.Postgres {
		t.Errorf("database target scheme = %q", cfg.Readiness.Targets[2].Endpoint.Scheme)
	}
}

func TestLoad_RejectsSchemelessEndpoint(t *testing.T) {
	bad := strings.Replace(validYAML, "redis://cache:6379", "cache:6379", 1)
	_, err := Load(writeConfig(t, bad))
	if err == nil || !strings.Contains(err.Error(), "missing scheme") {
		t.Fatalf("Load() error = %v, want scheme rejection", err)
	}
}

func TestLoad_RejectsSchemelessTarget(t *testing.T) {
	bad := strings.Replace(validYAML, "postgres://db:5432", "db:5432", 1)
	_, err := Load(writeConfig(t, bad))
	if err == nil || !strings.Contains(err.Error(), "missing scheme") {
		t.Fatalf("Load() error = %v, want scheme rejection", err)
	}
}

func TestLoad_GeneratesMissingCredentials(t *testing.T) {
	body := strings.Replace(validYAML, "db_root_password: root-pw", "db_root_password: \"\"", 1)
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Credentials.DBRootPassword.IsZero() {
		t.Error("missing credential was not generated")
	}
	if cfg.Credentials.AdminPassword.Reveal() != "admin-pw" {
		t.Error("supplied credential was overwritten")
	}
}

func TestLoad_EnvironmentOverridesSecrets(t *testing.T) {
	t.Setenv("SITECTL_DB_ROOT_PASSWORD", "from-env")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Credentials.DBRootPassword.Reveal() != "from-env" {
		t.Errorf("db root password = %q, want env override", cfg.Credentials.DBRootPassword.Reveal())
	}
}
