package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("WPMCP_DB_HOST", "")
	t.Setenv("WPMCP_DB_PORT", "")
	t.Setenv("WPMCP_DB_USER", "")
	t.Setenv("WPMCP_DB_PASSWORD", "")
	t.Setenv("WPMCP_DB_NAME", "")

	params := FromEnv("mydb")

	if params.Host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", params.Host)
	}
	if params.Port != 3306 {
		t.Errorf("port = %d, want 3306", params.Port)
	}
	if params.User != "root" || params.Password != "root" {
		t.Errorf("credentials = %q/%q, want root/root", params.User, params.Password)
	}
	if params.Database != "mydb" {
		t.Errorf("database = %q, want mydb", params.Database)
	}
	if params.MultiStatements {
		t.Error("MultiStatements must be false")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("WPMCP_DB_HOST", "db.internal")
	t.Setenv("WPMCP_DB_PORT", "3307")
	t.Setenv("WPMCP_DB_USER", "wp")
	t.Setenv("WPMCP_DB_PASSWORD", "hunter2")
	t.Setenv("WPMCP_DB_NAME", "wordpress")

	params := FromEnv("")

	if params.Host != "db.internal" {
		t.Errorf("host = %q, want db.internal", params.Host)
	}
	if params.Port != 3307 {
		t.Errorf("port = %d, want 3307", params.Port)
	}
	if params.Database != "wordpress" {
		t.Errorf("database = %q, want wordpress", params.Database)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "socket: /tmp/mysqld.sock\nuser: wp\npassword: pw\ndatabase: wordpress\nsite_path: /srv/wp\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	params, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath error: %v", err)
	}
	if params.Socket != "/tmp/mysqld.sock" {
		t.Errorf("socket = %q", params.Socket)
	}
	if params.SitePath != "/srv/wp" {
		t.Errorf("site path = %q", params.SitePath)
	}
	if params.Port != 3306 {
		t.Errorf("port default not applied: %d", params.Port)
	}
	if params.Timezone != "UTC" {
		t.Errorf("timezone default not applied: %q", params.Timezone)
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadFromPath = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	// No config file, no Local installation: Load must still produce
	// usable parameters.
	t.Setenv("WPMCP_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("LOCAL_DATA_DIR", t.TempDir())
	t.Setenv("WPMCP_DB_NAME", "")

	params, err := Load("fallbackdb")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if params.Database != "fallbackdb" {
		t.Errorf("database = %q, want fallbackdb", params.Database)
	}
	if params.Host == "" {
		t.Error("expected a default host")
	}
}
