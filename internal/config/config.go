// Package config resolves the database and site parameters wpmcp connects
// with. Resolution order: explicit config file, Local site auto-detection,
// environment variable fallback.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the wpmcp configuration file.
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the wpmcp configuration directory under the
// user's home directory.
const ConfigDirName = ".wpmcp"

// Params holds everything needed to reach one WordPress site: the MySQL
// connection parameters and the site's filesystem root for WP-CLI.
type Params struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Socket   string `yaml:"socket"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SitePath string `yaml:"site_path"`
	Timezone string `yaml:"timezone"`

	// MultiStatements is always false: the client accepts exactly one
	// statement per query and the driver must enforce the same.
	MultiStatements bool `yaml:"-"`
}

// ErrConfigNotFound is returned when no config file can be found.
var ErrConfigNotFound = errors.New("config file not found")

// Load resolves connection parameters for the named database. An explicit
// config file wins; otherwise Local auto-detection; otherwise environment
// variables. Only detection failures are recovered here — a malformed
// config file is an error the caller must see.
func Load(database string) (*Params, error) {
	params, err := LoadFromPath(DefaultConfigPath())
	if err == nil {
		if database != "" {
			params.Database = database
		}
		return params, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	params, err = Detect(database)
	if err == nil {
		return params, nil
	}
	if !errors.Is(err, ErrSiteNotFound) {
		return nil, err
	}

	return FromEnv(database), nil
}

// LoadFromPath reads connection parameters from a YAML file. Missing file
// maps to ErrConfigNotFound so callers can fall through to detection.
func LoadFromPath(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	params := &Params{}
	if err := yaml.Unmarshal(data, params); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(params)
	return params, nil
}

// DefaultConfigPath returns ~/.wpmcp/config.yaml, or the path named by
// WPMCP_CONFIG when set.
func DefaultConfigPath() string {
	if p := os.Getenv("WPMCP_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ConfigDirName, ConfigFileName)
	}
	return filepath.Join(home, ConfigDirName, ConfigFileName)
}

// StateDir returns the directory for runtime state (PID file). Creates it
// if needed.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	return dir, nil
}

// FromEnv builds fallback parameters from WPMCP_DB_* environment variables.
// It never fails: unset variables get defaults suitable for a stock local
// MySQL.
func FromEnv(database string) *Params {
	params := &Params{
		Host:     envOr("WPMCP_DB_HOST", "127.0.0.1"),
		Port:     envIntOr("WPMCP_DB_PORT", 3306),
		Socket:   os.Getenv("WPMCP_DB_SOCKET"),
		User:     envOr("WPMCP_DB_USER", "root"),
		Password: envOr("WPMCP_DB_PASSWORD", "root"),
		Database: database,
		SitePath: os.Getenv("WPMCP_SITE_PATH"),
	}
	if params.Database == "" {
		params.Database = envOr("WPMCP_DB_NAME", "local")
	}
	applyDefaults(params)
	return params
}

func applyDefaults(params *Params) {
	if params.Host == "" && params.Socket == "" {
		params.Host = "127.0.0.1"
	}
	if params.Port == 0 {
		params.Port = 3306
	}
	if params.Timezone == "" {
		params.Timezone = "UTC"
	}
	params.MultiStatements = false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}
