package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// ErrSiteNotFound is returned when no Local site matches the requested
// database, or when the match is ambiguous. Callers recover by falling back
// to explicit configuration.
var ErrSiteNotFound = errors.New("no matching Local site found")

// localSite mirrors one entry in Local's sites.json.
type localSite struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	MySQL struct {
		Database string `json:"database"`
		User     string `json:"user"`
		Password string `json:"password"`
	} `json:"mysql"`
}

// Detect locates a Local (localwp.com) site and returns its connection
// parameters. With a database name it requires exactly one site whose
// database matches; with an empty name it requires exactly one site total.
// Zero candidates and ambiguous candidates both fail with ErrSiteNotFound.
func Detect(database string) (*Params, error) {
	dataDir, err := localDataDir()
	if err != nil {
		return nil, err
	}

	sites, err := readSites(filepath.Join(dataDir, "sites.json"))
	if err != nil {
		return nil, err
	}

	var candidates []localSite
	for _, site := range sites {
		if database == "" || site.MySQL.Database == database {
			candidates = append(candidates, site)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: database %q", ErrSiteNotFound, database)
	case 1:
		return siteParams(dataDir, candidates[0]), nil
	default:
		names := make([]string, len(candidates))
		for i, site := range candidates {
			names[i] = site.Name
		}
		sort.Strings(names)
		return nil, fmt.Errorf("%w: ambiguous match (%s)", ErrSiteNotFound, strings.Join(names, ", "))
	}
}

// localDataDir returns Local's data directory. LOCAL_DATA_DIR overrides the
// platform default.
func localDataDir() (string, error) {
	if dir := os.Getenv("LOCAL_DATA_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSiteNotFound, err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Local"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Local"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "Local"), nil
	default:
		return filepath.Join(home, ".config", "Local"), nil
	}
}

func readSites(path string) (map[string]localSite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrSiteNotFound, path)
		}
		return nil, fmt.Errorf("reading sites file: %w", err)
	}

	sites := make(map[string]localSite)
	if err := json.Unmarshal(data, &sites); err != nil {
		return nil, fmt.Errorf("parsing sites file: %w", err)
	}
	return sites, nil
}

func siteParams(dataDir string, site localSite) *Params {
	params := &Params{
		Socket:   filepath.Join(dataDir, "run", site.ID, "mysql", "mysqld.sock"),
		User:     site.MySQL.User,
		Password: site.MySQL.Password,
		Database: site.MySQL.Database,
		SitePath: filepath.Join(expandHome(site.Path), "app", "public"),
	}
	applyDefaults(params)
	return params
}

// expandHome resolves the "~/" prefix Local uses in site paths.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
