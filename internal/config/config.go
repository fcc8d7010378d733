// Package config loads layered JSONC configuration: defaults, then the
// user-level file, then a workspace-level file, then environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/tidwall/jsonc"
)

// FileName is the configuration file name at both layers.
const FileName = "prping.jsonc"

// Load reads and merges configuration. Resolution order: built-in defaults,
// deep-merged with ~/.config/prping/prping.jsonc, then with
// <git root>/.prping/prping.jsonc, then environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if userPath := UserPath(); userPath != "" {
		if userMap, err := loadJSONC(userPath); err == nil {
			if err := mergeIntoConfig(&cfg, userMap); err != nil {
				return nil, fmt.Errorf("merging user config: %w", err)
			}
		}
	}

	if repoRoot := RepoRoot(); repoRoot != "" {
		repoPath := filepath.Join(repoRoot, ".prping", FileName)
		if repoMap, err := loadJSONC(repoPath); err == nil {
			if err := mergeIntoConfig(&cfg, repoMap); err != nil {
				return nil, fmt.Errorf("merging workspace config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// UserPath returns the user-level config file path, empty when the user
// config directory cannot be determined.
func UserPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "prping", FileName)
}

// loadJSONC reads a JSONC file and returns it as a map.
func loadJSONC(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// mergeIntoConfig marshals the config to a map, deep-merges the source map
// over it, then unmarshals back to the Config struct.
func mergeIntoConfig(cfg *Config, src map[string]any) error {
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var dst map[string]any
	if err := json.Unmarshal(cfgBytes, &dst); err != nil {
		return err
	}

	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return err
	}

	merged, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, cfg)
}

// RepoRoot returns the enclosing git repository root, or empty string when
// not inside one.
func RepoRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRPING_PROVIDER"); v != "" {
		cfg.Providers.Default = v
	}
	if v := os.Getenv("PRPING_ROOTS"); v != "" {
		cfg.Discovery.Roots = strings.Split(v, string(os.PathListSeparator))
	}
	if v := os.Getenv("PRPING_DB"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("PRPING_POLL_INTERVAL"); v != "" {
		cfg.Server.PollInterval = v
	}
	if v := os.Getenv("PRPING_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("PRPING_DAILY_URL"); v != "" {
		cfg.Daily.URL = v
	}
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
