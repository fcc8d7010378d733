package config

import "time"

// Config is the top-level prping configuration.
type Config struct {
	Providers ProvidersConfig `json:"providers"`
	Discovery DiscoveryConfig `json:"discovery"`
	Storage   StorageConfig   `json:"storage"`
	Server    ServerConfig    `json:"server"`
	Daily     DailyConfig     `json:"daily"`
	Notify    NotifyConfig    `json:"notify"`
}

// ProvidersConfig controls backend selection and subprocess behavior.
type ProvidersConfig struct {
	// Default forces a backend for every repository that has no per-repo
	// override. Empty means detect from the git remote.
	Default string `json:"default"`
	// CommandTimeout bounds each provider CLI invocation.
	CommandTimeout string `json:"command_timeout"`
}

// ParseCommandTimeout returns the CLI timeout as a duration.
func (p ProvidersConfig) ParseCommandTimeout() time.Duration {
	d, err := time.ParseDuration(p.CommandTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// DiscoveryConfig lists where repositories are discovered.
type DiscoveryConfig struct {
	// Roots are directories walked for git repositories.
	Roots []string `json:"roots"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `json:"path"`
}

// MinPollInterval is the floor the daemon clamps the tick interval to.
const MinPollInterval = time.Minute

// ServerConfig holds ingestion daemon settings.
type ServerConfig struct {
	// PollInterval is the inter-tick sleep; values under a minute are
	// clamped up to a minute.
	PollInterval string `json:"poll_interval"`
	// Port serves the local tool surface.
	Port int `json:"port"`
	// PIDDir holds the daemon pid and lock files.
	PIDDir string `json:"pid_dir"`
}

// ParsePollInterval returns the poll interval as a duration, clamped to
// MinPollInterval.
func (s ServerConfig) ParsePollInterval() time.Duration {
	d, err := time.ParseDuration(s.PollInterval)
	if err != nil {
		return 5 * time.Minute
	}
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// DailyConfig points at the optional daily-context endpoint.
type DailyConfig struct {
	// URL returns a markdown summary; empty disables the fetch.
	URL string `json:"url"`
}

// NotifyConfig holds outbound notification settings.
type NotifyConfig struct {
	// WebhookURL receives a JSON payload per notification; empty disables
	// webhooks (records are still persisted).
	WebhookURL string `json:"webhook_url"`
	// Events filters which notification kinds are forwarded. Empty means
	// all.
	Events []string `json:"events"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Providers: ProvidersConfig{
			CommandTimeout: "2m",
		},
		Discovery: DiscoveryConfig{
			Roots: []string{"~/src"},
		},
		Storage: StorageConfig{
			Path: "~/.local/share/prping/prping.db",
		},
		Server: ServerConfig{
			PollInterval: "5m",
			Port:         4098,
			PIDDir:       "~/.local/share/prping",
		},
	}
}
