package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.Providers.Default)
	assert.Equal(t, 2*time.Minute, cfg.Providers.ParseCommandTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Server.ParsePollInterval())
	assert.NotEmpty(t, cfg.Storage.Path)
}

func TestParsePollIntervalClamp(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		want     time.Duration
	}{
		{"normal", "10m", 10 * time.Minute},
		{"below floor", "5s", time.Minute},
		{"exactly floor", "1m", time.Minute},
		{"garbage falls back", "often", 5 * time.Minute},
		{"empty falls back", "", 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ServerConfig{PollInterval: tt.interval}
			assert.Equal(t, tt.want, s.ParsePollInterval())
		})
	}
}

func TestParseCommandTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, ProvidersConfig{CommandTimeout: "30s"}.ParseCommandTimeout())
	assert.Equal(t, 2*time.Minute, ProvidersConfig{CommandTimeout: "-5s"}.ParseCommandTimeout())
	assert.Equal(t, 2*time.Minute, ProvidersConfig{}.ParseCommandTimeout())
}

func TestMergeIntoConfig(t *testing.T) {
	cfg := DefaultConfig()

	err := mergeIntoConfig(&cfg, map[string]any{
		"providers": map[string]any{"default": "gitlab"},
		"discovery": map[string]any{"roots": []any{"/work", "/oss"}},
	})
	require.NoError(t, err)

	// Overridden keys change, untouched keys keep their defaults.
	assert.Equal(t, "gitlab", cfg.Providers.Default)
	assert.Equal(t, []string{"/work", "/oss"}, cfg.Discovery.Roots)
	assert.Equal(t, "2m", cfg.Providers.CommandTimeout)
	assert.Equal(t, "5m", cfg.Server.PollInterval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PRPING_PROVIDER", "azure")
	t.Setenv("PRPING_DB", "/tmp/x.db")
	t.Setenv("PRPING_POLL_INTERVAL", "3m")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "azure", cfg.Providers.Default)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.Path)
	assert.Equal(t, 3*time.Minute, cfg.Server.ParsePollInterval())
}

func TestJSONCComments(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prping.jsonc"
	content := `{
		// force a backend
		"providers": {"default": "github"},
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := loadJSONC(path)
	require.NoError(t, err)

	cfg := DefaultConfig()
	require.NoError(t, mergeIntoConfig(&cfg, m))
	assert.Equal(t, "github", cfg.Providers.Default)
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	expanded := ExpandPath("~/x")
	assert.NotEqual(t, "~/x", expanded)
	assert.Contains(t, expanded, "/x")
}
