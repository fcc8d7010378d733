package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRepo(t *testing.T, root string, parts ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	return dir
}

func newScanner(roots ...string) *Scanner {
	return NewScanner(roots, cliexec.NewRunner("git", 0))
}

func TestDiscoverFindsNestedRepos(t *testing.T) {
	root := t.TempDir()
	a := makeRepo(t, root, "a")
	b := makeRepo(t, root, "group", "b")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-repo"), 0o755))

	repos := newScanner(root).Discover(context.Background())

	require.Len(t, repos, 2)
	assert.Equal(t, a, repos[0].Path)
	assert.Equal(t, "a", repos[0].Name)
	assert.Equal(t, b, repos[1].Path)
}

func TestDiscoverStopsAtRepoBoundary(t *testing.T) {
	root := t.TempDir()
	outer := makeRepo(t, root, "outer")
	// A submodule-like nested repo must not be discovered separately.
	makeRepo(t, root, "outer", "vendorized")

	repos := newScanner(root).Discover(context.Background())

	require.Len(t, repos, 1)
	assert.Equal(t, outer, repos[0].Path)
}

func TestDiscoverReadsSettingsDoc(t *testing.T) {
	root := t.TempDir()
	dir := makeRepo(t, root, "svc")
	doc := "---\nprovider: gitlab\nroadmap: PLAT-7\n---\n\n# Notes\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DocName), []byte(doc), 0o644))

	repos := newScanner(root).Discover(context.Background())

	require.Len(t, repos, 1)
	assert.Equal(t, "gitlab", repos[0].Settings.Provider)
	assert.Equal(t, "PLAT-7", repos[0].Settings.Roadmap)
}

func TestDiscoverHonorsIgnore(t *testing.T) {
	root := t.TempDir()
	makeRepo(t, root, "kept")
	ignored := makeRepo(t, root, "ignored")
	doc := "---\nignore: true\n---\n"
	require.NoError(t, os.WriteFile(filepath.Join(ignored, DocName), []byte(doc), 0o644))

	repos := newScanner(root).Discover(context.Background())

	require.Len(t, repos, 1)
	assert.Equal(t, "kept", repos[0].Name)
}

func TestDiscoverMissingRoot(t *testing.T) {
	repos := newScanner(filepath.Join(t.TempDir(), "nope")).Discover(context.Background())
	assert.Empty(t, repos)
}

func TestDiscoverDeduplicatesOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	makeRepo(t, root, "a")

	repos := newScanner(root, root).Discover(context.Background())
	assert.Len(t, repos, 1)
}
