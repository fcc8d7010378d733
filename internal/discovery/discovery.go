// Package discovery walks configured root directories for version-controlled
// repositories and reads their optional per-repo settings documents.
package discovery

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
)

// DocName is the optional per-repository settings document, a markdown file
// with YAML frontmatter at the repository root.
const DocName = ".prping.md"

// maxDepth bounds the walk below each root so a misconfigured root pointing
// at / does not scan the whole disk.
const maxDepth = 4

// Repo is one discovered repository.
type Repo struct {
	// Path is the absolute repository root (the directory holding .git).
	Path string
	// Name is the repository directory name.
	Name string
	// Remote is the origin remote URL, empty when the repo has none.
	Remote string
	// Settings holds the parsed .prping.md frontmatter, zero when absent.
	Settings Settings
}

// Settings is the frontmatter schema of the per-repo document.
type Settings struct {
	// Provider overrides backend selection for this repository.
	Provider string `yaml:"provider"`
	// Roadmap links the repository to an external project-tracking id.
	Roadmap string `yaml:"roadmap"`
	// Ignore excludes the repository from ingestion entirely.
	Ignore bool `yaml:"ignore"`
}

// Scanner discovers repositories under a set of roots.
type Scanner struct {
	roots []string
	git   *cliexec.Runner
}

// NewScanner creates a scanner over the given root directories.
func NewScanner(roots []string, git *cliexec.Runner) *Scanner {
	return &Scanner{roots: roots, git: git}
}

// Discover walks every root and returns the repositories found, sorted by
// path. Repositories whose settings document sets ignore are skipped.
// Unreadable roots are logged and skipped rather than failing the scan.
func (s *Scanner) Discover(ctx context.Context) []Repo {
	var repos []Repo
	seen := make(map[string]bool)

	for _, root := range s.roots {
		root = expandHome(root)
		err := walkForGit(root, 0, func(dir string) {
			if seen[dir] {
				return
			}
			seen[dir] = true

			repo := Repo{Path: dir, Name: filepath.Base(dir)}
			repo.Settings = readSettings(dir)
			if repo.Settings.Ignore {
				slog.Debug("repository ignored by settings doc", "path", dir)
				return
			}
			repo.Remote = s.originRemote(ctx, dir)
			repos = append(repos, repo)
		})
		if err != nil {
			slog.Warn("skipping unreadable discovery root", "root", root, "error", err)
		}
	}

	sort.Slice(repos, func(i, j int) bool { return repos[i].Path < repos[j].Path })
	return repos
}

// walkForGit descends into dir looking for .git entries. A matched repository
// is not descended into further.
func walkForGit(dir string, depth int, found func(string)) error {
	if fi, err := os.Stat(filepath.Join(dir, ".git")); err == nil && (fi.IsDir() || fi.Mode().IsRegular()) {
		found(dir)
		return nil
	}
	if depth >= maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		// Nested errors are tolerated; one unreadable subtree should not
		// hide sibling repositories.
		if err := walkForGit(filepath.Join(dir, e.Name()), depth+1, found); err != nil {
			slog.Debug("unreadable directory during discovery", "dir", filepath.Join(dir, e.Name()), "error", err)
		}
	}
	return nil
}

// readSettings parses the repository's settings document, returning the zero
// value when the file is absent or malformed.
func readSettings(dir string) Settings {
	f, err := os.Open(filepath.Join(dir, DocName))
	if err != nil {
		return Settings{}
	}
	defer f.Close()

	var s Settings
	if _, err := frontmatter.Parse(f, &s); err != nil {
		slog.Warn("malformed settings document", "path", filepath.Join(dir, DocName), "error", err)
		return Settings{}
	}
	return s
}

func (s *Scanner) originRemote(ctx context.Context, dir string) string {
	out, err := s.git.Run(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		slog.Debug("repository has no origin remote", "path", dir)
		return ""
	}
	return strings.TrimSpace(string(out))
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
