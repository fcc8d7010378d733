package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store exposes the persistence operations the daemon and tool surface use.
// All writes go through the single-connection writer; reads use the reader
// pool.
type Store struct {
	db *DB
}

// NewStore creates a Store over an open DB.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// UpsertRepo inserts or refreshes a repository row, keyed by its stable id.
func (s *Store) UpsertRepo(ctx context.Context, r Repo) error {
	const query = `
		INSERT INTO repos (id, path, name, remote, provider, roadmap, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			remote = excluded.remote,
			provider = excluded.provider,
			roadmap = excluded.roadmap,
			last_seen = excluded.last_seen
	`
	_, err := s.db.Writer.ExecContext(ctx, query,
		r.ID, r.Path, r.Name, r.Remote, r.Provider, r.Roadmap, formatTime(r.LastSeen))
	if err != nil {
		return fmt.Errorf("upsert repo %s: %w", r.Path, err)
	}
	return nil
}

// ListRepos returns repositories ordered by path, at most limit rows.
func (s *Store) ListRepos(ctx context.Context, limit int) ([]Repo, error) {
	const query = `
		SELECT id, path, name, remote, provider, roadmap, last_seen
		FROM repos ORDER BY path LIMIT ?
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query repos: %w", err)
	}
	defer rows.Close()

	var repos []Repo
	for rows.Next() {
		var r Repo
		var lastSeen string
		if err := rows.Scan(&r.ID, &r.Path, &r.Name, &r.Remote, &r.Provider, &r.Roadmap, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}
		r.LastSeen = parseTime(lastSeen)
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// UpsertPullRequest inserts or refreshes a PR row, keyed by its stable id.
func (s *Store) UpsertPullRequest(ctx context.Context, pr PullRequestRecord) error {
	const query = `
		INSERT INTO pull_requests (id, repo_id, number, title, state, author, url, provider, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			state = excluded.state,
			author = excluded.author,
			url = excluded.url,
			provider = excluded.provider,
			fetched_at = excluded.fetched_at
	`
	_, err := s.db.Writer.ExecContext(ctx, query,
		pr.ID, pr.RepoID, pr.Number, pr.Title, pr.State, pr.Author, pr.URL, pr.Provider,
		formatTime(pr.FetchedAt))
	if err != nil {
		return fmt.Errorf("upsert pull request %s#%d: %w", pr.RepoID, pr.Number, err)
	}
	return nil
}

// ListPullRequests returns PRs ordered by most recently fetched.
func (s *Store) ListPullRequests(ctx context.Context, limit int) ([]PullRequestRecord, error) {
	const query = `
		SELECT id, repo_id, number, title, state, author, url, provider, fetched_at
		FROM pull_requests ORDER BY fetched_at DESC LIMIT ?
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()
	return scanPullRequests(rows)
}

// GetPullRequest returns the PR row with the given stable id, or nil when it
// does not exist.
func (s *Store) GetPullRequest(ctx context.Context, id string) (*PullRequestRecord, error) {
	const query = `
		SELECT id, repo_id, number, title, state, author, url, provider, fetched_at
		FROM pull_requests WHERE id = ?
	`
	var pr PullRequestRecord
	var fetchedAt string
	err := s.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&pr.ID, &pr.RepoID, &pr.Number, &pr.Title, &pr.State, &pr.Author, &pr.URL, &pr.Provider, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pull request %s: %w", id, err)
	}
	pr.FetchedAt = parseTime(fetchedAt)
	return &pr, nil
}

func scanPullRequests(rows *sql.Rows) ([]PullRequestRecord, error) {
	var prs []PullRequestRecord
	for rows.Next() {
		var pr PullRequestRecord
		var fetchedAt string
		if err := rows.Scan(&pr.ID, &pr.RepoID, &pr.Number, &pr.Title, &pr.State, &pr.Author, &pr.URL, &pr.Provider, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		pr.FetchedAt = parseTime(fetchedAt)
		prs = append(prs, pr)
	}
	return prs, rows.Err()
}

// normalizeLimit clamps nonpositive limits to a generous default so callers
// can pass zero for "no particular limit" without unbounded result sets.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 500
	}
	return limit
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
