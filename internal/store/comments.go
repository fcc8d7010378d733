package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReplaceCommentsForPR atomically replaces the flattened comment projection
// for a PR.
func (s *Store) ReplaceCommentsForPR(ctx context.Context, prID string, comments []PRComment) error {
	tx, err := s.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pr_comments WHERE pr_id = ?`, prID); err != nil {
		return fmt.Errorf("delete comments for PR %s: %w", prID, err)
	}

	const insert = `
		INSERT INTO pr_comments (id, pr_id, source_id, kind, author, body, path, line, thread_id, is_resolved, created_at, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, c := range comments {
		var line, resolved any
		if c.Line != nil {
			line = *c.Line
		}
		if c.IsResolved != nil {
			resolved = boolToInt(*c.IsResolved)
		}
		if _, err := tx.ExecContext(ctx, insert,
			c.ID, prID, c.SourceID, c.Kind, c.Author, c.Body, c.Path, line, c.ThreadID, resolved, c.CreatedAt, c.URL); err != nil {
			return fmt.Errorf("insert comment %s for PR %s: %w", c.SourceID, prID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit comments for PR %s: %w", prID, err)
	}
	return nil
}

// ListCommentsForPR returns the flattened comments for a PR in creation
// order.
func (s *Store) ListCommentsForPR(ctx context.Context, prID string) ([]PRComment, error) {
	const query = `
		SELECT id, pr_id, source_id, kind, author, body, path, line, thread_id, is_resolved, created_at, url
		FROM pr_comments WHERE pr_id = ? ORDER BY created_at, source_id
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, prID)
	if err != nil {
		return nil, fmt.Errorf("query comments for PR %s: %w", prID, err)
	}
	defer rows.Close()
	return scanComments(rows)
}

// ListUnresolvedComments returns inline comments explicitly marked
// unresolved, newest first. Comments with unknown resolution are excluded;
// only a provider's positive signal makes a comment actionable here.
func (s *Store) ListUnresolvedComments(ctx context.Context, limit int) ([]PRComment, error) {
	const query = `
		SELECT id, pr_id, source_id, kind, author, body, path, line, thread_id, is_resolved, created_at, url
		FROM pr_comments WHERE is_resolved = 0
		ORDER BY created_at DESC LIMIT ?
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query unresolved comments: %w", err)
	}
	defer rows.Close()
	return scanComments(rows)
}

func scanComments(rows *sql.Rows) ([]PRComment, error) {
	var comments []PRComment
	for rows.Next() {
		var c PRComment
		var line sql.NullInt64
		var resolved sql.NullInt64
		if err := rows.Scan(&c.ID, &c.PRID, &c.SourceID, &c.Kind, &c.Author, &c.Body, &c.Path, &line, &c.ThreadID, &resolved, &c.CreatedAt, &c.URL); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if line.Valid {
			n := int(line.Int64)
			c.Line = &n
		}
		if resolved.Valid {
			b := resolved.Int64 != 0
			c.IsResolved = &b
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
