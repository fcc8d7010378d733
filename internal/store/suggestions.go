package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReplacePendingFixSuggestions recomputes the pending suggestions for a PR:
// existing pending rows are deleted and the given set inserted in one
// transaction. Approved suggestions are never touched.
func (s *Store) ReplacePendingFixSuggestions(ctx context.Context, prID string, suggestions []FixSuggestion) error {
	tx, err := s.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fix_suggestions WHERE pr_id = ? AND status = ?`, prID, SuggestionPending); err != nil {
		return fmt.Errorf("delete pending suggestions for PR %s: %w", prID, err)
	}

	// An approved row can share an id with a freshly re-derived suggestion;
	// the existing row wins.
	const insert = `
		INSERT INTO fix_suggestions (id, pr_id, severity, status, summary, detail_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	for _, sg := range suggestions {
		status := sg.Status
		if status == "" {
			status = SuggestionPending
		}
		if _, err := tx.ExecContext(ctx, insert,
			sg.ID, prID, sg.Severity, status, sg.Summary, sg.DetailURL, formatTime(sg.CreatedAt)); err != nil {
			return fmt.Errorf("insert suggestion for PR %s: %w", prID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit suggestions for PR %s: %w", prID, err)
	}
	return nil
}

// ListPendingFixSuggestions returns pending suggestions, high severity first,
// newest within a severity.
func (s *Store) ListPendingFixSuggestions(ctx context.Context, limit int) ([]FixSuggestion, error) {
	const query = `
		SELECT id, pr_id, severity, status, summary, detail_url, created_at
		FROM fix_suggestions WHERE status = ?
		ORDER BY CASE severity WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at DESC
		LIMIT ?
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, SuggestionPending, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query pending suggestions: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// ListFixSuggestionsForPR returns every suggestion for a PR regardless of
// status.
func (s *Store) ListFixSuggestionsForPR(ctx context.Context, prID string) ([]FixSuggestion, error) {
	const query = `
		SELECT id, pr_id, severity, status, summary, detail_url, created_at
		FROM fix_suggestions WHERE pr_id = ? ORDER BY created_at
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, prID)
	if err != nil {
		return nil, fmt.Errorf("query suggestions for PR %s: %w", prID, err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// ApproveFixSuggestion marks the suggestion approved, taking it out of the
// replace-on-tick lifecycle. Returns false when no such suggestion exists.
func (s *Store) ApproveFixSuggestion(ctx context.Context, id string) (bool, error) {
	res, err := s.db.Writer.ExecContext(ctx,
		`UPDATE fix_suggestions SET status = ? WHERE id = ?`, SuggestionApproved, id)
	if err != nil {
		return false, fmt.Errorf("approve suggestion %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approve suggestion %s: %w", id, err)
	}
	return n > 0, nil
}

func scanSuggestions(rows *sql.Rows) ([]FixSuggestion, error) {
	var suggestions []FixSuggestion
	for rows.Next() {
		var sg FixSuggestion
		var createdAt string
		if err := rows.Scan(&sg.ID, &sg.PRID, &sg.Severity, &sg.Status, &sg.Summary, &sg.DetailURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		sg.CreatedAt = parseTime(createdAt)
		suggestions = append(suggestions, sg)
	}
	return suggestions, rows.Err()
}
