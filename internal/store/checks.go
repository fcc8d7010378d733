package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReplaceCheckRunsForPR atomically replaces all check runs for a PR in one
// transaction.
func (s *Store) ReplaceCheckRunsForPR(ctx context.Context, prID string, runs []CheckRun) error {
	tx, err := s.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM check_runs WHERE pr_id = ?`, prID); err != nil {
		return fmt.Errorf("delete check runs for PR %s: %w", prID, err)
	}

	const insert = `
		INSERT INTO check_runs (id, pr_id, name, status, conclusion, url, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, run := range runs {
		var completedAt any
		if !run.CompletedAt.IsZero() {
			completedAt = formatTime(run.CompletedAt)
		}
		if _, err := tx.ExecContext(ctx, insert,
			run.ID, prID, run.Name, run.Status, run.Conclusion, run.URL, completedAt); err != nil {
			return fmt.Errorf("insert check run %s for PR %s: %w", run.Name, prID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit check runs for PR %s: %w", prID, err)
	}
	return nil
}

// ListCheckRunsForPR returns a PR's check runs ordered by name.
func (s *Store) ListCheckRunsForPR(ctx context.Context, prID string) ([]CheckRun, error) {
	const query = `
		SELECT id, pr_id, name, status, conclusion, url, completed_at
		FROM check_runs WHERE pr_id = ? ORDER BY name
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, prID)
	if err != nil {
		return nil, fmt.Errorf("query check runs for PR %s: %w", prID, err)
	}
	defer rows.Close()
	return scanCheckRuns(rows)
}

// ListFailingChecks returns check runs whose conclusion is terminal and not a
// success, most recently completed first.
func (s *Store) ListFailingChecks(ctx context.Context, limit int) ([]CheckRun, error) {
	const query = `
		SELECT id, pr_id, name, status, conclusion, url, completed_at
		FROM check_runs
		WHERE conclusion NOT IN ('', 'success', 'SUCCESS', 'neutral', 'skipped')
		ORDER BY completed_at DESC LIMIT ?
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query failing checks: %w", err)
	}
	defer rows.Close()
	return scanCheckRuns(rows)
}

func scanCheckRuns(rows *sql.Rows) ([]CheckRun, error) {
	var runs []CheckRun
	for rows.Next() {
		var run CheckRun
		var completedAt sql.NullString
		if err := rows.Scan(&run.ID, &run.PRID, &run.Name, &run.Status, &run.Conclusion, &run.URL, &completedAt); err != nil {
			return nil, fmt.Errorf("scan check run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = parseTime(completedAt.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
