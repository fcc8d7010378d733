package store

import (
	"context"
	"fmt"
)

// UpsertRoadmapMapping associates a repository with a roadmap identifier,
// replacing any previous association for that repository.
func (s *Store) UpsertRoadmapMapping(ctx context.Context, m RoadmapMapping) error {
	const query = `
		INSERT INTO roadmap_mappings (id, repo_id, roadmap)
		VALUES (?, ?, ?)
		ON CONFLICT(repo_id) DO UPDATE SET
			id = excluded.id,
			roadmap = excluded.roadmap
	`
	_, err := s.db.Writer.ExecContext(ctx, query, m.ID, m.RepoID, m.Roadmap)
	if err != nil {
		return fmt.Errorf("upsert roadmap mapping for repo %s: %w", m.RepoID, err)
	}
	return nil
}

// DeleteRoadmapMapping removes a repository's roadmap association, if any.
func (s *Store) DeleteRoadmapMapping(ctx context.Context, repoID string) error {
	_, err := s.db.Writer.ExecContext(ctx, `DELETE FROM roadmap_mappings WHERE repo_id = ?`, repoID)
	if err != nil {
		return fmt.Errorf("delete roadmap mapping for repo %s: %w", repoID, err)
	}
	return nil
}

// RoadmapAggregates rolls up repo, open-PR, and pending-fix counts per
// roadmap identifier.
func (s *Store) RoadmapAggregates(ctx context.Context, limit int) ([]RoadmapAggregate, error) {
	const query = `
		SELECT m.roadmap,
		       COUNT(DISTINCT m.repo_id),
		       COUNT(DISTINCT p.id),
		       COUNT(DISTINCT f.id)
		FROM roadmap_mappings m
		LEFT JOIN pull_requests p ON p.repo_id = m.repo_id
		LEFT JOIN fix_suggestions f ON f.pr_id = p.id AND f.status = 'pending'
		GROUP BY m.roadmap
		ORDER BY m.roadmap
		LIMIT ?
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query roadmap aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []RoadmapAggregate
	for rows.Next() {
		var a RoadmapAggregate
		if err := rows.Scan(&a.Roadmap, &a.RepoCount, &a.OpenPRCount, &a.PendingFixCount); err != nil {
			return nil, fmt.Errorf("scan roadmap aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}
