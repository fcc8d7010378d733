package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
	"github.com/promptping-ai/pull-request-ping/internal/config"
	"github.com/promptping-ai/pull-request-ping/internal/discovery"
	"github.com/promptping-ai/pull-request-ping/internal/model"
	"github.com/promptping-ai/pull-request-ping/internal/provider"
	"github.com/promptping-ai/pull-request-ping/internal/store"
)

// Ingester runs the periodic discover-fetch-persist cycle. Each tick walks
// every discovered repository independently: one repository failing (CLI
// missing, no open PR, network flake) never aborts the others.
type Ingester struct {
	cfg      *config.Config
	store    *store.Store
	registry *provider.Registry
	scanner  *discovery.Scanner
	notifier *Notifier
	daily    *DailyFetcher

	now func() time.Time
}

// NewIngester wires the ingestion loop over its collaborators.
func NewIngester(cfg *config.Config, st *store.Store, reg *provider.Registry, sc *discovery.Scanner, n *Notifier, d *DailyFetcher) *Ingester {
	return &Ingester{
		cfg:      cfg,
		store:    st,
		registry: reg,
		scanner:  sc,
		notifier: n,
		daily:    d,
		now:      time.Now,
	}
}

// RunLoop ticks immediately, then on every poll interval or poll trigger,
// until the context is cancelled.
func (ing *Ingester) RunLoop(ctx context.Context) error {
	interval := ing.cfg.Server.ParsePollInterval()
	slog.Info("ingestion loop started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ing.Tick(ctx); err != nil {
			slog.Error("ingestion tick failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("ingestion loop stopped")
			return nil
		case <-ticker.C:
		case <-pollTrigger:
			slog.Debug("immediate poll triggered")
		}
	}
}

// Tick runs one full ingestion cycle: discover repositories, ingest each
// one, then refresh the daily context if due.
func (ing *Ingester) Tick(ctx context.Context) error {
	start := ing.now()

	repos := ing.scanner.Discover(ctx)
	slog.Debug("discovery complete", "repos", len(repos))

	for _, r := range repos {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := ing.ingestRepo(ctx, r, start); err != nil {
			slog.Warn("repository ingest failed", "repo", r.Path, "error", err)
		}
	}

	if err := ing.daily.MaybeFetch(ctx, ing.now()); err != nil {
		slog.Warn("daily context refresh failed", "error", err)
	}

	slog.Info("ingestion tick complete", "repos", len(repos), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (ing *Ingester) ingestRepo(ctx context.Context, r discovery.Repo, now time.Time) error {
	repoID := store.StableID(r.Path)

	err := ing.store.UpsertRepo(ctx, store.Repo{
		ID:       repoID,
		Path:     r.Path,
		Name:     r.Name,
		Remote:   r.Remote,
		Provider: r.Settings.Provider,
		Roadmap:  r.Settings.Roadmap,
		LastSeen: now,
	})
	if err != nil {
		return err
	}

	if err := ing.syncRoadmap(ctx, repoID, r.Settings.Roadmap); err != nil {
		return err
	}

	override := r.Settings.Provider
	if override == "" {
		override = ing.cfg.Providers.Default
	}
	backend, err := ing.registry.Select(r.Remote, override)
	if err != nil {
		return fmt.Errorf("selecting backend: %w", err)
	}

	ref := provider.Ref{Dir: r.Path}
	pr, err := backend.FetchPR(ctx, ref)
	if err != nil {
		if fetchErrorIsNoisy(err) {
			// A missing CLI or a command that exited non-zero is an
			// operator problem, not the quiet no-PR outcome.
			slog.Warn("fetching PR failed", "repo", r.Path, "backend", backend.Name(), "error", err)
			return nil
		}
		// Most repos have no open PR on the checked-out branch; that is
		// the quiet path, not an error worth surfacing per tick.
		slog.Debug("no PR fetched", "repo", r.Path, "backend", backend.Name(), "error", err)
		return nil
	}

	number := 0
	if pr.Number != nil {
		number = *pr.Number
	}
	prID := store.StableID(r.Path, strconv.Itoa(number))

	err = ing.store.UpsertPullRequest(ctx, store.PullRequestRecord{
		ID:        prID,
		RepoID:    repoID,
		Number:    number,
		Title:     pr.Title,
		State:     pr.State,
		Author:    pr.Author,
		URL:       pr.URL,
		Provider:  backend.Name(),
		FetchedAt: now,
	})
	if err != nil {
		return err
	}

	checks := ing.fetchChecks(ctx, backend, ref, r.Path)
	if err := ing.persistChecks(ctx, prID, checks); err != nil {
		return err
	}

	comments := flattenComments(prID, pr)
	if err := ing.store.ReplaceCommentsForPR(ctx, prID, comments); err != nil {
		return err
	}

	suggestions := deriveSuggestions(prID, r.Name, number, checks, comments, now)
	if err := ing.store.ReplacePendingFixSuggestions(ctx, prID, suggestions); err != nil {
		return err
	}

	ing.emitNotifications(ctx, prID, r.Name, number, checks, comments)
	return nil
}

// fetchErrorIsNoisy separates operator-facing fetch failures (unavailable
// CLI, subprocess that exited non-zero) from the benign no-open-PR outcome.
func fetchErrorIsNoisy(err error) bool {
	var cmdErr *cliexec.CommandError
	return errors.Is(err, provider.ErrProviderUnavailable) || errors.As(err, &cmdErr)
}

func (ing *Ingester) syncRoadmap(ctx context.Context, repoID, roadmap string) error {
	if roadmap == "" {
		return ing.store.DeleteRoadmapMapping(ctx, repoID)
	}
	return ing.store.UpsertRoadmapMapping(ctx, store.RoadmapMapping{
		ID:      store.StableID(repoID, "roadmap"),
		RepoID:  repoID,
		Roadmap: roadmap,
	})
}

func (ing *Ingester) fetchChecks(ctx context.Context, backend provider.Backend, ref provider.Ref, repoPath string) []provider.CheckRun {
	cf, ok := backend.(provider.ChecksFetcher)
	if !ok {
		return nil
	}
	checks, err := cf.FetchChecks(ctx, ref)
	if err != nil {
		slog.Warn("check fetch failed", "repo", repoPath, "error", err)
		return nil
	}
	return checks
}

func (ing *Ingester) persistChecks(ctx context.Context, prID string, checks []provider.CheckRun) error {
	runs := make([]store.CheckRun, 0, len(checks))
	for _, c := range checks {
		runs = append(runs, store.CheckRun{
			ID:          store.StableID(prID, "check", c.Name),
			PRID:        prID,
			Name:        c.Name,
			Status:      c.Status,
			Conclusion:  c.Conclusion,
			URL:         c.URL,
			CompletedAt: c.CompletedAt,
		})
	}
	return ing.store.ReplaceCheckRunsForPR(ctx, prID, runs)
}

// flattenComments projects the unified PR into pr_comments rows: one per
// general comment, one per inline review comment. Inline rows keep the
// tri-state resolution flag exactly as the provider reported it.
func flattenComments(prID string, pr *model.PullRequest) []store.PRComment {
	var out []store.PRComment

	for _, c := range pr.Comments {
		out = append(out, store.PRComment{
			ID:        store.StableID(prID, store.CommentGeneral, c.ID),
			PRID:      prID,
			SourceID:  c.ID,
			Kind:      store.CommentGeneral,
			Author:    c.Author,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
			URL:       c.URL,
		})
	}

	for _, rv := range pr.Reviews {
		for _, rc := range rv.Comments {
			out = append(out, store.PRComment{
				ID:         store.StableID(prID, store.CommentInline, rc.ID),
				PRID:       prID,
				SourceID:   rc.ID,
				Kind:       store.CommentInline,
				Author:     rv.Author,
				Body:       rc.Body,
				Path:       rc.Path,
				Line:       rc.Line,
				ThreadID:   rc.ThreadID,
				IsResolved: rc.IsResolved,
				CreatedAt:  rc.CreatedAt,
				URL:        rc.URL,
			})
		}
	}

	return out
}

// deriveSuggestions recomputes the pending fix suggestions for a PR from its
// current failing checks and explicitly-unresolved review comments. Comments
// with unknown resolution produce nothing: only a positive unresolved signal
// from the provider is actionable.
func deriveSuggestions(prID, repoName string, number int, checks []provider.CheckRun, comments []store.PRComment, now time.Time) []store.FixSuggestion {
	var out []store.FixSuggestion

	for _, c := range checks {
		if !checkFailed(c) {
			continue
		}
		out = append(out, store.FixSuggestion{
			ID:        store.StableID(prID, "fix", "check", c.Name),
			PRID:      prID,
			Severity:  store.SeverityHigh,
			Status:    store.SuggestionPending,
			Summary:   fmt.Sprintf("check %q is failing on %s#%d", c.Name, repoName, number),
			DetailURL: c.URL,
			CreatedAt: now,
		})
	}

	for _, c := range comments {
		if c.Kind != store.CommentInline || c.IsResolved == nil || *c.IsResolved {
			continue
		}
		out = append(out, store.FixSuggestion{
			ID:        store.StableID(prID, "fix", "comment", c.SourceID),
			PRID:      prID,
			Severity:  store.SeverityMedium,
			Status:    store.SuggestionPending,
			Summary:   fmt.Sprintf("unresolved review comment from %s on %s#%d", c.Author, repoName, number),
			DetailURL: c.URL,
			CreatedAt: now,
		})
	}

	return out
}

// checkFailed reports whether a check run concluded unsuccessfully. Running
// checks and soft outcomes (neutral, skipped) do not count.
func checkFailed(c provider.CheckRun) bool {
	switch strings.ToLower(c.Conclusion) {
	case "", "success", "neutral", "skipped":
		return false
	}
	return true
}

func (ing *Ingester) emitNotifications(ctx context.Context, prID, repoName string, number int, checks []provider.CheckRun, comments []store.PRComment) {
	for _, c := range checks {
		if !checkFailed(c) {
			continue
		}
		rec := store.NotificationRecord{
			ID:      store.StableID(prID, EventChecksFailed, c.Name),
			PRID:    prID,
			Kind:    EventChecksFailed,
			Message: fmt.Sprintf("check %q failing on %s#%d", c.Name, repoName, number),
		}
		if err := ing.notifier.Notify(ctx, rec); err != nil {
			slog.Warn("notification failed", "kind", rec.Kind, "error", err)
		}
	}

	for _, c := range comments {
		if c.Kind != store.CommentInline || c.IsResolved == nil || *c.IsResolved {
			continue
		}
		rec := store.NotificationRecord{
			ID:      store.StableID(prID, EventReviewPending, c.SourceID),
			PRID:    prID,
			Kind:    EventReviewPending,
			Message: fmt.Sprintf("unresolved comment from %s on %s#%d", c.Author, repoName, number),
		}
		if err := ing.notifier.Notify(ctx, rec); err != nil {
			slog.Warn("notification failed", "kind", rec.Kind, "error", err)
		}
	}
}
