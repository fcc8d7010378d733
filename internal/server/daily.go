package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/store"
)

// maxDailyBytes caps the daily context document size.
const maxDailyBytes = 1 << 20

// DailyFetcher pulls a markdown working-context document from a configured
// URL at most once per local calendar day and persists it.
type DailyFetcher struct {
	store  *store.Store
	url    string
	client *http.Client
}

// NewDailyFetcher creates a fetcher; an empty url disables it.
func NewDailyFetcher(st *store.Store, url string) *DailyFetcher {
	return &DailyFetcher{
		store:  st,
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// MaybeFetch fetches and stores the document unless today's copy already
// exists. The day boundary is the local calendar date, so the first tick
// after midnight refreshes it.
func (d *DailyFetcher) MaybeFetch(ctx context.Context, now time.Time) error {
	if d.url == "" {
		return nil
	}

	today := now.Format("2006-01-02")
	latest, err := d.store.LatestDailyContext(ctx)
	if err != nil {
		return fmt.Errorf("reading daily context: %w", err)
	}
	if latest != nil && latest.Day == today {
		return nil
	}

	content, err := d.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching daily context: %w", err)
	}

	return d.store.SaveDailyContext(ctx, store.DailyContext{
		Day:       today,
		Content:   content,
		FetchedAt: now.UTC(),
	})
}

func (d *DailyFetcher) fetch(ctx context.Context) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/markdown, text/plain")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("daily context endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDailyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
