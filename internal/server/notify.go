package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/config"
	"github.com/promptping-ai/pull-request-ping/internal/store"
)

// Notification kinds emitted by the ingestion loop.
const (
	EventChecksFailed  = "checks_failed"
	EventReviewPending = "review_pending"
)

// notifyHTTPClient is a dedicated HTTP client for webhook deliveries,
// isolated from http.DefaultClient to avoid global state mutation.
var notifyHTTPClient = &http.Client{Timeout: 15 * time.Second}

// Notifier persists notification records and optionally forwards them to a
// configured webhook. Records carry content-derived IDs, so repeated ticks
// observing the same condition insert (and deliver) at most once.
type Notifier struct {
	store  *store.Store
	cfg    config.NotifyConfig
	client *http.Client
}

// NewNotifier creates a notifier over the given store and config.
func NewNotifier(st *store.Store, cfg config.NotifyConfig) *Notifier {
	return &Notifier{store: st, cfg: cfg, client: notifyHTTPClient}
}

// Notify records the event and forwards it to the webhook when one is
// configured and the event kind passes the filter. A webhook delivery failure
// is logged, not returned: the record is already durable.
func (n *Notifier) Notify(ctx context.Context, rec store.NotificationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	inserted, err := n.store.InsertNotification(ctx, rec)
	if err != nil {
		return fmt.Errorf("recording notification: %w", err)
	}
	if !inserted {
		// Seen before, nothing new to deliver.
		return nil
	}

	if n.cfg.WebhookURL == "" {
		return nil
	}

	// If Events is non-empty, only forward listed kinds.
	if len(n.cfg.Events) > 0 {
		allowed := false
		for _, e := range n.cfg.Events {
			if e == rec.Kind {
				allowed = true
				break
			}
		}
		if !allowed {
			slog.Debug("notification kind filtered out", "kind", rec.Kind)
			return nil
		}
	}

	if err := n.deliver(ctx, rec); err != nil {
		slog.Warn("webhook delivery failed", "kind", rec.Kind, "error", err)
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, rec store.NotificationRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling notification payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("sending notification", "kind", rec.Kind, "message", rec.Message)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
