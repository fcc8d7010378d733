package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/config"
	"github.com/promptping-ai/pull-request-ping/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "prping.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.NewStore(db)
}

func TestNotifyDeliversWebhook(t *testing.T) {
	var got store.NotificationRecord
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := newTestStore(t)
	n := NewNotifier(st, config.NotifyConfig{WebhookURL: srv.URL})
	ctx := context.Background()

	rec := store.NotificationRecord{
		ID:      store.StableID("n", "1"),
		Kind:    EventChecksFailed,
		Message: "check \"build\" failing on widgets#7",
	}
	require.NoError(t, n.Notify(ctx, rec))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, EventChecksFailed, got.Kind)
	assert.Equal(t, rec.Message, got.Message)

	records, err := st.ListNotifications(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNotifyDuplicateDeliversOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := newTestStore(t)
	n := NewNotifier(st, config.NotifyConfig{WebhookURL: srv.URL})
	ctx := context.Background()

	rec := store.NotificationRecord{ID: store.StableID("dup"), Kind: EventReviewPending, Message: "m"}
	require.NoError(t, n.Notify(ctx, rec))
	require.NoError(t, n.Notify(ctx, rec))

	assert.Equal(t, int32(1), calls.Load())
}

func TestNotifyEventFilter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := newTestStore(t)
	n := NewNotifier(st, config.NotifyConfig{
		WebhookURL: srv.URL,
		Events:     []string{EventChecksFailed},
	})
	ctx := context.Background()

	err := n.Notify(ctx, store.NotificationRecord{ID: store.StableID("a"), Kind: EventReviewPending, Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load(), "filtered kinds are recorded but not forwarded")

	err = n.Notify(ctx, store.NotificationRecord{ID: store.StableID("b"), Kind: EventChecksFailed, Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// Both records persisted regardless of filtering.
	records, err := st.ListNotifications(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestNotifyNoWebhookConfigured(t *testing.T) {
	st := newTestStore(t)
	n := NewNotifier(st, config.NotifyConfig{})
	ctx := context.Background()

	rec := store.NotificationRecord{ID: store.StableID("quiet"), Kind: EventChecksFailed, Message: "m", CreatedAt: time.Now()}
	require.NoError(t, n.Notify(ctx, rec))

	records, err := st.ListNotifications(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNotifyWebhookFailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	st := newTestStore(t)
	n := NewNotifier(st, config.NotifyConfig{WebhookURL: srv.URL})

	rec := store.NotificationRecord{ID: store.StableID("flaky"), Kind: EventChecksFailed, Message: "m"}
	require.NoError(t, n.Notify(context.Background(), rec))
}
