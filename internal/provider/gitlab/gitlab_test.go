package gitlab

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/promptping-ai/pull-request-ping/internal/model"
	"github.com/promptping-ai/pull-request-ping/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	responses map[string]string
	calls     []string
}

func (f *fakeRunner) Available() bool { return true }

func (f *fakeRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	joined := strings.Join(args, " ")
	f.calls = append(f.calls, joined)
	for key, out := range f.responses {
		if strings.Contains(joined, key) {
			return []byte(out), nil
		}
	}
	return nil, errors.New("unscripted call: " + joined)
}

const mrPayload = `{
  "iid": 15,
  "title": "Tighten validation",
  "description": "Rejects empty payloads.",
  "state": "opened",
  "web_url": "https://gitlab.com/acme/widgets/-/merge_requests/15",
  "author": {"username": "erin"}
}`

const discussionsPayload = `[
  {
    "id": "disc-aaa",
    "notes": [
      {"id": 501, "body": "tighten this bound", "author": {"username": "frank"}, "created_at": "2026-08-03T09:00:00Z", "system": false, "resolvable": true, "resolved": false, "position": {"new_path": "validate.go", "new_line": 14}},
      {"id": 502, "body": "agreed", "author": {"username": "erin"}, "created_at": "2026-08-03T09:05:00Z", "system": false, "resolvable": true, "resolved": false, "position": {"new_path": "validate.go", "new_line": 14}}
    ]
  },
  {
    "id": "disc-bbb",
    "notes": [
      {"id": 503, "body": "ship it", "author": {"username": "grace"}, "created_at": "2026-08-03T10:00:00Z", "system": false, "resolvable": false, "resolved": false, "position": null}
    ]
  },
  {
    "id": "disc-ccc",
    "notes": [
      {"id": 504, "body": "added 1 commit", "author": {"username": "erin"}, "created_at": "2026-08-03T10:30:00Z", "system": true, "resolvable": false, "resolved": false, "position": null}
    ]
  }
]`

func newBackend() *Backend {
	return &Backend{glab: &fakeRunner{responses: map[string]string{
		"mr view":     mrPayload,
		"discussions": discussionsPayload,
	}}}
}

func TestFetchPRGrouping(t *testing.T) {
	pr, err := newBackend().FetchPR(context.Background(), provider.Ref{Identifier: "15"})
	require.NoError(t, err)

	require.NotNil(t, pr.Number)
	assert.Equal(t, 15, *pr.Number)
	assert.Equal(t, "OPENED", pr.State)

	// Two inline notes sharing a discussion id collapse into one review.
	require.Len(t, pr.Reviews, 1)
	review := pr.Reviews[0]
	assert.Equal(t, "disc-aaa", review.ID)
	assert.Equal(t, model.ReviewCommented, review.State)
	assert.Equal(t, "frank", review.Author)
	require.Len(t, review.Comments, 2)
	assert.Equal(t, "disc-aaa", review.Comments[0].ThreadID)
	assert.Equal(t, "validate.go", review.Comments[0].Path)
	require.NotNil(t, review.Comments[0].IsResolved)
	assert.False(t, *review.Comments[0].IsResolved)

	// The position-less note is a top-level comment, and the system note is
	// dropped entirely.
	require.Len(t, pr.Comments, 1)
	assert.Equal(t, "grace", pr.Comments[0].Author)
	assert.Equal(t, "NONE", pr.Comments[0].AuthorAssociation)
}

func TestFetchPRBadRepoOverride(t *testing.T) {
	_, err := newBackend().FetchPR(context.Background(), provider.Ref{Repo: "/broken"})
	assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
}

func TestReplyPostsGeneralNote(t *testing.T) {
	r := &fakeRunner{responses: map[string]string{
		"mr view": mrPayload,
		"mr note": `{}`,
	}}
	b := &Backend{glab: r}

	err := b.ReplyToComment(context.Background(), provider.Ref{}, "501", "done")
	require.NoError(t, err)

	last := r.calls[len(r.calls)-1]
	assert.Contains(t, last, "mr note 15")
	assert.Contains(t, last, "done")
}

func TestResolveThread(t *testing.T) {
	t.Run("empty id rejected", func(t *testing.T) {
		err := newBackend().ResolveThread(context.Background(), provider.Ref{}, "")
		assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
	})

	t.Run("resolves via native field", func(t *testing.T) {
		r := &fakeRunner{responses: map[string]string{
			"mr view":       mrPayload,
			"resolved=true": `{}`,
		}}
		b := &Backend{glab: r}

		err := b.ResolveThread(context.Background(), provider.Ref{}, "disc-aaa")
		require.NoError(t, err)
		assert.Contains(t, r.calls[len(r.calls)-1], "discussions/disc-aaa?resolved=true")
	})
}

func TestMatchesRemote(t *testing.T) {
	b := &Backend{}
	assert.True(t, b.MatchesRemote("https://gitlab.com/acme/widgets.git"))
	assert.True(t, b.MatchesRemote("git@gitlab.example.internal:acme/widgets.git"))
	assert.False(t, b.MatchesRemote("git@github.com:acme/widgets.git"))
}
