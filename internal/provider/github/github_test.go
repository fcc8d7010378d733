package github

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

// fakeRunner scripts gh invocations by substring match on the joined args.
type fakeRunner struct {
	responses map[string]string
	errors    map[string]error
	calls     []string
}

func (f *fakeRunner) Available() bool { return true }

func (f *fakeRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	joined := strings.Join(args, " ")
	f.calls = append(f.calls, joined)
	for key, err := range f.errors {
		if strings.Contains(joined, key) {
			return nil, err
		}
	}
	for key, out := range f.responses {
		if strings.Contains(joined, key) {
			return []byte(out), nil
		}
	}
	return nil, errors.New("unscripted call: " + joined)
}

const viewPayload = `{
  "number": 42,
  "title": "Add retry logic",
  "body": "Retries transient failures.",
  "state": "OPEN",
  "url": "https://github.com/acme/widgets/pull/42",
  "author": {"login": "alice"},
  "comments": [
    {"id": "IC_1", "author": {"login": "bob"}, "authorAssociation": "MEMBER", "body": "looks close", "createdAt": "2026-08-01T10:00:00Z", "url": "https://github.com/acme/widgets/pull/42#issuecomment-1"}
  ],
  "reviews": [
    {"id": "PRR_a", "author": {"login": "carol"}, "authorAssociation": "MEMBER", "body": "", "submittedAt": "2026-08-01T11:00:00Z", "state": "CHANGES_REQUESTED"}
  ],
  "files": [{"path": "retry.go", "additions": 40, "deletions": 2}]
}`

const inlinePayload = `[
  {"id": 1001, "user": {"login": "carol"}, "author_association": "MEMBER", "body": "off by one", "path": "retry.go", "line": 12, "created_at": "2026-08-01T11:01:00Z", "html_url": "https://github.com/acme/widgets/pull/42#discussion_r1001", "pull_request_review_id": 555},
  {"id": 1002, "user": {"login": "dave"}, "author_association": "NONE", "body": "rename this", "path": "retry.go", "line": 30, "created_at": "2026-08-01T12:00:00Z", "html_url": "https://github.com/acme/widgets/pull/42#discussion_r1002", "pull_request_review_id": 556}
]`

const threadsPayload = `{"data": {"repository": {"pullRequest": {"reviewThreads": {"nodes": [
  {"id": "PRRT_x1", "isResolved": true, "comments": {"nodes": [{"path": "retry.go", "line": 12, "author": {"login": "carol"}}]}}
]}}}}}`

func newFetchRunner() *fakeRunner {
	return &fakeRunner{responses: map[string]string{
		"pr view":           viewPayload,
		"pulls/42/comments": inlinePayload,
		"graphql":           threadsPayload,
	}}
}

func TestFetchPRReconciliation(t *testing.T) {
	b := &Backend{gh: newFetchRunner()}

	pr, err := b.FetchPR(context.Background(), provider.Ref{Identifier: "42"})
	require.NoError(t, err)

	require.NotNil(t, pr.Number)
	assert.Equal(t, 42, *pr.Number)
	assert.Equal(t, "Add retry logic", pr.Title)
	assert.Equal(t, "alice", pr.Author)
	require.Len(t, pr.Comments, 1)
	assert.Equal(t, "bob", pr.Comments[0].Author)

	// carol's inline comment lands on her existing review; dave gets a
	// synthesized COMMENTED review.
	require.Len(t, pr.Reviews, 2)
	carol := pr.Reviews[0]
	assert.Equal(t, "carol", carol.Author)
	assert.Equal(t, model.ReviewChangesRequested, carol.State)
	require.Len(t, carol.Comments, 1)

	dave := pr.Reviews[1]
	assert.Equal(t, "dave", dave.Author)
	assert.Equal(t, model.ReviewCommented, dave.State)
	assert.Equal(t, "NONE", dave.AuthorAssociation)
	assert.Equal(t, "2026-08-01T12:00:00Z", dave.SubmittedAt)
	require.Len(t, dave.Comments, 1)

	// Thread join: carol's comment matched a GraphQL thread, dave's did not.
	assert.Equal(t, "PRRT_x1", carol.Comments[0].ThreadID)
	require.NotNil(t, carol.Comments[0].IsResolved)
	assert.True(t, *carol.Comments[0].IsResolved)
	assert.Empty(t, dave.Comments[0].ThreadID)
	assert.Nil(t, dave.Comments[0].IsResolved)
}

func TestFetchPRGraphQLDegrades(t *testing.T) {
	r := newFetchRunner()
	r.errors = map[string]error{"graphql": errors.New("missing read:discussion scope")}
	b := &Backend{gh: r}

	pr, err := b.FetchPR(context.Background(), provider.Ref{Identifier: "42"})
	require.NoError(t, err)

	for _, review := range pr.Reviews {
		for _, c := range review.Comments {
			assert.Nil(t, c.IsResolved)
			assert.Empty(t, c.ThreadID)
		}
	}
}

func TestFetchPRIdempotent(t *testing.T) {
	b := &Backend{gh: newFetchRunner()}

	first, err := b.FetchPR(context.Background(), provider.Ref{Identifier: "42"})
	require.NoError(t, err)
	second, err := b.FetchPR(context.Background(), provider.Ref{Identifier: "42"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFetchPRBadRepoOverride(t *testing.T) {
	b := &Backend{gh: newFetchRunner()}

	_, err := b.FetchPR(context.Background(), provider.Ref{Repo: "not-a-repo"})
	assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
}

func TestAuthorJoinSynthesis(t *testing.T) {
	view := &prView{
		Number: 7,
		URL:    "https://github.com/o/r/pull/7",
		Reviews: []viewReview{
			{ID: "PRR_1", Author: viewUser{Login: "alice"}, State: "APPROVED"},
		},
	}
	inline := []restComment{
		{ID: 1, User: restUser{Login: "alice"}, Path: "a.go", Line: model.IntPtr(3), CreatedAt: "2026-08-02T09:00:00Z"},
		{ID: 2, User: restUser{Login: "bob"}, Path: "a.go", Line: model.IntPtr(9), CreatedAt: "2026-08-02T10:00:00Z"},
		{ID: 3, User: restUser{Login: "bob"}, Path: "b.go", Line: model.IntPtr(1), CreatedAt: "2026-08-02T08:00:00Z"},
	}

	pr := reconcile(view, inline, nil)

	require.Len(t, pr.Reviews, 2)
	assert.Equal(t, "alice", pr.Reviews[0].Author)
	assert.Len(t, pr.Reviews[0].Comments, 1)

	bob := pr.Reviews[1]
	assert.Equal(t, model.ReviewCommented, bob.State)
	assert.Len(t, bob.Comments, 2)
	// Earliest of bob's two inline comments.
	assert.Equal(t, "2026-08-02T08:00:00Z", bob.SubmittedAt)
}

func TestReplyToCommentRejectsBadID(t *testing.T) {
	r := &fakeRunner{}
	b := &Backend{gh: r}

	err := b.ReplyToComment(context.Background(), provider.Ref{}, "not-a-number", "body")
	assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
	assert.Empty(t, r.calls)
}

func TestResolveThread(t *testing.T) {
	t.Run("rejects malformed id before any call", func(t *testing.T) {
		r := &fakeRunner{}
		b := &Backend{gh: r}

		err := b.ResolveThread(context.Background(), provider.Ref{}, "12345")
		assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
		assert.Empty(t, r.calls)
	})

	t.Run("verifies mutation response", func(t *testing.T) {
		r := &fakeRunner{responses: map[string]string{
			"graphql": `{"data":{"resolveReviewThread":{"thread":{"isResolved":false}}}}`,
		}}
		b := &Backend{gh: r}

		err := b.ResolveThread(context.Background(), provider.Ref{}, "PRRT_abc")
		require.Error(t, err)
		assert.NotErrorIs(t, err, provider.ErrInvalidConfiguration)
	})

	t.Run("success", func(t *testing.T) {
		r := &fakeRunner{responses: map[string]string{
			"graphql": `{"data":{"resolveReviewThread":{"thread":{"isResolved":true}}}}`,
		}}
		b := &Backend{gh: r}

		err := b.ResolveThread(context.Background(), provider.Ref{}, "PRT_abc")
		assert.NoError(t, err)
	})
}

func TestFetchChecks(t *testing.T) {
	r := &fakeRunner{responses: map[string]string{
		"statusCheckRollup": `{"statusCheckRollup": [
			{"name": "build", "status": "COMPLETED", "conclusion": "SUCCESS", "detailsUrl": "https://ci.example/1", "completedAt": "2026-08-01T13:00:00Z"},
			{"context": "legacy-lint", "state": "FAILURE", "targetUrl": "https://ci.example/2"}
		]}`,
	}}
	b := &Backend{gh: r}

	checks, err := b.FetchChecks(context.Background(), provider.Ref{Identifier: "42"})
	require.NoError(t, err)
	require.Len(t, checks, 2)

	assert.Equal(t, "build", checks[0].Name)
	assert.Equal(t, "SUCCESS", checks[0].Conclusion)
	assert.False(t, checks[0].CompletedAt.IsZero())

	assert.Equal(t, "legacy-lint", checks[1].Name)
	assert.Equal(t, "failure", checks[1].Conclusion)
	assert.Equal(t, "completed", checks[1].Status)
	assert.Equal(t, "https://ci.example/2", checks[1].URL)
}

func TestMatchesRemote(t *testing.T) {
	b := &Backend{}
	assert.True(t, b.MatchesRemote("git@github.com:acme/widgets.git"))
	assert.True(t, b.MatchesRemote("https://github.com/acme/widgets.git"))
	assert.False(t, b.MatchesRemote("https://gitlab.com/acme/widgets.git"))
}
