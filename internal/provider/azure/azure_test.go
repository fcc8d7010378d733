package azure

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

const showPayload = `{
  "pullRequestId": 88,
  "title": "Wire up telemetry",
  "description": "Adds the exporter.",
  "status": "active",
  "createdBy": {"displayName": "Heidi", "uniqueName": "heidi@acme.example"},
  "repository": {"id": "repo-guid", "name": "widgets", "project": {"id": "proj-guid", "name": "Platform"}},
  "url": "https://dev.azure.com/acme/Platform/_git/widgets/pullrequest/88"
}`

const threadsPayload = `{"value": [
  {
    "id": 1, "status": "fixed",
    "threadContext": {"filePath": "/exporter.go", "rightFileStart": {"line": 22}},
    "comments": [
      {"id": 10, "content": "flush on shutdown", "author": {"uniqueName": "ivan@acme.example"}, "publishedDate": "2026-08-04T08:00:00Z", "commentType": "text"},
      {"id": 11, "content": "done", "author": {"uniqueName": "heidi@acme.example"}, "publishedDate": "2026-08-04T08:30:00Z", "commentType": "text"}
    ]
  },
  {
    "id": 2, "status": "active",
    "threadContext": null,
    "comments": [
      {"id": 12, "content": "needs a changelog entry", "author": {"uniqueName": "judy@acme.example"}, "publishedDate": "2026-08-04T09:00:00Z", "commentType": "text"}
    ]
  },
  {
    "id": 3, "status": "",
    "threadContext": null,
    "comments": [
      {"id": 13, "content": "policy check queued", "author": {"uniqueName": "svc@acme.example"}, "publishedDate": "2026-08-04T09:05:00Z", "commentType": "system"}
    ]
  }
]}`

func newBackend() (*Backend, *fakeRunner) {
	az := &fakeRunner{responses: map[string]string{
		"pr show":            showPayload,
		"pullRequestThreads": threadsPayload,
	}}
	return &Backend{az: az, git: &fakeRunner{}}, az
}

func TestFetchPRStatusMapping(t *testing.T) {
	b, _ := newBackend()

	pr, err := b.FetchPR(context.Background(), provider.Ref{Identifier: "88"})
	require.NoError(t, err)

	require.NotNil(t, pr.Number)
	assert.Equal(t, 88, *pr.Number)
	assert.Equal(t, "ACTIVE", pr.State)
	assert.Empty(t, pr.Comments, "azure has no general-comment concept")
	require.Len(t, pr.Reviews, 3)

	fixed := pr.Reviews[0]
	assert.Equal(t, model.ReviewApproved, fixed.State)
	assert.Equal(t, "ivan@acme.example", fixed.Author)
	require.Len(t, fixed.Comments, 2)
	for _, c := range fixed.Comments {
		require.NotNil(t, c.IsResolved)
		assert.True(t, *c.IsResolved)
		assert.Equal(t, "exporter.go", c.Path)
		require.NotNil(t, c.Line)
		assert.Equal(t, 22, *c.Line)
		assert.Equal(t, "1", c.ThreadID)
	}

	active := pr.Reviews[1]
	assert.Equal(t, model.ReviewPending, active.State)
	require.Len(t, active.Comments, 1)
	require.NotNil(t, active.Comments[0].IsResolved)
	assert.False(t, *active.Comments[0].IsResolved)
	// PR-level thread still surfaces, with no file context.
	assert.Empty(t, active.Comments[0].Path)
	assert.Nil(t, active.Comments[0].Line)

	// Absent status maps to PENDING with explicitly unresolved comments.
	system := pr.Reviews[2]
	assert.Equal(t, model.ReviewPending, system.State)
	require.NotNil(t, system.Comments[0].IsResolved)
	assert.False(t, *system.Comments[0].IsResolved)
}

func TestFetchPRByURL(t *testing.T) {
	b, az := newBackend()

	url := "https://dev.azure.com/acme/Platform/_git/widgets/pullrequest/88"
	pr, err := b.FetchPR(context.Background(), provider.Ref{Identifier: url})
	require.NoError(t, err)

	require.NotNil(t, pr.Number)
	assert.Equal(t, 88, *pr.Number)
	assert.Contains(t, az.calls[0], "pr show --id 88", "az only accepts the numeric id")
}

func TestFetchPRRejectsBadIdentifier(t *testing.T) {
	b, az := newBackend()

	_, err := b.FetchPR(context.Background(), provider.Ref{Identifier: "https://dev.azure.com/acme/Platform/_git/widgets"})
	assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
	assert.Empty(t, az.calls)
}

func TestIdentifierID(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
		wantErr    bool
	}{
		{"88", "88", false},
		{"https://dev.azure.com/acme/Platform/_git/widgets/pullrequest/88", "88", false},
		{"https://acme.visualstudio.com/Platform/_git/widgets/pullRequest/123", "123", false},
		{"https://dev.azure.com/acme/Platform/_git/widgets/pullrequest/88?view=files", "88", false},
		{"https://dev.azure.com/acme/Platform/_git/widgets", "", true},
		{"eighty-eight", "", true},
	}
	for _, tt := range tests {
		got, err := identifierID(tt.identifier)
		if tt.wantErr {
			assert.ErrorIs(t, err, provider.ErrInvalidConfiguration, tt.identifier)
			continue
		}
		require.NoError(t, err, tt.identifier)
		assert.Equal(t, tt.want, got, tt.identifier)
	}
}

func TestResolveThreadPatchesStatus(t *testing.T) {
	b, az := newBackend()
	az.responses["PATCH"] = `{}`

	err := b.ResolveThread(context.Background(), provider.Ref{Identifier: "88"}, "2")
	require.NoError(t, err)

	last := az.calls[len(az.calls)-1]
	assert.Contains(t, last, "threadId=2")
	assert.Contains(t, last, "PATCH")
}

func TestResolveThreadRejectsBadID(t *testing.T) {
	b, az := newBackend()

	err := b.ResolveThread(context.Background(), provider.Ref{}, "PRRT_abc")
	assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
	assert.Empty(t, az.calls)
}

func TestReplyTargetsThread(t *testing.T) {
	b, az := newBackend()
	az.responses["POST"] = `{}`

	err := b.ReplyToComment(context.Background(), provider.Ref{Identifier: "88"}, "2", "on it")
	require.NoError(t, err)

	last := az.calls[len(az.calls)-1]
	assert.Contains(t, last, "pullRequestThreadComments")
	assert.Contains(t, last, "threadId=2")
}

func TestCurrentBranchResolution(t *testing.T) {
	az := &fakeRunner{responses: map[string]string{
		"pr list":            `[` + showPayload + `]`,
		"pullRequestThreads": threadsPayload,
	}}
	git := &fakeRunner{responses: map[string]string{"branch --show-current": "feature/telemetry\n"}}
	b := &Backend{az: az, git: git}

	pr, err := b.FetchPR(context.Background(), provider.Ref{})
	require.NoError(t, err)
	require.NotNil(t, pr.Number)
	assert.Equal(t, 88, *pr.Number)
	assert.Contains(t, az.calls[0], "--source-branch feature/telemetry")
}

func TestMatchesRemote(t *testing.T) {
	b := &Backend{}
	assert.True(t, b.MatchesRemote("https://dev.azure.com/acme/Platform/_git/widgets"))
	assert.True(t, b.MatchesRemote("https://acme.visualstudio.com/Platform/_git/widgets"))
	assert.False(t, b.MatchesRemote("git@github.com:acme/widgets.git"))
}
