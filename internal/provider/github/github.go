// Package github adapts the gh CLI into the unified pull request model.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
	"github.com/promptping-ai/pull-request-ping/internal/model"
	"github.com/promptping-ai/pull-request-ping/internal/provider"
)

// viewFields is the field list requested from gh pr view. Inline review
// comments are notably absent from this payload and come from REST instead.
const viewFields = "number,title,body,state,url,author,comments,reviews,files"

// threadsQuery fetches review threads with true resolution status. Thread
// node ids are the only handle the resolve mutation accepts.
const threadsQuery = `query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    pullRequest(number: $number) {
      reviewThreads(first: 100) {
        nodes {
          id
          isResolved
          comments(first: 100) {
            nodes { path line author { login } }
          }
        }
      }
    }
  }
}`

const resolveMutation = `mutation($id: ID!) {
  resolveReviewThread(input: {threadId: $id}) {
    thread { isResolved }
  }
}`

var (
	ownerRepoPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*/[A-Za-z0-9][A-Za-z0-9._-]*$`)
	threadIDPattern  = regexp.MustCompile(`^(PRRT_|PRT_)`)
)

// runner is the subset of cliexec.Runner the backend needs; tests substitute
// a scripted fake.
type runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
	Available() bool
}

// Backend implements provider.Backend on top of the gh CLI.
type Backend struct {
	gh runner
}

// NewBackend creates a GitHub backend. timeout bounds each gh invocation;
// zero means the package default.
func NewBackend(timeout time.Duration) *Backend {
	return &Backend{gh: cliexec.NewRunner("gh", timeout)}
}

// Name returns "github".
func (b *Backend) Name() string { return "github" }

// MatchesRemote returns true for github.com remotes, including SSH forms.
func (b *Backend) MatchesRemote(remote string) bool {
	return strings.Contains(strings.ToLower(remote), "github.com")
}

// Available reports whether the gh binary was found.
func (b *Backend) Available() bool { return b.gh.Available() }

// FetchPR fetches and reconciles a pull request from three gh calls: the
// view payload, the REST inline-comment list, and the GraphQL thread list.
// A GraphQL failure degrades to unknown resolution instead of failing the
// fetch.
func (b *Backend) FetchPR(ctx context.Context, ref provider.Ref) (*model.PullRequest, error) {
	repo, err := normalizeRepo(ref.Repo)
	if err != nil {
		return nil, err
	}

	view, err := b.fetchView(ctx, ref, repo)
	if err != nil {
		return nil, err
	}

	owner, name, err := splitRepo(repo, view.URL)
	if err != nil {
		return nil, err
	}

	inline, err := b.fetchInlineComments(ctx, ref.Dir, owner, name, view.Number)
	if err != nil {
		return nil, err
	}

	threads, err := b.fetchThreads(ctx, ref.Dir, owner, name, view.Number)
	if err != nil {
		slog.Warn("review thread fetch failed, resolution status unknown",
			"repo", owner+"/"+name, "pr", view.Number, "error", err)
		threads = nil
	}

	return reconcile(view, inline, threads), nil
}

// ReplyToComment posts a reply threaded under commentID via the REST
// in_reply_to mechanism. The id is validated before any subprocess call.
func (b *Backend) ReplyToComment(ctx context.Context, ref provider.Ref, commentID, body string) error {
	if _, err := strconv.ParseInt(commentID, 10, 64); err != nil {
		return fmt.Errorf("%w: reply target %q is not a numeric comment id", provider.ErrInvalidConfiguration, commentID)
	}
	repo, err := normalizeRepo(ref.Repo)
	if err != nil {
		return err
	}
	view, err := b.fetchView(ctx, ref, repo)
	if err != nil {
		return err
	}
	owner, name, err := splitRepo(repo, view.URL)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("repos/%s/%s/pulls/%d/comments", owner, name, view.Number)
	_, err = b.gh.Run(ctx, ref.Dir, "api", "-X", "POST", endpoint,
		"-F", "in_reply_to="+commentID, "-f", "body="+body)
	return err
}

// ResolveThread resolves threadID via GraphQL. The id must carry a review
// thread node prefix; anything else is rejected before any subprocess call.
// The mutation response must confirm the thread as resolved.
func (b *Backend) ResolveThread(ctx context.Context, ref provider.Ref, threadID string) error {
	if !threadIDPattern.MatchString(threadID) {
		return fmt.Errorf("%w: thread id %q lacks a PRRT_/PRT_ prefix", provider.ErrInvalidConfiguration, threadID)
	}

	out, err := b.gh.Run(ctx, ref.Dir, "api", "graphql",
		"-f", "query="+resolveMutation, "-f", "id="+threadID)
	if err != nil {
		return err
	}

	var resp struct {
		Data struct {
			ResolveReviewThread struct {
				Thread struct {
					IsResolved bool `json:"isResolved"`
				} `json:"thread"`
			} `json:"resolveReviewThread"`
		} `json:"data"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	if !resp.Data.ResolveReviewThread.Thread.IsResolved {
		return &cliexec.CommandError{
			Command: "gh api graphql resolveReviewThread",
			Stderr:  "mutation did not report the thread as resolved",
		}
	}
	return nil
}

// FetchChecks implements provider.ChecksFetcher using the PR's status check
// rollup.
func (b *Backend) FetchChecks(ctx context.Context, ref provider.Ref) ([]provider.CheckRun, error) {
	repo, err := normalizeRepo(ref.Repo)
	if err != nil {
		return nil, err
	}
	args := []string{"pr", "view"}
	if ref.Identifier != "" {
		args = append(args, ref.Identifier)
	}
	args = append(args, "--json", "statusCheckRollup")
	if repo != "" {
		args = append(args, "-R", repo)
	}

	out, err := b.gh.Run(ctx, ref.Dir, args...)
	if err != nil {
		return nil, err
	}
	var view checksView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}

	checks := make([]provider.CheckRun, 0, len(view.StatusCheckRollup))
	for _, n := range view.StatusCheckRollup {
		cr := provider.CheckRun{
			Name:       n.Name,
			Status:     n.Status,
			Conclusion: n.Conclusion,
			URL:        n.DetailsURL,
		}
		// Legacy commit statuses use context/state/targetUrl instead.
		if cr.Name == "" {
			cr.Name = n.Context
		}
		if cr.Conclusion == "" {
			cr.Conclusion = strings.ToLower(n.State)
		}
		if cr.Status == "" {
			cr.Status = "completed"
		}
		if cr.URL == "" {
			cr.URL = n.TargetURL
		}
		if n.CompletedAt != "" {
			if ts, err := time.Parse(time.RFC3339, n.CompletedAt); err == nil {
				cr.CompletedAt = ts
			}
		}
		checks = append(checks, cr)
	}
	return checks, nil
}

func (b *Backend) fetchView(ctx context.Context, ref provider.Ref, repo string) (*prView, error) {
	args := []string{"pr", "view"}
	if ref.Identifier != "" {
		args = append(args, ref.Identifier)
	}
	args = append(args, "--json", viewFields)
	if repo != "" {
		args = append(args, "-R", repo)
	}

	out, err := b.gh.Run(ctx, ref.Dir, args...)
	if err != nil {
		return nil, err
	}
	var view prView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	if view.Number == 0 {
		return nil, fmt.Errorf("%w: pr view payload has no number", provider.ErrInvalidResponse)
	}
	return &view, nil
}

func (b *Backend) fetchInlineComments(ctx context.Context, dir, owner, name string, number int) ([]restComment, error) {
	endpoint := fmt.Sprintf("repos/%s/%s/pulls/%d/comments", owner, name, number)
	out, err := b.gh.Run(ctx, dir, "api", "--paginate", endpoint)
	if err != nil {
		return nil, err
	}
	var comments []restComment
	if err := json.Unmarshal(out, &comments); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return comments, nil
}

func (b *Backend) fetchThreads(ctx context.Context, dir, owner, name string, number int) ([]gqlThread, error) {
	out, err := b.gh.Run(ctx, dir, "api", "graphql",
		"-f", "query="+threadsQuery,
		"-f", "owner="+owner,
		"-f", "name="+name,
		"-F", "number="+strconv.Itoa(number))
	if err != nil {
		return nil, err
	}
	var resp gqlThreadsResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return resp.Data.Repository.PullRequest.ReviewThreads.Nodes, nil
}

// normalizeRepo validates an optional owner/repo override.
func normalizeRepo(repo string) (string, error) {
	if repo == "" {
		return "", nil
	}
	if !ownerRepoPattern.MatchString(repo) {
		return "", fmt.Errorf("%w: repo override %q is not owner/repo shaped", provider.ErrInvalidConfiguration, repo)
	}
	return repo, nil
}

// splitRepo derives owner and name, preferring the explicit override and
// falling back to the PR's web URL.
func splitRepo(repo, prURL string) (string, string, error) {
	if repo != "" {
		parts := strings.SplitN(repo, "/", 2)
		return parts[0], parts[1], nil
	}
	u, err := url.Parse(prURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: unparseable pr url %q", provider.ErrInvalidResponse, prURL)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// Pattern: {owner}/{repo}/pull/{number}
	if len(parts) < 4 || parts[2] != "pull" {
		return "", "", fmt.Errorf("%w: pr url %q lacks owner/repo", provider.ErrInvalidResponse, prURL)
	}
	return parts[0], parts[1], nil
}

// Verify interface satisfaction at compile time.
var (
	_ provider.Backend       = (*Backend)(nil)
	_ provider.ChecksFetcher = (*Backend)(nil)
)
