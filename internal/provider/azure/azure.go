// Package azure adapts the az CLI (Azure DevOps extension) into the unified
// pull request model.
package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
	"github.com/promptping-ai/pull-request-ping/internal/model"
	"github.com/promptping-ai/pull-request-ping/internal/provider"
)

// resolvedStatuses are the thread statuses Azure treats as settled. Any other
// status, including an absent one on system threads, counts as unresolved.
var resolvedStatuses = map[string]bool{
	"fixed":    true,
	"closed":   true,
	"wontfix":  true,
	"bydesign": true,
}

type runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
	Available() bool
}

// Backend implements provider.Backend on top of the az CLI. A git runner
// resolves the current branch when no PR identifier is given.
type Backend struct {
	az  runner
	git runner
}

// NewBackend creates an Azure DevOps backend. timeout bounds each az
// invocation; zero means the package default.
func NewBackend(timeout time.Duration) *Backend {
	return &Backend{
		az:  cliexec.NewRunner("az", timeout),
		git: cliexec.NewRunner("git", timeout),
	}
}

// Name returns "azure".
func (b *Backend) Name() string { return "azure" }

// MatchesRemote returns true for dev.azure.com and visualstudio.com remotes.
func (b *Backend) MatchesRemote(remote string) bool {
	s := strings.ToLower(remote)
	return strings.Contains(s, "dev.azure.com") || strings.Contains(s, "visualstudio.com")
}

// Available reports whether the az binary was found.
func (b *Backend) Available() bool { return b.az.Available() }

// FetchPR fetches the pull request and its comment threads. Every thread
// becomes one synthesized review; Azure has no separate general-comment
// concept, so the top-level comment list stays empty.
func (b *Backend) FetchPR(ctx context.Context, ref provider.Ref) (*model.PullRequest, error) {
	view, err := b.fetchShow(ctx, ref)
	if err != nil {
		return nil, err
	}
	threads, err := b.fetchThreads(ctx, ref, view)
	if err != nil {
		return nil, err
	}
	return foldThreads(view, threads), nil
}

// ReplyToComment posts a reply onto the thread named by commentID. Azure
// addresses replies at thread granularity.
func (b *Backend) ReplyToComment(ctx context.Context, ref provider.Ref, commentID, body string) error {
	threadID, err := numericID(commentID)
	if err != nil {
		return err
	}
	view, err := b.fetchShow(ctx, ref)
	if err != nil {
		return err
	}

	payload, err := writeBodyFile(map[string]any{"content": body, "commentType": "text"})
	if err != nil {
		return err
	}
	defer os.Remove(payload)

	_, err = b.az.Run(ctx, ref.Dir, "devops", "invoke",
		"--area", "git", "--resource", "pullRequestThreadComments",
		"--route-parameters",
		"project="+view.Repository.Project.Name,
		"repositoryId="+view.Repository.ID,
		"pullRequestId="+strconv.Itoa(view.PullRequestID),
		"threadId="+strconv.Itoa(threadID),
		"--http-method", "POST", "--in-file", payload,
		"--api-version", "7.1", "-o", "json")
	return err
}

// ResolveThread sets the thread's native status to fixed.
func (b *Backend) ResolveThread(ctx context.Context, ref provider.Ref, threadID string) error {
	id, err := numericID(threadID)
	if err != nil {
		return err
	}
	view, err := b.fetchShow(ctx, ref)
	if err != nil {
		return err
	}

	payload, err := writeBodyFile(map[string]any{"status": "fixed"})
	if err != nil {
		return err
	}
	defer os.Remove(payload)

	_, err = b.az.Run(ctx, ref.Dir, "devops", "invoke",
		"--area", "git", "--resource", "pullRequestThreads",
		"--route-parameters",
		"project="+view.Repository.Project.Name,
		"repositoryId="+view.Repository.ID,
		"pullRequestId="+strconv.Itoa(view.PullRequestID),
		"threadId="+strconv.Itoa(id),
		"--http-method", "PATCH", "--in-file", payload,
		"--api-version", "7.1", "-o", "json")
	return err
}

func (b *Backend) fetchShow(ctx context.Context, ref provider.Ref) (*prShow, error) {
	var out []byte
	var err error
	switch {
	case ref.Identifier != "":
		id, ierr := identifierID(ref.Identifier)
		if ierr != nil {
			return nil, ierr
		}
		out, err = b.az.Run(ctx, ref.Dir, "repos", "pr", "show", "--id", id, "-o", "json")
	default:
		branch, berr := b.currentBranch(ctx, ref.Dir)
		if berr != nil {
			return nil, berr
		}
		out, err = b.az.Run(ctx, ref.Dir, "repos", "pr", "list",
			"--source-branch", branch, "--status", "active", "--top", "1", "-o", "json")
	}
	if err != nil {
		return nil, err
	}

	// pr list returns an array; pr show a single object.
	if ref.Identifier == "" {
		var list []prShow
		if err := json.Unmarshal(out, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: no active pull request for current branch", provider.ErrInvalidResponse)
		}
		return &list[0], nil
	}

	var view prShow
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	if view.PullRequestID == 0 {
		return nil, fmt.Errorf("%w: pr payload has no id", provider.ErrInvalidResponse)
	}
	return &view, nil
}

func (b *Backend) fetchThreads(ctx context.Context, ref provider.Ref, view *prShow) ([]thread, error) {
	out, err := b.az.Run(ctx, ref.Dir, "devops", "invoke",
		"--area", "git", "--resource", "pullRequestThreads",
		"--route-parameters",
		"project="+view.Repository.Project.Name,
		"repositoryId="+view.Repository.ID,
		"pullRequestId="+strconv.Itoa(view.PullRequestID),
		"--api-version", "7.1", "-o", "json")
	if err != nil {
		return nil, err
	}
	var list threadList
	if err := json.Unmarshal(out, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return list.Value, nil
}

func (b *Backend) currentBranch(ctx context.Context, dir string) (string, error) {
	out, err := b.git.Run(ctx, dir, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(string(out))
	if branch == "" {
		return "", fmt.Errorf("%w: detached HEAD, pass a pull request id", provider.ErrInvalidConfiguration)
	}
	return branch, nil
}

// foldThreads converts comment threads into synthesized reviews. Thread
// status drives both the review state and the per-comment resolved flag, but
// asymmetrically: an absent status yields a PENDING review whose comments are
// explicitly unresolved, never unknown.
func foldThreads(view *prShow, threads []thread) *model.PullRequest {
	number := view.PullRequestID
	pr := &model.PullRequest{
		Title:  view.Title,
		Body:   view.Description,
		State:  model.NormalizeState(view.Status),
		Author: view.CreatedBy.UniqueName,
		URL:    view.URL,
		Number: &number,
	}

	for _, t := range threads {
		state := model.ReviewPending
		if resolvedStatuses[strings.ToLower(t.Status)] {
			state = model.ReviewApproved
		}
		resolved := resolvedStatuses[strings.ToLower(t.Status)]

		review := model.Review{
			ID:                strconv.Itoa(t.ID),
			AuthorAssociation: "NONE",
			State:             state,
		}
		for _, c := range t.Comments {
			if c.IsDeleted {
				continue
			}
			if review.Author == "" {
				review.Author = c.Author.UniqueName
				review.SubmittedAt = c.PublishedDate
			}
			review.Comments = append(review.Comments, model.ReviewComment{
				ID:         strconv.Itoa(c.ID),
				Path:       threadPath(t.ThreadContext),
				Line:       threadLine(t.ThreadContext),
				Body:       c.Content,
				CreatedAt:  c.PublishedDate,
				ThreadID:   strconv.Itoa(t.ID),
				IsResolved: model.BoolPtr(resolved),
			})
		}
		if len(review.Comments) > 0 {
			pr.Reviews = append(pr.Reviews, review)
		}
	}
	return pr
}

// threadPath returns the file path, empty for PR-level threads.
func threadPath(tc *threadContext) string {
	if tc == nil {
		return ""
	}
	return strings.TrimPrefix(tc.FilePath, "/")
}

// threadLine returns the anchored line, absent for PR-level threads.
func threadLine(tc *threadContext) *int {
	if tc == nil {
		return nil
	}
	if tc.RightFileStart != nil {
		return model.IntPtr(tc.RightFileStart.Line)
	}
	if tc.LeftFileStart != nil {
		return model.IntPtr(tc.LeftFileStart.Line)
	}
	return nil
}

// prURLPattern matches the numeric id segment of an Azure DevOps pull
// request web URL (.../pullrequest/88).
var prURLPattern = regexp.MustCompile(`(?i)/pullrequest/(\d+)(?:[/?#]|$)`)

// identifierID converts a PR identifier into the numeric id az expects.
// Numbers pass through; web URLs carry the id in their trailing
// /pullrequest/{n} segment. Anything else is rejected before any
// subprocess call.
func identifierID(identifier string) (string, error) {
	if _, err := strconv.Atoi(identifier); err == nil {
		return identifier, nil
	}
	if m := prURLPattern.FindStringSubmatch(identifier); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: identifier %q is neither a PR number nor a pull request URL", provider.ErrInvalidConfiguration, identifier)
}

func numericID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: thread id %q is not a positive integer", provider.ErrInvalidConfiguration, id)
	}
	return n, nil
}

// writeBodyFile stages a JSON request body for az devops invoke --in-file.
func writeBodyFile(body map[string]any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "prping-az-*.json")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}

var _ provider.Backend = (*Backend)(nil)
